// Package constants holds application-wide constants shared by the CLI,
// the TUI and the background worker layer.
package constants

import "time"

// Application identity
const (
	// AppName is the canonical application name used for config paths,
	// the single-instance rendezvous and log output.
	AppName = "cloudtree"

	// ConfigFileName is the settings file inside the config directory.
	ConfigFileName = "cloudtree.conf"
)

// Subprocess handling
const (
	// RcloneBinary is the default executable name resolved on PATH when
	// no explicit binary path is configured.
	RcloneBinary = "rclone"

	// StderrTailLines is how many trailing stderr lines are kept and
	// attached to a CommandFailed error for diagnostics.
	StderrTailLines = 20

	// LineBufferSize is the per-stream channel buffer for stdout/stderr
	// lines read off a running rclone process. Progress output refreshes
	// a few times per second, so a small buffer absorbs UI hiccups
	// without unbounded growth.
	LineBufferSize = 256

	// ProgressStatsInterval is passed to rclone as --stats so progress
	// lines arrive at a predictable cadence.
	ProgressStatsInterval = 500 * time.Millisecond

	// KillGracePeriod is how long a cancelled process gets to exit after
	// SIGTERM before the process group is killed outright.
	KillGracePeriod = 3 * time.Second
)

// Event bus sizing
const (
	// EventBusDefaultBuffer is the per-subscriber channel buffer.
	EventBusDefaultBuffer = 512

	// EventBusMaxBuffer caps caller-requested buffer sizes.
	EventBusMaxBuffer = 4096
)

// Single-instance rendezvous
const (
	// RendezvousConnectTimeout is how long a second instance waits when
	// probing for a live first instance before assuming the rendezvous
	// state is stale.
	RendezvousConnectTimeout = 500 * time.Millisecond

	// RendezvousWriteTimeout bounds the activation message write.
	RendezvousWriteTimeout = time.Second
)
