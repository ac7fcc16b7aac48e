//go:build !windows

package singleinstance

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cespare/xxhash/v2"
)

// endpointName returns the rendezvous socket path. Unix socket paths
// are capped near 108 bytes, so the config dir is hashed into a short
// name under the system temp directory instead of being joined in.
func endpointName(dir string) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("cloudtree-%x.sock", xxhash.Sum64String(dir)))
}

func dialEndpoint(endpoint string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", endpoint, timeout)
}

func listenEndpoint(endpoint string) (net.Listener, error) {
	listener, err := net.Listen("unix", endpoint)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(endpoint, 0600); err != nil {
		listener.Close()
		return nil, err
	}
	return listener, nil
}

func cleanupEndpoint(endpoint string) {
	os.Remove(endpoint)
}

// isProcessAlive checks pid existence with a kill(0) probe; on Unix
// os.FindProcess always succeeds.
func isProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
