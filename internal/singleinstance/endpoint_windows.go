//go:build windows

package singleinstance

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/Microsoft/go-winio"
	"github.com/cespare/xxhash/v2"
)

// endpointName returns the rendezvous named pipe for the config dir.
func endpointName(dir string) string {
	return fmt.Sprintf(`\\.\pipe\cloudtree-%x`, xxhash.Sum64String(dir))
}

func dialEndpoint(endpoint string, timeout time.Duration) (net.Conn, error) {
	return winio.DialPipe(endpoint, &timeout)
}

func listenEndpoint(endpoint string) (net.Listener, error) {
	cfg := &winio.PipeConfig{
		// Owner only
		SecurityDescriptor: "D:P(A;;GA;;;OW)",
		InputBufferSize:    4096,
		OutputBufferSize:   4096,
	}
	return winio.ListenPipe(endpoint, cfg)
}

// cleanupEndpoint is a no-op; named pipes vanish with their listener.
func cleanupEndpoint(string) {}

// isProcessAlive checks pid existence; FindProcess fails on Windows
// when the process does not exist.
func isProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	process.Release()
	return true
}
