//go:build windows

package rclone

import "os/exec"

// setProcAttrs is a no-op on Windows; process-tree termination is
// handled by Kill on the process handle.
func setProcAttrs(cmd *exec.Cmd) {}

// terminateProcess kills the child process. Windows has no SIGTERM
// equivalent for console-less children, so termination is immediate.
func terminateProcess(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

// killProcessGroup is the same as terminateProcess on Windows.
func killProcessGroup(cmd *exec.Cmd) error {
	return terminateProcess(cmd)
}
