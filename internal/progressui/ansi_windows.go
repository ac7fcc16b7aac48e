//go:build windows

package progressui

import (
	"os"

	"golang.org/x/sys/windows"
)

// enableWindowsANSI turns on Virtual Terminal processing so cursor
// movement and colors render instead of printing escape bytes.
func enableWindowsANSI(f *os.File) {
	handle := windows.Handle(f.Fd())
	var mode uint32
	if err := windows.GetConsoleMode(handle, &mode); err == nil {
		const enableVirtualTerminalProcessing = 0x0004
		_ = windows.SetConsoleMode(handle, mode|enableVirtualTerminalProcessing)
	}
}
