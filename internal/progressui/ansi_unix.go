//go:build !windows

package progressui

import "os"

// enableWindowsANSI is a no-op; Unix terminals speak ANSI natively.
func enableWindowsANSI(*os.File) {}
