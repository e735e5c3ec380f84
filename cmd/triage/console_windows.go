//go:build windows

package main

import "golang.org/x/sys/windows"

// manageConsole detaches the console window when the GUI is launched
// without --debug.
func manageConsole(hide bool) {
	if !hide {
		return
	}
	freeConsole := windows.NewLazySystemDLL("kernel32.dll").NewProc("FreeConsole")
	freeConsole.Call()
}
