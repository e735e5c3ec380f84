package app

import (
	"os/exec"
	"runtime"
)

// viewerCommand builds the command that hands path to the desktop's
// default application.
func viewerCommand(goos, path string) *exec.Cmd {
	switch goos {
	case "darwin":
		return exec.Command("open", path)
	case "windows":
		// The empty argument is start's window title.
		return exec.Command("cmd", "/c", "start", "", path)
	default:
		return exec.Command("xdg-open", path)
	}
}

func platformOpen(path string) error {
	return viewerCommand(runtime.GOOS, path).Start()
}
