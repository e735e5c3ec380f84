package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/justyntemme/triage/internal/cli"
)

func main() {
	// Handle OS-specific console visibility
	manageConsole(launchesWindow(os.Args[1:]))

	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// launchesWindow reports whether args open the GUI without --debug, in
// which case no console is wanted.
func launchesWindow(args []string) bool {
	positional := 0
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch a {
		case "--debug":
			return false
		case "-c", "--config", "--log-file":
			i++
			continue
		}
		if strings.HasPrefix(a, "-") {
			continue
		}
		switch a {
		case "sort", "check", "history", "config", "help", "completion":
			return false
		}
		positional++
	}
	return positional <= 1
}
