package agents

import (
	"os"
	"strings"
)

// init runs before Bubble Tea acquires the terminal (and before any TUI starts).
//
// In some PTY/TTY capture environments (notably agent runners), Bubble Tea's init
// triggers Lipgloss/Termenv background detection, which can emit OSC/DSR control
// sequences to stdout. Those sequences are harmless in a real terminal but can
// break JSON parsers consuming robot-mode output.
//
// We treat robot-mode invocations as non-interactive and set CI=1 early. Termenv
// uses CI to disable TTY probing, preventing those sequences from being written.
func init() {
	if os.Getenv("CI") != "" {
		return
	}

	if !shouldSuppressTTYQueries(os.Args, os.Getenv("KW_ROBOT") == "1", os.Getenv("KW_TEST_MODE") != "") {
		return
	}

	_ = os.Setenv("CI", "1")
}

// robotFlags are the kw flags whose output is consumed by machines rather
// than rendered in a terminal. stdlib flag accepts one or two dashes, so
// both spellings count.
var robotFlags = []string{
	"-positions",
	"-stats",
	"-snapshot",
	"-agents-md",
	"-version",
	"-help",
	"-h",
}

func shouldSuppressTTYQueries(args []string, envRobot, envTest bool) bool {
	if envRobot || envTest {
		return true
	}

	for _, arg := range args {
		// Trim off a value given as -flag=value.
		if i := strings.IndexByte(arg, '='); i >= 0 {
			arg = arg[:i]
		}
		for _, f := range robotFlags {
			if arg == f || arg == "-"+f {
				return true
			}
		}
	}

	return false
}
