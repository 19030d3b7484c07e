//go:build !windows

package rexec

import (
	"os"
	"os/exec"
)

// osPipe wraps os.Pipe so session.go doesn't import "os" directly just
// for this one call.
func osPipe() (*os.File, *os.File, error) {
	return os.Pipe()
}

// hideConsoleWindow is a no-op outside Windows.
func hideConsoleWindow(cmd *exec.Cmd) {}
