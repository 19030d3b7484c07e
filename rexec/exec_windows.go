//go:build windows

package rexec

import (
	"os"
	"os/exec"
	"syscall"
)

func osPipe() (*os.File, *os.File, error) {
	return os.Pipe()
}

// hideConsoleWindow stops a spawned shell from popping up its own console
// window, mirroring original_source's CREATE_NO_WINDOW use in win32process.
func hideConsoleWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: 0x08000000}
}
