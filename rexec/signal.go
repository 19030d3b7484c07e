package rexec

import (
	"fmt"
	"os/exec"
	"syscall"
)

// exitStatusOf derives the SSH exit-status value for a finished child
// process, per spec.md §6's exit-status contract: the child's OS exit
// code, or 0 when no child ran. If the process was killed by a signal
// (as happens when Session.close force-terminates a still-running
// child), the contract still mandates 0 -- spec.md §7 item 3 is explicit
// that the client must see a clean close, not the OS-level signal status.
func exitStatusOf(waitErr error) int {
	if waitErr == nil {
		return 0
	}
	exitErr, ok := waitErr.(*exec.ExitError)
	if !ok {
		return 0
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		return exitErr.ExitCode()
	}
	if status.Exited() {
		return status.ExitStatus()
	}
	// Signaled (e.g. force-killed during Session.close): spec.md
	// mandates a clean close with status 0, not the signal status.
	return 0
}

// waitDiagnostic extracts a human-readable diagnostic from the error
// returned by (*exec.Cmd).Wait, for Session.Close's log line. ok is false
// when waitErr carries no syscall.WaitStatus (no child ran, or the
// platform doesn't expose one), in which case there is nothing to log.
func waitDiagnostic(waitErr error) (diagnostic string, ok bool) {
	if waitErr == nil {
		return "", false
	}
	exitErr, isExitErr := waitErr.(*exec.ExitError)
	if !isExitErr {
		return "", false
	}
	status, isWaitStatus := exitErr.Sys().(syscall.WaitStatus)
	if !isWaitStatus {
		return "", false
	}
	return signalDiagnostic(status), true
}

// signalDiagnostic describes a syscall.WaitStatus in human terms for the
// Closing-state log line, reusing the POSIX signal name table the teacher
// built for SSH "signal" requests -- which this spec does not support
// (see DESIGN.md) -- repurposed here for exit diagnostics instead.
func signalDiagnostic(status syscall.WaitStatus) string {
	if status.Exited() {
		return fmt.Sprintf("exited status=%d", status.ExitStatus())
	}
	if status.Signaled() {
		return fmt.Sprintf("signaled sig=%s", signalName(status.Signal()))
	}
	return "unknown"
}

func signalName(sig syscall.Signal) string {
	switch sig {
	case syscall.SIGABRT:
		return "ABRT"
	case syscall.SIGALRM:
		return "ALRM"
	case syscall.SIGFPE:
		return "FPE"
	case syscall.SIGHUP:
		return "HUP"
	case syscall.SIGILL:
		return "ILL"
	case syscall.SIGINT:
		return "INT"
	case syscall.SIGKILL:
		return "KILL"
	case syscall.SIGPIPE:
		return "PIPE"
	case syscall.SIGQUIT:
		return "QUIT"
	case syscall.SIGSEGV:
		return "SEGV"
	case syscall.SIGTERM:
		return "TERM"
	case syscall.SIGUSR1:
		return "USR1"
	case syscall.SIGUSR2:
		return "USR2"
	default:
		return sig.String()
	}
}
