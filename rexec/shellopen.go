package rexec

import (
	"fmt"
	"os/exec"
	"runtime"
)

// ShellOpener invokes the host's shell-execute facility with a verb
// ("open", "edit", "explore", ...) on a path, anchored at a working
// directory. It replaces original_source's win32api.ShellExecute.
// Non-Windows verbs collapse to the platform opener (xdg-open/open); the
// verb is still recorded for parity with spec.md §6's typical-verbs list.
type ShellOpener interface {
	Open(verb, path, cwd string) error
}

// SystemShellOpener shells out to the platform's default opener.
type SystemShellOpener struct{}

func (SystemShellOpener) Open(verb, path, cwd string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		// "start" is a cmd.exe builtin; the leading empty string is the
		// window-title argument "start" expects before the target.
		cmd = exec.Command("cmd", "/C", "start", "", verb, path)
	case "darwin":
		cmd = exec.Command("open", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	cmd.Dir = cwd
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("rexec: shell-execute verb=%s path=%s: %w", verb, path, err)
	}
	return nil
}

// fakeShellOpener records invocations for tests instead of shelling out.
type fakeShellOpener struct {
	verb, path, cwd string
	err             error
}

func (f *fakeShellOpener) Open(verb, path, cwd string) error {
	f.verb, f.path, f.cwd = verb, path, cwd
	return f.err
}
