package rexec

import (
	"fmt"
	"runtime"
	"time"

	"github.com/google/shlex"
	"golang.org/x/crypto/ssh"
)

const (
	// defaultAcceptDeadline is the supervisor's per-Accept polling
	// timeout, per spec.md §5's "50ms per-read" contractual constant.
	defaultAcceptDeadline = 50 * time.Millisecond

	// defaultChannelAcceptTimeout is how long the supervisor waits for a
	// connection to open exactly one channel, per spec.md §5/§6.
	defaultChannelAcceptTimeout = 10 * time.Second

	// defaultSessionDeadline is how long a Pending Session waits for a
	// shell/exec request before being silently discarded, per spec.md §5.
	defaultSessionDeadline = 10 * time.Second
)

// Config configures the Supervisor (C5): listen address, the one account
// that may authenticate, its authorized keys, the host keys presented
// during key exchange, the working directory and shell template used to
// spawn children, the text codec, and the collaborators (EventHandler,
// PresenceSink) the core reports through. Grounded on
// eliquious-shelob/config.go's Config struct, generalized from a pluggable
// SSH-library config to rexecd's fixed single-user, single-channel policy.
type Config struct {
	// Addr is the bind address of the TCP listener, e.g. ":2200".
	Addr string

	// Username is the one account name that may authenticate.
	Username string

	// AuthorizedKeys is the set of public keys permitted to authenticate
	// as Username.
	AuthorizedKeys []AuthorizedKey

	// HostKeys are the keys the server presents during key exchange. At
	// least one is required.
	HostKeys []ssh.Signer

	// WorkingDir is the cwd for every spawned child and for FileOpener
	// invocations.
	WorkingDir string

	// ShellTemplate is the argv used to spawn the shell for a bare
	// "shell" request, and whose elements are reused with ExecFlag and
	// the command appended for an "exec" request (e.g. ["cmd", "/Q"]).
	ShellTemplate []string

	// ExecFlag is the token inserted before the command string when
	// building an exec invocation from ShellTemplate (e.g. "/C").
	ExecFlag string

	// Codec decodes exec commands and side-channel payloads. Defaults to
	// UTF8Codec.
	Codec Codec

	// AcceptDeadline is the per-Accept polling timeout. Defaults to 50ms.
	AcceptDeadline time.Duration

	// ChannelAcceptTimeout bounds how long the supervisor waits for a
	// connection to open its one channel. Defaults to 10s.
	ChannelAcceptTimeout time.Duration

	// SessionDeadline bounds how long a Session waits, once constructed,
	// for a shell/exec request. Defaults to 10s.
	SessionDeadline time.Duration

	// Clipboard is the host clipboard implementation. Defaults to
	// SystemClipboard.
	Clipboard Clipboard

	// ShellOpener is the host shell-execute implementation. Defaults to
	// SystemShellOpener.
	ShellOpener ShellOpener

	// EventHandler receives diagnostic Events. Must be non-blocking.
	EventHandler EventHandler

	// Presence is the narrow front-end interface (busy/notify/text/idle).
	// Defaults to NoopPresenceSink.
	Presence PresenceSink
}

// withDefaults returns a copy of c with zero-valued fields replaced by
// defaults; it never mutates c.
func (c Config) withDefaults() Config {
	if c.Codec == nil {
		c.Codec = UTF8Codec{}
	}
	if c.AcceptDeadline == 0 {
		c.AcceptDeadline = defaultAcceptDeadline
	}
	if c.ChannelAcceptTimeout == 0 {
		c.ChannelAcceptTimeout = defaultChannelAcceptTimeout
	}
	if c.SessionDeadline == 0 {
		c.SessionDeadline = defaultSessionDeadline
	}
	if c.Clipboard == nil {
		c.Clipboard = SystemClipboard{}
	}
	if c.ShellOpener == nil {
		c.ShellOpener = SystemShellOpener{}
	}
	if c.Presence == nil {
		c.Presence = NoopPresenceSink{}
	}
	if c.ExecFlag == "" {
		if runtime.GOOS == "windows" {
			c.ExecFlag = "/C"
		} else {
			c.ExecFlag = "-c"
		}
	}
	return c
}

func (c Config) validate() error {
	if len(c.HostKeys) == 0 {
		return ErrNoHostKeys
	}
	if len(c.AuthorizedKeys) == 0 {
		return ErrNoAuthorizedKeys
	}
	if c.Username == "" {
		return fmt.Errorf("rexec: username must be set")
	}
	if len(c.ShellTemplate) == 0 {
		return fmt.Errorf("rexec: shell template must be set")
	}
	return nil
}

// OptionFunc modifies a Config in place. Grounded on shelob.go's
// OptionFunc pattern.
type OptionFunc func(*Config) error

func WithAddr(addr string) OptionFunc {
	return func(c *Config) error { c.Addr = addr; return nil }
}

func WithUsername(username string) OptionFunc {
	return func(c *Config) error { c.Username = username; return nil }
}

func WithAuthorizedKeys(keys []AuthorizedKey) OptionFunc {
	return func(c *Config) error { c.AuthorizedKeys = keys; return nil }
}

func WithAuthorizedKeysFile(path string) OptionFunc {
	return func(c *Config) error {
		keys, err := LoadAuthorizedKeys(path)
		if err != nil {
			return err
		}
		c.AuthorizedKeys = keys
		return nil
	}
}

func WithHostKey(signer ssh.Signer) OptionFunc {
	return func(c *Config) error { c.HostKeys = append(c.HostKeys, signer); return nil }
}

func WithHostKeyFile(path string) OptionFunc {
	return func(c *Config) error {
		signer, err := LoadHostKey(path)
		if err != nil {
			return err
		}
		c.HostKeys = append(c.HostKeys, signer)
		return nil
	}
}

func WithWorkingDir(dir string) OptionFunc {
	return func(c *Config) error { c.WorkingDir = dir; return nil }
}

func WithShellTemplate(argv []string) OptionFunc {
	return func(c *Config) error { c.ShellTemplate = argv; return nil }
}

// WithShell splits raw into argv using POSIX shell quoting rules, for
// configuration sources (a config file or a --shell flag) that carry the
// shell invocation as a single string rather than a pre-split argv, e.g.
// "cmd /Q". Grounded on eliquious-shelob's use of shlex to split a
// session's negotiated command string.
func WithShell(raw string) OptionFunc {
	return func(c *Config) error {
		argv, err := shlex.Split(raw)
		if err != nil {
			return fmt.Errorf("rexec: parse shell template %q: %w", raw, err)
		}
		c.ShellTemplate = argv
		return nil
	}
}

func WithCodec(codec Codec) OptionFunc {
	return func(c *Config) error { c.Codec = codec; return nil }
}

func WithEventHandler(handler EventHandler) OptionFunc {
	return func(c *Config) error { c.EventHandler = handler; return nil }
}

func WithPresenceSink(sink PresenceSink) OptionFunc {
	return func(c *Config) error { c.Presence = sink; return nil }
}

func WithAcceptDeadline(d time.Duration) OptionFunc {
	return func(c *Config) error { c.AcceptDeadline = d; return nil }
}

func WithExecFlag(flag string) OptionFunc {
	return func(c *Config) error { c.ExecFlag = flag; return nil }
}
