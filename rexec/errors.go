package rexec

import "errors"

// ErrNoHostKeys is returned by NewSupervisor (and so by New) when the
// configuration carries no usable host keys.
var ErrNoHostKeys = errors.New("rexec: no host keys configured")

// ErrNoAuthorizedKeys is returned by NewSupervisor (and so by New) when the
// authorized key set is empty. The cmd/rexecd entrypoint treats this as fatal and
// opens the authorized_keys directory via the host shell-execute facility,
// mirroring original_source's refusal-to-start behavior.
var ErrNoAuthorizedKeys = errors.New("rexec: no authorized keys configured")

// errListenerClosed classifies a Run accept-loop exit caused by the
// listener itself being torn down (net.ErrClosed), as opposed to a
// reportable accept failure. It is only ever logged, never returned --
// Run's own return value for this path is nil, an orderly shutdown.
var errListenerClosed = errors.New("rexec: listener closed")

// errAuthFailed is returned by ServerPolicy's PublicKeyCallback on any
// rejected key; its text intentionally carries no detail so failed-auth
// logs never leak which accounts or keys exist.
var errAuthFailed = errors.New("rexec: public key rejected")
