package rexec

import (
	"bytes"
	"sync"
	"sync/atomic"

	"golang.org/x/crypto/ssh"
)

// ServerPolicy implements the SSH server callbacks (C3): which auth methods
// are offered, which public keys are accepted, which channel and request
// kinds are accepted, and it records the negotiated command. One
// ServerPolicy is created per accepted TCP connection and is 1:1 with a
// Session. Grounded on original_source.PyRexecServer.
type ServerPolicy struct {
	username string
	keys     []AuthorizedKey
	codec    Codec

	mu      sync.Mutex
	ready   atomic.Bool
	command *string // nil => shell requested
}

// NewServerPolicy builds a ServerPolicy for one connection.
func NewServerPolicy(username string, keys []AuthorizedKey, codec Codec) *ServerPolicy {
	return &ServerPolicy{username: username, keys: keys, codec: codec}
}

// Ready reports whether a shell or exec request has been accepted yet.
// It transitions false->true exactly once and never back (spec.md §3).
func (p *ServerPolicy) Ready() bool { return p.ready.Load() }

// Command returns the negotiated command. nil means a bare shell request.
func (p *ServerPolicy) Command() *string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.command
}

// Codec returns the text codec used to decode exec/side-channel payloads.
func (p *ServerPolicy) Codec() Codec { return p.codec }

// AllowedAuthMethods implements the "allowed authentication methods"
// callback: only the configured username may authenticate, and then only
// via public key. Every other username offers zero methods, so no
// information about which accounts exist leaks to the client.
func (p *ServerPolicy) AllowedAuthMethods(username string) []string {
	if username != p.username {
		return nil
	}
	return []string{"publickey"}
}

// CheckPublicKey implements the public-key auth callback. Per spec.md §9's
// Open Question, comparison is conservative: byte-equality of the
// serialized public-key blob, not fingerprint or object identity.
func (p *ServerPolicy) CheckPublicKey(username string, key ssh.PublicKey) bool {
	if username != p.username {
		return false
	}
	blob := key.Marshal()
	for _, k := range p.keys {
		if bytes.Equal(k.Key.Marshal(), blob) {
			return true
		}
	}
	return false
}

// CheckChannelRequest implements the channel-kind filter: only "session"
// channels are accepted.
func (p *ServerPolicy) CheckChannelRequest(kind string) bool {
	return kind == "session"
}

// CheckShellRequest marks the policy ready with no negotiated command
// (shell was requested). It is idempotent: a second shell/exec request
// after ready is already true is accepted without effect, per spec.md §9's
// Open Question (whichever request arrives first wins).
func (p *ServerPolicy) CheckShellRequest() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready.Load() {
		p.command = nil
		p.ready.Store(true)
	}
	return true
}

// CheckExecRequest decodes the command payload with the configured codec
// and marks the policy ready with that command. A codec failure rejects
// the request and never marks the policy ready.
func (p *ServerPolicy) CheckExecRequest(payload []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready.Load() {
		return true
	}
	cmd, err := p.codec.Decode(payload)
	if err != nil {
		return false
	}
	p.command = &cmd
	p.ready.Store(true)
	return true
}

// ServerConfig builds an *ssh.ServerConfig wired to this policy's
// public-key callback. It carries no host keys; callers add them with
// AddHostKey on the returned config.
func (p *ServerPolicy) ServerConfig() *ssh.ServerConfig {
	cfg := &ssh.ServerConfig{
		PublicKeyCallback: func(meta ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if !p.CheckPublicKey(meta.User(), key) {
				return nil, errAuthFailed
			}
			return &ssh.Permissions{
				Extensions: map[string]string{
					"pubkey-fp": ssh.FingerprintSHA256(key),
				},
			}, nil
		},
	}
	return cfg
}
