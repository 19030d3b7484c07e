package rexec

import (
	"context"

	"golang.org/x/crypto/ssh"
)

type contextKey string

const keySSHConn contextKey = "server-conn"

// withServerConn adds an ssh.ServerConn to a context, so logging and
// diagnostics deep in a Session's call stack can recover the peer address
// without threading it through every function signature.
func withServerConn(ctx context.Context, sshConn *ssh.ServerConn) context.Context {
	return context.WithValue(ctx, keySSHConn, sshConn)
}

// serverConnFromContext returns the ssh.ServerConn stored by withServerConn.
func serverConnFromContext(ctx context.Context) (*ssh.ServerConn, bool) {
	conn, ok := ctx.Value(keySSHConn).(*ssh.ServerConn)
	return conn, ok
}
