package rexec

import (
	"net"

	"github.com/sirupsen/logrus"
)

// Event is a marker interface for everything the supervisor and its
// sessions report. EventHandler implementations must be non-blocking.
type Event interface{}

// EventHandler receives every Event emitted by the Supervisor and its
// Sessions. It must not block; slow handlers should hand off to a queue.
type EventHandler func(Event)

// SessionEventKind enumerates the lifecycle events a Session may emit.
// Per spec.md §3/§8, the sequence of kinds emitted by a single Session is
// always a prefix of Open, Closing, Closed, or else exactly Timeout.
type SessionEventKind int

const (
	SessionOpen SessionEventKind = iota
	SessionClosing
	SessionClosed
	SessionTimeout
)

func (k SessionEventKind) String() string {
	switch k {
	case SessionOpen:
		return "open"
	case SessionClosing:
		return "closing"
	case SessionClosed:
		return "closed"
	case SessionTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// SessionEvent is emitted by a Session as it moves through its lifecycle.
type SessionEvent struct {
	Kind SessionEventKind
	Name string
}

// ServerStartedEvent is emitted once, before the listener is created.
type ServerStartedEvent struct{}

// ServerStoppedEvent is emitted when Supervisor.Run is returning.
type ServerStoppedEvent struct{}

// ListenerOpenedEvent is emitted once the TCP listener is bound.
type ListenerOpenedEvent struct {
	Addr *net.TCPAddr
}

// ListenerClosedEvent is emitted when the listener has been torn down.
type ListenerClosedEvent struct{}

// ConnectionAcceptedEvent is emitted for every accepted TCP connection,
// before the SSH handshake is attempted.
type ConnectionAcceptedEvent struct {
	RemoteAddr net.Addr
}

// ConnectionFailedEvent is emitted when Accept itself fails (not a
// handshake failure).
type ConnectionFailedEvent struct {
	Error error
}

// HandshakeFailedEvent is emitted when the SSH transport handshake,
// authentication, or the channel-accept wait fails or times out.
type HandshakeFailedEvent struct {
	RemoteAddr net.Addr
	Error      error
}

// HandshakeSuccessfulEvent is emitted once a session channel has been
// accepted for a connection.
type HandshakeSuccessfulEvent struct {
	RemoteAddr net.Addr
}

// LoggingEventHandler logs every Event to the given logrus.Logger.
func LoggingEventHandler(logger *logrus.Logger) EventHandler {
	return func(evt Event) {
		switch e := evt.(type) {
		case *ServerStartedEvent:
			logger.Info("server started")
		case *ServerStoppedEvent:
			logger.Info("server stopped")
		case *ListenerOpenedEvent:
			logger.WithField("addr", e.Addr).Info("listener opened")
		case *ListenerClosedEvent:
			logger.Info("listener closed")
		case *ConnectionAcceptedEvent:
			logger.WithField("remote_addr", e.RemoteAddr).Info("connection accepted")
		case *ConnectionFailedEvent:
			logger.WithError(e.Error).Warn("accept failed")
		case *HandshakeFailedEvent:
			logger.WithField("remote_addr", e.RemoteAddr).WithError(e.Error).Warn("handshake failed")
		case *HandshakeSuccessfulEvent:
			logger.WithField("remote_addr", e.RemoteAddr).Info("handshake successful")
		case *SessionEvent:
			logger.WithField("session", e.Name).Infof("session %s", e.Kind)
		default:
			logger.WithField("event", evt).Debug("unhandled event")
		}
	}
}
