package rexec

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

// Supervisor is the top-level engine (C5): it owns the TCP listener,
// accepts connections, performs the SSH handshake and channel negotiation
// for each one, and drives every live Session's state machine forward
// with a single cooperative polling loop. Grounded on eliquious-shelob's
// Server.listen accept-deadline loop, restructured so the polling loop
// only ever does bookkeeping (Accept with a short deadline, Session.Tick,
// presence updates) -- the actual I/O forwarding for each Session runs on
// its own goroutines (Design Notes §9), not on this loop.
type Supervisor struct {
	cfg    Config
	logger *logrus.Logger

	listener *net.TCPListener

	mu       sync.Mutex
	sessions []*Session
}

// NewSupervisor validates cfg, applies its defaults, and returns a
// Supervisor ready to Run. logger may be nil, in which case
// logrus.StandardLogger() is used.
func NewSupervisor(cfg Config, logger *logrus.Logger) (*Supervisor, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Supervisor{cfg: cfg, logger: logger}, nil
}

// Addr returns the listener's bound address. Only valid once Run has
// opened the listener.
func (sv *Supervisor) Addr() net.Addr {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if sv.listener == nil {
		return nil
	}
	return sv.listener.Addr()
}

// Run opens the listener and blocks, accepting connections and ticking
// every live Session, until ctx is cancelled or the attached PresenceSink
// reports it is no longer idle (i.e. a driven GUI message loop asked to
// quit). It returns nil on an orderly shutdown.
func (sv *Supervisor) Run(ctx context.Context) error {
	sv.emit(&ServerStartedEvent{})

	addr, err := net.ResolveTCPAddr("tcp", sv.cfg.Addr)
	if err != nil {
		return fmt.Errorf("rexec: invalid listen address %q: %w", sv.cfg.Addr, err)
	}
	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return err
	}

	sv.mu.Lock()
	sv.listener = listener
	sv.mu.Unlock()
	sv.emit(&ListenerOpenedEvent{Addr: listener.Addr().(*net.TCPAddr)})

	defer func() {
		listener.Close()
		sv.emit(&ListenerClosedEvent{})
		sv.emit(&ServerStoppedEvent{})
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if !sv.cfg.Presence.Idle() {
			return nil
		}

		listener.SetDeadline(time.Now().Add(sv.cfg.AcceptDeadline))
		conn, err := listener.Accept()
		switch {
		case err == nil:
			sv.emit(&ConnectionAcceptedEvent{RemoteAddr: conn.RemoteAddr()})
			go sv.handleConn(conn)
		case isTimeout(err):
			// Nothing accepted this round; fall through to tick.
		case errors.Is(err, net.ErrClosed):
			// The listener was torn down out from under us (e.g. a
			// concurrent Close); this is a shutdown, not a failure
			// worth reporting through the event sink.
			sv.logger.WithError(errListenerClosed).Debug("accept loop stopping")
			return nil
		default:
			sv.emit(&ConnectionFailedEvent{Error: err})
		}

		sv.tick()
	}
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

// tick advances every live Session by one scheduler step, drains and
// reports their events, starts the Closing shutdown for any Session that
// just became Closing, drops Sessions that finished, and republishes
// aggregate presence.
func (sv *Supervisor) tick() {
	now := time.Now()

	sv.mu.Lock()
	sessions := append([]*Session(nil), sv.sessions...)
	sv.mu.Unlock()

	var live []*Session
	busy := false
	for _, sess := range sessions {
		sess.Tick(now)

		for {
			ev, ok := sess.PopEvent()
			if !ok {
				break
			}
			sv.emit(&ev)
			switch ev.Kind {
			case SessionOpen:
				sv.cfg.Presence.Notify("connected", ev.Name)
			case SessionClosing:
				sv.cfg.Presence.Notify("disconnected", ev.Name)
				go sess.Close()
			case SessionTimeout:
				sess.discardClose()
			}
		}

		switch sess.State() {
		case StateClosed, StateDiscarded:
			// Dropped: no further ticks or event draining.
		default:
			live = append(live, sess)
			if sess.State() == StateRunning {
				busy = true
			}
		}
	}

	sv.mu.Lock()
	sv.sessions = live
	sv.mu.Unlock()

	sv.cfg.Presence.SetBusy(busy)
	sv.cfg.Presence.SetText(fmt.Sprintf("%d session(s)", len(live)))
}

// handleConn performs the SSH handshake for one accepted TCP connection,
// waits for it to open its one session channel, and registers the
// resulting Session. It returns once the Session has been registered or
// the connection has failed to produce one.
func (sv *Supervisor) handleConn(conn net.Conn) {
	policy := NewServerPolicy(sv.cfg.Username, sv.cfg.AuthorizedKeys, sv.cfg.Codec)
	sshConfig := policy.ServerConfig()
	for _, key := range sv.cfg.HostKeys {
		sshConfig.AddHostKey(key)
	}

	sshConn, chans, globalReqs, err := ssh.NewServerConn(conn, sshConfig)
	if err != nil {
		sv.emit(&HandshakeFailedEvent{RemoteAddr: conn.RemoteAddr(), Error: err})
		conn.Close()
		return
	}
	sv.emit(&HandshakeSuccessfulEvent{RemoteAddr: sshConn.RemoteAddr()})
	go ssh.DiscardRequests(globalReqs)

	ctx := withServerConn(context.Background(), sshConn)

	name := fmt.Sprintf("Session-%s", sshConn.RemoteAddr())
	if host, port, err := net.SplitHostPort(sshConn.RemoteAddr().String()); err == nil {
		name = fmt.Sprintf("Session-%s-%s", host, port)
	}
	logger := sv.logger.WithField("session", name)

	timeout := time.NewTimer(sv.cfg.ChannelAcceptTimeout)
	defer timeout.Stop()

	for {
		select {
		case newCh, ok := <-chans:
			if !ok {
				sv.emit(&HandshakeFailedEvent{RemoteAddr: sshConn.RemoteAddr(), Error: fmt.Errorf("rexec: connection closed before a session channel was opened")})
				sshConn.Close()
				return
			}
			if !policy.CheckChannelRequest(newCh.ChannelType()) {
				newCh.Reject(ssh.UnknownChannelType, "unsupported channel type")
				continue
			}
			channel, requests, err := newCh.Accept()
			if err != nil {
				sv.emit(&HandshakeFailedEvent{RemoteAddr: sshConn.RemoteAddr(), Error: err})
				sshConn.Close()
				return
			}
			sess := NewSession(sv.cfg, name, channel, sshConn, policy, logger)
			sv.addSession(sess)
			go serveChannelRequests(ctx, requests, policy, logger)
			return
		case <-timeout.C:
			sv.emit(&HandshakeFailedEvent{RemoteAddr: sshConn.RemoteAddr(), Error: fmt.Errorf("rexec: no session channel opened")})
			sshConn.Close()
			return
		}
	}
}

// serveChannelRequests answers shell/exec requests on a session channel
// by recording them with policy, and rejects anything else. It runs for
// the lifetime of the channel, independent of the Session's own
// forwarders. ctx carries the ssh.ServerConn (withServerConn) purely so
// the rejection log line below can name the peer without threading it
// through another parameter.
func serveChannelRequests(ctx context.Context, in <-chan *ssh.Request, policy *ServerPolicy, logger *logrus.Entry) {
	for req := range in {
		var ok bool
		switch req.Type {
		case "shell":
			ok = policy.CheckShellRequest()
		case "exec":
			var payload struct{ Command string }
			ssh.Unmarshal(req.Payload, &payload)
			ok = policy.CheckExecRequest([]byte(payload.Command))
		default:
			ok = false
			if conn, found := serverConnFromContext(ctx); found {
				logger.WithField("remote_addr", conn.RemoteAddr()).WithField("request_type", req.Type).Debug("rejected unsupported channel request")
			}
		}
		if req.WantReply {
			req.Reply(ok, nil)
		}
	}
}

func (sv *Supervisor) addSession(sess *Session) {
	sv.mu.Lock()
	sv.sessions = append(sv.sessions, sess)
	sv.mu.Unlock()
}

func (sv *Supervisor) emit(evt Event) {
	if sv.cfg.EventHandler != nil {
		sv.cfg.EventHandler(evt)
	}
}
