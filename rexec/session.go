package rexec

import (
	"os/exec"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

// SessionState is the Session's position in its lifecycle
// (spec.md §4.2):
//
//	Pending --policy.ready--> Opening --spawn--> Running --forwarders--> Closing --drain+wait--> Closed
//	   \--deadline elapsed--> Discarded
type SessionState int

const (
	StatePending SessionState = iota
	StateOpening
	StateRunning
	StateClosing
	StateClosed
	StateDiscarded
)

// Session owns one SSH channel, spawns at most one child process, wires
// the Forwarders or side-channel handler, and performs ordered shutdown
// with a real process exit status (C4). Grounded on
// original_source.PyRexecSession, restructured around the explicit
// SessionState enum Design Notes §9 calls for instead of sentinel values.
type Session struct {
	name    string
	channel ssh.Channel
	conn    *ssh.ServerConn
	cfg     Config
	policy  *ServerPolicy
	logger  *logrus.Entry

	deadline time.Time

	mu     sync.Mutex
	state  SessionState
	events []SessionEvent

	done     chan struct{}
	doneOnce sync.Once
	wg       sync.WaitGroup

	discardOnce sync.Once

	cmd *exec.Cmd
}

// NewSession constructs a Pending Session bound to channel. It does not
// block and does not touch the network; Tick drives it forward.
func NewSession(cfg Config, name string, channel ssh.Channel, conn *ssh.ServerConn, policy *ServerPolicy, logger *logrus.Entry) *Session {
	return &Session{
		name:     name,
		channel:  channel,
		conn:     conn,
		cfg:      cfg,
		policy:   policy,
		logger:   logger,
		deadline: time.Now().Add(cfg.SessionDeadline),
		state:    StatePending,
		done:     make(chan struct{}),
	}
}

// Name returns the Session's stable name (peer address + port).
func (s *Session) Name() string { return s.name }

// State returns the current SessionState.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PopEvent removes and returns the oldest pending SessionEvent, FIFO,
// matching original_source's get_event(). ok is false when no event is
// pending.
func (s *Session) PopEvent() (ev SessionEvent, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return SessionEvent{}, false
	}
	ev, s.events = s.events[0], s.events[1:]
	return ev, true
}

// pushEventLocked appends ev to the pending queue. Callers must hold s.mu.
func (s *Session) pushEventLocked(kind SessionEventKind) {
	s.events = append(s.events, SessionEvent{Kind: kind, Name: s.name})
}

// Tick advances the Session's state machine by one scheduler step. It is
// called by the Supervisor once per event-loop iteration for every live
// Session, and never blocks.
func (s *Session) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StatePending:
		if s.policy.Ready() {
			s.state = StateOpening
			s.open()
		} else if now.After(s.deadline) {
			s.state = StateDiscarded
			s.pushEventLocked(SessionTimeout)
		}
	case StateRunning:
		select {
		case <-s.done:
			s.state = StateClosing
			s.pushEventLocked(SessionClosing)
		default:
		}
	}
}

// open dispatches on the negotiated command (s.mu held). It always emits
// exactly one SessionOpen event, then either starts background tasks and
// moves to Running, or -- for clipget and spawn failures -- transitions
// straight to Closing with no tasks at all, per spec.md §4.2.
func (s *Session) open() {
	s.pushEventLocked(SessionOpen)

	cmd := ParseCommand(s.policy.Command())
	switch cmd.Kind {
	case CommandClipGet:
		if err := sendClipboardText(s.channel, s.cfg.Codec, s.cfg.Clipboard); err != nil {
			s.logger.WithError(err).Error("clipget failed")
		}
		s.state = StateClosing
		s.pushEventLocked(SessionClosing)

	case CommandClipSet:
		s.startTask(func() error {
			return newClipSetter(s.channel, s.cfg.Codec, s.cfg.Clipboard).run()
		})
		s.state = StateRunning

	case CommandShellOpen:
		s.startTask(func() error {
			return newFileOpener(s.channel, s.cfg.Codec, s.cfg.ShellOpener, cmd.Verb, s.cfg.WorkingDir).run()
		})
		s.state = StateRunning

	default: // CommandShell, CommandExec
		if err := s.spawn(cmd); err != nil {
			s.logger.WithError(err).Error("spawn failed")
			s.state = StateClosing
			s.pushEventLocked(SessionClosing)
			return
		}
		s.state = StateRunning
	}
}

// spawn launches the child process for a shell or exec command, wiring a
// ChannelReader (channel->stdin) and ProcessReader (merged stdout/stderr
// ->channel). Grounded on original_source.exec_command's Popen call.
func (s *Session) spawn(cmd Command) error {
	argv := append([]string(nil), s.cfg.ShellTemplate...)
	if cmd.Kind == CommandExec {
		argv = append(argv, s.cfg.ExecFlag, cmd.Text)
	}

	c := exec.Command(argv[0], argv[1:]...)
	c.Dir = s.cfg.WorkingDir
	hideConsoleWindow(c)

	stdin, err := c.StdinPipe()
	if err != nil {
		return err
	}
	outR, outW, err := osPipe()
	if err != nil {
		stdin.Close()
		return err
	}
	c.Stdout = outW
	c.Stderr = outW

	if err := c.Start(); err != nil {
		stdin.Close()
		outR.Close()
		outW.Close()
		return err
	}
	outW.Close() // the child holds the only remaining write reference

	s.cmd = c
	s.startTask(func() error { return NewChannelReader(s.channel, stdin).Run() })
	s.startTask(func() error {
		err := NewProcessReader(outR, s.channel).Run()
		outR.Close()
		return err
	})
	return nil
}

// startTask runs fn in its own goroutine and signals s.done the first
// time any task returns, per spec.md §4.2's "if any task has terminated,
// emit closing".
func (s *Session) startTask(fn func() error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := fn(); err != nil {
			s.logger.WithError(err).Debug("task ended with error")
		}
		s.doneOnce.Do(func() { close(s.done) })
	}()
}

// Close performs the ordered Closing shutdown: terminate the child (if
// any), wait for its exit, send exit-status, close the channel, and emit
// closed. Called by the Supervisor exactly once, after popping a Closing
// event. Forwarder goroutines are only guaranteed to have exited once
// Close returns -- closing the channel unblocks any forwarder still
// blocked reading it, since golang.org/x/crypto/ssh.Channel exposes no
// read deadline to interrupt that read any earlier.
func (s *Session) Close() {
	s.mu.Lock()
	status := 0
	var waitErr error
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		waitErr = s.cmd.Wait()
		status = exitStatusOf(waitErr)
	}
	s.channel.SendRequest("exit-status", false, ssh.Marshal(&struct{ Status uint32 }{uint32(status)}))
	s.channel.Close()
	s.state = StateClosed
	s.pushEventLocked(SessionClosed)

	entry := s.logger.WithField("status", status)
	if s.conn != nil {
		entry = entry.WithField("remote_addr", s.conn.RemoteAddr())
	}
	if diag, ok := waitDiagnostic(waitErr); ok {
		entry = entry.WithField("wait_status", diag)
	}
	entry.Debug("session closed")
	s.mu.Unlock()

	s.wg.Wait()
}

// discardClose closes the underlying channel for a Session the Supervisor
// is dropping from StatePending on its deadline. No SessionEvent is
// emitted here -- the Timeout event already reported this outcome once,
// per spec.md §4.2's "no notification emitted" wording.
func (s *Session) discardClose() {
	s.discardOnce.Do(func() { s.channel.Close() })
}
