package rexec

import "github.com/sirupsen/logrus"

// PresenceSink is the narrow interface through which the Supervisor reports
// state to a user-facing front-end (systray icon, balloon notifications,
// tooltip text) without the core depending on any GUI toolkit. It mirrors
// original_source's PyRexecTrayApp: SetBusy toggles the tray icon, Notify
// shows a balloon, SetText updates the tooltip, and Idle pumps whatever
// message loop the front-end owns.
//
// Idle is called once per Supervisor.Run iteration. A PresenceSink that
// drives a real GUI message pump returns false to ask the Supervisor to
// stop; NoopPresenceSink and LoggingPresenceSink always return true and
// rely on the Supervisor's context for shutdown instead.
type PresenceSink interface {
	SetBusy(busy bool)
	Notify(title, text string)
	SetText(text string)
	Idle() bool
}

// NoopPresenceSink discards everything and never asks the Supervisor to
// stop. It is the default when no front-end is attached.
type NoopPresenceSink struct{}

func (NoopPresenceSink) SetBusy(bool)        {}
func (NoopPresenceSink) Notify(string, string) {}
func (NoopPresenceSink) SetText(string)      {}
func (NoopPresenceSink) Idle() bool          { return true }

// LoggingPresenceSink logs presence changes instead of driving a GUI.
// Useful for headless deployments that still want the "connected"/
// "disconnected" notifications in the log stream.
type LoggingPresenceSink struct {
	Logger *logrus.Logger
}

// NewLoggingPresenceSink returns a LoggingPresenceSink writing to logger.
func NewLoggingPresenceSink(logger *logrus.Logger) *LoggingPresenceSink {
	return &LoggingPresenceSink{Logger: logger}
}

func (s *LoggingPresenceSink) SetBusy(busy bool) {
	s.Logger.WithField("busy", busy).Debug("presence: busy")
}

func (s *LoggingPresenceSink) Notify(title, text string) {
	s.Logger.WithField("title", title).Info(text)
}

func (s *LoggingPresenceSink) SetText(text string) {
	s.Logger.WithField("text", text).Debug("presence: text")
}

func (s *LoggingPresenceSink) Idle() bool { return true }
