package rexec

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(GinkgoWriter)
	return l.WithField("test", true)
}

var _ = Describe("Session", func() {
	It("opens a clipget request, replies inline, and closes with no tasks and status 0", func() {
		clip := &memClipboard{text: "clip contents"}
		cfg := Config{Clipboard: clip}.withDefaults()
		policy := NewServerPolicy("alice", nil, UTF8Codec{})
		channel := newFakeChannel("")
		sess := NewSession(cfg, "sess-clipget", channel, nil, policy, testLogger())

		sess.Tick(time.Now())
		Expect(sess.State()).To(Equal(StatePending), "not ready yet, no command negotiated")

		Expect(policy.CheckExecRequest([]byte("@clipget"))).To(BeTrue())
		sess.Tick(time.Now())

		openEv, ok := sess.PopEvent()
		Expect(ok).To(BeTrue())
		Expect(openEv.Kind).To(Equal(SessionOpen))

		closingEv, ok := sess.PopEvent()
		Expect(ok).To(BeTrue())
		Expect(closingEv.Kind).To(Equal(SessionClosing))
		Expect(sess.State()).To(Equal(StateClosing))
		Expect(channel.writtenString()).To(Equal("clip contents"))

		sess.Close()

		closedEv, ok := sess.PopEvent()
		Expect(ok).To(BeTrue())
		Expect(closedEv.Kind).To(Equal(SessionClosed))
		Expect(sess.State()).To(Equal(StateClosed))
		Expect(channel.closed).To(BeTrue())
	})

	It("spawns a child for an exec command, forwards its output, and reaches Closed", func() {
		cfg := Config{
			ShellTemplate: []string{"/bin/sh"},
			ExecFlag:      "-c",
			WorkingDir:    ".",
		}.withDefaults()
		policy := NewServerPolicy("alice", nil, UTF8Codec{})
		channel := newFakeChannel("")
		sess := NewSession(cfg, "sess-exec", channel, nil, policy, testLogger())

		Expect(policy.CheckExecRequest([]byte("echo hello-from-child"))).To(BeTrue())
		sess.Tick(time.Now())

		openEv, ok := sess.PopEvent()
		Expect(ok).To(BeTrue())
		Expect(openEv.Kind).To(Equal(SessionOpen))
		Expect(sess.State()).To(Equal(StateRunning))

		Eventually(func() SessionState {
			sess.Tick(time.Now())
			return sess.State()
		}, "2s", "10ms").Should(Equal(StateClosing))

		closingEv, ok := sess.PopEvent()
		Expect(ok).To(BeTrue())
		Expect(closingEv.Kind).To(Equal(SessionClosing))

		sess.Close()
		Expect(channel.writtenString()).To(ContainSubstring("hello-from-child"))

		closedEv, ok := sess.PopEvent()
		Expect(ok).To(BeTrue())
		Expect(closedEv.Kind).To(Equal(SessionClosed))
	})

	It("discards a Pending session once its deadline elapses, emitting exactly one timeout event", func() {
		cfg := Config{SessionDeadline: 10 * time.Millisecond}.withDefaults()
		policy := NewServerPolicy("alice", nil, UTF8Codec{})
		channel := newFakeChannel("")
		sess := NewSession(cfg, "sess-timeout", channel, nil, policy, testLogger())

		sess.Tick(time.Now())
		Expect(sess.State()).To(Equal(StatePending))

		time.Sleep(15 * time.Millisecond)
		sess.Tick(time.Now())

		Expect(sess.State()).To(Equal(StateDiscarded))
		ev, ok := sess.PopEvent()
		Expect(ok).To(BeTrue())
		Expect(ev.Kind).To(Equal(SessionTimeout))

		_, ok = sess.PopEvent()
		Expect(ok).To(BeFalse())
	})
})
