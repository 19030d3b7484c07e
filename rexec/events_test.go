package rexec

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

var _ = Describe("LoggingEventHandler", func() {
	It("logs a recognized event without panicking on an unrecognized one", func() {
		var buf bytes.Buffer
		logger := logrus.New()
		logger.SetOutput(&buf)
		handler := LoggingEventHandler(logger)

		handler(&ServerStartedEvent{})
		handler(&SessionEvent{Kind: SessionOpen, Name: "sess-1"})
		Expect(func() { handler("not an event the switch knows about") }).NotTo(Panic())

		Expect(buf.String()).To(ContainSubstring("server started"))
		Expect(buf.String()).To(ContainSubstring("sess-1"))
	})
})

var _ = Describe("SessionEventKind", func() {
	It("stringifies every defined kind", func() {
		Expect(SessionOpen.String()).To(Equal("open"))
		Expect(SessionClosing.String()).To(Equal("closing"))
		Expect(SessionClosed.String()).To(Equal("closed"))
		Expect(SessionTimeout.String()).To(Equal("timeout"))
	})
})
