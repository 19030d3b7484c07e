package rexec

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func strptr(s string) *string { return &s }

var _ = Describe("ParseCommand", func() {
	It("treats a nil negotiated command as a bare shell request", func() {
		cmd := ParseCommand(nil)
		Expect(cmd.Kind).To(Equal(CommandShell))
	})

	It("recognizes @clipget", func() {
		cmd := ParseCommand(strptr("@clipget"))
		Expect(cmd.Kind).To(Equal(CommandClipGet))
	})

	It("recognizes @clipset", func() {
		cmd := ParseCommand(strptr("@clipset"))
		Expect(cmd.Kind).To(Equal(CommandClipSet))
	})

	It("treats any other @-prefixed string as a shell-open verb", func() {
		cmd := ParseCommand(strptr("@edit"))
		Expect(cmd.Kind).To(Equal(CommandShellOpen))
		Expect(cmd.Verb).To(Equal("edit"))
	})

	It("treats an empty verb after @ as a shell-open with an empty verb", func() {
		cmd := ParseCommand(strptr("@"))
		Expect(cmd.Kind).To(Equal(CommandShellOpen))
		Expect(cmd.Verb).To(Equal(""))
	})

	It("falls through to exec for any other string", func() {
		cmd := ParseCommand(strptr("ls -la /tmp"))
		Expect(cmd.Kind).To(Equal(CommandExec))
		Expect(cmd.Text).To(Equal("ls -la /tmp"))
	})
})
