package rexec

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("clipboard side channel", func() {
	It("round-trips clipboard text through set then get", func() {
		clip := &memClipboard{}
		channel := newFakeChannel("hello clipboard")

		Expect(newClipSetter(channel, UTF8Codec{}, clip).run()).To(Succeed())
		Expect(clip.text).To(Equal("hello clipboard"))

		out := newFakeChannel("")
		Expect(sendClipboardText(out, UTF8Codec{}, clip)).To(Succeed())
		Expect(out.writtenString()).To(Equal("hello clipboard"))
	})

	It("reports a diagnostic and an error when the decoded text isn't valid UTF-8", func() {
		clip := &memClipboard{}
		channel := newFakeChannel("\xff\xfe not utf8")

		err := newClipSetter(channel, UTF8Codec{}, clip).run()

		Expect(err).To(HaveOccurred())
		Expect(channel.writtenString()).To(ContainSubstring("encoding error"))
	})
})

var _ = Describe("file-open side channel", func() {
	It("shell-executes the decoded, trimmed path with the given verb", func() {
		opener := &fakeShellOpener{}
		channel := newFakeChannel("  /tmp/report.pdf  \n")

		err := newFileOpener(channel, UTF8Codec{}, opener, "open", "/work").run()

		Expect(err).NotTo(HaveOccurred())
		Expect(opener.verb).To(Equal("open"))
		Expect(opener.path).To(Equal("/tmp/report.pdf"))
		Expect(opener.cwd).To(Equal("/work"))
	})

	It("reports a diagnostic when the host shell-execute call fails", func() {
		boomErr := &codecError{"no such application"}
		opener := &fakeShellOpener{err: boomErr}
		channel := newFakeChannel("/tmp/report.pdf")

		err := newFileOpener(channel, UTF8Codec{}, opener, "open", "/work").run()

		Expect(err).To(MatchError(boomErr))
		Expect(channel.writtenString()).To(ContainSubstring("shell-execute error"))
	})
})
