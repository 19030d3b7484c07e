package rexec

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("memClipboard", func() {
	It("returns an empty string before anything has been set", func() {
		clip := &memClipboard{}
		text, err := clip.Get()
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal(""))
	})

	It("returns whatever was last set", func() {
		clip := &memClipboard{}
		Expect(clip.Set("first")).To(Succeed())
		Expect(clip.Set("second")).To(Succeed())
		text, err := clip.Get()
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("second"))
	})
})
