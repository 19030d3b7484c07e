package rexec

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/ssh"
)

var _ = Describe("Config", func() {
	It("requires at least one host key", func() {
		cfg := Config{Username: "alice", AuthorizedKeys: []AuthorizedKey{{}}, ShellTemplate: []string{"sh"}}
		Expect(cfg.validate()).To(MatchError(ErrNoHostKeys))
	})

	It("requires at least one authorized key", func() {
		cfg := Config{Username: "alice", HostKeys: []ssh.Signer{nil}, ShellTemplate: []string{"sh"}}
		Expect(cfg.validate()).To(MatchError(ErrNoAuthorizedKeys))
	})

	It("requires a username", func() {
		cfg := Config{HostKeys: []ssh.Signer{nil}, AuthorizedKeys: []AuthorizedKey{{}}, ShellTemplate: []string{"sh"}}
		Expect(cfg.validate()).To(HaveOccurred())
	})

	It("requires a shell template", func() {
		cfg := Config{Username: "alice", HostKeys: []ssh.Signer{nil}, AuthorizedKeys: []AuthorizedKey{{}}}
		Expect(cfg.validate()).To(HaveOccurred())
	})

	It("fills in every documented default without mutating the receiver", func() {
		cfg := Config{}
		full := cfg.withDefaults()

		Expect(cfg.Codec).To(BeNil(), "withDefaults must not mutate its receiver")
		Expect(full.Codec).To(Equal(UTF8Codec{}))
		Expect(full.AcceptDeadline).To(Equal(defaultAcceptDeadline))
		Expect(full.ChannelAcceptTimeout).To(Equal(defaultChannelAcceptTimeout))
		Expect(full.SessionDeadline).To(Equal(defaultSessionDeadline))
		Expect(full.Clipboard).To(Equal(SystemClipboard{}))
		Expect(full.ShellOpener).To(Equal(SystemShellOpener{}))
		Expect(full.Presence).To(Equal(NoopPresenceSink{}))
		Expect(full.ExecFlag).NotTo(BeEmpty())
	})

	It("leaves explicitly configured values untouched", func() {
		cfg := Config{AcceptDeadline: 5 * time.Second}
		full := cfg.withDefaults()
		Expect(full.AcceptDeadline).To(Equal(5 * time.Second))
	})
})

var _ = Describe("functional options", func() {
	It("WithAcceptDeadline overrides the accept-poll timeout", func() {
		var cfg Config
		Expect(WithAcceptDeadline(250 * time.Millisecond)(&cfg)).To(Succeed())
		Expect(cfg.AcceptDeadline).To(Equal(250 * time.Millisecond))
	})

	It("WithCodec overrides the codec", func() {
		var cfg Config
		Expect(WithCodec(UTF8Codec{})(&cfg)).To(Succeed())
		Expect(cfg.Codec).To(Equal(UTF8Codec{}))
	})

	It("WithAuthorizedKeysFile loads keys from disk", func() {
		dir := GinkgoT().TempDir()
		path := dir + "/authorized_keys"
		key := genPublicKey()
		Expect(writeFile(path, marshalAuthorizedKeyLine(key, "bob@example.com"))).To(Succeed())

		var cfg Config
		Expect(WithAuthorizedKeysFile(path)(&cfg)).To(Succeed())
		Expect(cfg.AuthorizedKeys).To(HaveLen(1))
	})

	It("WithAuthorizedKeysFile surfaces a load error", func() {
		var cfg Config
		Expect(WithAuthorizedKeysFile("/no/such/file")(&cfg)).To(HaveOccurred())
	})

	It("WithHostKeyFile loads a signer from disk", func() {
		dir := GinkgoT().TempDir()
		path := dir + "/host_key"
		key, err := rsaHostKey()
		Expect(err).NotTo(HaveOccurred())
		Expect(writeFile(path, string(key.pem))).To(Succeed())

		var cfg Config
		Expect(WithHostKeyFile(path)(&cfg)).To(Succeed())
		Expect(cfg.HostKeys).To(HaveLen(1))
	})
})

var _ = Describe("WithShell", func() {
	It("splits a shell-quoted string into argv", func() {
		var cfg Config
		Expect(WithShell("cmd /Q")(&cfg)).To(Succeed())
		Expect(cfg.ShellTemplate).To(Equal([]string{"cmd", "/Q"}))
	})

	It("rejects an unterminated quote", func() {
		var cfg Config
		Expect(WithShell(`"unterminated`)(&cfg)).To(HaveOccurred())
	})
})
