package rexec

import (
	"crypto/rand"
	"crypto/rsa"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/ssh"
)

func genPublicKey() ssh.PublicKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	Expect(err).NotTo(HaveOccurred())
	pub, err := ssh.NewPublicKey(&key.PublicKey)
	Expect(err).NotTo(HaveOccurred())
	return pub
}

var _ = Describe("ServerPolicy", func() {
	var (
		allowed ssh.PublicKey
		other   ssh.PublicKey
		policy  *ServerPolicy
	)

	BeforeEach(func() {
		allowed = genPublicKey()
		other = genPublicKey()
		policy = NewServerPolicy("alice", []AuthorizedKey{{Type: allowed.Type(), Key: allowed}}, UTF8Codec{})
	})

	It("rejects a key that isn't in the authorized set", func() {
		Expect(policy.CheckPublicKey("alice", other)).To(BeFalse())
	})

	It("rejects the right key under the wrong username", func() {
		Expect(policy.CheckPublicKey("mallory", allowed)).To(BeFalse())
	})

	It("accepts the exact configured key and username", func() {
		Expect(policy.CheckPublicKey("alice", allowed)).To(BeTrue())
	})

	It("is not ready before any shell/exec request", func() {
		Expect(policy.Ready()).To(BeFalse())
	})

	It("becomes ready with no command on a shell request", func() {
		Expect(policy.CheckShellRequest()).To(BeTrue())
		Expect(policy.Ready()).To(BeTrue())
		Expect(policy.Command()).To(BeNil())
	})

	It("becomes ready with the decoded command on an exec request", func() {
		Expect(policy.CheckExecRequest([]byte("echo hi"))).To(BeTrue())
		Expect(policy.Ready()).To(BeTrue())
		Expect(*policy.Command()).To(Equal("echo hi"))
	})

	It("keeps whichever request arrives first and ignores the rest", func() {
		Expect(policy.CheckShellRequest()).To(BeTrue())
		Expect(policy.CheckExecRequest([]byte("echo hi"))).To(BeTrue())
		Expect(policy.Command()).To(BeNil())
	})

	It("rejects an exec request that fails to decode and never becomes ready", func() {
		policy := NewServerPolicy("alice", []AuthorizedKey{{Type: allowed.Type(), Key: allowed}}, failingCodec{})
		Expect(policy.CheckExecRequest([]byte("anything"))).To(BeFalse())
		Expect(policy.Ready()).To(BeFalse())
	})

	It("offers publickey only to the configured username", func() {
		Expect(policy.AllowedAuthMethods("alice")).To(Equal([]string{"publickey"}))
		Expect(policy.AllowedAuthMethods("mallory")).To(BeNil())
	})

	It("only accepts session channels", func() {
		Expect(policy.CheckChannelRequest("session")).To(BeTrue())
		Expect(policy.CheckChannelRequest("direct-tcpip")).To(BeFalse())
	})
})

type failingCodec struct{}

func (failingCodec) Decode(_ []byte) (string, error) { return "", errDecodeFixture }
func (failingCodec) Encode(s string) ([]byte, error) { return []byte(s), nil }

var errDecodeFixture = &codecError{"fixture decode failure"}

type codecError struct{ msg string }

func (e *codecError) Error() string { return e.msg }
