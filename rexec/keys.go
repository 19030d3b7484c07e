package rexec

import (
	"bufio"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
)

type generatedHostKey struct {
	signer ssh.Signer
	pem    []byte
}

// rsaHostKey generates a fresh 2048-bit RSA host key, matching
// original_source's paramiko.RSAKey.generate(2048) fallback.
func rsaHostKey() (*generatedHostKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}
	encoded := pem.EncodeToMemory(block)
	signer, err := ssh.ParsePrivateKey(encoded)
	if err != nil {
		return nil, err
	}
	return &generatedHostKey{signer: signer, pem: encoded}, nil
}

// LoadHostKey parses a single PEM-encoded private key file into a signer.
// Design Notes §9 flags filename-suffix detection as compatibility sugar,
// not a correctness requirement -- ssh.ParsePrivateKey already identifies
// the key type from the PEM block itself, so no suffix switch is needed
// here; HostKeySuffixHint below exists only for logging/diagnostics.
func LoadHostKey(path string) (ssh.Signer, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rexec: read host key %s: %w", path, err)
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("rexec: parse host key %s: %w", path, err)
	}
	return signer, nil
}

// HostKeySuffixHint reports the conventional key-type suffix of a host key
// filename (rsa_key, dsa_key, ecdsa_key), or "" if none match. It is purely
// informational, matching spec.md §6's naming convention for log messages;
// it never gates whether a key can be loaded.
func HostKeySuffixHint(path string) string {
	switch {
	case strings.HasSuffix(path, "rsa_key"):
		return "rsa"
	case strings.HasSuffix(path, "ecdsa_key"):
		return "ecdsa"
	case strings.HasSuffix(path, "dsa_key"):
		return "dsa"
	default:
		return ""
	}
}

// EnsureHostKey loads the host key at path, generating a fresh 2048-bit RSA
// key and writing it there if it does not yet exist. It returns the
// fingerprint alongside the signer so callers can log it, mirroring
// original_source.main's auto-generation-and-fingerprint-log behavior.
func EnsureHostKey(path string) (signer ssh.Signer, fingerprint string, generated bool, err error) {
	if _, statErr := os.Stat(path); statErr == nil {
		signer, err = LoadHostKey(path)
		if err != nil {
			return nil, "", false, err
		}
		return signer, ssh.FingerprintSHA256(signer.PublicKey()), false, nil
	}

	key, err := rsaHostKey()
	if err != nil {
		return nil, "", false, fmt.Errorf("rexec: generate host key: %w", err)
	}
	if err := os.WriteFile(path, key.pem, 0o600); err != nil {
		return nil, "", false, fmt.Errorf("rexec: write host key %s: %w", path, err)
	}
	return key.signer, ssh.FingerprintSHA256(key.signer.PublicKey()), true, nil
}

// AuthorizedKey is one parsed line of an authorized_keys file.
type AuthorizedKey struct {
	Type    string
	Key     ssh.PublicKey
	Comment string
}

// LoadAuthorizedKeys parses a plain-text authorized_keys file: one key per
// line, "<type> <base64-blob> [comment...]". Lines with fewer than two
// whitespace-separated fields, or with an unrecognized type, are silently
// skipped per spec.md §6. Recognized types are ssh-rsa, ssh-dss, and any
// token starting with "ecdsa-".
func LoadAuthorizedKeys(path string) ([]AuthorizedKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rexec: open authorized_keys %s: %w", path, err)
	}
	defer f.Close()

	var keys []AuthorizedKey
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		typ := fields[0]
		if typ != "ssh-rsa" && typ != "ssh-dss" && !strings.HasPrefix(typ, "ecdsa-") {
			continue
		}
		pub, comment, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
		if err != nil {
			continue
		}
		keys = append(keys, AuthorizedKey{Type: typ, Key: pub, Comment: comment})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("rexec: read authorized_keys %s: %w", path, err)
	}
	return keys, nil
}
