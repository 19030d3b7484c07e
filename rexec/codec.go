package rexec

import (
	"fmt"
	"unicode/utf8"
)

// Codec decodes/encodes the byte payloads carried over exec requests and
// side-channel commands. spec.md §6 specifies UTF-8 as the default; Codec
// exists as an interface (rather than a hardcoded encoding) because
// spec.md's data model calls out the "text codec" as a configurable
// attribute of the Session/ServerPolicy.
type Codec interface {
	Decode(b []byte) (string, error)
	Encode(s string) ([]byte, error)
}

// UTF8Codec is the default Codec.
type UTF8Codec struct{}

func (UTF8Codec) Decode(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", fmt.Errorf("rexec: invalid utf-8 payload")
	}
	return string(b), nil
}

func (UTF8Codec) Encode(s string) ([]byte, error) {
	return []byte(s), nil
}
