package rexec

import (
	"io"
	"strings"

	"golang.org/x/crypto/ssh"
)

// sidebandBufLimit bounds the in-memory buffer a DataReceiver accumulates
// before invoking recv, so a client can't exhaust server memory by never
// closing its write side.
const sidebandBufLimit = 4 << 20 // 4 MiB

// dataReceiver reads a channel to end-of-stream into a bounded in-memory
// buffer, then invokes recv with the accumulated bytes. It is the shared
// shape behind the clipboard-set and file-open side-channel handlers (C2),
// grounded on original_source.PyRexecSession.DataReceiver.
type dataReceiver struct {
	channel ssh.Channel
	codec   Codec
	recv    func(data []byte) error
}

// run drains the channel and calls recv. The returned error, if any, is a
// codec/host-API failure for which recv has already written a one-line
// diagnostic to the channel; the caller only needs to log it.
func (d *dataReceiver) run() error {
	var buf []byte
	chunk := make([]byte, channelChunkSize)
	for {
		n, err := d.channel.Read(chunk)
		if n > 0 {
			if len(buf)+n <= sidebandBufLimit {
				buf = append(buf, chunk[:n]...)
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			// Transport failure: treat like EOF on whatever was
			// received so far, per spec.md §7 (forwarder/receiver I/O
			// errors are not propagated as protocol errors).
			break
		}
	}
	return d.recv(buf)
}

// writeDiagnostic writes a single human-readable line back to the channel,
// per spec.md §4.4/§7's "a single human-readable line is written to the
// channel" failure behavior.
func writeDiagnostic(channel ssh.Channel, msg string) {
	channel.Write([]byte(msg + "\n"))
}

// newClipSetter builds a dataReceiver that decodes the received bytes and
// replaces the host clipboard text, writing a diagnostic on failure.
func newClipSetter(channel ssh.Channel, codec Codec, clip Clipboard) *dataReceiver {
	return &dataReceiver{
		channel: channel,
		codec:   codec,
		recv: func(data []byte) error {
			text, err := codec.Decode(data)
			if err != nil {
				writeDiagnostic(channel, "encoding error")
				return err
			}
			if err := clip.Set(text); err != nil {
				writeDiagnostic(channel, "clipboard error: "+err.Error())
				return err
			}
			return nil
		},
	}
}

// newFileOpener builds a dataReceiver that decodes the received bytes as a
// path, trims whitespace, and shell-executes verb on it anchored at cwd.
func newFileOpener(channel ssh.Channel, codec Codec, opener ShellOpener, verb, cwd string) *dataReceiver {
	return &dataReceiver{
		channel: channel,
		codec:   codec,
		recv: func(data []byte) error {
			path, err := codec.Decode(data)
			if err != nil {
				writeDiagnostic(channel, "encoding error")
				return err
			}
			path = strings.TrimSpace(path)
			if err := opener.Open(verb, path, cwd); err != nil {
				writeDiagnostic(channel, "shell-execute error: "+err.Error())
				return err
			}
			return nil
		},
	}
}

// sendClipboardText writes the current host clipboard text to the channel,
// encoded with codec. Unlike the other side-channel commands this is not a
// dataReceiver: it produces without consuming, handled inline by Session.
func sendClipboardText(channel ssh.Channel, codec Codec, clip Clipboard) error {
	text, err := clip.Get()
	if err != nil {
		return err
	}
	encoded, err := codec.Encode(text)
	if err != nil {
		return err
	}
	_, err = channel.Write(encoded)
	return err
}
