package rexec

import "github.com/atotto/clipboard"

// Clipboard is the host clipboard access point used by the clipboard-get
// and clipboard-set side-channel commands (C2). It is a narrow interface
// so tests can substitute an in-memory fake instead of touching the real
// host clipboard, the same role original_source's win32clipboard calls
// played but reachable from any OS via atotto/clipboard.
type Clipboard interface {
	Get() (string, error)
	Set(text string) error
}

// SystemClipboard reads and writes the real host clipboard.
type SystemClipboard struct{}

func (SystemClipboard) Get() (string, error) { return clipboard.ReadAll() }

func (SystemClipboard) Set(text string) error { return clipboard.WriteAll(text) }

// memClipboard is an in-process Clipboard used by tests.
type memClipboard struct {
	text string
}

func (m *memClipboard) Get() (string, error)  { return m.text, nil }
func (m *memClipboard) Set(text string) error { m.text = text; return nil }
