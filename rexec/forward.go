package rexec

import (
	"io"

	"golang.org/x/crypto/ssh"
)

// channelChunkSize is the read chunk used by the channel->stdin forwarder.
// Sized for throughput, per spec.md §4.3.
const channelChunkSize = 512

// processChunkSize is the read chunk used by the stdout->channel
// forwarder. Kept at 1 byte so interactive output is never buffered
// behind a full line, per spec.md §4.3's chunking-asymmetry requirement.
const processChunkSize = 1

// Forwarder is a one-directional byte pump between a source and a sink.
// Per spec.md §3, it terminates exactly once, on source EOF or any I/O
// failure; termination is reported by Run returning, never by panicking or
// by writing to the peer. Design Notes §9 calls for true parallel tasks per
// Forwarder communicating over a channel/queue rather than the source's
// cooperative socket-timeout polling; Forwarder.Run is meant to be run in
// its own goroutine and simply blocks until EOF or failure.
type Forwarder struct {
	source    io.Reader
	sink      io.Writer
	chunkSize int
	onEOF     func()
}

// NewChannelReader forwards channel -> stdin. On termination it closes the
// stdin pipe so the child observes EOF, per spec.md §3.
func NewChannelReader(channel ssh.Channel, stdin io.WriteCloser) *Forwarder {
	return &Forwarder{
		source:    channel,
		sink:      stdin,
		chunkSize: channelChunkSize,
		onEOF:     func() { stdin.Close() },
	}
}

// NewProcessReader forwards stdout -> channel. It never closes the
// channel on termination; that is the Session's responsibility.
func NewProcessReader(stdout io.Reader, channel ssh.Channel) *Forwarder {
	return &Forwarder{
		source:    stdout,
		sink:      channel,
		chunkSize: processChunkSize,
	}
}

// Run pumps bytes from source to sink until EOF or an I/O error, then
// returns. The returned error is nil on a clean EOF; any other error is
// logged by the caller but never propagated to the peer (spec.md §7).
func (f *Forwarder) Run() error {
	buf := make([]byte, f.chunkSize)
	for {
		n, err := f.source.Read(buf)
		if n > 0 {
			if _, werr := f.sink.Write(buf[:n]); werr != nil {
				if f.onEOF != nil {
					f.onEOF()
				}
				return werr
			}
		}
		if err != nil {
			if f.onEOF != nil {
				f.onEOF()
			}
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
