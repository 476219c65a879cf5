// Package streams provides IOStreams adapters for the etc Resolver: writers for
// stdout/stderr, a discarding sink, in-memory buffers for tests, and a bridge to
// zerolog.
package streams

import (
	"bytes"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// IOStreams is the contract for user-facing streams. Notices such as "created new
// config" go to Out; warnings about files that could not be parsed go to ErrOut.
type IOStreams interface {
	In() io.Reader
	Out() io.Writer
	ErrOut() io.Writer
}

// BasicIOStreams forwards writes to the supplied io.Writer targets.
type BasicIOStreams struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func (s BasicIOStreams) In() io.Reader     { return s.in }
func (s BasicIOStreams) Out() io.Writer    { return s.out }
func (s BasicIOStreams) ErrOut() io.Writer { return s.errOut }

// DefaultIOStreams returns a BasicIOStreams backed by os.Stdin, os.Stdout and os.Stderr.
func DefaultIOStreams() BasicIOStreams {
	return BasicIOStreams{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
}

// Writers returns a BasicIOStreams that writes Out to out and ErrOut to err.
func Writers(out, err io.Writer) BasicIOStreams {
	return BasicIOStreams{in: os.Stdin, out: out, errOut: err}
}

// Discard drops all output.
func Discard() BasicIOStreams {
	return Writers(io.Discard, io.Discard)
}

// BuffersStreams captures output into bytes.Buffers. It is not safe for
// concurrent writers.
type BuffersStreams struct {
	InR    io.Reader
	OutBuf *bytes.Buffer
	ErrBuf *bytes.Buffer
}

// Buffers creates a BuffersStreams with fresh buffers.
func Buffers() *BuffersStreams {
	return &BuffersStreams{
		InR:    os.Stdin,
		OutBuf: &bytes.Buffer{},
		ErrBuf: &bytes.Buffer{},
	}
}

func (b *BuffersStreams) In() io.Reader     { return b.InR }
func (b *BuffersStreams) Out() io.Writer    { return b.OutBuf }
func (b *BuffersStreams) ErrOut() io.Writer { return b.ErrBuf }

// Strings returns the current contents of the Out and ErrOut buffers.
func (b *BuffersStreams) Strings() (out, err string) {
	return b.OutBuf.String(), b.ErrBuf.String()
}

// Reset clears both buffers.
func (b *BuffersStreams) Reset() {
	b.OutBuf.Reset()
	b.ErrBuf.Reset()
}

// zerologWriter turns each Write into one log event at a fixed level.
type zerologWriter struct {
	l     zerolog.Logger
	level zerolog.Level
}

func (w zerologWriter) Write(p []byte) (int, error) {
	n := len(p)
	p = bytes.TrimRight(p, "\n")
	w.l.WithLevel(w.level).Msg(string(p))
	return n, nil
}

// Zerolog returns a BasicIOStreams that logs Out messages at info level and
// ErrOut messages at warn level.
func Zerolog(l zerolog.Logger) BasicIOStreams {
	return BasicIOStreams{
		in:     os.Stdin,
		out:    zerologWriter{l: l, level: zerolog.InfoLevel},
		errOut: zerologWriter{l: l, level: zerolog.WarnLevel},
	}
}
