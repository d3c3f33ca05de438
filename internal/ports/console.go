package ports

import (
	"bufio"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// Console is a serial style terminal on two ports: reading the status
// port returns 1 while a key is waiting, the data port reads the next key
// and writes a character to the output.
type Console struct {
	StatusPort byte
	DataPort   byte

	// OnEscape, when set, is called instead of queueing EscapeKey read
	// by Start.
	EscapeKey byte
	OnEscape  func()

	out  io.Writer
	keys chan byte

	ended   chan struct{}
	endOnce sync.Once

	fd       int
	oldState *term.State
}

// NewConsole creates a console that writes to out. Keys arrive through
// Start or Feed.
func NewConsole(statusPort, dataPort byte, out io.Writer) *Console {
	return &Console{
		StatusPort: statusPort,
		DataPort:   dataPort,
		out:        out,
		keys:       make(chan byte, 256),
		ended:      make(chan struct{}),
		fd:         -1,
	}
}

// Start reads keys from in on a goroutine until it ends. With raw set and
// in being a terminal it is switched to raw mode so keys arrive without
// line buffering; Stop restores it.
func (c *Console) Start(in io.Reader, raw bool) error {
	if f, ok := in.(*os.File); ok && raw && term.IsTerminal(int(f.Fd())) {
		c.fd = int(f.Fd())
		state, err := term.MakeRaw(c.fd)
		if err != nil {
			return err
		}
		c.oldState = state
	}

	go func() {
		defer c.End()
		r := bufio.NewReader(in)
		for {
			b, err := r.ReadByte()
			if err != nil {
				return
			}
			// raw mode sends CR for Enter
			if b == '\r' {
				b = '\n'
			}
			if c.OnEscape != nil && b == c.EscapeKey {
				c.OnEscape()
				continue
			}
			c.keys <- b
		}
	}()
	return nil
}

// Stop restores the terminal state changed by Start.
func (c *Console) Stop() {
	if c.oldState != nil {
		_ = term.Restore(c.fd, c.oldState)
		c.oldState = nil
	}
}

// Feed queues a key as if it was typed. Keys beyond the buffer are dropped.
func (c *Console) Feed(b byte) {
	select {
	case c.keys <- b:
	default:
	}
}

// End marks the input as finished. Queued keys can still be read.
func (c *Console) End() {
	c.endOnce.Do(func() { close(c.ended) })
}

// Ended reports whether input finished and every queued key was read.
func (c *Console) Ended() bool {
	select {
	case <-c.ended:
		return len(c.keys) == 0
	default:
		return false
	}
}

func (c *Console) KeyWaiting() bool { return len(c.keys) > 0 }

// Key returns the next key without waiting.
func (c *Console) Key() (byte, bool) {
	select {
	case b := <-c.keys:
		return b, true
	default:
		return 0, false
	}
}

func (c *Console) In(port byte) byte {
	switch port {
	case c.StatusPort:
		if c.KeyWaiting() {
			return 1
		}
		return 0
	case c.DataPort:
		b, _ := c.Key()
		return b
	}
	return 0
}

func (c *Console) Out(port byte, value byte) {
	if port != c.DataPort {
		return
	}
	_, _ = c.Write([]byte{value})
}

// Write sends guest output to the console, translating newlines while the
// terminal is in raw mode.
func (c *Console) Write(p []byte) (int, error) {
	if c.out == nil {
		return len(p), nil
	}
	if c.oldState == nil {
		return c.out.Write(p)
	}
	for _, b := range p {
		var err error
		if b == '\n' {
			_, err = c.out.Write([]byte{'\r', '\n'})
		} else {
			_, err = c.out.Write([]byte{b})
		}
		if err != nil {
			return 0, err
		}
	}
	return len(p), nil
}
