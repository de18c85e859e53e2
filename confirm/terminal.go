package confirm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/muesli/cancelreader"
	"golang.org/x/term"
)

// TTY reads single keys from a file, normally os.Stdin.
type TTY struct {
	file   *os.File
	reader io.Reader
	cancel func() bool
	close  func() error
}

// NewTTY wraps f for key reads. Reads are cancellable when the platform
// supports it for f.
func NewTTY(f *os.File) *TTY {
	t := &TTY{
		file:   f,
		reader: f,
		cancel: func() bool { return false },
		close:  func() error { return nil },
	}
	if cr, err := cancelreader.NewReader(f); err == nil {
		t.reader = cr
		t.cancel = cr.Cancel
		t.close = cr.Close
	}
	return t
}

// MakeRaw puts the terminal into raw mode. When the file is not a terminal
// (input is piped) the mode is left alone and restore is a no-op.
func (t *TTY) MakeRaw() (func() error, error) {
	fd := int(t.file.Fd())
	if !term.IsTerminal(fd) {
		return func() error { return nil }, nil
	}

	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("raw mode: %w", err)
	}

	var once sync.Once
	var rerr error
	return func() error {
		once.Do(func() { rerr = term.Restore(fd, old) })
		return rerr
	}, nil
}

// ReadKey reads one byte. A cancelled read reports io.EOF.
func (t *TTY) ReadKey() (byte, error) {
	var b [1]byte
	for {
		n, err := t.reader.Read(b[:])
		if n == 1 {
			return b[0], nil
		}
		if errors.Is(err, cancelreader.ErrCanceled) {
			return 0, io.EOF
		}
		if err != nil {
			return 0, err
		}
	}
}

// Cancel unblocks a pending ReadKey.
func (t *TTY) Cancel() {
	t.cancel()
}

// Close releases the cancellable reader.
func (t *TTY) Close() error {
	return t.close()
}
