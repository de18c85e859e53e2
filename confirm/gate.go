// Package confirm implements the single-keypress confirmation gate that
// guards copying a recommended command to the clipboard.
package confirm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/fatih/color"
	"go.uber.org/zap"
)

// Choice is the resolution of a gate.
type Choice int

const (
	Quit Choice = iota
	Accept
)

func (c Choice) String() string {
	if c == Accept {
		return "accept"
	}
	return "quit"
}

// keyInterrupt is Ctrl-C as delivered in raw mode, where it no longer raises SIGINT.
const keyInterrupt = 0x03

// ErrGateResolved is returned by a second call to Confirm.
var ErrGateResolved = errors.New("confirmation gate already resolved")

const menu = `
Press the button for below actions:
- y: Copy the command to clipboard
- q: Quit

`

// Terminal is a single-key input source.
type Terminal interface {
	// MakeRaw switches to unbuffered input and returns the function that
	// restores the previous mode. Calling restore more than once is a no-op.
	MakeRaw() (restore func() error, err error)
	// ReadKey blocks for the next input byte.
	ReadKey() (byte, error)
	// Cancel unblocks a pending ReadKey.
	Cancel()
}

// Clipboard receives an accepted command.
type Clipboard interface {
	WriteClipboard(text string) error
}

// Gate presents a command and waits for y or q. A Gate resolves once.
type Gate struct {
	term      Terminal
	clipboard Clipboard
	out       io.Writer
	logger    *zap.Logger
	used      atomic.Bool
}

// NewGate creates a gate printing to out.
func NewGate(term Terminal, clipboard Clipboard, out io.Writer, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{term: term, clipboard: clipboard, out: out, logger: logger}
}

var commandColor = color.New(color.FgHiCyan, color.Bold)

// Confirm prints command and blocks until y (Accept), q, Ctrl-C, end of input
// or a value on interrupt (Quit). On Accept the command is written to the
// clipboard once, after raw mode has been released. A clipboard failure is
// returned together with Accept.
func (g *Gate) Confirm(command string, interrupt <-chan os.Signal) (Choice, error) {
	if !g.used.CompareAndSwap(false, true) {
		return Quit, ErrGateResolved
	}

	fmt.Fprintf(g.out, "\nRecommended Command: %s\n", commandColor.Sprintf("`%s`", command))
	fmt.Fprint(g.out, menu)

	choice, err := g.wait(interrupt)
	g.logger.Debug("gate resolved", zap.Stringer("choice", choice), zap.Error(err))
	if err != nil {
		return Quit, err
	}
	if choice != Accept {
		return Quit, nil
	}

	if err := g.clipboard.WriteClipboard(command); err != nil {
		return Accept, fmt.Errorf("copy to clipboard: %w", err)
	}
	fmt.Fprintln(g.out, "Command copied to clipboard, paste it in your terminal")
	return Accept, nil
}

type keyEvent struct {
	key byte
	err error
}

// wait holds raw mode for exactly the duration of the key wait. The restore
// registered here is the only exit path for the mode.
func (g *Gate) wait(interrupt <-chan os.Signal) (choice Choice, err error) {
	restore, err := g.term.MakeRaw()
	if err != nil {
		return Quit, fmt.Errorf("enable raw input: %w", err)
	}
	defer func() {
		if rerr := restore(); rerr != nil && err == nil {
			choice, err = Quit, fmt.Errorf("restore terminal: %w", rerr)
		}
	}()

	keys := make(chan keyEvent)
	done := make(chan struct{})
	go func() {
		for {
			key, err := g.term.ReadKey()
			select {
			case keys <- keyEvent{key: key, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	defer func() {
		close(done)
		g.term.Cancel()
	}()

	for {
		select {
		case <-interrupt:
			return Quit, nil
		case ev := <-keys:
			if ev.err != nil {
				if errors.Is(ev.err, io.EOF) {
					return Quit, nil
				}
				return Quit, fmt.Errorf("read key: %w", ev.err)
			}
			switch ev.key {
			case 'y':
				return Accept, nil
			case 'q', keyInterrupt:
				return Quit, nil
			}
		}
	}
}
