package confirm

import (
	"errors"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"

	"github.com/Paranoid-AF/shellm"
)

// SystemClipboard writes through the platform clipboard utility
// (pbcopy, xclip, xsel, wl-copy, clip.exe).
type SystemClipboard struct{}

func (SystemClipboard) WriteClipboard(text string) error {
	if clipboard.Unsupported {
		return errors.New("no clipboard utility found; install xclip, xsel or wl-clipboard, or set output.clipboard = \"osc52\"")
	}
	return clipboard.WriteAll(text)
}

// OSC52Clipboard asks the terminal emulator to set the clipboard with an
// OSC 52 escape sequence. Works over SSH.
type OSC52Clipboard struct {
	Out io.Writer
	// Tmux wraps the sequence for tmux passthrough.
	Tmux bool
}

func (c OSC52Clipboard) WriteClipboard(text string) error {
	seq := osc52.New(text)
	if c.Tmux {
		seq = seq.Tmux()
	}
	_, err := seq.WriteTo(c.Out)
	return err
}

// NewClipboard returns the sink named by output.clipboard.
func NewClipboard(kind string) Clipboard {
	if kind == shellm.ClipboardOSC52 {
		return OSC52Clipboard{Out: os.Stderr, Tmux: os.Getenv("TMUX") != ""}
	}
	return SystemClipboard{}
}
