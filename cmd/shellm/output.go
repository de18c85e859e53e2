package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

const maxWrap = 100

// printText writes a free-text answer. On a terminal it is rendered as
// markdown; redirected output gets the model's text unchanged.
func printText(w io.Writer, text string, markdown bool) error {
	if markdown {
		if width, ok := terminalWidth(w); ok {
			if width > maxWrap {
				width = maxWrap
			}
			r, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(width),
			)
			if err == nil {
				if out, err := r.Render(text); err == nil {
					_, err = io.WriteString(w, out)
					return err
				}
			}
		}
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func terminalWidth(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 80, true
	}
	return width, true
}
