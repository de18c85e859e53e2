// Package capture reads the recent transcript of the tmux pane shellm runs in.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Paranoid-AF/shellm"
)

// runFunc runs a command and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Tmux captures pane contents with `tmux capture-pane -p`.
type Tmux struct {
	// HistoryLines adds that many lines of scrollback; 0 captures the visible pane.
	HistoryLines int
	// Pane is the target pane; empty uses $TMUX_PANE, then the active pane.
	Pane string

	run runFunc
}

// NewTmux creates a tmux transcript source.
func NewTmux(historyLines int) *Tmux {
	return &Tmux{HistoryLines: historyLines, Pane: os.Getenv("TMUX_PANE"), run: runCmd}
}

// RequireTmux returns shellm.ErrNotInTmux unless running inside a tmux session.
func RequireTmux() error {
	if os.Getenv("TMUX") == "" {
		return shellm.ErrNotInTmux
	}
	return nil
}

// Args returns the tmux arguments used by Capture.
func (t *Tmux) Args() []string {
	args := []string{"capture-pane", "-p"}
	if t.Pane != "" {
		args = append(args, "-t", t.Pane)
	}
	if t.HistoryLines > 0 {
		args = append(args, "-S", "-"+strconv.Itoa(t.HistoryLines))
	}
	return args
}

// Capture returns the pane transcript with surrounding whitespace trimmed.
func (t *Tmux) Capture(ctx context.Context) (string, error) {
	run := t.run
	if run == nil {
		run = runCmd
	}
	out, err := run(ctx, "tmux", t.Args()...)
	if err != nil {
		return "", fmt.Errorf("tmux capture-pane: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func runCmd(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}
