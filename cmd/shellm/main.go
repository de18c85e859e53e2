// Command shellm recommends a shell command (or answers a question) from the
// recent transcript of the current tmux pane.
//
// Usage:
//
//	shellm find the biggest files here     # recommend a command, press y to copy
//	shellm -q why did the last build fail  # free-form answer
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Paranoid-AF/shellm"
	"github.com/Paranoid-AF/shellm/answer"
	"github.com/Paranoid-AF/shellm/capture"
	"github.com/Paranoid-AF/shellm/confirm"
	"github.com/Paranoid-AF/shellm/generate"
	"github.com/Paranoid-AF/shellm/pipeline"
	"github.com/Paranoid-AF/shellm/prompt"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd(defaultDeps()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// deps are the boundary collaborators of one invocation.
type deps struct {
	capture   func(ctx context.Context, cfg *shellm.Config) (string, error)
	gateway   func(ctx context.Context, cfg *shellm.Config, apiKey string, logger *zap.Logger) (generate.Gateway, error)
	terminal  func() confirm.Terminal
	clipboard func(cfg *shellm.Config) confirm.Clipboard
	logger    func(debug bool) (*zap.Logger, error)
	stdout    io.Writer
}

func defaultDeps() *deps {
	return &deps{
		capture: func(ctx context.Context, cfg *shellm.Config) (string, error) {
			if err := capture.RequireTmux(); err != nil {
				return "", err
			}
			return capture.NewTmux(cfg.Context.HistoryLines).Capture(ctx)
		},
		gateway:   generate.New,
		terminal:  func() confirm.Terminal { return confirm.NewTTY(os.Stdin) },
		clipboard: func(cfg *shellm.Config) confirm.Clipboard { return confirm.NewClipboard(cfg.Output.Clipboard) },
		logger:    newLogger,
		stdout:    os.Stdout,
	}
}

type options struct {
	question        bool
	verbose         bool
	maxRepairRounds int
}

func newRootCmd(d *deps) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "shellm [flags] <intent...>",
		Short: "Recommend a shell command from your tmux transcript",
		Long: `shellm sends the recent contents of the current tmux pane together with
your intent to a language model.

By default it recommends a single command; press y to copy it to the
clipboard or q to quit. With -q it answers a general question instead.`,
		Args:          cobra.ArbitraryArgs,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("max-repair-rounds") {
				if opts.maxRepairRounds < 0 {
					return fmt.Errorf("--max-repair-rounds must be 0 or more, got %d", opts.maxRepairRounds)
				}
			} else {
				opts.maxRepairRounds = -1
			}
			return run(cmd.Context(), d, opts, args)
		},
	}
	// Flags go before the intent; everything after it is intent text,
	// so "shellm how do I use grep -r" keeps its -r.
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().BoolVarP(&opts.question, "question", "q", false, "answer a general question instead of recommending a command")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log prompts, replies and pipeline states to stderr")
	cmd.Flags().IntVar(&opts.maxRepairRounds, "max-repair-rounds", answer.DefaultMaxRepairRounds, "how many times to ask the model to fix an invalid reply")
	return cmd
}

func run(ctx context.Context, d *deps, opts *options, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := shellm.LoadEnvFile(); err != nil {
		return err
	}
	cfg, err := shellm.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.maxRepairRounds >= 0 {
		cfg.Parser.MaxRepairRounds = opts.maxRepairRounds
	}

	logger, err := d.logger(opts.verbose || shellm.DebugEnabled())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	for _, w := range shellm.ValidateConfig(cfg) {
		logger.Warn("config warning", zap.String("warning", w))
	}

	apiKey, err := shellm.RequireAPIKey(cfg)
	if err != nil {
		return err
	}

	transcript, err := d.capture(ctx, cfg)
	if err != nil {
		return err
	}
	if cfg.Context.Redact {
		transcript = capture.Redact(transcript)
	}
	intent := strings.Join(args, " ")

	renderer := prompt.NewRenderer()
	renderer.LoadOverrides(logger)

	gw, err := d.gateway(ctx, cfg, apiKey, logger)
	if err != nil {
		return err
	}
	parser := answer.NewParser(gw, renderer, answer.Validator{CheckSyntax: cfg.Parser.CheckSyntax}, cfg.Parser.MaxRepairRounds, logger)
	p := pipeline.New(renderer, gw, parser, logger)

	mode := pipeline.ModeCommand
	if opts.question {
		mode = pipeline.ModeQuestion
	}
	res, err := p.Run(ctx, mode, transcript, intent)
	if err != nil {
		return err
	}
	if res.Mode == pipeline.ModeQuestion {
		return printText(d.stdout, res.Text, cfg.Output.RenderMarkdown)
	}
	return confirmAnswer(d, cfg, res.Answer, logger)
}

// confirmAnswer runs the gate. SIGINT and SIGTERM are routed to the gate
// only while it waits.
func confirmAnswer(d *deps, cfg *shellm.Config, ans shellm.Answer, logger *zap.Logger) error {
	term := d.terminal()
	if c, ok := term.(io.Closer); ok {
		defer c.Close()
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	gate := confirm.NewGate(term, d.clipboard(cfg), d.stdout, logger)
	_, err := gate.Confirm(ans.RecommendCommand, interrupt)
	return err
}

func newLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	config.Sampling = nil
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}
