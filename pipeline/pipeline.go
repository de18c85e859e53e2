// Package pipeline orchestrates prompt rendering, the model call and reply
// parsing for one invocation.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Paranoid-AF/shellm"
	"github.com/Paranoid-AF/shellm/answer"
	"github.com/Paranoid-AF/shellm/generate"
	"github.com/Paranoid-AF/shellm/prompt"
)

// Mode selects the pipeline variant for an invocation.
type Mode int

const (
	// ModeCommand produces a validated Answer.
	ModeCommand Mode = iota
	// ModeQuestion produces free text.
	ModeQuestion
)

func (m Mode) String() string {
	if m == ModeQuestion {
		return "question"
	}
	return "command"
}

// Parser turns the first model reply into an Answer.
type Parser interface {
	Parse(ctx context.Context, initial string) (shellm.Answer, error)
}

// observable is implemented by parsers that report their own states.
type observable interface {
	SetObserver(fn func(shellm.State))
}

// Result is the outcome of Run. Exactly one of Answer or Text is set,
// according to Mode.
type Result struct {
	Mode   Mode
	Answer shellm.Answer
	Text   string
}

// Pipeline runs Renderer → Gateway → Parser.
type Pipeline struct {
	renderer *prompt.Renderer
	gateway  generate.Gateway
	parser   Parser
	logger   *zap.Logger
	observe  func(shellm.State)
	state    shellm.State
}

// New creates a pipeline. If parser reports states, they are forwarded to
// the pipeline's observer.
func New(renderer *prompt.Renderer, gateway generate.Gateway, parser Parser, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		renderer: renderer,
		gateway:  gateway,
		parser:   parser,
		logger:   logger,
		observe:  func(shellm.State) {},
	}
	if o, ok := parser.(observable); ok {
		o.SetObserver(p.enter)
	}
	return p
}

// SetObserver registers fn to be called on every state transition.
func (p *Pipeline) SetObserver(fn func(shellm.State)) {
	if fn == nil {
		fn = func(shellm.State) {}
	}
	p.observe = fn
}

// State returns the current state.
func (p *Pipeline) State() shellm.State { return p.state }

func (p *Pipeline) enter(s shellm.State) {
	p.logger.Debug("pipeline state", zap.Stringer("from", p.state), zap.Stringer("to", s))
	p.state = s
	p.observe(s)
}

// Run dispatches to Recommend or Ask.
func (p *Pipeline) Run(ctx context.Context, mode Mode, transcript, intent string) (Result, error) {
	if mode == ModeQuestion {
		text, err := p.Ask(ctx, transcript, intent)
		return Result{Mode: mode, Text: text}, err
	}
	ans, err := p.Recommend(ctx, transcript, intent)
	return Result{Mode: mode, Answer: ans}, err
}

// Recommend asks the model for a single command and returns it validated.
func (p *Pipeline) Recommend(ctx context.Context, transcript, intent string) (shellm.Answer, error) {
	reply, err := p.call(ctx, prompt.Command, map[string]string{
		"context":             transcript,
		"format_instructions": answer.FormatInstructions,
	}, intent)
	if err != nil {
		return shellm.Answer{}, err
	}

	ans, err := p.parser.Parse(ctx, reply)
	if err != nil {
		p.enter(shellm.StateFailed)
		return shellm.Answer{}, err
	}
	p.enter(shellm.StateDone)
	return ans, nil
}

// Ask asks the model a general question and returns its reply unchanged.
func (p *Pipeline) Ask(ctx context.Context, transcript, intent string) (string, error) {
	reply, err := p.call(ctx, prompt.Question, map[string]string{"context": transcript}, intent)
	if err != nil {
		return "", err
	}
	p.enter(shellm.StateDone)
	return reply, nil
}

// call renders template id and sends it with intent as the user turn.
func (p *Pipeline) call(ctx context.Context, id prompt.TemplateID, vars map[string]string, intent string) (string, error) {
	p.state = shellm.StateIdle
	p.enter(shellm.StateRendering)
	system, err := p.renderer.Render(id, vars)
	if err != nil {
		p.enter(shellm.StateFailed)
		return "", fmt.Errorf("render %s prompt: %w", id, err)
	}

	p.enter(shellm.StateAwaitingModel)
	reply, err := p.gateway.Invoke(ctx, prompt.Messages(system, intent))
	if err != nil {
		p.enter(shellm.StateFailed)
		return "", err
	}
	return reply, nil
}
