package answer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Paranoid-AF/shellm"
	"github.com/Paranoid-AF/shellm/generate"
	"github.com/Paranoid-AF/shellm/prompt"
)

// DefaultMaxRepairRounds is used when no configuration says otherwise.
const DefaultMaxRepairRounds = 1

// Parser validates model replies and asks the model to repair invalid ones.
type Parser struct {
	gateway   generate.Gateway
	renderer  *prompt.Renderer
	validator Validator
	maxRounds int
	logger    *zap.Logger
	observe   func(shellm.State)
}

// NewParser creates a repairing parser. A negative maxRounds disables repair.
func NewParser(gateway generate.Gateway, renderer *prompt.Renderer, validator Validator, maxRounds int, logger *zap.Logger) *Parser {
	if maxRounds < 0 {
		maxRounds = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		gateway:   gateway,
		renderer:  renderer,
		validator: validator,
		maxRounds: maxRounds,
		logger:    logger,
		observe:   func(shellm.State) {},
	}
}

// SetObserver registers fn to be called on every state the parser enters.
func (p *Parser) SetObserver(fn func(shellm.State)) {
	if fn == nil {
		fn = func(shellm.State) {}
	}
	p.observe = fn
}

// MaxRounds returns the repair budget.
func (p *Parser) MaxRounds() int { return p.maxRounds }

// Parse validates initial and, while it is invalid and the budget allows,
// sends a repair request containing the previous reply and the validation
// error. It returns *shellm.UnrecoverableParseError once the budget is spent.
// Gateway errors are returned as-is.
func (p *Parser) Parse(ctx context.Context, initial string) (shellm.Answer, error) {
	reply := initial
	for round := 0; ; round++ {
		p.observe(shellm.StateValidating)
		ans, err := p.validator.Validate(reply)
		if err == nil {
			p.observe(shellm.StateValid)
			if round > 0 {
				p.logger.Debug("reply repaired", zap.Int("rounds", round))
			}
			return ans, nil
		}

		var verr *shellm.ValidationError
		if !errors.As(err, &verr) {
			return shellm.Answer{}, err
		}
		p.logger.Debug("reply failed validation", zap.Int("round", round), zap.String("reason", verr.Error()))

		if round >= p.maxRounds {
			return shellm.Answer{}, &shellm.UnrecoverableParseError{Rounds: round, Last: verr}
		}

		p.observe(shellm.StateRepairRoundPending)
		messages, err := p.repairMessages(reply, verr)
		if err != nil {
			return shellm.Answer{}, err
		}

		p.observe(shellm.StateAwaitingModel)
		reply, err = p.gateway.Invoke(ctx, messages)
		if err != nil {
			return shellm.Answer{}, err
		}
	}
}

// repairMessages builds the single-turn repair request for one round.
func (p *Parser) repairMessages(previous string, verr *shellm.ValidationError) ([]shellm.Message, error) {
	text, err := p.renderer.Render(prompt.Repair, map[string]string{
		"instructions": FormatInstructions,
		"completion":   previous,
		"error":        verr.Error(),
	})
	if err != nil {
		return nil, err
	}
	return []shellm.Message{{Role: shellm.RoleUser, Content: text}}, nil
}
