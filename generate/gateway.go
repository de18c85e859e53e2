// Package generate implements the model gateway: rendered messages in, raw
// reply text out.
package generate

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/Paranoid-AF/shellm"
)

// Gateway sends a conversation to a language model and returns its reply.
// Implementations perform no retries.
type Gateway interface {
	Invoke(ctx context.Context, messages []shellm.Message) (string, error)
}

// New returns the gateway for the configured api_type.
func New(ctx context.Context, cfg *shellm.Config, apiKey string, logger *zap.Logger) (Gateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var gw Gateway
	switch cfg.Model.APIType {
	case shellm.APITypeGemini:
		g, err := NewGemini(ctx, apiKey, shellm.ResolveModel(cfg), cfg.Model.Temperature, cfg.Model.MaxTokens)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shellm.ErrModelUnavailable, err)
		}
		gw = g
	default:
		gw = NewGenerator(
			shellm.ResolveBaseURL(cfg),
			apiKey,
			shellm.ResolveModel(cfg),
			cfg.Model.APIType,
			cfg.Model.MaxTokens,
			cfg.Model.Temperature,
		)
	}
	return &boundedGateway{next: gw, timeout: cfg.Model.Timeout(), logger: logger}, nil
}

// classify wraps err with the gateway error kind it belongs to.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, shellm.ErrModelTimeout) || errors.Is(err, shellm.ErrModelUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", shellm.ErrModelTimeout, err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %v", shellm.ErrModelTimeout, err)
	}
	return fmt.Errorf("%w: %v", shellm.ErrModelUnavailable, err)
}
