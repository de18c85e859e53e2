package generate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Paranoid-AF/shellm"
)

// boundedGateway applies the per-call timeout, classifies failures and
// traces the exchange at debug level.
type boundedGateway struct {
	next    Gateway
	timeout time.Duration
	logger  *zap.Logger
}

func (b *boundedGateway) Invoke(ctx context.Context, messages []shellm.Message) (string, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	for i, m := range messages {
		b.logger.Debug("model request", zap.Int("index", i), zap.String("role", string(m.Role)), zap.String("content", m.Content))
	}

	start := time.Now()
	reply, err := b.next.Invoke(ctx, messages)
	if err != nil {
		err = classify(err)
		b.logger.Debug("model call failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", err
	}
	b.logger.Debug("model reply", zap.Duration("elapsed", time.Since(start)), zap.String("content", reply))
	return reply, nil
}
