package notify

import (
	"context"

	"go.uber.org/zap"
)

// NoopPusher accepts every send without delivering anything. Used when no
// push endpoint is configured (local development, tests).
type NoopPusher struct {
	logger *zap.Logger
}

// NewNoopPusher creates a pusher that only logs.
func NewNoopPusher(logger *zap.Logger) *NoopPusher {
	return &NoopPusher{logger: logger}
}

func (n *NoopPusher) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	n.logger.Debug("push delivery disabled, dropping notification",
		zap.String("title", title),
	)
	return nil
}
