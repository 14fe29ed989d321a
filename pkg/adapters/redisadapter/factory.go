package redisadapter

import (
	"context"
	"log/slog"

	"github.com/dukex/flowlink/pkg/protocol"
)

// Factory creates Redis queue adapters.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(ctx context.Context, config map[string]any, logger *slog.Logger) (protocol.Adapter, error) {
	return NewAdapter(ctx, config, logger)
}

func (f *Factory) ID() string {
	return "redis"
}
