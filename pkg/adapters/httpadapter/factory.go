package httpadapter

import (
	"context"
	"log/slog"

	"github.com/dukex/flowlink/pkg/protocol"
)

// Factory creates HTTP adapters.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(_ context.Context, config map[string]any, logger *slog.Logger) (protocol.Adapter, error) {
	return NewAdapter(config, logger)
}

func (f *Factory) ID() string {
	return "http"
}
