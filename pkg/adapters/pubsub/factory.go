package pubsub

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/flowlink/pkg/protocol"
)

// Factory creates pubsub adapters sharing one publisher.
type Factory struct {
	publisher message.Publisher
}

func NewFactory(publisher message.Publisher) *Factory {
	return &Factory{publisher: publisher}
}

func (f *Factory) Create(_ context.Context, config map[string]any, logger *slog.Logger) (protocol.Adapter, error) {
	return NewAdapter(config, f.publisher, logger)
}

func (f *Factory) ID() string {
	return "pubsub"
}
