// Package pubsub provides a send-only adapter that publishes payloads to a watermill topic, on the
// in-process channel or on Kafka depending on the publisher it is built with.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/flowlink/pkg/adapters"
	"github.com/dukex/flowlink/pkg/models"
)

// Metadata keys set on every published message.
const (
	WorkflowIDMetadataKey    = "workflow_id"
	FlowIDMetadataKey        = "flow_id"
	CorrelationIDMetadataKey = "correlation_id"
)

var ErrTopicRequired = errors.New("pubsub adapter 'topic' is required")

type Adapter struct {
	Topic string

	publisher message.Publisher
	logger    *slog.Logger
}

// NewAdapter does not take ownership of publisher; Close leaves it open.
func NewAdapter(config map[string]any, publisher message.Publisher, logger *slog.Logger) (*Adapter, error) {
	topic, _ := config["topic"].(string)
	if topic == "" {
		return nil, ErrTopicRequired
	}

	return &Adapter{
		Topic:     topic,
		publisher: publisher,
		logger:    logger.With("module", "pubsub_adapter", "topic", topic),
	}, nil
}

func (a *Adapter) Fetch(_ context.Context, _ models.ExecutionContext) (any, error) {
	return nil, fmt.Errorf("%w: pubsub adapters only send", adapters.ErrUnsupported)
}

func (a *Adapter) Send(ctx context.Context, payload any, ectx models.ExecutionContext) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)
	msg.Metadata.Set(WorkflowIDMetadataKey, ectx.WorkflowID)
	msg.Metadata.Set(FlowIDMetadataKey, ectx.FlowID)

	if ectx.CorrelationID != "" {
		msg.Metadata.Set(CorrelationIDMetadataKey, ectx.CorrelationID)
	}

	if err := a.publisher.Publish(a.Topic, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", a.Topic, err)
	}

	a.logger.DebugContext(ctx, "Published payload", "message_id", msg.UUID, "workflow_id", ectx.WorkflowID)

	return nil
}

func (a *Adapter) Ready(_ context.Context) bool {
	return a.publisher != nil
}

func (a *Adapter) Close(_ context.Context) error {
	return nil
}
