// Package eventbus carries flowlink's two event families over a message transport: workflow
// lifecycle events (workflow.started, workflow.completed, ...) emitted by the orchestrator, and
// flow.execution.requested events consumed by workers.
package eventbus

import (
	"context"

	"github.com/dukex/flowlink/pkg/events"
)

// Event is anything published on the bus. Its type routes it to handlers and is stamped on the
// message metadata.
type Event interface {
	GetType() events.EventType
}

// EventPublisher sends events. The orchestrator publishes lifecycle events keyed by workflow id;
// the CLI publishes execution requests keyed by flow id so one flow's requests stay ordered on
// partitioned transports.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber routes incoming events to the handler registered for their type. Events without
// a handler are acknowledged and dropped.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives the decoded event, e.g. *events.FlowExecutionRequested. A returned error
// nacks the message so the transport redelivers it.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
