package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/flowlink/pkg/channels/gochannel"
	"github.com/dukex/flowlink/pkg/channels/kafka"
	"github.com/dukex/flowlink/pkg/eventbus"
)

var ErrUnsupportedEventBus = errors.New("unsupported event bus provider")

// Transport is the publisher and subscriber pair behind an event bus. The publisher is shared with
// the pubsub adapter.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// NewTransport creates the transport for provider: "gochannel" (in-process) or "kafka".
func NewTransport(provider, brokers, serviceName string, logger *slog.Logger) (*Transport, error) {
	wlogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "", "gochannel":
		pub, sub, err := gochannel.CreateChannel(wlogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-process pub/sub: %w", err)
		}

		return &Transport{Publisher: pub, Subscriber: sub}, nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wlogger, kafka.ParseBrokers(brokers), serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return &Transport{Publisher: pub, Subscriber: sub}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEventBus, provider)
	}
}

// NewEventBus wraps the transport into the event bus used by the engine.
func NewEventBus(transport *Transport, logger *slog.Logger) eventbus.EventBus {
	return eventbus.NewWatermillEventBus(transport.Publisher, transport.Subscriber, logger)
}
