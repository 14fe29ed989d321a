// Package redisadapter exchanges payloads through a Redis list used as a queue: Send pushes JSON to
// the tail, Fetch pops from the head.
package redisadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowlink/pkg/models"
	redis "github.com/redis/go-redis/v9"
)

const defaultURL = "redis://localhost:6379/0"

var (
	ErrKeyRequired = errors.New("redis adapter 'key' is required")
	// ErrQueueEmpty is returned by Fetch when a single-message adapter finds nothing to pop.
	ErrQueueEmpty = errors.New("redis queue is empty")
)

type Adapter struct {
	Key string
	// Batch is the most messages one Fetch pops. With Batch 1 Fetch returns the message itself,
	// otherwise a list.
	Batch int

	client redis.UniversalClient
	logger *slog.Logger
}

func NewAdapter(ctx context.Context, config map[string]any, logger *slog.Logger) (*Adapter, error) {
	url, _ := config["url"].(string)
	if url == "" {
		url = defaultURL
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	adapter, err := NewAdapterWithClient(config, client, logger)
	if err != nil {
		_ = client.Close()

		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	adapter.logger.InfoContext(ctx, "Connected to Redis", "addr", opts.Addr, "db", opts.DB)

	return adapter, nil
}

// NewAdapterWithClient builds an adapter over an existing client. The adapter owns the client.
func NewAdapterWithClient(config map[string]any, client redis.UniversalClient, logger *slog.Logger) (*Adapter, error) {
	key, _ := config["key"].(string)
	if key == "" {
		return nil, ErrKeyRequired
	}

	batch := intValue(config["batch"])
	if batch <= 0 {
		batch = 1
	}

	return &Adapter{
		Key:    key,
		Batch:  batch,
		client: client,
		logger: logger.With("module", "redis_adapter", "key", key),
	}, nil
}

func (a *Adapter) Fetch(ctx context.Context, ectx models.ExecutionContext) (any, error) {
	messages, err := a.client.LPopCount(ctx, a.Key, a.Batch).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to pop from queue: %w", err)
	}

	if a.Batch == 1 {
		if len(messages) == 0 {
			return nil, ErrQueueEmpty
		}

		return decode(messages[0]), nil
	}

	records := make([]any, 0, len(messages))
	for _, message := range messages {
		records = append(records, decode(message))
	}

	a.logger.DebugContext(ctx, "Popped messages", "count", len(records), "workflow_id", ectx.WorkflowID)

	return records, nil
}

func (a *Adapter) Send(ctx context.Context, payload any, ectx models.ExecutionContext) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	if err := a.client.RPush(ctx, a.Key, data).Err(); err != nil {
		return fmt.Errorf("failed to push to queue: %w", err)
	}

	a.logger.DebugContext(ctx, "Pushed message", "workflow_id", ectx.WorkflowID, "bytes", len(data))

	return nil
}

func (a *Adapter) Ready(ctx context.Context) bool {
	return a.client.Ping(ctx).Err() == nil
}

func (a *Adapter) Close(_ context.Context) error {
	return a.client.Close()
}

// decode returns the JSON value of message, or message itself when it is not JSON.
func decode(message string) any {
	var value any
	if err := json.Unmarshal([]byte(message), &value); err != nil {
		return message
	}

	return value
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
