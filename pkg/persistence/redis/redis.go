// Package redis provides Redis persistence for workflow contexts, audit events and flows.
//
// Layout, relative to the configured key prefix:
//
//	workflow:<id>      JSON document of the workflow context
//	state:<STATE>      set of workflow ids currently in STATE
//	events:<id>        list of JSON audit events, in append order
//	flows              hash of flow id to JSON flow definition
package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/flowlink/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "flowlink:"

// Persistence implements the persistence layer on top of Redis.
type Persistence struct {
	client       redis.UniversalClient
	logger       *slog.Logger
	workflowRepo *WorkflowRepository
	eventRepo    *EventRepository
	flowRepo     *FlowRepository
}

// NewPersistence connects to the Redis server described by redisURL (redis://host:port/db).
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewPersistenceWithClient(logger, client, defaultPrefix), nil
}

// NewPersistenceWithClient builds the persistence layer over an existing client.
func NewPersistenceWithClient(logger *slog.Logger, client redis.UniversalClient, prefix string) *Persistence {
	k := keys{prefix: prefix}

	return &Persistence{
		client:       client,
		logger:       logger,
		workflowRepo: &WorkflowRepository{client: client, keys: k},
		eventRepo:    &EventRepository{client: client, keys: k},
		flowRepo:     &FlowRepository{client: client, keys: k},
	}
}

func (p *Persistence) Close(_ context.Context) error {
	err := p.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) WorkflowEventRepository() persistence.WorkflowEventRepository {
	return p.eventRepo
}

func (p *Persistence) FlowDefinitionRepository() persistence.FlowDefinitionRepository {
	return p.flowRepo
}

type keys struct {
	prefix string
}

func (k keys) workflow(id string) string { return k.prefix + "workflow:" + id }
func (k keys) state(state string) string { return k.prefix + "state:" + state }
func (k keys) events(id string) string   { return k.prefix + "events:" + id }
func (k keys) flows() string             { return k.prefix + "flows" }
