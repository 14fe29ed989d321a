// Package adapters hosts the configured adapter instances and routes fetches and sends to them by id.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/protocol"
	"github.com/dukex/flowlink/pkg/registry"
)

var (
	ErrAdapterNotFound = errors.New("adapter not found")
	ErrDuplicateID     = errors.New("duplicate adapter id")
	// ErrUnsupported is returned by adapters for a direction they cannot serve.
	ErrUnsupported = errors.New("operation not supported by adapter")
)

// Manager is the AdapterExecutionPort over a set of live adapters.
type Manager struct {
	registry *registry.Registry
	logger   *slog.Logger

	mu       sync.RWMutex
	adapters map[string]protocol.Adapter
}

func NewManager(registry *registry.Registry, logger *slog.Logger) *Manager {
	return &Manager{
		registry: registry,
		logger:   logger.With("module", "adapter_manager"),
		adapters: make(map[string]protocol.Adapter),
	}
}

// Configure creates one adapter per definition. Nothing is registered when any definition fails.
func (m *Manager) Configure(ctx context.Context, definitions []models.AdapterDefinition) error {
	created := make(map[string]protocol.Adapter, len(definitions))

	for _, def := range definitions {
		if _, exists := created[def.ID]; exists {
			closeAll(ctx, created)

			return fmt.Errorf("%w: %s", ErrDuplicateID, def.ID)
		}

		adapter, err := m.registry.CreateAdapter(ctx, def.Type, def.Config)
		if err != nil {
			closeAll(ctx, created)

			return fmt.Errorf("failed to create adapter %s: %w", def.ID, err)
		}

		created[def.ID] = adapter
	}

	for id, adapter := range created {
		m.Register(ctx, id, adapter)
	}

	m.logger.InfoContext(ctx, "Adapters configured", "count", len(created))

	return nil
}

// Register makes adapter reachable under id, closing any adapter it replaces.
func (m *Manager) Register(ctx context.Context, id string, adapter protocol.Adapter) {
	m.mu.Lock()
	previous := m.adapters[id]
	m.adapters[id] = adapter
	m.mu.Unlock()

	if previous != nil && previous != adapter {
		if err := previous.Close(ctx); err != nil {
			m.logger.ErrorContext(ctx, "Failed to close replaced adapter", "adapter_id", id, "error", err)
		}
	}
}

func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.adapters))
	for id := range m.adapters {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

func (m *Manager) Fetch(ctx context.Context, adapterID string, ectx models.ExecutionContext) (any, error) {
	adapter, err := m.get(adapterID)
	if err != nil {
		return nil, err
	}

	payload, err := adapter.Fetch(ctx, ectx)
	if err != nil {
		return nil, fmt.Errorf("adapter %s fetch: %w", adapterID, err)
	}

	m.logger.DebugContext(ctx, "Fetched payload", "adapter_id", adapterID, "workflow_id", ectx.WorkflowID)

	return payload, nil
}

func (m *Manager) Send(ctx context.Context, adapterID string, payload any, ectx models.ExecutionContext) error {
	adapter, err := m.get(adapterID)
	if err != nil {
		return err
	}

	if err := adapter.Send(ctx, payload, ectx); err != nil {
		return fmt.Errorf("adapter %s send: %w", adapterID, err)
	}

	m.logger.DebugContext(ctx, "Sent payload", "adapter_id", adapterID, "workflow_id", ectx.WorkflowID)

	return nil
}

// IsReady reports false for unknown adapters.
func (m *Manager) IsReady(ctx context.Context, adapterID string) bool {
	adapter, err := m.get(adapterID)
	if err != nil {
		return false
	}

	return adapter.Ready(ctx)
}

// Close closes every adapter and forgets them.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	adapters := m.adapters
	m.adapters = make(map[string]protocol.Adapter)
	m.mu.Unlock()

	return closeAll(ctx, adapters)
}

func (m *Manager) get(adapterID string) (protocol.Adapter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	adapter, ok := m.adapters[adapterID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, adapterID)
	}

	return adapter, nil
}

func closeAll(ctx context.Context, adapters map[string]protocol.Adapter) error {
	var errs []error

	for id, adapter := range adapters {
		if err := adapter.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close adapter %s: %w", id, err))
		}
	}

	return errors.Join(errs...)
}
