package adapters

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/dukex/flowlink/pkg/log"
	"github.com/dukex/flowlink/pkg/mocks"
	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/protocol"
	"github.com/dukex/flowlink/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFactory struct {
	mock.Mock
}

func (f *mockFactory) Create(ctx context.Context, config map[string]any, logger *slog.Logger) (protocol.Adapter, error) {
	args := f.Called(ctx, config, logger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(protocol.Adapter), args.Error(1)
}

func (f *mockFactory) ID() string {
	return "mock"
}

var ectx = models.ExecutionContext{WorkflowID: "wf-1", FlowID: "flow-1"}

func newManager(t *testing.T, adapters map[string]*mocks.MockAdapter) *Manager {
	t.Helper()

	manager := NewManager(registry.NewRegistry(log.Discard()), log.Discard())
	for id, adapter := range adapters {
		manager.Register(context.Background(), id, adapter)
	}

	return manager
}

func TestManager_Routes(t *testing.T) {
	ctx := context.Background()

	source := &mocks.MockAdapter{}
	source.On("Fetch", mock.Anything, ectx).Return(map[string]any{"id": 1}, nil)
	source.On("Ready", mock.Anything).Return(true)

	target := &mocks.MockAdapter{}
	target.On("Send", mock.Anything, "payload", ectx).Return(nil)

	manager := newManager(t, map[string]*mocks.MockAdapter{"crm": source, "erp": target})

	payload, err := manager.Fetch(ctx, "crm", ectx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": 1}, payload)

	require.NoError(t, manager.Send(ctx, "erp", "payload", ectx))
	assert.True(t, manager.IsReady(ctx, "crm"))
	assert.Equal(t, []string{"crm", "erp"}, manager.IDs())

	source.AssertExpectations(t)
	target.AssertExpectations(t)
}

func TestManager_UnknownAdapter(t *testing.T) {
	ctx := context.Background()
	manager := newManager(t, nil)

	_, err := manager.Fetch(ctx, "nope", ectx)
	require.ErrorIs(t, err, ErrAdapterNotFound)

	err = manager.Send(ctx, "nope", nil, ectx)
	require.ErrorIs(t, err, ErrAdapterNotFound)

	assert.False(t, manager.IsReady(ctx, "nope"))
}

func TestManager_WrapsAdapterErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")

	adapter := &mocks.MockAdapter{}
	adapter.On("Fetch", mock.Anything, ectx).Return(nil, boom)
	adapter.On("Send", mock.Anything, mock.Anything, ectx).Return(boom)

	manager := newManager(t, map[string]*mocks.MockAdapter{"crm": adapter})

	_, err := manager.Fetch(ctx, "crm", ectx)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "adapter crm fetch")

	err = manager.Send(ctx, "crm", "x", ectx)
	require.ErrorIs(t, err, boom)
}

func TestManager_Configure(t *testing.T) {
	ctx := context.Background()

	first := &mocks.MockAdapter{}
	second := &mocks.MockAdapter{}

	factory := &mockFactory{}
	factory.On("Create", mock.Anything, map[string]any{"n": 1}, mock.Anything).Return(first, nil)
	factory.On("Create", mock.Anything, map[string]any{"n": 2}, mock.Anything).Return(second, nil)

	reg := registry.NewRegistry(log.Discard())
	reg.RegisterAdapter(factory)

	manager := NewManager(reg, log.Discard())

	err := manager.Configure(ctx, []models.AdapterDefinition{
		{ID: "a", Type: "mock", Config: map[string]any{"n": 1}},
		{ID: "b", Type: "mock", Config: map[string]any{"n": 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, manager.IDs())

	first.On("Close", mock.Anything).Return(nil)
	second.On("Close", mock.Anything).Return(errors.New("busy"))

	err = manager.Close(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close adapter b")
	assert.Empty(t, manager.IDs())
}

func TestManager_ConfigureIsAllOrNothing(t *testing.T) {
	ctx := context.Background()

	created := &mocks.MockAdapter{}
	created.On("Close", mock.Anything).Return(nil)

	factory := &mockFactory{}
	factory.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(created, nil)

	reg := registry.NewRegistry(log.Discard())
	reg.RegisterAdapter(factory)

	manager := NewManager(reg, log.Discard())

	err := manager.Configure(ctx, []models.AdapterDefinition{
		{ID: "a", Type: "mock"},
		{ID: "b", Type: "unknown"},
	})
	require.ErrorIs(t, err, registry.ErrUnknownAdapterType)
	assert.Empty(t, manager.IDs())
	created.AssertCalled(t, "Close", mock.Anything)

	err = manager.Configure(ctx, []models.AdapterDefinition{
		{ID: "a", Type: "mock"},
		{ID: "a", Type: "mock"},
	})
	require.ErrorIs(t, err, ErrDuplicateID)
}

func TestManager_RegisterClosesReplaced(t *testing.T) {
	ctx := context.Background()

	old := &mocks.MockAdapter{}
	old.On("Close", mock.Anything).Return(nil).Once()

	manager := newManager(t, map[string]*mocks.MockAdapter{"crm": old})
	manager.Register(ctx, "crm", &mocks.MockAdapter{})

	old.AssertExpectations(t)
}
