package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukex/flowlink/pkg/log"
	"github.com/dukex/flowlink/pkg/mocks"
	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/persistence/file"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	sourceAdapter = "A1"
	targetAdapter = "A2"
)

type fixture struct {
	store     *file.Persistence
	adapters  *mocks.MockAdapterExecutionPort
	transform *mocks.MockTransformationPort
	orch      *Orchestrator
}

func newFixture(t *testing.T, flows ...*models.FlowDefinition) *fixture {
	t.Helper()

	f := &fixture{
		store:     file.NewPersistence(t.TempDir()),
		adapters:  &mocks.MockAdapterExecutionPort{},
		transform: &mocks.MockTransformationPort{},
	}

	for _, flow := range flows {
		require.NoError(t, f.store.FlowDefinitionRepository().Save(context.Background(), flow))
	}

	f.orch = f.newOrchestrator(t)

	return f
}

// newOrchestrator builds an orchestrator over the fixture's storage with an empty registry, as a
// freshly started process would.
func (f *fixture) newOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()

	orch, err := NewOrchestrator(Config{
		Flows:          f.store.FlowDefinitionRepository(),
		Workflows:      f.store.WorkflowRepository(),
		Events:         f.store.WorkflowEventRepository(),
		Adapters:       f.adapters,
		Transformation: f.transform,
		Pool:           NewPool(4, log.Discard()),
		Logger:         log.Discard(),
	})
	require.NoError(t, err)

	t.Cleanup(orch.Wait)

	return orch
}

func (f *fixture) eventTypes(t *testing.T, workflowID string) []models.WorkflowEventType {
	t.Helper()

	stored, err := f.store.WorkflowEventRepository().FindByWorkflowID(context.Background(), workflowID)
	require.NoError(t, err)

	types := make([]models.WorkflowEventType, 0, len(stored))
	for _, event := range stored {
		types = append(types, event.EventType)
	}

	return types
}

func (f *fixture) stored(t *testing.T, workflowID string) *models.WorkflowContext {
	t.Helper()

	wc, err := f.store.WorkflowRepository().FindByID(context.Background(), workflowID)
	require.NoError(t, err)

	return wc
}

func simpleFlow() *models.FlowDefinition {
	return &models.FlowDefinition{
		ID:              "simple",
		Name:            "Simple copy",
		SourceAdapterID: sourceAdapter,
		TargetAdapterID: targetAdapter,
		Enabled:         true,
	}
}

func mappedFlow() *models.FlowDefinition {
	flow := simpleFlow()
	flow.ID = "mapped"
	flow.Name = "Mapped copy"
	flow.FieldMappings = []models.FieldMapping{{Source: "name", Target: "full"}}

	return flow
}

// gate blocks a mocked port call until released and reports when the call started.
type gate struct {
	started chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{started: make(chan struct{}, 8), release: make(chan struct{})}
}

func (g *gate) run(mock.Arguments) {
	g.started <- struct{}{}
	<-g.release
}

func (g *gate) waitStarted(t *testing.T) {
	t.Helper()

	select {
	case <-g.started:
	case <-time.After(5 * time.Second):
		t.Fatal("port call did not start")
	}
}

func waitFuture(t *testing.T, future *Future) *models.WorkflowContext {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wc, err := future.Wait(ctx)
	require.NoError(t, err)

	return wc
}

var errTargetDown = errors.New("target unavailable")
