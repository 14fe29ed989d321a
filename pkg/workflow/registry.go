package workflow

import (
	"context"
	"sync"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/persistence"
)

// Entry is one live workflow. mu guards wc; drive is held by whichever loop is running the steps.
type Entry struct {
	mu         sync.Mutex
	drive      sync.Mutex
	wc         *models.WorkflowContext
	generation uint64
}

// driving reports whether the loop started at gen may run another step. Callers hold mu.
func (e *Entry) driving(gen uint64) bool {
	return e.wc.State == models.WorkflowStateInProgress && e.generation == gen
}

// Snapshot returns a deep copy of the workflow as it is now.
func (e *Entry) Snapshot() *models.WorkflowContext {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.wc.Clone()
}

// Registry caches the workflows running in this process. The repository stays authoritative:
// misses are refreshed from it and terminal workflows are evicted.
type Registry struct {
	mu         sync.RWMutex
	entries    map[string]*Entry
	repository persistence.WorkflowRepository
}

func NewRegistry(repository persistence.WorkflowRepository) *Registry {
	return &Registry{
		entries:    make(map[string]*Entry),
		repository: repository,
	}
}

// Track starts caching wc, replacing any previous entry with the same id.
func (r *Registry) Track(wc *models.WorkflowContext) *Entry {
	e := &Entry{wc: wc}

	r.mu.Lock()
	r.entries[wc.WorkflowID] = e
	r.mu.Unlock()

	return e
}

func (r *Registry) Get(workflowID string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[workflowID]

	return e, ok
}

// Load returns the cached entry or reads the workflow from the repository. Concurrent loads of the
// same id share one entry. Terminal workflows are returned without being cached.
func (r *Registry) Load(ctx context.Context, workflowID string) (*Entry, error) {
	if e, ok := r.Get(workflowID); ok {
		return e, nil
	}

	wc, err := r.repository.FindByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if wc.State.IsTerminal() {
		return &Entry{wc: wc}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[workflowID]; ok {
		return e, nil
	}

	e := &Entry{wc: wc}
	r.entries[workflowID] = e

	return e, nil
}

func (r *Registry) Evict(workflowID string) {
	r.mu.Lock()
	delete(r.entries, workflowID)
	r.mu.Unlock()
}

// Len returns the number of cached workflows.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// IDs returns the ids of the cached workflows in no particular order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}

	return ids
}
