package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/persistence"
)

// EventRepository appends events to one JSON-lines file per workflow.
type EventRepository struct {
	root string
	mu   sync.Mutex
}

func NewEventRepository(root string) *EventRepository {
	return &EventRepository{root: root}
}

func (r *EventRepository) path(workflowID string) string {
	return filepath.Join(r.root, eventsDir, workflowID+".jsonl")
}

func (r *EventRepository) Save(_ context.Context, event *models.WorkflowEvent) error {
	if err := persistence.ValidateID(event.WorkflowID); err != nil {
		return persistence.NewWorkflowError("SaveEvent", event.WorkflowID, err)
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err = os.MkdirAll(filepath.Join(r.root, eventsDir), 0750)
	if err != nil {
		return fmt.Errorf("failed to create events directory: %w", err)
	}

	f, err := os.OpenFile(r.path(event.WorkflowID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open event log for workflow %s: %w", event.WorkflowID, err)
	}

	_, err = f.Write(append(line, '\n'))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("failed to append event %s: %w", event.ID, err)
	}

	return nil
}

func (r *EventRepository) FindByWorkflowID(_ context.Context, workflowID string) ([]*models.WorkflowEvent, error) {
	if err := persistence.ValidateID(workflowID); err != nil {
		return nil, persistence.NewWorkflowError("FindEvents", workflowID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path(workflowID))
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.WorkflowEvent{}, nil
		}

		return nil, fmt.Errorf("failed to open event log for workflow %s: %w", workflowID, err)
	}
	defer f.Close()

	events := []*models.WorkflowEvent{}
	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		var event models.WorkflowEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			return nil, fmt.Errorf("failed to decode event log for workflow %s: %w", workflowID, err)
		}

		events = append(events, &event)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event log for workflow %s: %w", workflowID, err)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	return events, nil
}
