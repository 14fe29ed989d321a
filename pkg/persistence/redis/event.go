package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/redis/go-redis/v9"
)

type EventRepository struct {
	client redis.UniversalClient
	keys   keys
}

func (r *EventRepository) Save(ctx context.Context, event *models.WorkflowEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.ID, err)
	}

	err = r.client.RPush(ctx, r.keys.events(event.WorkflowID), data).Err()
	if err != nil {
		return fmt.Errorf("failed to append event %s: %w", event.ID, err)
	}

	return nil
}

// FindByWorkflowID returns events in append order, which is timestamp order for a single engine.
func (r *EventRepository) FindByWorkflowID(ctx context.Context, workflowID string) ([]*models.WorkflowEvent, error) {
	items, err := r.client.LRange(ctx, r.keys.events(workflowID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read events of workflow %s: %w", workflowID, err)
	}

	events := make([]*models.WorkflowEvent, 0, len(items))

	for _, item := range items {
		var event models.WorkflowEvent
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			return nil, fmt.Errorf("failed to decode event of workflow %s: %w", workflowID, err)
		}

		events = append(events, &event)
	}

	return events, nil
}
