package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/flowlink/pkg/models"
)

// EventRepository appends workflow audit events.
type EventRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewEventRepository(db *sql.DB, logger *slog.Logger) *EventRepository {
	return &EventRepository{db: db, logger: logger}
}

func (r *EventRepository) Save(ctx context.Context, event *models.WorkflowEvent) error {
	query := `
		INSERT INTO workflow_events (
			id, workflow_id, flow_id, event_type, step_id, step_name, description, user_id, source, timestamp
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.WorkflowID,
		event.FlowID,
		event.EventType,
		event.StepID,
		event.StepName,
		event.Description,
		event.UserID,
		event.Source,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow event %s: %w", event.ID, err)
	}

	return nil
}

func (r *EventRepository) FindByWorkflowID(ctx context.Context, workflowID string) ([]*models.WorkflowEvent, error) {
	query := `
		SELECT id, workflow_id, flow_id, event_type, step_id, step_name, description, user_id, source, timestamp
		FROM workflow_events
		WHERE workflow_id = $1
		ORDER BY timestamp, id
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow events: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	events := []*models.WorkflowEvent{}

	for rows.Next() {
		var event models.WorkflowEvent

		err := rows.Scan(
			&event.ID,
			&event.WorkflowID,
			&event.FlowID,
			&event.EventType,
			&event.StepID,
			&event.StepName,
			&event.Description,
			&event.UserID,
			&event.Source,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow event: %w", err)
		}

		event.Timestamp = event.Timestamp.UTC()
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflow events: %w", err)
	}

	return events, nil
}
