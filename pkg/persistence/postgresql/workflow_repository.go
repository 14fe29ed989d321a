package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/persistence"
)

const workflowColumns = `workflow_id, flow_id, execution_id, state, steps, current_step, global_variables,
	metadata, start_time, end_time, correlation_id, initiated_by`

// WorkflowRepository handles workflow context database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// Save upserts the workflow context.
func (r *WorkflowRepository) Save(ctx context.Context, wc *models.WorkflowContext) (*models.WorkflowContext, error) {
	stepsJSON, err := json.Marshal(wc.Steps)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal steps: %w", err)
	}

	variablesJSON, err := json.Marshal(wc.GlobalVariables)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal global variables: %w", err)
	}

	metadataJSON, err := json.Marshal(wc.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	var currentStep sql.NullInt64
	if wc.CurrentStep != nil {
		currentStep = sql.NullInt64{Int64: int64(*wc.CurrentStep), Valid: true}
	}

	query := `
		INSERT INTO workflow_contexts (` + workflowColumns + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (workflow_id) DO UPDATE SET
			flow_id = EXCLUDED.flow_id,
			execution_id = EXCLUDED.execution_id,
			state = EXCLUDED.state,
			steps = EXCLUDED.steps,
			current_step = EXCLUDED.current_step,
			global_variables = EXCLUDED.global_variables,
			metadata = EXCLUDED.metadata,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			correlation_id = EXCLUDED.correlation_id,
			initiated_by = EXCLUDED.initiated_by,
			updated_at = NOW()
	`

	_, err = r.db.ExecContext(ctx, query,
		wc.WorkflowID,
		wc.FlowID,
		wc.ExecutionID,
		wc.State,
		stepsJSON,
		currentStep,
		variablesJSON,
		metadataJSON,
		wc.StartTime,
		wc.EndTime,
		wc.CorrelationID,
		wc.InitiatedBy,
	)
	if err != nil {
		return nil, persistence.NewWorkflowError("Save", wc.WorkflowID, err)
	}

	return wc.Clone(), nil
}

func (r *WorkflowRepository) FindByID(ctx context.Context, workflowID string) (*models.WorkflowContext, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflow_contexts WHERE workflow_id = $1`

	wc, err := r.scan(r.db.QueryRowContext(ctx, query, workflowID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("FindByID", workflowID, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("FindByID", workflowID, err)
	}

	return wc, nil
}

func (r *WorkflowRepository) FindByState(ctx context.Context, state models.WorkflowState) ([]*models.WorkflowContext, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflow_contexts WHERE state = $1 ORDER BY start_time`

	rows, err := r.db.QueryContext(ctx, query, state)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow contexts: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	contexts := []*models.WorkflowContext{}

	for rows.Next() {
		wc, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow context: %w", err)
		}

		contexts = append(contexts, wc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflow contexts: %w", err)
	}

	return contexts, nil
}

func (r *WorkflowRepository) scan(scanner rowScanner) (*models.WorkflowContext, error) {
	var (
		wc                                     models.WorkflowContext
		stepsJSON, variablesJSON, metadataJSON []byte
		currentStep                            sql.NullInt64
		endTime                                sql.NullTime
	)

	err := scanner.Scan(
		&wc.WorkflowID,
		&wc.FlowID,
		&wc.ExecutionID,
		&wc.State,
		&stepsJSON,
		&currentStep,
		&variablesJSON,
		&metadataJSON,
		&wc.StartTime,
		&endTime,
		&wc.CorrelationID,
		&wc.InitiatedBy,
	)
	if err != nil {
		return nil, err
	}

	wc.Steps = []models.WorkflowStep{}
	wc.GlobalVariables = make(map[string]any)
	wc.Metadata = make(map[string]string)

	if err := json.Unmarshal(stepsJSON, &wc.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}

	if err := json.Unmarshal(variablesJSON, &wc.GlobalVariables); err != nil {
		return nil, fmt.Errorf("failed to unmarshal global variables: %w", err)
	}

	if err := json.Unmarshal(metadataJSON, &wc.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	if currentStep.Valid {
		current := int(currentStep.Int64)
		wc.CurrentStep = &current
	}

	if endTime.Valid {
		end := endTime.Time.UTC()
		wc.EndTime = &end
	}

	wc.StartTime = wc.StartTime.UTC()

	return &wc, nil
}
