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

const flowColumns = `id, name, description, source_adapter_id, target_adapter_id, field_mappings,
	output_schema, schedule, enabled`

// FlowRepository handles flow definition database operations.
type FlowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewFlowRepository(db *sql.DB, logger *slog.Logger) *FlowRepository {
	return &FlowRepository{db: db, logger: logger}
}

func (r *FlowRepository) Save(ctx context.Context, flow *models.FlowDefinition) error {
	mappingsJSON, err := json.Marshal(flow.FieldMappings)
	if err != nil {
		return fmt.Errorf("failed to marshal field mappings: %w", err)
	}

	var schemaJSON []byte
	if flow.OutputSchema != nil {
		schemaJSON, err = json.Marshal(flow.OutputSchema)
		if err != nil {
			return fmt.Errorf("failed to marshal output schema: %w", err)
		}
	}

	query := `
		INSERT INTO flow_definitions (` + flowColumns + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			source_adapter_id = EXCLUDED.source_adapter_id,
			target_adapter_id = EXCLUDED.target_adapter_id,
			field_mappings = EXCLUDED.field_mappings,
			output_schema = EXCLUDED.output_schema,
			schedule = EXCLUDED.schedule,
			enabled = EXCLUDED.enabled,
			updated_at = NOW()
	`

	_, err = r.db.ExecContext(ctx, query,
		flow.ID,
		flow.Name,
		flow.Description,
		flow.SourceAdapterID,
		flow.TargetAdapterID,
		mappingsJSON,
		schemaJSON,
		flow.Schedule,
		flow.Enabled,
	)
	if err != nil {
		return persistence.NewFlowError("Save", flow.ID, err)
	}

	return nil
}

func (r *FlowRepository) FindByID(ctx context.Context, flowID string) (*models.FlowDefinition, error) {
	query := `SELECT ` + flowColumns + ` FROM flow_definitions WHERE id = $1`

	flow, err := r.scan(r.db.QueryRowContext(ctx, query, flowID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewFlowError("FindByID", flowID, persistence.ErrFlowNotFound)
		}

		return nil, persistence.NewFlowError("FindByID", flowID, err)
	}

	return flow, nil
}

func (r *FlowRepository) All(ctx context.Context) ([]*models.FlowDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+flowColumns+` FROM flow_definitions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query flow definitions: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	flows := []*models.FlowDefinition{}

	for rows.Next() {
		flow, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow definition: %w", err)
		}

		flows = append(flows, flow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flow definitions: %w", err)
	}

	return flows, nil
}

func (r *FlowRepository) scan(scanner rowScanner) (*models.FlowDefinition, error) {
	var (
		flow                     models.FlowDefinition
		mappingsJSON, schemaJSON []byte
	)

	err := scanner.Scan(
		&flow.ID,
		&flow.Name,
		&flow.Description,
		&flow.SourceAdapterID,
		&flow.TargetAdapterID,
		&mappingsJSON,
		&schemaJSON,
		&flow.Schedule,
		&flow.Enabled,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(mappingsJSON, &flow.FieldMappings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal field mappings: %w", err)
	}

	if len(flow.FieldMappings) == 0 {
		flow.FieldMappings = nil
	}

	if schemaJSON != nil {
		if err := json.Unmarshal(schemaJSON, &flow.OutputSchema); err != nil {
			return nil, fmt.Errorf("failed to unmarshal output schema: %w", err)
		}
	}

	return &flow, nil
}
