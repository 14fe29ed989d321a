package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/persistence"
)

// WorkflowRepository stores one JSON document per workflow context.
type WorkflowRepository struct {
	root string
}

func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (r *WorkflowRepository) path(workflowID string) string {
	return filepath.Join(r.root, workflowsDir, workflowID+".json")
}

// Save writes the context and returns a decoded copy of what was stored.
func (r *WorkflowRepository) Save(_ context.Context, wc *models.WorkflowContext) (*models.WorkflowContext, error) {
	if err := persistence.ValidateID(wc.WorkflowID); err != nil {
		return nil, persistence.NewWorkflowError("Save", wc.WorkflowID, err)
	}

	err := writeJSON(r.path(wc.WorkflowID), wc)
	if err != nil {
		return nil, persistence.NewWorkflowError("Save", wc.WorkflowID, err)
	}

	return wc.Clone(), nil
}

func (r *WorkflowRepository) FindByID(_ context.Context, workflowID string) (*models.WorkflowContext, error) {
	if err := persistence.ValidateID(workflowID); err != nil {
		return nil, persistence.NewWorkflowError("FindByID", workflowID, err)
	}

	data, err := os.ReadFile(r.path(workflowID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewWorkflowError("FindByID", workflowID, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("FindByID", workflowID, err)
	}

	var wc models.WorkflowContext

	err = json.Unmarshal(data, &wc)
	if err != nil {
		return nil, persistence.NewWorkflowError("FindByID", workflowID, fmt.Errorf("failed to unmarshal: %w", err))
	}

	return &wc, nil
}

func (r *WorkflowRepository) FindByState(_ context.Context, state models.WorkflowState) ([]*models.WorkflowContext, error) {
	all, err := readJSONDir[models.WorkflowContext](filepath.Join(r.root, workflowsDir))
	if err != nil {
		return nil, err
	}

	matches := make([]*models.WorkflowContext, 0, len(all))

	for _, wc := range all {
		if wc.State == state {
			matches = append(matches, wc)
		}
	}

	return matches, nil
}
