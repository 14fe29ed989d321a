package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/persistence"
)

// FlowRepository stores one JSON document per flow definition.
type FlowRepository struct {
	root string
}

func NewFlowRepository(root string) *FlowRepository {
	return &FlowRepository{root: root}
}

func (r *FlowRepository) path(flowID string) string {
	return filepath.Join(r.root, flowsDir, flowID+".json")
}

func (r *FlowRepository) Save(_ context.Context, flow *models.FlowDefinition) error {
	if err := persistence.ValidateID(flow.ID); err != nil {
		return persistence.NewFlowError("Save", flow.ID, err)
	}

	err := writeJSON(r.path(flow.ID), flow)
	if err != nil {
		return persistence.NewFlowError("Save", flow.ID, err)
	}

	return nil
}

func (r *FlowRepository) FindByID(_ context.Context, flowID string) (*models.FlowDefinition, error) {
	if err := persistence.ValidateID(flowID); err != nil {
		return nil, persistence.NewFlowError("FindByID", flowID, err)
	}

	data, err := os.ReadFile(r.path(flowID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewFlowError("FindByID", flowID, persistence.ErrFlowNotFound)
		}

		return nil, persistence.NewFlowError("FindByID", flowID, err)
	}

	var flow models.FlowDefinition

	err = json.Unmarshal(data, &flow)
	if err != nil {
		return nil, persistence.NewFlowError("FindByID", flowID, fmt.Errorf("failed to unmarshal: %w", err))
	}

	return &flow, nil
}

func (r *FlowRepository) All(_ context.Context) ([]*models.FlowDefinition, error) {
	flows, err := readJSONDir[models.FlowDefinition](filepath.Join(r.root, flowsDir))
	if err != nil {
		return nil, err
	}

	sort.Slice(flows, func(i, j int) bool {
		return flows[i].ID < flows[j].ID
	})

	return flows, nil
}
