package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

type FlowRepository struct {
	client redis.UniversalClient
	keys   keys
}

func (r *FlowRepository) Save(ctx context.Context, flow *models.FlowDefinition) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("failed to marshal flow %s: %w", flow.ID, err)
	}

	err = r.client.HSet(ctx, r.keys.flows(), flow.ID, data).Err()
	if err != nil {
		return persistence.NewFlowError("Save", flow.ID, err)
	}

	return nil
}

func (r *FlowRepository) FindByID(ctx context.Context, flowID string) (*models.FlowDefinition, error) {
	data, err := r.client.HGet(ctx, r.keys.flows(), flowID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
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

func (r *FlowRepository) All(ctx context.Context) ([]*models.FlowDefinition, error) {
	values, err := r.client.HGetAll(ctx, r.keys.flows()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	flows := make([]*models.FlowDefinition, 0, len(values))

	for id, value := range values {
		var flow models.FlowDefinition
		if err := json.Unmarshal([]byte(value), &flow); err != nil {
			return nil, persistence.NewFlowError("All", id, fmt.Errorf("failed to unmarshal: %w", err))
		}

		flows = append(flows, &flow)
	}

	sort.Slice(flows, func(i, j int) bool {
		return flows[i].ID < flows[j].ID
	})

	return flows, nil
}
