package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

var workflowStates = []models.WorkflowState{
	models.WorkflowStateInitiated,
	models.WorkflowStateInProgress,
	models.WorkflowStateSuspended,
	models.WorkflowStateCompleted,
	models.WorkflowStateFailed,
	models.WorkflowStateCancelled,
}

type WorkflowRepository struct {
	client redis.UniversalClient
	keys   keys
}

// Save stores the document and moves the id into the set of its current state in one transaction.
func (r *WorkflowRepository) Save(ctx context.Context, wc *models.WorkflowContext) (*models.WorkflowContext, error) {
	if err := persistence.ValidateID(wc.WorkflowID); err != nil {
		return nil, persistence.NewWorkflowError("Save", wc.WorkflowID, err)
	}

	data, err := json.Marshal(wc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workflow context: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.keys.workflow(wc.WorkflowID), data, 0)

		for _, state := range workflowStates {
			if state != wc.State {
				pipe.SRem(ctx, r.keys.state(string(state)), wc.WorkflowID)
			}
		}

		pipe.SAdd(ctx, r.keys.state(string(wc.State)), wc.WorkflowID)

		return nil
	})
	if err != nil {
		return nil, persistence.NewWorkflowError("Save", wc.WorkflowID, err)
	}

	return wc.Clone(), nil
}

func (r *WorkflowRepository) FindByID(ctx context.Context, workflowID string) (*models.WorkflowContext, error) {
	data, err := r.client.Get(ctx, r.keys.workflow(workflowID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
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

func (r *WorkflowRepository) FindByState(ctx context.Context, state models.WorkflowState) ([]*models.WorkflowContext, error) {
	ids, err := r.client.SMembers(ctx, r.keys.state(string(state))).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows in state %s: %w", state, err)
	}

	contexts := make([]*models.WorkflowContext, 0, len(ids))

	for _, id := range ids {
		wc, err := r.FindByID(ctx, id)
		if err != nil {
			if persistence.IsWorkflowNotFound(err) {
				continue
			}

			return nil, err
		}

		if wc.State == state {
			contexts = append(contexts, wc)
		}
	}

	return contexts, nil
}
