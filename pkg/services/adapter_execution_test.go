package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/flowlink/pkg/log"
	"github.com/dukex/flowlink/pkg/mocks"
	"github.com/dukex/flowlink/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapterExecution_Fetch(t *testing.T) {
	ctx := context.Background()
	ectx := models.ExecutionContext{WorkflowID: "wf-1"}
	errDown := errors.New("connection refused")

	tests := []struct {
		name      string
		adapterID string
		result    any
		err       error
		wantErr   error
	}{
		{name: "delegates", adapterID: "shop", result: "data"},
		{name: "wraps port errors", adapterID: "shop", err: errDown, wantErr: errDown},
		{name: "requires adapter id", wantErr: ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := &mocks.MockAdapterExecutionPort{}
			if tt.adapterID != "" {
				port.On("Fetch", ctx, tt.adapterID, ectx).Return(tt.result, tt.err).Once()
			}

			got, err := NewAdapterExecution(port, log.Discard()).Fetch(ctx, tt.adapterID, ectx)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.result, got)
			}

			port.AssertExpectations(t)
		})
	}
}

func TestAdapterExecution_Send(t *testing.T) {
	ctx := context.Background()
	ectx := models.ExecutionContext{WorkflowID: "wf-1", StepID: "step-2"}

	port := &mocks.MockAdapterExecutionPort{}
	port.On("Send", ctx, "crm", "ok", ectx).Return(nil).Once()
	port.On("Send", ctx, "crm", "bad", ectx).Return(errors.New("422")).Once()

	svc := NewAdapterExecution(port, log.Discard())

	require.NoError(t, svc.Send(ctx, "crm", "ok", ectx))

	err := svc.Send(ctx, "crm", "bad", ectx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "adapter crm send: 422")

	assert.True(t, IsValidationError(svc.Send(ctx, "", "ok", ectx)))

	port.AssertExpectations(t)
}

func TestAdapterExecution_IsReady(t *testing.T) {
	ctx := context.Background()

	port := &mocks.MockAdapterExecutionPort{}
	port.On("IsReady", ctx, "crm").Return(true).Once()

	svc := NewAdapterExecution(port, log.Discard())

	assert.True(t, svc.IsReady(ctx, "crm"))
	assert.False(t, svc.IsReady(ctx, ""))
	port.AssertExpectations(t)
}

func TestServiceError(t *testing.T) {
	base := errors.New("boom")

	err := NewValidationError("execute", "flow id is required", base)
	assert.Equal(t, "execute: flow id is required", err.Error())
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.ErrorIs(t, err, base)
	assert.True(t, IsValidationError(err))
	assert.False(t, IsConflictError(err))

	conflict := newServiceError("execute", CodeFlowDisabled, ErrFlowDisabled)
	assert.Equal(t, "execute: flow is disabled", conflict.Error())
	assert.True(t, IsConflictError(conflict))
	assert.False(t, IsNotFoundError(conflict))
}
