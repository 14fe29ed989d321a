package workflow

import (
	"fmt"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Step names written into every plan.
const (
	StepNameSource         = "Fetch from Source Adapter"
	StepNameTransformation = "Apply Transformation"
	StepNameTarget         = "Send to Target Adapter"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// BuildPlan returns the linear plan of flow: source, then transformation when the flow has at least
// one field mapping, then target. VALIDATION steps are never planned.
func BuildPlan(flow *models.FlowDefinition) ([]models.WorkflowStep, error) {
	if flow == nil {
		return nil, ErrNilFlow
	}

	if err := validate.Struct(flow); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrInvalidFlow, flow.ID, err)
	}

	steps := make([]models.WorkflowStep, 0, 3)

	steps = append(steps, newStep(StepNameSource, models.StepTypeSourceAdapter, map[string]any{
		models.StepVariableAdapterID: flow.SourceAdapterID,
	}))

	if flow.HasMappings() {
		steps = append(steps, newStep(StepNameTransformation, models.StepTypeTransformation, map[string]any{
			models.StepVariableMappingCount: len(flow.FieldMappings),
		}))
	}

	steps = append(steps, newStep(StepNameTarget, models.StepTypeTargetAdapter, map[string]any{
		models.StepVariableAdapterID: flow.TargetAdapterID,
	}))

	return steps, nil
}

func newStep(name string, stepType models.StepType, variables map[string]any) models.WorkflowStep {
	return models.WorkflowStep{
		StepID:        uuid.NewString(),
		StepName:      name,
		StepType:      stepType,
		Status:        models.StepStatusPending,
		StepVariables: variables,
	}
}
