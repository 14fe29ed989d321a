// Package transform applies a flow's field mappings to payloads and validates the result against the
// flow's output schema.
package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/protocol"
	"github.com/dukex/flowlink/pkg/template"
	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrMissingField    = errors.New("required field missing")
	ErrInvalidPayload  = errors.New("payload cannot be mapped")
	ErrSchemaViolation = errors.New("output does not match schema")
)

// WholePayload as a mapping source selects the entire payload.
const WholePayload = "$"

// Mapper is the TransformationPort backed by flow definitions.
type Mapper struct {
	flows  protocol.FlowDefinitionPort
	logger *slog.Logger
}

func NewMapper(flows protocol.FlowDefinitionPort, logger *slog.Logger) *Mapper {
	return &Mapper{
		flows:  flows,
		logger: logger.With("module", "transform"),
	}
}

// Apply maps payload with the field mappings of flowID. A list payload is mapped element by element.
func (m *Mapper) Apply(ctx context.Context, flowID string, payload any) (any, error) {
	flow, err := m.flows.FindByID(ctx, flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load flow %s: %w", flowID, err)
	}

	if !flow.HasMappings() {
		return models.CloneValue(payload), nil
	}

	var output any

	if records, ok := payload.([]any); ok {
		mapped := make([]any, 0, len(records))

		for i, record := range records {
			out, err := Map(flow.FieldMappings, record)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}

			mapped = append(mapped, out)
		}

		output = mapped
	} else {
		output, err = Map(flow.FieldMappings, payload)
		if err != nil {
			return nil, err
		}
	}

	if len(flow.OutputSchema) > 0 {
		if err := ValidateSchema(flow.OutputSchema, output); err != nil {
			return nil, err
		}
	}

	m.logger.DebugContext(ctx, "Payload transformed", "flow_id", flowID, "mappings", len(flow.FieldMappings))

	return output, nil
}

// Map builds a new object from payload, one mapping at a time. Missing optional sources are skipped.
func Map(mappings []models.FieldMapping, payload any) (map[string]any, error) {
	out := make(map[string]any, len(mappings))

	for _, mapping := range mappings {
		var (
			value any
			found bool
		)

		if mapping.Source != "" {
			value, found = Lookup(payload, mapping.Source)
			if !found && mapping.Required {
				return nil, fmt.Errorf("%w: %s", ErrMissingField, mapping.Source)
			}
		}

		if mapping.Expression != "" {
			rendered, err := template.Render(mapping.Expression, map[string]any{
				"value": value,
				"input": payload,
			})
			if err != nil {
				return nil, fmt.Errorf("mapping %s: %w", mapping.Target, err)
			}

			value, found = rendered, true
		}

		if !found {
			continue
		}

		if err := assign(out, mapping.Target, models.CloneValue(value)); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// Lookup walks a dotted path through maps and lists. List elements are addressed by index.
func Lookup(payload any, path string) (any, bool) {
	if path == WholePayload {
		return payload, true
	}

	current := payload

	for _, part := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[part]
			if !ok {
				return nil, false
			}

			current = value
		case []any:
			index, err := strconv.Atoi(part)
			if err != nil || index < 0 || index >= len(node) {
				return nil, false
			}

			current = node[index]
		default:
			return nil, false
		}
	}

	return current, true
}

func assign(out map[string]any, path string, value any) error {
	parts := strings.Split(path, ".")
	node := out

	for _, part := range parts[:len(parts)-1] {
		next, exists := node[part]
		if !exists {
			child := make(map[string]any)
			node[part] = child
			node = child

			continue
		}

		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: target %s crosses non-object field %s", ErrInvalidPayload, path, part)
		}

		node = child
	}

	node[parts[len(parts)-1]] = value

	return nil
}

// ValidateSchema checks data against a JSON schema.
func ValidateSchema(schema map[string]any, data any) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Errorf("failed to validate output schema: %w", err)
	}

	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			violations = append(violations, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(violations, "; "))
	}

	return nil
}
