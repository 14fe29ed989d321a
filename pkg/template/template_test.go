package template

import (
	"testing"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	data := map[string]any{
		"name":  "John",
		"age":   30,
		"isNew": true,
		"user": map[string]any{
			"name": "Alice",
			"tags": []any{"a", "b"},
		},
		"orders": []any{
			map[string]any{"id": 1, "total": 100.50},
			map[string]any{"id": 2, "total": 75.25},
		},
	}

	tests := []struct {
		name     string
		template string
		want     any
	}{
		{"string field", "{{ .name }}", "John"},
		{"number field decodes as float", "{{ .age }}", 30.0},
		{"boolean field", "{{ .isNew }}", true},
		{"nested field", "{{ .user.name }}", "Alice"},
		{"interpolation", "User {{ .user.name }} is {{ .age }}", "User Alice is 30"},
		{"conditional", `{{ if eq .name "John" }}yes{{ else }}no{{ end }}`, "yes"},
		{"upper", "{{ upper .name }}", "JOHN"},
		{"lower", "{{ lower .name }}", "john"},
		{"trim", `{{ trim "  x  " }}`, "x"},
		{"join", `{{ join "," .user.tags }}`, "a,b"},
		{"default on missing", `{{ default "none" .missing }}`, "none"},
		{"default keeps value", `{{ default "none" .name }}`, "John"},
		{"json object", `{"user_name": "{{ .user.name }}", "total_orders": {{ len .orders }}}`,
			map[string]any{"user_name": "Alice", "total_orders": 2.0}},
		{"json array", `[{{ .age }}, "{{ .name }}"]`, []any{30.0, "John"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.template, data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_Errors(t *testing.T) {
	data := map[string]any{"test": "value"}

	_, err := Render("{ invalid..expression }}", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse json")

	_, err = Render("{{ nonexistent.field }}", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `function "nonexistent" not defined`)

	_, err = Render("{{ .test.deeper.field }}", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute template")
}

func TestRenderString_DoesNotDecode(t *testing.T) {
	got, err := RenderString("{{ .n }}", map[string]any{"n": 42})
	require.NoError(t, err)
	assert.Equal(t, "42", got)
}

func TestRenderWithContext(t *testing.T) {
	t.Setenv("FLOWLINK_TEST_TOKEN", "secret")

	ectx := models.ExecutionContext{
		WorkflowID:    "wf-1",
		FlowID:        "orders",
		ExecutionID:   "exec-1",
		CorrelationID: "corr-1",
		StepID:        "step-1",
		Variables:     map[string]any{"adapterId": "crm"},
	}

	tests := []struct {
		name     string
		template string
		want     any
	}{
		{"execution fields", "/flows/{{ .execution.flow_id }}/{{ .execution.workflow_id }}", "/flows/orders/wf-1"},
		{"correlation", "{{ .execution.correlation_id }}", "corr-1"},
		{"step variables", "{{ .vars.adapterId }}", "crm"},
		{"environment", "Bearer {{ .env.FLOWLINK_TEST_TOKEN }}", "Bearer secret"},
		{"payload", "{{ .payload.id }}", 7.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderWithContext(tt.template, ectx, map[string]any{"id": 7})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse(t *testing.T) {
	_, err := Parse("{{ .ok }}")
	require.NoError(t, err)

	_, err = Parse("{{ .broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse template")
}
