package transform

import (
	"context"
	"testing"

	"github.com/dukex/flowlink/pkg/log"
	"github.com/dukex/flowlink/pkg/mocks"
	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	payload := map[string]any{
		"customer": map[string]any{
			"name":   "Ada",
			"emails": []any{"ada@example.com", "ada@work.example"},
		},
		"total": 12.5,
	}

	tests := []struct {
		path  string
		want  any
		found bool
	}{
		{"total", 12.5, true},
		{"customer.name", "Ada", true},
		{"customer.emails.1", "ada@work.example", true},
		{"customer.emails.7", nil, false},
		{"customer.emails.first", nil, false},
		{"customer.age", nil, false},
		{"total.cents", nil, false},
		{WholePayload, payload, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, found := Lookup(payload, tt.path)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMap(t *testing.T) {
	payload := map[string]any{
		"first": "Ada",
		"last":  "Lovelace",
		"meta":  map[string]any{"id": 7},
	}

	tests := []struct {
		name     string
		mappings []models.FieldMapping
		want     map[string]any
		wantErr  error
	}{
		{
			name:     "rename",
			mappings: []models.FieldMapping{{Source: "first", Target: "name"}},
			want:     map[string]any{"name": "Ada"},
		},
		{
			name:     "nested target",
			mappings: []models.FieldMapping{{Source: "meta.id", Target: "customer.external_id"}},
			want:     map[string]any{"customer": map[string]any{"external_id": 7}},
		},
		{
			name: "expression over value and input",
			mappings: []models.FieldMapping{
				{Source: "first", Target: "full", Expression: "{{ .value }} {{ .input.last }}"},
				{Target: "initial", Expression: `{{ slice .input.first 0 1 }}`},
			},
			want: map[string]any{"full": "Ada Lovelace", "initial": "A"},
		},
		{
			name:     "optional missing source is skipped",
			mappings: []models.FieldMapping{{Source: "middle", Target: "middle"}, {Source: "last", Target: "surname"}},
			want:     map[string]any{"surname": "Lovelace"},
		},
		{
			name:     "required missing source fails",
			mappings: []models.FieldMapping{{Source: "middle", Target: "middle", Required: true}},
			wantErr:  ErrMissingField,
		},
		{
			name: "target through scalar fails",
			mappings: []models.FieldMapping{
				{Source: "first", Target: "name"},
				{Source: "last", Target: "name.last"},
			},
			wantErr: ErrInvalidPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Map(tt.mappings, payload)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMap_DoesNotAliasPayload(t *testing.T) {
	payload := map[string]any{"meta": map[string]any{"id": 7}}

	out, err := Map([]models.FieldMapping{{Source: "meta", Target: "copy"}}, payload)
	require.NoError(t, err)

	out["copy"].(map[string]any)["id"] = 8
	assert.Equal(t, 7, payload["meta"].(map[string]any)["id"])
}

func TestValidateSchema(t *testing.T) {
	schema := map[string]any{
		"type":     "object",
		"required": []any{"name"},
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
	}

	require.NoError(t, ValidateSchema(schema, map[string]any{"name": "Ada"}))

	err := ValidateSchema(schema, map[string]any{"name": 7})
	require.ErrorIs(t, err, ErrSchemaViolation)
	assert.Contains(t, err.Error(), "name")

	err = ValidateSchema(schema, map[string]any{})
	require.ErrorIs(t, err, ErrSchemaViolation)
}

func TestMapper_Apply(t *testing.T) {
	ctx := context.Background()

	flow := &models.FlowDefinition{
		ID:              "customers",
		Name:            "Customers",
		SourceAdapterID: "crm",
		TargetAdapterID: "erp",
		FieldMappings:   []models.FieldMapping{{Source: "first", Target: "name", Required: true}},
		OutputSchema: map[string]any{
			"type":     "object",
			"required": []any{"name"},
		},
	}

	flows := &mocks.MockFlowDefinitionRepository{}
	flows.On("FindByID", mock.Anything, "customers").Return(flow, nil)
	flows.On("FindByID", mock.Anything, "plain").Return(&models.FlowDefinition{ID: "plain"}, nil)
	flows.On("FindByID", mock.Anything, "missing").Return(nil, persistence.NewFlowError("FindByID", "missing", persistence.ErrFlowNotFound))

	mapper := NewMapper(flows, log.Discard())

	t.Run("single record", func(t *testing.T) {
		out, err := mapper.Apply(ctx, "customers", map[string]any{"first": "Ada"})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "Ada"}, out)
	})

	t.Run("list of records", func(t *testing.T) {
		out, err := mapper.Apply(ctx, "customers", []any{
			map[string]any{"first": "Ada"},
			map[string]any{"first": "Grace"},
		})
		require.NoError(t, err)
		assert.Equal(t, []any{map[string]any{"name": "Ada"}, map[string]any{"name": "Grace"}}, out)
	})

	t.Run("record error names the record", func(t *testing.T) {
		_, err := mapper.Apply(ctx, "customers", []any{map[string]any{"first": "Ada"}, map[string]any{}})
		require.ErrorIs(t, err, ErrMissingField)
		assert.Contains(t, err.Error(), "record 1")
	})

	t.Run("flow without mappings copies", func(t *testing.T) {
		out, err := mapper.Apply(ctx, "plain", "raw")
		require.NoError(t, err)
		assert.Equal(t, "raw", out)
	})

	t.Run("unknown flow", func(t *testing.T) {
		_, err := mapper.Apply(ctx, "missing", "raw")
		require.ErrorIs(t, err, persistence.ErrFlowNotFound)
	})
}
