package models

// FlowDefinition is a user-defined integration pipeline: source adapter, optional field mappings,
// target adapter.
type FlowDefinition struct {
	ID              string         `json:"id"                      yaml:"id"              validate:"required"`
	Name            string         `json:"name"                    yaml:"name"            validate:"required,min=3"`
	Description     string         `json:"description,omitempty"   yaml:"description"`
	SourceAdapterID string         `json:"source_adapter_id"       yaml:"source_adapter"  validate:"required"`
	TargetAdapterID string         `json:"target_adapter_id"       yaml:"target_adapter"  validate:"required"`
	FieldMappings   []FieldMapping `json:"field_mappings,omitempty" yaml:"field_mappings" validate:"dive"`
	OutputSchema    map[string]any `json:"output_schema,omitempty" yaml:"output_schema"`
	Schedule        string         `json:"schedule,omitempty"      yaml:"schedule"        validate:"omitempty,cron"`
	Enabled         bool           `json:"enabled"                 yaml:"enabled"`
}

// HasMappings reports whether the plan needs a TRANSFORMATION step.
func (f *FlowDefinition) HasMappings() bool {
	return len(f.FieldMappings) > 0
}

// FieldMapping copies the value at Source into Target. Both are dotted paths into the payload.
// Expression, when set, is a template rendered with .value (the source value) and .input (the
// whole payload).
type FieldMapping struct {
	Source     string `json:"source"               yaml:"source"     validate:"required_without=Expression"`
	Target     string `json:"target"               yaml:"target"     validate:"required"`
	Expression string `json:"expression,omitempty" yaml:"expression"`
	Required   bool   `json:"required,omitempty"   yaml:"required"`
}
