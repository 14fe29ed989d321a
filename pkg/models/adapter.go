package models

// AdapterDefinition configures one adapter instance. Type selects the factory; Config is passed to it
// unchanged.
type AdapterDefinition struct {
	ID     string         `json:"id"     yaml:"id"     validate:"required"`
	Type   string         `json:"type"   yaml:"type"   validate:"required"`
	Config map[string]any `json:"config" yaml:"config"`
}
