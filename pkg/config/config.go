// Package config loads adapter and flow definitions from a YAML file.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dukex/flowlink/pkg/models"
	"github.com/dukex/flowlink/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var (
	ErrDuplicateAdapter = errors.New("duplicate adapter id")
	ErrDuplicateFlow    = errors.New("duplicate flow id")
	ErrUnknownAdapter   = errors.New("flow references unknown adapter")
)

// File is the decoded configuration file.
type File struct {
	Adapters []models.AdapterDefinition `yaml:"adapters" validate:"dive"`
	Flows    []*models.FlowDefinition   `yaml:"flows"    validate:"dive"`
}

type rawFile struct {
	Adapters []models.AdapterDefinition `yaml:"adapters"`
	Flows    []yaml.Node                `yaml:"flows"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads, decodes and validates the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes and validates a configuration document. Flows are enabled unless they say otherwise.
func Parse(data []byte) (*File, error) {
	var raw rawFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	file := &File{
		Adapters: raw.Adapters,
		Flows:    make([]*models.FlowDefinition, 0, len(raw.Flows)),
	}

	for i := range raw.Flows {
		flow := &models.FlowDefinition{Enabled: true}
		if err := raw.Flows[i].Decode(flow); err != nil {
			return nil, fmt.Errorf("failed to parse flow %d: %w", i, err)
		}

		file.Flows = append(file.Flows, flow)
	}

	if err := file.Validate(); err != nil {
		return nil, err
	}

	return file, nil
}

// Validate checks field constraints, id uniqueness and that every flow names configured adapters.
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	adapters := make(map[string]bool, len(f.Adapters))

	for _, adapter := range f.Adapters {
		if adapters[adapter.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateAdapter, adapter.ID)
		}

		adapters[adapter.ID] = true
	}

	flows := make(map[string]bool, len(f.Flows))

	for _, flow := range f.Flows {
		if flows[flow.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateFlow, flow.ID)
		}

		flows[flow.ID] = true

		for _, adapterID := range []string{flow.SourceAdapterID, flow.TargetAdapterID} {
			if !adapters[adapterID] {
				return fmt.Errorf("%w: flow %s uses %s", ErrUnknownAdapter, flow.ID, adapterID)
			}
		}
	}

	return nil
}

// SaveFlows stores every flow of the file in repository.
func (f *File) SaveFlows(ctx context.Context, repository persistence.FlowDefinitionRepository) error {
	for _, flow := range f.Flows {
		if err := repository.Save(ctx, flow); err != nil {
			return fmt.Errorf("failed to save flow %s: %w", flow.ID, err)
		}
	}

	return nil
}
