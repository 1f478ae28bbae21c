package datamodule

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/edvin/agency/internal/vault"
)

// Defaults returns the built-in module definitions.
func Defaults() []Definition {
	return []Definition{
		{Key: "crm", Tables: []string{"pipelines", "contacts", "leads"}},
		{Key: "messaging", Dependencies: []string{"crm"}, Tables: []string{"message_threads", "messages"}},
		{Key: "automation", Dependencies: []string{"crm"}, Tables: []string{"automation_workflows"}},
		{Key: "billing", Dependencies: []string{"crm"}, Tables: []string{"invoices", "dian_submissions"}},
	}
}

type definitionsFile struct {
	Modules []Definition `yaml:"modules"`
}

// LoadDefinitions reads module definitions from a YAML file of the form
//
//	modules:
//	  - key: crm
//	    tables: [pipelines, contacts, leads]
//	  - key: billing
//	    dependencies: [crm]
//	    tables: [invoices]
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module definitions: %w", err)
	}
	var f definitionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse module definitions %s: %w", path, err)
	}
	if len(f.Modules) == 0 {
		return nil, fmt.Errorf("module definitions %s: no modules defined", path)
	}
	for _, d := range f.Modules {
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("module definitions %s: %w", path, err)
		}
	}
	return f.Modules, nil
}

// Register builds a table module per definition, registers it and checks
// the resulting dependency graph. An empty path registers the defaults.
func Register(registry *vault.Registry, db DB, path string, logger zerolog.Logger) error {
	defs := Defaults()
	if path != "" {
		loaded, err := LoadDefinitions(path)
		if err != nil {
			return err
		}
		defs = loaded
		logger.Info().Str("path", path).Int("modules", len(defs)).Msg("loaded vault module definitions")
	}

	for _, def := range defs {
		m, err := NewTableModule(db, def)
		if err != nil {
			return err
		}
		registry.Register(m)
	}
	return registry.Validate()
}
