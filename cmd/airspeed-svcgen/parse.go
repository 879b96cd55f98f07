package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// RawServiceDef represents a service definition loaded from YAML.
type RawServiceDef struct {
	Name            string                  `yaml:"name"`
	Description     string                  `yaml:"description"`
	UUID            string                  `yaml:"uuid"`
	Characteristics []RawCharacteristicDef  `yaml:"characteristics"`
}

// RawCharacteristicDef represents one characteristic of the service.
type RawCharacteristicDef struct {
	Name        string   `yaml:"name"`
	UUID        uint16   `yaml:"uuid"`
	Properties  []string `yaml:"properties"`
	Description string   `yaml:"description"`

	// ClientConfig adds a CCCD after the value attribute. At most one
	// characteristic per service may carry one; the generated handler
	// names are fixed.
	ClientConfig bool `yaml:"clientConfig"`
}

// knownProperties maps YAML property names to the gatt Props constants.
var knownProperties = map[string]string{
	"read":                 "PropRead",
	"writeWithoutResponse": "PropWriteWithoutResponse",
	"write":                "PropWrite",
	"notify":               "PropNotify",
}

// LoadServiceDef reads and validates a service definition.
func LoadServiceDef(path string) (*RawServiceDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var def RawServiceDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &def, nil
}

// Validate checks the definition for generation blockers.
func (d *RawServiceDef) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("service has no name")
	}
	if _, err := uuid.Parse(d.UUID); err != nil {
		return fmt.Errorf("service UUID %q: %w", d.UUID, err)
	}
	if len(d.Characteristics) == 0 {
		return fmt.Errorf("service has no characteristics")
	}

	cccds := 0
	seen := make(map[string]bool)
	for i, c := range d.Characteristics {
		if c.Name == "" {
			return fmt.Errorf("characteristic %d has no name", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate characteristic name %q", c.Name)
		}
		seen[c.Name] = true
		if c.UUID == 0 {
			return fmt.Errorf("characteristic %q has no UUID", c.Name)
		}
		if len(c.Properties) == 0 {
			return fmt.Errorf("characteristic %q has no properties", c.Name)
		}
		for _, p := range c.Properties {
			if _, ok := knownProperties[p]; !ok {
				return fmt.Errorf("characteristic %q: unknown property %q", c.Name, p)
			}
		}
		if c.ClientConfig {
			cccds++
		}
	}
	if cccds > 1 {
		return fmt.Errorf("at most one characteristic may carry a client configuration descriptor")
	}
	return nil
}

// hasProperty reports whether the characteristic lists prop.
func (c *RawCharacteristicDef) hasProperty(prop string) bool {
	for _, p := range c.Properties {
		if p == prop {
			return true
		}
	}
	return false
}
