// Package manifest reads the YAML file describing one CLI batch run: where
// the script lives, which model to use, and which reference images to
// register.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest describes one batch run.
type Manifest struct {
	ScriptFile  string      `yaml:"script_file"`
	Mode        string      `yaml:"mode"`
	Model       string      `yaml:"model"`
	Count       int         `yaml:"count"`
	Concurrency int         `yaml:"concurrency"`
	OutputDir   string      `yaml:"output_dir"`
	References  []Reference `yaml:"references"`
}

// Reference points at one reference image on disk.
type Reference struct {
	Path        string `yaml:"path"`
	Description string `yaml:"description"`
	Tag         string `yaml:"tag"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}
	if m.ScriptFile == "" {
		return nil, fmt.Errorf("manifest: script_file is required")
	}
	for i, ref := range m.References {
		if ref.Path == "" {
			return nil, fmt.Errorf("manifest: references[%d]: path is required", i)
		}
	}
	return &m, nil
}
