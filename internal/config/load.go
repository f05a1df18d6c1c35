package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads parameters from a YAML file. Defaults are not applied so that
// CLI overrides can still be told apart from unset fields.
func Load(path string) (*Params, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read params file: %w", err)
	}
	return Parse(data)
}

// Parse decodes parameters from YAML. Unknown keys are rejected.
func Parse(data []byte) (*Params, error) {
	var p Params
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	return &p, nil
}

// LoadAndValidate loads a params file, applies defaults and validates it.
func LoadAndValidate(path string) (*Params, error) {
	p, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.ApplyDefaults()
	return p, nil
}
