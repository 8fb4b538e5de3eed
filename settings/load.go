package settings

import (
	"os"

	"github.com/lucasmaystre/sparsegp/errs"
	"gopkg.in/yaml.v3"
)

// Parse reads YAML settings on top of the defaults. Keys absent from data
// keep their default value.
func Parse(data []byte) (Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, &errs.ParameterError{Op: "Parse", Name: "settings", Value: len(data), Err: err}
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Load reads a YAML settings file, such as
//
//	numerics:
//	  jitter_level: 1.0e-6
//	logging:
//	  level: debug
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	return Parse(data)
}
