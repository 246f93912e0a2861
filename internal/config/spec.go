package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Spec is a linkage recipe stored next to the data it applies to. Unset scalars fall
// back to the global configuration.
type Spec struct {
	Exact         []string            `yaml:"exact"`
	NoMismatch    []string            `yaml:"nomismatch,omitempty"`
	Fuzzy         []string            `yaml:"fuzzy,omitempty"`
	StrThresh     *float64            `yaml:"str_thresh,omitempty"`
	Thresholds    map[string]float64  `yaml:"thresholds,omitempty"`
	NumThresh     *float64            `yaml:"num_thresh,omitempty"`
	NumThresholds map[string]float64  `yaml:"num_thresholds,omitempty"`
	Weights       map[string]float64  `yaml:"weights,omitempty"`
	AllowMissing  *bool               `yaml:"allow_missing,omitempty"`
	Agg           map[string][]string `yaml:"agg,omitempty"`
	AggDefault    string              `yaml:"agg_default,omitempty"`
}

// LoadSpec reads a spec file. Unknown keys are rejected so typos surface early.
func LoadSpec(path string) (*Spec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	var s Spec
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse spec %s: %w", path, err)
	}
	return &s, nil
}

// SpecTemplate is written by `reclink init`.
const SpecTemplate = `# reclink linkage spec
#
# Rows are only compared when every exact column agrees.
exact:
  - zip
# A pair is rejected when both values are present and differ.
nomismatch:
  - ssn
# Strings must reach the Jaro-Winkler threshold; numbers must lie within num_thresh.
fuzzy:
  - name
  - age
str_thresh: 0.9
thresholds:
  name: 0.92
num_thresh: 1
num_thresholds:
  age: 2
# Optional per-column score weights (default 1).
weights:
  ssn: 2
allow_missing: false
# Aggregation per output column: mode, sum, mean, len, longest, all, count, first.
agg:
  all:
    - id
agg_default: mode
`
