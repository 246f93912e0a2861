// Package linkage groups duplicate records: exact-key blocking, a two-stage pair
// filter, union-find clustering and per-column aggregation.
package linkage

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/KaramelBytes/reclink-cli/internal/similarity"
	"github.com/KaramelBytes/reclink-cli/internal/table"
)

// Config carries every matching option. It is validated once per call against the
// table it is applied to and never modified by the engine.
type Config struct {
	// ExactCols define the blocks; at least one is required.
	ExactCols []string `validate:"required,min=1,dive,required"`
	// NoMismatchCols reject a pair when both values are present and differ.
	NoMismatchCols []string `validate:"dive,required"`
	// FuzzyCols must clear a similarity (strings) or distance (numbers) threshold.
	FuzzyCols []string `validate:"dive,required"`

	// StrThreshold is the Jaro-Winkler floor for fuzzy columns without an override.
	StrThreshold  float64            `validate:"gte=0,lte=1"`
	StrThresholds map[string]float64 `validate:"dive,keys,required,endkeys,gte=0,lte=1"`
	// NumThreshold is the largest absolute difference tolerated between numbers.
	NumThreshold  float64            `validate:"gte=0"`
	NumThresholds map[string]float64 `validate:"dive,keys,required,endkeys,gte=0"`
	// Weights scale each column's contribution to a pair score; default 1.
	Weights map[string]float64 `validate:"dive,keys,required,endkeys,gte=0"`

	// AllowMissing lets a fuzzy column pass when either side is missing.
	AllowMissing bool

	// Agg assigns an aggregation function to every output column (Match only).
	Agg AggregationSpec

	// Workers > 1 resolves blocks concurrently.
	Workers int `validate:"gte=0"`

	// Similarity overrides the default case-insensitive Jaro-Winkler scorer.
	Similarity similarity.StringFunc `validate:"-"`
	Logger     *zap.Logger           `validate:"-"`
}

// DefaultConfig returns the thresholds the command line starts from.
func DefaultConfig() Config {
	return Config{
		StrThreshold: 0.9,
		NumThreshold: 1,
		Workers:      1,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct applies the validate tags of s and reports the first violation as a
// *ConfigurationError.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := fmt.Sprintf("failed %q rule", fe.Tag())
		if fe.Param() != "" {
			reason = fmt.Sprintf("failed %q rule (%s)", fe.Tag(), fe.Param())
		}
		return &ConfigurationError{Field: fe.Namespace(), Reason: reason}
	}
	return &ConfigurationError{Reason: err.Error()}
}

type column struct {
	name string
	left int
	// right is the column position in the second table of a cross-table comparison;
	// it equals left otherwise.
	right int
}

type fuzzyColumn struct {
	column
	strThresh float64
	numThresh float64
}

// plan is a Config resolved against concrete tables.
type plan struct {
	exact        []column
	noMismatch   []column
	fuzzy        []fuzzyColumn
	weights      map[string]float64
	allowMissing bool
	sim          similarity.StringFunc
	workers      int
	log          *zap.Logger
}

// compile validates cfg against left (and right, for two-table linkage) and resolves
// every column reference up front.
func compile(cfg Config, left, right *table.Table) (*plan, error) {
	if err := ValidateStruct(cfg); err != nil {
		return nil, err
	}
	if right == nil {
		right = left
	}
	resolve := func(field string, names []string) ([]column, error) {
		out := make([]column, 0, len(names))
		seen := make(map[string]bool, len(names))
		for _, n := range names {
			if seen[n] {
				return nil, configErr(field, "column %q listed twice", n)
			}
			seen[n] = true
			li, ok := left.Index(n)
			if !ok {
				return nil, configErr(field, "column %q not in table %q", n, left.Name)
			}
			ri, ok := right.Index(n)
			if !ok {
				return nil, configErr(field, "column %q not in table %q", n, right.Name)
			}
			out = append(out, column{name: n, left: li, right: ri})
		}
		return out, nil
	}

	p := &plan{
		weights:      cfg.Weights,
		allowMissing: cfg.AllowMissing,
		sim:          cfg.Similarity,
		workers:      cfg.Workers,
		log:          cfg.Logger,
	}
	var err error
	if p.exact, err = resolve("ExactCols", cfg.ExactCols); err != nil {
		return nil, err
	}
	if p.noMismatch, err = resolve("NoMismatchCols", cfg.NoMismatchCols); err != nil {
		return nil, err
	}
	fuzzy, err := resolve("FuzzyCols", cfg.FuzzyCols)
	if err != nil {
		return nil, err
	}
	inFuzzy := make(map[string]bool, len(fuzzy))
	for _, c := range fuzzy {
		inFuzzy[c.name] = true
		fc := fuzzyColumn{column: c, strThresh: cfg.StrThreshold, numThresh: cfg.NumThreshold}
		if t, ok := cfg.StrThresholds[c.name]; ok {
			fc.strThresh = t
		}
		if t, ok := cfg.NumThresholds[c.name]; ok {
			fc.numThresh = t
		}
		p.fuzzy = append(p.fuzzy, fc)
	}
	for name := range cfg.StrThresholds {
		if !inFuzzy[name] {
			return nil, configErr("StrThresholds", "threshold given for %q which is not a fuzzy column", name)
		}
	}
	for name := range cfg.NumThresholds {
		if !inFuzzy[name] {
			return nil, configErr("NumThresholds", "threshold given for %q which is not a fuzzy column", name)
		}
	}
	scored := make(map[string]bool, len(p.noMismatch))
	for _, c := range p.noMismatch {
		scored[c.name] = true
	}
	for name := range cfg.Weights {
		if !inFuzzy[name] && !scored[name] {
			return nil, configErr("Weights", "weight given for %q which is neither a no-mismatch nor a fuzzy column", name)
		}
	}
	if p.sim == nil {
		p.sim = similarity.JaroWinkler(false)
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	if p.workers < 1 {
		p.workers = 1
	}
	return p, nil
}

func (p *plan) weight(col string) float64 {
	if w, ok := p.weights[col]; ok {
		return w
	}
	return 1
}
