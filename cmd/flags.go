package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/reclink-cli/internal/config"
	"github.com/KaramelBytes/reclink-cli/internal/linkage"
	"github.com/KaramelBytes/reclink-cli/internal/similarity"
	"github.com/KaramelBytes/reclink-cli/internal/table"
)

// linkageFlags are shared by match, dedup and link.
type linkageFlags struct {
	specPath      string
	exact         []string
	noMismatch    []string
	fuzzy         []string
	thresh        []string
	numThresh     []string
	weights       []string
	allowMissing  bool
	caseSensitive bool
	agg           []string
	aggDefault    string
	delimiter     string
	decimal       string
	thousands     string
	naValues      []string
	stringCols    []string
}

func (lf *linkageFlags) register(cmd *cobra.Command, withAgg bool) {
	f := cmd.Flags()
	f.StringVar(&lf.specPath, "spec", "", "linkage spec YAML (see `reclink init`); flags override it")
	f.StringSliceVar(&lf.exact, "exact", nil, "columns that must be equal (blocking keys)")
	f.StringSliceVar(&lf.noMismatch, "nomismatch", nil, "columns that must not differ when both present")
	f.StringSliceVar(&lf.fuzzy, "fuzzy", nil, "columns compared by similarity (text) or distance (numbers)")
	f.StringSliceVar(&lf.thresh, "thresh", nil, "string similarity threshold: 0.9 or col=0.9 (repeatable)")
	f.StringSliceVar(&lf.numThresh, "num-thresh", nil, "numeric distance threshold: 1 or col=2 (repeatable)")
	f.StringSliceVar(&lf.weights, "weight", nil, "score weight per column: col=2 (repeatable)")
	f.BoolVar(&lf.allowMissing, "allow-missing", false, "let fuzzy columns pass when a value is missing")
	f.BoolVar(&lf.caseSensitive, "case-sensitive", false, "compare strings without lower-casing")
	f.StringVar(&lf.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | '|' | 'tab' (sniffed if omitted)")
	f.StringVar(&lf.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (plain numbers only if omitted)")
	f.StringVar(&lf.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (none if omitted)")
	f.StringSliceVar(&lf.naValues, "na", nil, "cell values treated as missing (default from config)")
	f.StringSliceVar(&lf.stringCols, "string-cols", nil, "columns never parsed as numbers")
	if withAgg {
		f.StringArrayVar(&lf.agg, "agg", nil, "aggregation: fn=col1,col2 with fn in "+strings.Join(linkage.AggregationNames(), "|")+" (repeatable)")
		f.StringVar(&lf.aggDefault, "agg-default", "", "aggregation for columns not named by --agg (default from config)")
	}
}

// build merges config defaults, the spec file and the flags, in that order.
func (lf *linkageFlags) build(cmd *cobra.Command) (linkage.Config, string, error) {
	g := cfg
	if g == nil {
		g = &cfgpkg.Global{StrThresh: 0.9, NumThresh: 1, DefaultAgg: linkage.AggMode, Workers: 1}
	}
	c := linkage.DefaultConfig()
	c.StrThreshold = g.StrThresh
	c.NumThreshold = g.NumThresh
	c.AllowMissing = g.AllowMissing
	c.Workers = g.Workers
	caseSensitive := g.CaseSensitive
	aggDefault := g.DefaultAgg

	if lf.specPath != "" {
		s, err := cfgpkg.LoadSpec(lf.specPath)
		if err != nil {
			return c, "", err
		}
		c.ExactCols = s.Exact
		c.NoMismatchCols = s.NoMismatch
		c.FuzzyCols = s.Fuzzy
		if s.StrThresh != nil {
			c.StrThreshold = *s.StrThresh
		}
		if s.NumThresh != nil {
			c.NumThreshold = *s.NumThresh
		}
		c.StrThresholds = s.Thresholds
		c.NumThresholds = s.NumThresholds
		c.Weights = s.Weights
		if s.AllowMissing != nil {
			c.AllowMissing = *s.AllowMissing
		}
		if s.Agg != nil {
			c.Agg = linkage.AggregationSpec(s.Agg)
		}
		if s.AggDefault != "" {
			aggDefault = s.AggDefault
		}
	}

	f := cmd.Flags()
	if f.Changed("exact") {
		c.ExactCols = lf.exact
	}
	if f.Changed("nomismatch") {
		c.NoMismatchCols = lf.noMismatch
	}
	if f.Changed("fuzzy") {
		c.FuzzyCols = lf.fuzzy
	}
	if f.Changed("thresh") {
		def, per, err := parseThresholds("thresh", lf.thresh)
		if err != nil {
			return c, "", err
		}
		if def != nil {
			c.StrThreshold = *def
		}
		c.StrThresholds = mergeFloats(c.StrThresholds, per)
	}
	if f.Changed("num-thresh") {
		def, per, err := parseThresholds("num-thresh", lf.numThresh)
		if err != nil {
			return c, "", err
		}
		if def != nil {
			c.NumThreshold = *def
		}
		c.NumThresholds = mergeFloats(c.NumThresholds, per)
	}
	if f.Changed("weight") {
		def, per, err := parseThresholds("weight", lf.weights)
		if err != nil {
			return c, "", err
		}
		if def != nil {
			return c, "", fmt.Errorf("invalid --weight: expected col=value")
		}
		c.Weights = mergeFloats(c.Weights, per)
	}
	if f.Changed("allow-missing") {
		c.AllowMissing = lf.allowMissing
	}
	if f.Changed("case-sensitive") {
		caseSensitive = lf.caseSensitive
	}
	if f.Lookup("agg") != nil && f.Changed("agg") {
		spec, err := parseAgg(lf.agg)
		if err != nil {
			return c, "", err
		}
		c.Agg = spec
	}
	if f.Lookup("agg-default") != nil && f.Changed("agg-default") {
		aggDefault = lf.aggDefault
	}
	c.Similarity = similarity.JaroWinkler(caseSensitive)
	return c, aggDefault, nil
}

func (lf *linkageFlags) readOptions() (table.ReadOptions, error) {
	opt := table.DefaultReadOptions()
	delim := lf.delimiter
	if cfg != nil {
		if delim == "" {
			delim = cfg.Delimiter
		}
		if cfg.NAValues != nil {
			opt.NAValues = cfg.NAValues
		}
	}
	if len(lf.naValues) > 0 {
		opt.NAValues = lf.naValues
	}
	r, err := parseDelimiter(delim)
	if err != nil {
		return opt, err
	}
	opt.Delimiter = r
	if opt.DecimalSeparator, err = parseSeparator("decimal", lf.decimal); err != nil {
		return opt, err
	}
	if opt.ThousandsSeparator, err = parseSeparator("thousands", lf.thousands); err != nil {
		return opt, err
	}
	if opt.DecimalSeparator != 0 && opt.DecimalSeparator == opt.ThousandsSeparator {
		return opt, fmt.Errorf("--decimal and --thousands must differ")
	}
	opt.StringColumns = lf.stringCols
	return opt, nil
}

func parseSeparator(flag, s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case ".", "dot":
		return '.', nil
	case ",", "comma":
		return ',', nil
	case " ", "space":
		if flag == "decimal" {
			break
		}
		return ' ', nil
	case "'", "apostrophe":
		if flag == "decimal" {
			break
		}
		return '\'', nil
	}
	return 0, fmt.Errorf("unsupported --%s: %s", flag, s)
}

// parseThresholds accepts "0.9" (default) and "col=0.9" (per column) items.
func parseThresholds(flag string, vals []string) (*float64, map[string]float64, error) {
	var def *float64
	per := map[string]float64{}
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		col, num, hasCol := strings.Cut(v, "=")
		if !hasCol {
			num, col = col, ""
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid --%s value %q: %w", flag, v, err)
		}
		if col == "" {
			x := f
			def = &x
			continue
		}
		per[strings.TrimSpace(col)] = f
	}
	if len(per) == 0 {
		per = nil
	}
	return def, per, nil
}

// parseAgg parses "fn=col1,col2" items.
func parseAgg(vals []string) (linkage.AggregationSpec, error) {
	spec := linkage.AggregationSpec{}
	for _, v := range vals {
		fn, cols, ok := strings.Cut(v, "=")
		fn = strings.ToLower(strings.TrimSpace(fn))
		if !ok || fn == "" {
			return nil, fmt.Errorf("invalid --agg %q: expected fn=col1,col2", v)
		}
		for _, c := range strings.Split(cols, ",") {
			if c = strings.TrimSpace(c); c != "" {
				spec[fn] = append(spec[fn], c)
			}
		}
	}
	return spec, nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case ";":
		return ';', nil
	case "|":
		return '|', nil
	case "\t", "tab", "\\t":
		return '\t', nil
	default:
		return 0, fmt.Errorf("unsupported --delimiter: %s", s)
	}
}

// parsePair reads "a,b" as a (first table, second table) column pair; a single name
// applies to both tables.
func parsePair(flag, s string) ([2]string, error) {
	parts := strings.Split(s, ",")
	switch len(parts) {
	case 1:
		p := strings.TrimSpace(parts[0])
		if p == "" {
			return [2]string{}, fmt.Errorf("--%s is required", flag)
		}
		return [2]string{p, p}, nil
	case 2:
		return [2]string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])}, nil
	default:
		return [2]string{}, fmt.Errorf("invalid --%s %q: expected col or col_a,col_b", flag, s)
	}
}

// parseColMap reads "from=to" items.
func parseColMap(vals []string) (map[string]string, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(vals))
	for _, v := range vals {
		from, to, ok := strings.Cut(v, "=")
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if !ok || from == "" || to == "" {
			return nil, fmt.Errorf("invalid --colmap %q: expected from=to", v)
		}
		out[from] = to
	}
	return out, nil
}

func mergeFloats(base, over map[string]float64) map[string]float64 {
	if len(over) == 0 {
		return base
	}
	out := make(map[string]float64, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}
