package linkage

import (
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/multierr"

	"github.com/KaramelBytes/reclink-cli/internal/table"
)

// AggregationSpec maps an aggregation function name to the columns it collapses.
type AggregationSpec map[string][]string

// Aggregation function names.
const (
	AggMode    = "mode"
	AggSum     = "sum"
	AggMean    = "mean"
	AggLen     = "len"
	AggLongest = "longest"
	AggAll     = "all"
	AggCount   = "count"
	AggFirst   = "first"
)

// reducer collapses the values of one column across a group. rows holds the source
// row of each value for error reporting.
type reducer func(col string, rows []int, vals []table.Value) (table.Value, error)

type aggFunc struct {
	reduce  reducer
	numeric bool
}

var aggregators = map[string]aggFunc{
	AggMode:    {reduce: reduceMode},
	AggSum:     {reduce: reduceSum, numeric: true},
	AggMean:    {reduce: reduceMean, numeric: true},
	AggLen:     {reduce: reduceLongest},
	AggLongest: {reduce: reduceLongest},
	AggAll:     {reduce: reduceAll},
	AggCount:   {reduce: reduceCount},
	AggFirst:   {reduce: reduceFirst},
}

// AggregationNames lists the supported function names, sorted.
func AggregationNames() []string {
	out := make([]string, 0, len(aggregators))
	for k := range aggregators {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Fill returns a copy of spec where every column of cols not yet assigned uses fn.
func (spec AggregationSpec) Fill(cols []string, fn string) AggregationSpec {
	out := make(AggregationSpec, len(spec)+1)
	assigned := make(map[string]bool)
	for name, cs := range spec {
		out[name] = append([]string(nil), cs...)
		for _, c := range cs {
			assigned[c] = true
		}
	}
	for _, c := range cols {
		if !assigned[c] {
			out[fn] = append(out[fn], c)
		}
	}
	return out
}

// Aggregator collapses groups of rows of one table into single records.
type Aggregator struct {
	t     *table.Table
	funcs []aggFunc
}

// NewAggregator checks that spec covers every column of t exactly once with a known
// function, and that numeric functions are not assigned to text columns.
func NewAggregator(t *table.Table, spec AggregationSpec) (*Aggregator, error) {
	cols := t.Columns()
	funcs := make([]aggFunc, len(cols))
	owner := make(map[string]string, len(cols))

	names := make([]string, 0, len(spec))
	for name := range spec {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fn, ok := aggregators[name]
		if !ok {
			return nil, configErr("Agg", "unsupported aggregation %q (use %s)", name, strings.Join(AggregationNames(), "|"))
		}
		for _, c := range spec[name] {
			pos, ok := t.Index(c)
			if !ok {
				return nil, configErr("Agg", "column %q not in table %q", c, t.Name)
			}
			if prev, dup := owner[c]; dup {
				return nil, configErr("Agg", "column %q assigned to both %q and %q", c, prev, name)
			}
			owner[c] = name
			if fn.numeric {
				kind, _ := t.ColumnKind(c)
				if kind == table.String {
					return nil, configErr("Agg", "%s needs a numeric column, %q holds text", name, c)
				}
			}
			funcs[pos] = fn
		}
	}
	for _, c := range cols {
		if _, ok := owner[c]; !ok {
			return nil, configErr("Agg", "column %q has no aggregation", c)
		}
	}
	return &Aggregator{t: t, funcs: funcs}, nil
}

// Aggregate collapses the rows of g into one record. DataErrors for every offending
// column are combined into the returned error.
func (a *Aggregator) Aggregate(g Group) (table.Record, error) {
	cols := a.t.Columns()
	out := make(table.Record, len(cols))
	vals := make([]table.Value, len(g))
	var errs error
	for c, fn := range a.funcs {
		for i, row := range g {
			vals[i] = a.t.Row(row)[c]
		}
		v, err := fn.reduce(cols[c], g, vals)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		out[c] = v
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

func reduceMode(_ string, _ []int, vals []table.Value) (table.Value, error) {
	counts := make(map[string]int)
	var order []int
	for i, v := range vals {
		if v.IsMissing() {
			continue
		}
		k := v.Kind().String() + ":" + v.Key()
		if counts[k] == 0 {
			order = append(order, i)
		}
		counts[k]++
	}
	best, bestN := table.Null(), 0
	// Walking keys by first occurrence with a strict comparison keeps the earliest on ties.
	for _, i := range order {
		v := vals[i]
		if n := counts[v.Kind().String()+":"+v.Key()]; n > bestN {
			best, bestN = v, n
		}
	}
	return best, nil
}

func numbers(col string, rows []int, vals []table.Value) ([]float64, error) {
	var out []float64
	var errs error
	for i, v := range vals {
		if v.IsMissing() {
			continue
		}
		f, ok := v.Float()
		if !ok {
			errs = multierr.Append(errs, &DataError{Column: col, Row: rows[i], Value: v, Reason: "not a number"})
			continue
		}
		out = append(out, f)
	}
	return out, errs
}

func reduceSum(col string, rows []int, vals []table.Value) (table.Value, error) {
	nums, err := numbers(col, rows, vals)
	if err != nil {
		return table.Null(), err
	}
	if len(nums) == 0 {
		return table.Null(), nil
	}
	sum := 0.0
	for _, f := range nums {
		sum += f
	}
	return table.Num(sum), nil
}

func reduceMean(col string, rows []int, vals []table.Value) (table.Value, error) {
	nums, err := numbers(col, rows, vals)
	if err != nil {
		return table.Null(), err
	}
	if len(nums) == 0 {
		return table.Null(), nil
	}
	sum := 0.0
	for _, f := range nums {
		sum += f
	}
	return table.Num(sum / float64(len(nums))), nil
}

func reduceLongest(_ string, _ []int, vals []table.Value) (table.Value, error) {
	best, bestLen := table.Null(), -1
	for _, v := range vals {
		if v.IsMissing() {
			continue
		}
		if n := utf8.RuneCountInString(v.Key()); n > bestLen {
			best, bestLen = v, n
		}
	}
	return best, nil
}

func reduceAll(_ string, _ []int, vals []table.Value) (table.Value, error) {
	return table.Many(vals), nil
}

func reduceCount(_ string, _ []int, vals []table.Value) (table.Value, error) {
	n := 0
	for _, v := range vals {
		if !v.IsMissing() {
			n++
		}
	}
	return table.Num(float64(n)), nil
}

func reduceFirst(_ string, _ []int, vals []table.Value) (table.Value, error) {
	if len(vals) == 0 {
		return table.Null(), nil
	}
	return vals[0], nil
}
