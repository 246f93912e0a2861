package linkage

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/KaramelBytes/reclink-cli/internal/parallel"
	"github.com/KaramelBytes/reclink-cli/internal/table"
)

// MatchResult splits the input rows into aggregated groups and untouched singletons.
// Every input row is accounted for exactly once: either in one entry of Groups or in
// UnmatchedRows.
type MatchResult struct {
	// Matched holds one aggregated record per group of two or more rows.
	Matched *table.Table
	// Unmatched holds the rows that matched nothing, verbatim and in input order.
	Unmatched *table.Table
	// Groups lists the source rows behind each Matched record, aligned by index.
	Groups []Group
	// UnmatchedRows lists the source rows behind each Unmatched record.
	UnmatchedRows []int
	// Blocks is the number of exact-key blocks examined.
	Blocks int
}

// Match finds groups of rows of t that refer to the same entity and collapses each group
// with cfg.Agg. Nothing is returned on error.
func Match(ctx context.Context, t *table.Table, cfg Config) (*MatchResult, error) {
	p, err := compile(cfg, t, nil)
	if err != nil {
		return nil, err
	}
	agg, err := NewAggregator(t, cfg.Agg)
	if err != nil {
		return nil, err
	}

	blocks, groups, err := resolveGroups(ctx, t, p)
	if err != nil {
		return nil, err
	}

	res := &MatchResult{Blocks: len(blocks)}
	if res.Matched, err = table.New(t.Name+"_matched", t.Columns()); err != nil {
		return nil, err
	}
	if res.Unmatched, err = table.New(t.Name+"_unmatched", t.Columns()); err != nil {
		return nil, err
	}

	grouped := make([]bool, t.Len())
	var errs error
	for _, bg := range groups {
		for _, g := range bg {
			if len(g) < 2 {
				continue
			}
			rec, aerr := agg.Aggregate(g)
			if aerr != nil {
				errs = multierr.Append(errs, aerr)
				continue
			}
			if err := res.Matched.Append(rec); err != nil {
				return nil, err
			}
			res.Groups = append(res.Groups, g)
			for _, r := range g {
				grouped[r] = true
			}
		}
	}
	if errs != nil {
		return nil, errs
	}
	for row := 0; row < t.Len(); row++ {
		if grouped[row] {
			continue
		}
		if err := res.Unmatched.Append(t.Row(row)); err != nil {
			return nil, err
		}
		res.UnmatchedRows = append(res.UnmatchedRows, row)
	}
	p.log.Debug("match finished",
		zap.String("table", t.Name),
		zap.Int("rows", t.Len()),
		zap.Int("blocks", res.Blocks),
		zap.Int("groups", len(res.Groups)),
		zap.Int("unmatched", len(res.UnmatchedRows)),
	)
	return res, nil
}

// resolveGroups blocks t and clusters every block, returning the groups of each block
// in block order.
func resolveGroups(ctx context.Context, t *table.Table, p *plan) ([]Block, [][]Group, error) {
	blocks := partition(t, columnPositions(p.exact, false))
	p.log.Debug("blocks built", zap.String("table", t.Name), zap.Int("blocks", len(blocks)), zap.Int("workers", p.workers))

	f := &PairFilter{p: p}
	groups := make([][]Group, len(blocks))
	err := parallel.ForEach(ctx, len(blocks), p.workers, func(_ context.Context, i int) error {
		b := blocks[i]
		if len(b.Rows) == 1 {
			groups[i] = []Group{{b.Rows[0]}}
			return nil
		}
		groups[i] = Cluster(b.Rows, f.MatchedPairs(t, b))
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("resolve blocks: %w", err)
	}
	return blocks, groups, nil
}
