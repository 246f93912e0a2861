package linkage

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/KaramelBytes/reclink-cli/internal/parallel"
	"github.com/KaramelBytes/reclink-cli/internal/table"
)

// LinkConfig extends Config for matching the rows of one table against another.
type LinkConfig struct {
	Config
	// IDCols names the id column of the to-match table and of the comparison table.
	IDCols [2]string `validate:"dive,required"`
	// ColumnMap renames to-match columns to their comparison-table names before matching.
	ColumnMap map[string]string `validate:"dive,keys,required,endkeys,required"`
	// MaxMatches caps the candidates kept per row; 0 keeps all.
	MaxMatches int `validate:"gte=0"`
}

// Candidate is one comparison row accepted for a to-match row.
type Candidate struct {
	ID    table.Value
	Row   int
	Score float64
}

// Links holds the ranked candidates of one to-match row.
type Links struct {
	ID      table.Value
	Row     int
	Matches []Candidate
}

// Link compares every row of toMatch with the comparison rows that share its exact-match
// key. Rows of toMatch are never compared with each other. Candidates come back by score,
// highest first, with ties in comparison row order.
func Link(ctx context.Context, toMatch, comparison *table.Table, cfg LinkConfig) ([]Links, error) {
	if err := ValidateStruct(cfg); err != nil {
		return nil, err
	}
	left, err := toMatch.Rename(cfg.ColumnMap)
	if err != nil {
		return nil, &ConfigurationError{Field: "ColumnMap", Reason: err.Error()}
	}
	p, err := compile(cfg.Config, left, comparison)
	if err != nil {
		return nil, err
	}
	leftID, ok := toMatch.Index(cfg.IDCols[0])
	if !ok {
		return nil, configErr("IDCols", "column %q not in table %q", cfg.IDCols[0], toMatch.Name)
	}
	rightID, ok := comparison.Index(cfg.IDCols[1])
	if !ok {
		return nil, configErr("IDCols", "column %q not in table %q", cfg.IDCols[1], comparison.Name)
	}

	rightBlocks := partition(comparison, columnPositions(p.exact, true))
	byKey := make(map[string][]int, len(rightBlocks))
	for _, b := range rightBlocks {
		byKey[b.Key] = b.Rows
	}
	leftIdx := columnPositions(p.exact, false)
	p.log.Debug("link blocks built",
		zap.String("to_match", toMatch.Name),
		zap.String("comparison", comparison.Name),
		zap.Int("comparison_blocks", len(rightBlocks)),
	)

	f := &PairFilter{p: p}
	out := make([]Links, left.Len())
	err = parallel.ForEach(ctx, left.Len(), p.workers, func(_ context.Context, i int) error {
		row := left.Row(i)
		var cands []Candidate
		for _, j := range byKey[blockKey(row, leftIdx)] {
			if ok, s := f.Decide(row, comparison.Row(j)); ok {
				cands = append(cands, Candidate{ID: comparison.Row(j)[rightID], Row: j, Score: s})
			}
		}
		sort.SliceStable(cands, func(a, b int) bool { return cands[a].Score > cands[b].Score })
		if cfg.MaxMatches > 0 && len(cands) > cfg.MaxMatches {
			cands = cands[:cfg.MaxMatches]
		}
		out[i] = Links{ID: row[leftID], Row: i, Matches: cands}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("link rows: %w", err)
	}
	return out, nil
}
