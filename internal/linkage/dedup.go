package linkage

import (
	"context"

	"go.uber.org/zap"

	"github.com/KaramelBytes/reclink-cli/internal/table"
)

// Duplicates lists, for one row, the ids of every row in its group (itself included).
type Duplicates struct {
	ID         table.Value
	Row        int
	Duplicates []table.Value
}

// DeDup runs blocking, filtering and clustering without aggregation and reports the
// group of every row of t, in input order. cfg.Agg is ignored.
func DeDup(ctx context.Context, t *table.Table, cfg Config, idCol string) ([]Duplicates, error) {
	p, err := compile(cfg, t, nil)
	if err != nil {
		return nil, err
	}
	idPos, ok := t.Index(idCol)
	if !ok {
		return nil, configErr("IDCol", "column %q not in table %q", idCol, t.Name)
	}
	_, groups, err := resolveGroups(ctx, t, p)
	if err != nil {
		return nil, err
	}

	byRow := make([]Group, t.Len())
	for _, bg := range groups {
		for _, g := range bg {
			for _, r := range g {
				byRow[r] = g
			}
		}
	}
	out := make([]Duplicates, t.Len())
	dupes := 0
	for row, g := range byRow {
		ids := make([]table.Value, len(g))
		for i, r := range g {
			ids[i] = t.Row(r)[idPos]
		}
		if len(g) > 1 {
			dupes++
		}
		out[row] = Duplicates{ID: t.Row(row)[idPos], Row: row, Duplicates: ids}
	}
	p.log.Debug("dedup finished", zap.String("table", t.Name), zap.Int("rows", t.Len()), zap.Int("rows_with_duplicates", dupes))
	return out, nil
}
