// Package geo ranks reference rows by distance to each source row, processing the
// source table in bounded chunks.
package geo

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/KaramelBytes/reclink-cli/internal/linkage"
	"github.com/KaramelBytes/reclink-cli/internal/parallel"
	"github.com/KaramelBytes/reclink-cli/internal/similarity"
	"github.com/KaramelBytes/reclink-cli/internal/table"
)

// Config selects the columns and limits of a ranking. Each [2]string names the source
// column first and the reference column second.
type Config struct {
	IDCols  [2]string `validate:"dive,required"`
	LatCols [2]string `validate:"dive,required"`
	LonCols [2]string `validate:"dive,required"`
	// N is how many neighbours to keep per source row.
	N int `validate:"gte=1"`
	// ChunkSize bounds the source rows per distance matrix; 0 means DefaultChunkSize.
	ChunkSize int `validate:"gte=0"`
	// Metric is haversine (default, kilometres) or euclidean (degrees).
	Metric  string
	Workers int `validate:"gte=0"`

	Logger *zap.Logger `validate:"-"`
}

// Neighbors are the closest reference rows of one source row, nearest first.
type Neighbors struct {
	SourceID  table.Value
	Row       int
	RefIDs    []table.Value
	RefRows   []int
	Distances []float64
}

// Ranking holds one entry per source row, in source order.
type Ranking []Neighbors

type point struct{ lat, lon float64 }

// GetNClosest returns, for every source row, the N reference rows at the smallest
// distance in ascending order, ties broken by reference row order. The result does not
// depend on ChunkSize or Workers.
func GetNClosest(ctx context.Context, source, ref *table.Table, cfg Config) (Ranking, error) {
	if err := linkage.ValidateStruct(cfg); err != nil {
		return nil, err
	}
	dist, err := similarity.Metric(cfg.Metric)
	if err != nil {
		return nil, &linkage.ConfigurationError{Field: "Metric", Reason: err.Error()}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	srcID, err := column(source, "IDCols", cfg.IDCols[0])
	if err != nil {
		return nil, err
	}
	refID, err := column(ref, "IDCols", cfg.IDCols[1])
	if err != nil {
		return nil, err
	}
	srcPts, err := points(source, cfg.LatCols[0], cfg.LonCols[0])
	if err != nil {
		return nil, err
	}
	refPts, err := points(ref, cfg.LatCols[1], cfg.LonCols[1])
	if err != nil {
		return nil, err
	}

	chunks := ChunkRanges(source.Len(), cfg.ChunkSize)
	log.Debug("ranking neighbours",
		zap.Int("source_rows", source.Len()),
		zap.Int("reference_rows", ref.Len()),
		zap.Int("chunks", len(chunks)),
		zap.Int("n", cfg.N),
	)

	out := make(Ranking, source.Len())
	err = parallel.ForEach(ctx, len(chunks), cfg.Workers, func(_ context.Context, c int) error {
		lo, hi := chunks[c][0], chunks[c][1]
		matrix := distanceMatrix(srcPts[lo:hi], refPts, dist)
		for k, row := range matrix {
			i := lo + k
			nearest := smallest(row, cfg.N)
			nb := Neighbors{
				SourceID:  source.Row(i)[srcID],
				Row:       i,
				RefIDs:    make([]table.Value, len(nearest)),
				RefRows:   nearest,
				Distances: make([]float64, len(nearest)),
			}
			for x, j := range nearest {
				nb.RefIDs[x] = ref.Row(j)[refID]
				nb.Distances[x] = row[j]
			}
			out[i] = nb
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rank chunks: %w", err)
	}
	return out, nil
}

func column(t *table.Table, field, name string) (int, error) {
	pos, ok := t.Index(name)
	if !ok {
		return 0, &linkage.ConfigurationError{Field: field, Reason: fmt.Sprintf("column %q not in table %q", name, t.Name)}
	}
	return pos, nil
}

// points reads the coordinates of every row. Missing or non-numeric coordinates are
// reported together.
func points(t *table.Table, latCol, lonCol string) ([]point, error) {
	latPos, err := column(t, "LatCols", latCol)
	if err != nil {
		return nil, err
	}
	lonPos, err := column(t, "LonCols", lonCol)
	if err != nil {
		return nil, err
	}
	out := make([]point, t.Len())
	var errs error
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		lat, ok := r[latPos].Float()
		if !ok {
			errs = multierr.Append(errs, coordErr(t, latCol, i, r[latPos]))
		}
		lon, ok := r[lonPos].Float()
		if !ok {
			errs = multierr.Append(errs, coordErr(t, lonCol, i, r[lonPos]))
		}
		out[i] = point{lat: lat, lon: lon}
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

func coordErr(t *table.Table, col string, row int, v table.Value) error {
	reason := "coordinate is not a number"
	if v.IsMissing() {
		reason = "coordinate is missing"
	}
	return &linkage.DataError{Column: t.Name + "." + col, Row: row, Value: v, Reason: reason}
}

// distanceMatrix is len(src) x len(ref).
func distanceMatrix(src, ref []point, dist similarity.DistanceFunc) [][]float64 {
	m := make([][]float64, len(src))
	for i, s := range src {
		row := make([]float64, len(ref))
		for j, r := range ref {
			row[j] = dist(s.lat, s.lon, r.lat, r.lon)
		}
		m[i] = row
	}
	return m
}

// smallest returns the positions of the n smallest values, ascending, ties by position.
func smallest(row []float64, n int) []int {
	idx := make([]int, len(row))
	for j := range idx {
		idx[j] = j
	}
	sort.SliceStable(idx, func(a, b int) bool { return row[idx[a]] < row[idx[b]] })
	if n < len(idx) {
		idx = idx[:n]
	}
	return idx
}
