package linkage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/reclink-cli/internal/table"
)

func TestBuildBlocksPartitionsRows(t *testing.T) {
	in := table.MustNew("t", []string{"zip", "city"},
		table.Record{s("1"), s("a")},
		table.Record{n(1), s("a")},
		table.Record{table.Null(), s("a")},
		table.Record{s("2"), s("b")},
		table.Record{s("1"), s("b")},
		table.Record{table.Null(), s("a")},
	)
	blocks, err := BuildBlocks(in, []string{"zip", "city"})
	require.NoError(t, err)

	var rows [][]int
	for _, b := range blocks {
		rows = append(rows, b.Rows)
	}
	// Numeric 1 and text "1" block together; missing values share one block.
	assert.Equal(t, [][]int{{0, 1}, {2, 5}, {3}, {4}}, rows)

	_, err = BuildBlocks(in, nil)
	require.ErrorIs(t, err, ErrConfiguration)
	_, err = BuildBlocks(in, []string{"nope"})
	require.ErrorIs(t, err, ErrConfiguration)
}

func filterFor(t *testing.T, cfg Config, cols ...string) *PairFilter {
	t.Helper()
	f, err := NewPairFilter(table.MustNew("t", cols), cfg)
	require.NoError(t, err)
	return f
}

func TestDecideNoMismatchStage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExactCols = []string{"k"}
	cfg.NoMismatchCols = []string{"ssn"}
	f := filterFor(t, cfg, "k", "ssn")

	cases := []struct {
		name string
		a, b table.Value
		want bool
	}{
		{"equal", s("123"), s("123"), true},
		{"padded", s(" 123"), s("123 "), true},
		{"different", s("123"), s("124"), false},
		{"number and text agree", n(123), s("123"), true},
		{"one missing", table.Null(), s("123"), true},
		{"both missing", table.Null(), table.Null(), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, _ := f.Decide(table.Record{s("x"), tc.a}, table.Record{s("x"), tc.b})
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestDecideMissingPolicy(t *testing.T) {
	cases := []struct {
		name         string
		a, b         table.Value
		allowMissing bool
		want         bool
	}{
		{"one missing, allowed", table.Null(), s("Martha"), true, true},
		{"one missing, rejected", s("Martha"), table.Null(), false, false},
		{"both missing, allowed", table.Null(), table.Null(), true, true},
		{"both missing, rejected", table.Null(), table.Null(), false, false},
		{"both present, similar", s("Martha"), s("Marhta"), false, true},
		{"both present, dissimilar", s("Martha"), s("Jones"), true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ExactCols = []string{"k"}
			cfg.FuzzyCols = []string{"name"}
			cfg.AllowMissing = tc.allowMissing
			f := filterFor(t, cfg, "k", "name")
			ok, _ := f.Decide(table.Record{s("x"), tc.a}, table.Record{s("x"), tc.b})
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestDecideThresholdsAndScore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExactCols = []string{"k"}
	cfg.NoMismatchCols = []string{"ssn"}
	cfg.FuzzyCols = []string{"name", "age"}
	cfg.NumThresholds = map[string]float64{"age": 2}
	cfg.StrThresholds = map[string]float64{"name": 0.99}
	cfg.Weights = map[string]float64{"ssn": 2}
	f := filterFor(t, cfg, "k", "ssn", "name", "age")

	ok, score := f.Decide(
		table.Record{s("x"), s("1"), s("Martha"), n(30)},
		table.Record{s("x"), s("1"), s("MARTHA"), n(31)},
	)
	require.True(t, ok, "case is ignored by default")
	// ssn weight 2, exact name 1, age slack 2-1.
	assert.InDelta(t, 4.0, score, 1e-9)

	ok, _ = f.Decide(
		table.Record{s("x"), s("1"), s("Martha"), n(30)},
		table.Record{s("x"), s("1"), s("Marhta"), n(30)},
	)
	assert.False(t, ok, "per-column threshold overrides the default")

	ok, _ = f.Decide(
		table.Record{s("x"), s("1"), s("Martha"), n(30)},
		table.Record{s("x"), s("1"), s("Martha"), n(33)},
	)
	assert.False(t, ok)
}

func TestDecideCustomSimilarity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExactCols = []string{"k"}
	cfg.FuzzyCols = []string{"name"}
	cfg.Similarity = func(a, b string) float64 {
		if a == b {
			return 1
		}
		return 0
	}
	f := filterFor(t, cfg, "k", "name")
	ok, _ := f.Decide(table.Record{s("x"), s("Martha")}, table.Record{s("x"), s("martha")})
	assert.False(t, ok)
}

func TestClusterOrdersGroups(t *testing.T) {
	rows := []int{2, 5, 7, 9, 11}
	pairs := []PairDecision{
		{I: 9, J: 11, Matched: true},
		{I: 5, J: 9, Matched: true},
		{I: 2, J: 7, Matched: false},
	}
	assert.Equal(t, []Group{{2}, {5, 9, 11}, {7}}, Cluster(rows, pairs))
}

func TestMatchedPairsReturnsOnlyMatches(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExactCols = []string{"k"}
	cfg.FuzzyCols = []string{"v"}
	in := table.MustNew("t", []string{"k", "v"},
		table.Record{s("a"), n(1)},
		table.Record{s("a"), n(5)},
		table.Record{s("a"), n(1.5)},
	)
	f, err := NewPairFilter(in, cfg)
	require.NoError(t, err)
	pairs := f.MatchedPairs(in, Block{Rows: []int{0, 1, 2}})
	require.Len(t, pairs, 1)
	assert.Equal(t, 0, pairs[0].I)
	assert.Equal(t, 2, pairs[0].J)
	assert.InDelta(t, 0.5, pairs[0].Score, 1e-9)
}
