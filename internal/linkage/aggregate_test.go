package linkage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/reclink-cli/internal/table"
)

func aggTable() *table.Table {
	return table.MustNew("orders", []string{"k", "qty", "note"},
		table.Record{s("a"), n(1), s("x")},
		table.Record{s("a"), n(3), s("longer")},
		table.Record{s("a"), table.Null(), s("x")},
		table.Record{s("a"), table.Null(), table.Null()},
	)
}

func TestAggregateFunctions(t *testing.T) {
	cases := []struct {
		fn   string
		col  string
		want string
	}{
		{AggMode, "note", "x"},
		{AggSum, "qty", "4"},
		{AggMean, "qty", "2"},
		{AggCount, "qty", "2"},
		{AggLen, "note", "longer"},
		{AggLongest, "note", "longer"},
		{AggFirst, "note", "x"},
		{AggAll, "qty", "[1;3;;]"},
	}
	for _, tc := range cases {
		t.Run(tc.fn, func(t *testing.T) {
			in := aggTable()
			spec := AggregationSpec{tc.fn: {tc.col}}.Fill(in.Columns(), AggFirst)
			a, err := NewAggregator(in, spec)
			require.NoError(t, err)
			rec, err := a.Aggregate(Group{0, 1, 2, 3})
			require.NoError(t, err)
			pos, _ := in.Index(tc.col)
			assert.Equal(t, tc.want, rec[pos].Key())
		})
	}
}

func TestAggregateAllMissing(t *testing.T) {
	in := aggTable()
	a, err := NewAggregator(in, AggregationSpec{AggMode: {"k", "note"}, AggSum: {"qty"}})
	require.NoError(t, err)
	rec, err := a.Aggregate(Group{2, 3})
	require.NoError(t, err)
	assert.True(t, rec[1].IsMissing(), "sum of no numbers is missing")
	assert.Equal(t, "x", rec[2].Key())

	rec, err = a.Aggregate(Group{3})
	require.NoError(t, err)
	assert.True(t, rec[2].IsMissing(), "mode of all missing is missing")
}

func TestModeAndLenAreIdempotent(t *testing.T) {
	in := table.MustNew("t", []string{"v", "w"},
		table.Record{s("same"), n(7)},
		table.Record{s("same"), n(7)},
		table.Record{s("same"), n(7)},
	)
	for _, fn := range []string{AggMode, AggLen} {
		a, err := NewAggregator(in, AggregationSpec{fn: {"v", "w"}})
		require.NoError(t, err)
		rec, err := a.Aggregate(Group{0, 1, 2})
		require.NoError(t, err)
		assert.True(t, rec[0].Equal(s("same")), fn)
		assert.True(t, rec[1].Equal(n(7)), fn)
	}
}

func TestModeBreaksTiesByFirstOccurrence(t *testing.T) {
	in := table.MustNew("t", []string{"v"},
		table.Record{s("a")},
		table.Record{s("b")},
		table.Record{s("b")},
		table.Record{s("a")},
	)
	a, err := NewAggregator(in, AggregationSpec{AggMode: {"v"}})
	require.NoError(t, err)
	rec, err := a.Aggregate(Group{0, 1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "a", rec[0].Key())
}

func TestLongestBreaksTiesByFirstOccurrence(t *testing.T) {
	cases := []struct {
		name string
		vals []string
		want string
	}{
		{"abc first", []string{"abc", "xyz", "ab"}, "abc"},
		{"xyz first", []string{"xyz", "abc", "ab"}, "xyz"},
		{"short first", []string{"ab", "xyz", "abc"}, "xyz"},
	}
	for _, fn := range []string{AggLen, AggLongest} {
		for _, tc := range cases {
			t.Run(fn+"/"+tc.name, func(t *testing.T) {
				recs := make([]table.Record, len(tc.vals))
				g := make(Group, len(tc.vals))
				for i, v := range tc.vals {
					recs[i] = table.Record{s(v)}
					g[i] = i
				}
				in := table.MustNew("t", []string{"v"}, recs...)
				a, err := NewAggregator(in, AggregationSpec{fn: {"v"}})
				require.NoError(t, err)
				rec, err := a.Aggregate(g)
				require.NoError(t, err)
				assert.Equal(t, tc.want, rec[0].Key())
			})
		}
	}
}

func TestNewAggregatorRejectsBadSpecs(t *testing.T) {
	cases := map[string]AggregationSpec{
		"unknown function":   {"median": {"k", "qty", "note"}},
		"unknown column":     {AggMode: {"k", "qty", "note", "ghost"}},
		"double assignment":  {AggMode: {"k", "qty", "note"}, AggFirst: {"qty"}},
		"unassigned column":  {AggMode: {"k", "qty"}},
		"numeric on strings": {AggMode: {"k", "qty"}, AggMean: {"note"}},
	}
	for name, spec := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewAggregator(aggTable(), spec)
			require.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestFillKeepsExplicitAssignments(t *testing.T) {
	spec := AggregationSpec{AggSum: {"qty"}}.Fill([]string{"k", "qty", "note"}, AggMode)
	assert.Equal(t, AggregationSpec{AggSum: {"qty"}, AggMode: {"k", "note"}}, spec)
	assert.Contains(t, AggregationNames(), AggLongest)
}
