package linkage

import (
	"fmt"
	"sort"
	"strings"
)

// Summary describes a match run for humans.
type Summary struct {
	RunID        string
	Table        string
	Rows         int
	Blocks       int
	Groups       int
	GroupedRows  int
	Unmatched    int
	LargestGroup int
	// Sizes maps a group size to how many groups have it.
	Sizes  map[int]int
	Config Config
}

// Summary condenses the result for reporting.
func (r *MatchResult) Summary(runID string, cfg Config) Summary {
	s := Summary{
		RunID:     runID,
		Table:     strings.TrimSuffix(r.Matched.Name, "_matched"),
		Blocks:    r.Blocks,
		Groups:    len(r.Groups),
		Unmatched: len(r.UnmatchedRows),
		Sizes:     map[int]int{},
		Config:    cfg,
	}
	for _, g := range r.Groups {
		s.GroupedRows += len(g)
		s.Sizes[len(g)]++
		if len(g) > s.LargestGroup {
			s.LargestGroup = len(g)
		}
	}
	s.Rows = s.GroupedRows + s.Unmatched
	return s
}

// Markdown renders a compact report.
func (s Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("[MATCH SUMMARY]\n")
	if s.RunID != "" {
		b.WriteString(fmt.Sprintf("Run: %s\n", s.RunID))
	}
	if s.Table != "" {
		b.WriteString(fmt.Sprintf("Table: %s\n", s.Table))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", s.Rows))
	b.WriteString(fmt.Sprintf("Blocks: %d\n", s.Blocks))
	pct := 0.0
	if s.Rows > 0 {
		pct = float64(s.GroupedRows) * 100.0 / float64(s.Rows)
	}
	b.WriteString(fmt.Sprintf("Groups: %d (%d rows, %.1f%%)\n", s.Groups, s.GroupedRows, pct))
	b.WriteString(fmt.Sprintf("Unmatched: %d\n\n", s.Unmatched))

	b.WriteString("[CONFIG]\n")
	b.WriteString(fmt.Sprintf("- exact: %s\n", joinOrDash(s.Config.ExactCols)))
	b.WriteString(fmt.Sprintf("- no-mismatch: %s\n", joinOrDash(s.Config.NoMismatchCols)))
	b.WriteString(fmt.Sprintf("- fuzzy: %s\n", joinOrDash(s.Config.FuzzyCols)))
	b.WriteString(fmt.Sprintf("- thresholds: string %.3g, numeric %.3g", s.Config.StrThreshold, s.Config.NumThreshold))
	for _, k := range sortedKeys(s.Config.StrThresholds) {
		b.WriteString(fmt.Sprintf("; %s %.3g", k, s.Config.StrThresholds[k]))
	}
	for _, k := range sortedKeys(s.Config.NumThresholds) {
		b.WriteString(fmt.Sprintf("; %s ±%.3g", k, s.Config.NumThresholds[k]))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("- allow missing: %t\n", s.Config.AllowMissing))

	if len(s.Sizes) > 0 {
		b.WriteString("\n[GROUP SIZES]\n")
		sizes := make([]int, 0, len(s.Sizes))
		for k := range s.Sizes {
			sizes = append(sizes, k)
		}
		sort.Ints(sizes)
		for _, k := range sizes {
			b.WriteString(fmt.Sprintf("- %d rows: %d\n", k, s.Sizes[k]))
		}
	}
	return b.String()
}

func joinOrDash(cols []string) string {
	if len(cols) == 0 {
		return "-"
	}
	return strings.Join(cols, ", ")
}

func sortedKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
