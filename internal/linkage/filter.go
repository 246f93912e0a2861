package linkage

import (
	"math"
	"strings"

	"github.com/KaramelBytes/reclink-cli/internal/table"
)

// PairDecision records the outcome of comparing rows I < J of one block.
type PairDecision struct {
	I, J    int
	Matched bool
	Score   float64
}

// PairFilter decides whether two records that already share a block refer to the
// same entity.
type PairFilter struct {
	p *plan
}

// NewPairFilter validates cfg against t and returns a filter for pairs of its rows.
func NewPairFilter(t *table.Table, cfg Config) (*PairFilter, error) {
	p, err := compile(cfg, t, nil)
	if err != nil {
		return nil, err
	}
	return &PairFilter{p: p}, nil
}

// Decide runs the no-mismatch stage and then the fuzzy stage. The score sums, over
// passing columns, the column weight times 1 for an agreeing no-mismatch value, the
// similarity for strings, or the remaining slack of the numeric threshold.
func (f *PairFilter) Decide(a, b table.Record) (bool, float64) {
	score := 0.0
	for _, c := range f.p.noMismatch {
		va, vb := a[c.left], b[c.right]
		if va.IsMissing() || vb.IsMissing() {
			continue
		}
		if strings.TrimSpace(va.Key()) != strings.TrimSpace(vb.Key()) {
			return false, 0
		}
		score += f.p.weight(c.name)
	}

	for _, c := range f.p.fuzzy {
		va, vb := a[c.left], b[c.right]
		ma, mb := va.IsMissing(), vb.IsMissing()
		if ma || mb {
			if f.p.allowMissing {
				continue
			}
			return false, 0
		}
		fa, aNum := va.Float()
		fb, bNum := vb.Float()
		if aNum && bNum {
			d := math.Abs(fa - fb)
			if d > c.numThresh {
				return false, 0
			}
			score += (c.numThresh - d) * f.p.weight(c.name)
			continue
		}
		s := f.p.sim(va.Text(), vb.Text())
		if s < c.strThresh {
			return false, 0
		}
		score += s * f.p.weight(c.name)
	}
	return true, score
}

// MatchedPairs compares every pair i < j of the block and returns the matching ones
// in (i, j) order.
func (f *PairFilter) MatchedPairs(t *table.Table, b Block) []PairDecision {
	var out []PairDecision
	for x := 0; x < len(b.Rows); x++ {
		i := b.Rows[x]
		ri := t.Row(i)
		for y := x + 1; y < len(b.Rows); y++ {
			j := b.Rows[y]
			if ok, s := f.Decide(ri, t.Row(j)); ok {
				out = append(out, PairDecision{I: i, J: j, Matched: true, Score: s})
			}
		}
	}
	return out
}
