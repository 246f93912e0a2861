package linkage

import (
	"strings"

	"github.com/KaramelBytes/reclink-cli/internal/table"
)

// Block is a set of rows sharing identical values on the exact-match columns.
type Block struct {
	Key  string
	Rows []int
}

// missingKey stands in for a missing value inside a block key. It cannot collide with
// real cell content because cells never contain the NUL byte.
const missingKey = "\x00NA"

// BuildBlocks partitions the rows of t by the tuple of values in cols. Rows with a missing
// blocking value share the block keyed on the missing marker. Blocks are ordered by first
// appearance and rows ascend within each block.
func BuildBlocks(t *table.Table, cols []string) ([]Block, error) {
	if len(cols) == 0 {
		return nil, configErr("ExactCols", "at least one exact-match column is required")
	}
	idx := make([]int, len(cols))
	for i, c := range cols {
		pos, ok := t.Index(c)
		if !ok {
			return nil, configErr("ExactCols", "column %q not in table %q", c, t.Name)
		}
		idx[i] = pos
	}
	return partition(t, idx), nil
}

func partition(t *table.Table, idx []int) []Block {
	var blocks []Block
	byKey := make(map[string]int)
	for row := 0; row < t.Len(); row++ {
		k := blockKey(t.Row(row), idx)
		b, ok := byKey[k]
		if !ok {
			b = len(blocks)
			byKey[k] = b
			blocks = append(blocks, Block{Key: k})
		}
		blocks[b].Rows = append(blocks[b].Rows, row)
	}
	return blocks
}

// blockKey joins the canonical values at idx with a unit separator.
func blockKey(r table.Record, idx []int) string {
	var b strings.Builder
	for i, c := range idx {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		v := r[c]
		if v.IsMissing() {
			b.WriteString(missingKey)
			continue
		}
		b.WriteString(v.Key())
	}
	return b.String()
}

func columnPositions(cols []column, right bool) []int {
	out := make([]int, len(cols))
	for i, c := range cols {
		if right {
			out[i] = c.right
		} else {
			out[i] = c.left
		}
	}
	return out
}
