package geo

// DefaultChunkSize bounds the rows of one distance matrix when no size is configured.
const DefaultChunkSize = 1000

// ChunkRanges splits [0,n) into consecutive half-open ranges of at most size rows.
func ChunkRanges(n, size int) [][2]int {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var out [][2]int
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		out = append(out, [2]int{lo, hi})
	}
	return out
}
