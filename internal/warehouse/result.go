package warehouse

// BatchResult accounts for one chunked batch insert. Chunks are the unit of
// atomicity: a chunk either committed wholly or rolled back wholly, so the
// counts here are exact, never approximate.
type BatchResult struct {
	RowsInserted    int   `json:"rows_inserted"`
	ChunksCommitted int   `json:"chunks_committed"`
	ChunksFailed    int   `json:"chunks_failed"`
	FailedChunks    []int `json:"failed_chunks,omitempty"`
}

// Complete reports whether every chunk committed.
func (r BatchResult) Complete() bool {
	return r.ChunksFailed == 0
}

// chunkBounds yields [start, end) index pairs splitting n items into chunks
// of at most size. A non-positive size falls back to one chunk.
func chunkBounds(n, size int) [][2]int {
	if n == 0 {
		return nil
	}
	if size <= 0 {
		size = n
	}

	bounds := make([][2]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		bounds = append(bounds, [2]int{start, end})
	}
	return bounds
}
