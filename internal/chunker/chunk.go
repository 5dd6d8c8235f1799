// Package chunker converts a payload into an ordered chunk stream on the
// send side and reassembles one on the receive side, adapting chunk size
// and the in-flight budget to observed throughput.
package chunker

// Chunk is one contiguous byte range [Start, End) of the payload. Chunks
// are immutable values; a plan's ranges are contiguous, non-overlapping,
// and cover the payload exactly.
type Chunk struct {
	Index int
	Start int64
	End   int64
}

// Size returns the chunk length in bytes.
func (c Chunk) Size() int64 {
	return c.End - c.Start
}

// Plan splits totalSize bytes into chunks of at most chunkSize bytes,
// indexed 0..n-1.
func Plan(totalSize int64, chunkSize int) []Chunk {
	return PlanRange(0, totalSize, 0, chunkSize)
}

// PlanRange splits [offset, totalSize) into chunks of at most chunkSize
// bytes, numbering them from firstIndex. Used to recompute boundaries for
// the unsent remainder mid-transfer.
func PlanRange(offset, totalSize int64, firstIndex, chunkSize int) []Chunk {
	if chunkSize <= 0 || offset >= totalSize {
		return nil
	}

	size := int64(chunkSize)
	n := (totalSize - offset + size - 1) / size
	chunks := make([]Chunk, 0, n)

	index := firstIndex
	for start := offset; start < totalSize; start += size {
		end := start + size
		if end > totalSize {
			end = totalSize
		}
		chunks = append(chunks, Chunk{Index: index, Start: start, End: end})
		index++
	}
	return chunks
}
