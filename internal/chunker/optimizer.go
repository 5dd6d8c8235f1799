package chunker

import (
	"sync"
	"time"
)

// Chunk sizing bounds and throughput bands.
const (
	MinChunkSize     = 512 << 10 // 512 KiB
	MaxChunkSize     = 8 << 20   // 8 MiB
	InitialChunkSize = 2 << 20   // 2 MiB

	// MeasureInterval is the minimum spacing between throughput samples,
	// shared by the send and receive sides.
	MeasureInterval = 500 * time.Millisecond

	sampleWindow = 5
	minSamples   = 3

	fastThreshold     = 5 << 20   // 5 MiB/s
	slowThreshold     = 500 << 10 // 500 KiB/s
	verySlowThreshold = 100 << 10 // 100 KiB/s
)

// In-flight chunk budget per throughput band.
const (
	DefaultParallel  = 6
	slowParallel     = 4
	verySlowParallel = 2
	maxParallel      = 8
)

// Optimizer adapts chunk size and the parallel in-flight budget to a
// bounded window of recent throughput samples.
type Optimizer struct {
	mu      sync.Mutex
	size    int
	samples []float64
}

// NewOptimizer starts at the initial chunk size with an empty window.
func NewOptimizer() *Optimizer {
	return &Optimizer{size: InitialChunkSize}
}

// Record feeds one instantaneous throughput sample (bytes/sec) into the
// window and adapts the chunk size. A single sample below the very-slow
// threshold halves the chunk size immediately, regardless of the rolling
// average: on very poor links per-chunk latency matters more than trend
// smoothing.
func (o *Optimizer) Record(sample float64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.samples = append(o.samples, sample)
	if len(o.samples) > sampleWindow {
		o.samples = o.samples[1:]
	}

	if sample < verySlowThreshold {
		o.size = clampChunkSize(o.size / 2)
		return
	}

	if len(o.samples) < minSamples {
		return
	}

	switch avg := average(o.samples); {
	case avg > fastThreshold:
		o.size = clampChunkSize(o.size + o.size/4)
	case avg < verySlowThreshold:
		o.size = clampChunkSize(o.size / 2)
	case avg < slowThreshold:
		o.size = clampChunkSize(o.size - o.size/5)
	}
}

// ChunkSize returns the current chunk size in bytes.
func (o *Optimizer) ChunkSize() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.size
}

// Parallelism returns how many chunks may be in flight at once. Slow bands
// shrink the budget; a full window of very-high samples raises it above
// the default.
func (o *Optimizer) Parallelism() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.samples) < minSamples {
		return DefaultParallel
	}

	avg := average(o.samples)
	switch {
	case avg < verySlowThreshold:
		return verySlowParallel
	case avg < slowThreshold:
		return slowParallel
	case avg > fastThreshold && len(o.samples) == sampleWindow:
		return maxParallel
	default:
		return DefaultParallel
	}
}

func average(samples []float64) float64 {
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}

func clampChunkSize(size int) int {
	if size < MinChunkSize {
		return MinChunkSize
	}
	if size > MaxChunkSize {
		return MaxChunkSize
	}
	return size
}
