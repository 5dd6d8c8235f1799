package chunker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizerStartsAtInitialSize(t *testing.T) {
	o := NewOptimizer()
	assert.Equal(t, InitialChunkSize, o.ChunkSize())
	assert.Equal(t, DefaultParallel, o.Parallelism(), "no samples yet keeps the default budget")
}

func TestOptimizerGrowsOnFastLink(t *testing.T) {
	o := NewOptimizer()

	prev := o.ChunkSize()
	for i := 0; i < sampleWindow; i++ {
		o.Record(6 << 20) // 6 MiB/s
		if i >= minSamples-1 {
			assert.Greater(t, o.ChunkSize(), prev, "fast average grows the chunk size")
		}
		prev = o.ChunkSize()
	}

	// keep feeding fast samples; size must saturate at the upper bound
	for i := 0; i < 20; i++ {
		o.Record(6 << 20)
	}
	assert.Equal(t, MaxChunkSize, o.ChunkSize())
	assert.Equal(t, maxParallel, o.Parallelism(), "a full window of fast samples raises the budget")
}

func TestOptimizerShrinksOnSlowLink(t *testing.T) {
	o := NewOptimizer()

	for i := 0; i < minSamples; i++ {
		o.Record(300 << 10) // 300 KiB/s
	}
	assert.Less(t, o.ChunkSize(), InitialChunkSize)
	assert.Equal(t, slowParallel, o.Parallelism())

	// size never leaves the bounds no matter how long the link stays slow
	for i := 0; i < 50; i++ {
		o.Record(300 << 10)
	}
	assert.GreaterOrEqual(t, o.ChunkSize(), MinChunkSize)
}

func TestOptimizerHalvesImmediatelyOnVerySlowSample(t *testing.T) {
	o := NewOptimizer()

	// a single terrible sample halves right away, before any average exists
	o.Record(50 << 10) // 50 KiB/s
	assert.Equal(t, InitialChunkSize/2, o.ChunkSize())

	o.Record(50 << 10)
	assert.Equal(t, InitialChunkSize/4, o.ChunkSize())

	for i := 0; i < 10; i++ {
		o.Record(50 << 10)
	}
	assert.Equal(t, MinChunkSize, o.ChunkSize(), "halving stops at the lower bound")
	assert.Equal(t, verySlowParallel, o.Parallelism())
}

func TestOptimizerVerySlowOverridesFastHistory(t *testing.T) {
	o := NewOptimizer()
	for i := 0; i < sampleWindow; i++ {
		o.Record(6 << 20)
	}
	grown := o.ChunkSize()
	require.Greater(t, grown, InitialChunkSize)

	o.Record(50 << 10)
	assert.Equal(t, grown/2, o.ChunkSize(), "one very slow sample halves regardless of the rolling average")
}

func TestMeterSampleSpacing(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	m := newMeter(func() time.Time { return now })
	m.start()

	_, ok := m.sample(1000)
	assert.False(t, ok, "samples closer than the measure interval are refused")

	now = now.Add(MeasureInterval)
	bps, ok := m.sample(1000)
	require.True(t, ok)
	assert.InDelta(t, 2000, bps, 1, "1000 bytes over 500ms is 2000 B/s")

	now = now.Add(time.Second)
	bps, ok = m.sample(4000)
	require.True(t, ok)
	assert.InDelta(t, 3000, bps, 1, "sampling is relative to the previous sample")

	assert.InDelta(t, 4000.0/1.5, m.overall(4000), 1)
}
