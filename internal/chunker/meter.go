package chunker

import "time"

// meter produces throughput samples from a cumulative byte count, spaced
// at least MeasureInterval apart. The time source is injectable for tests.
type meter struct {
	now       func() time.Time
	startedAt time.Time
	lastAt    time.Time
	lastBytes int64
}

func newMeter(now func() time.Time) *meter {
	if now == nil {
		now = time.Now
	}
	return &meter{now: now}
}

// start resets the meter; the first chunk starts the transfer clock.
func (m *meter) start() {
	m.startedAt = m.now()
	m.lastAt = m.startedAt
	m.lastBytes = 0
}

// started reports whether start has been called.
func (m *meter) started() bool {
	return !m.startedAt.IsZero()
}

// sample returns the instantaneous throughput since the previous sample,
// or ok=false when less than MeasureInterval has elapsed.
func (m *meter) sample(totalBytes int64) (bps float64, ok bool) {
	now := m.now()
	elapsed := now.Sub(m.lastAt)
	if elapsed < MeasureInterval {
		return 0, false
	}

	delta := totalBytes - m.lastBytes
	m.lastAt = now
	m.lastBytes = totalBytes
	return float64(delta) / elapsed.Seconds(), true
}

// overall returns the cumulative throughput since start.
func (m *meter) overall(totalBytes int64) float64 {
	elapsed := m.now().Sub(m.startedAt).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(totalBytes) / elapsed
}
