package progress

import "time"

// DefaultWindow is the number of recent completions the rate is averaged over.
const DefaultWindow = 30

// Meter computes throughput over the most recent completions.
// It is not safe for concurrent use.
type Meter struct {
	start  time.Time
	window int
	times  []time.Time
	done   int
}

// NewMeter starts a meter at start averaging over window completions.
func NewMeter(start time.Time, window int) *Meter {
	if window < 1 {
		window = DefaultWindow
	}
	return &Meter{start: start, window: window, times: make([]time.Time, 0, window)}
}

// Tick records a completion at now and returns the number completed so far
// and the completions per second across the window. Until two completions
// are in the window the rate is measured from the meter's start.
func (m *Meter) Tick(now time.Time) (int, float64) {
	m.done++
	if len(m.times) == m.window {
		copy(m.times, m.times[1:])
		m.times = m.times[:m.window-1]
	}
	m.times = append(m.times, now)

	from := m.start
	if len(m.times) > 1 {
		from = m.times[0]
	}
	elapsed := now.Sub(from).Seconds()
	if elapsed <= 0 {
		return m.done, 0
	}
	return m.done, float64(len(m.times)) / elapsed
}
