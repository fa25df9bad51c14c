package schedule

import "math"

// Milestones reports every multiple of Interval that a growing distance crosses.
//
// It is fed absolute distance, which never decreases, so each milestone fires once.
type Milestones struct {
	Interval float64
	reached  int
}

// NewMilestones creates a tracker firing every interval units. A non-positive
// interval never fires.
func NewMilestones(interval float64) *Milestones {
	return &Milestones{Interval: interval}
}

// Observe returns the milestones newly crossed at distance d, in increasing order.
func (m *Milestones) Observe(d float64) []float64 {
	if m.Interval <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return nil
	}
	n := int(math.Floor(d / m.Interval))
	if n <= m.reached {
		return nil
	}
	out := make([]float64, 0, n-m.reached)
	for k := m.reached + 1; k <= n; k++ {
		out = append(out, float64(k)*m.Interval)
	}
	m.reached = n
	return out
}

// Reached returns the number of milestones fired so far.
func (m *Milestones) Reached() int { return m.reached }

// Reset forgets all fired milestones, for use after the distance is reset.
func (m *Milestones) Reset() { m.reached = 0 }
