package distance

import "time"

// minSampleDt keeps two events delivered in the same instant from producing an infinite rate.
const minSampleDt = time.Millisecond

// velocityTracker keeps the last few instantaneous rates and averages them.
type velocityTracker struct {
	samples []float64 // px/s, oldest first
	max     int
	lastAt  time.Time
}

func newVelocityTracker(max int) *velocityTracker {
	return &velocityTracker{
		samples: make([]float64, 0, max),
		max:     max,
	}
}

// reset starts a new gesture at t.
func (v *velocityTracker) reset(t time.Time) {
	v.samples = v.samples[:0]
	v.lastAt = t
}

// add records a motion of d pixels at t and returns the smoothed velocity.
func (v *velocityTracker) add(d float64, t time.Time) float64 {
	dt := t.Sub(v.lastAt)
	if v.lastAt.IsZero() || dt < minSampleDt {
		dt = minSampleDt
	}
	v.lastAt = t

	rate := d / dt.Seconds()
	if len(v.samples) == v.max {
		copy(v.samples, v.samples[1:])
		v.samples = v.samples[:v.max-1]
	}
	v.samples = append(v.samples, rate)
	return v.average()
}

func (v *velocityTracker) average() float64 {
	if len(v.samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range v.samples {
		sum += s
	}
	return sum / float64(len(v.samples))
}

// idleFor returns how long ago the last sample was taken.
func (v *velocityTracker) idleFor(t time.Time) time.Duration {
	if v.lastAt.IsZero() {
		return 0
	}
	return t.Sub(v.lastAt)
}
