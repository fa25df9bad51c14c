// Package schedule turns a linear distance into discrete card and notification events.
//
// Everything here is a pure function of its inputs; the only randomness comes from the
// *rand.Rand the caller passes in.
package schedule

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// Mode selects how spawn distances are laid out.
type Mode int

const (
	ModeFixed Mode = iota
	ModeRandom
)

func (m Mode) String() string {
	switch m {
	case ModeFixed:
		return "fixed"
	case ModeRandom:
		return "random"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "fixed" or "random".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "fixed", "":
		return ModeFixed, nil
	case "random":
		return ModeRandom, nil
	default:
		return 0, fmt.Errorf("unknown schedule mode %q (want fixed or random)", s)
	}
}

// Params configures GenerateDistances. Fixed mode uses MetersPerCard; random mode
// draws each gap uniformly from [Min, Max].
type Params struct {
	MetersPerCard float64
	Min           float64
	Max           float64
}

var (
	ErrNegativeCount = errors.New("count must be >= 0")
	ErrBadParams     = errors.New("invalid schedule parameters")
)

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Validate checks p for the given mode.
func (p Params) Validate(mode Mode) error {
	switch mode {
	case ModeFixed:
		if !finite(p.MetersPerCard) || p.MetersPerCard < 0 {
			return fmt.Errorf("%w: meters_per_card must be finite and >= 0, got %v", ErrBadParams, p.MetersPerCard)
		}
	case ModeRandom:
		if !finite(p.Min) || !finite(p.Max) || p.Min < 0 || p.Max < p.Min {
			return fmt.Errorf("%w: need 0 <= min <= max, got min=%v max=%v", ErrBadParams, p.Min, p.Max)
		}
	default:
		return fmt.Errorf("%w: unknown mode %s", ErrBadParams, mode)
	}
	return nil
}

// GenerateDistances returns count non-decreasing spawn distances, one per item.
// rng is only used in random mode; nil seeds a fresh generator.
func GenerateDistances(count int, mode Mode, p Params, rng *rand.Rand) ([]float64, error) {
	if count < 0 {
		return nil, ErrNegativeCount
	}
	if err := p.Validate(mode); err != nil {
		return nil, err
	}

	out := make([]float64, count)
	switch mode {
	case ModeFixed:
		for i := range out {
			out[i] = float64(i) * p.MetersPerCard
		}
	case ModeRandom:
		if rng == nil {
			rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
		for i := 1; i < count; i++ {
			out[i] = out[i-1] + p.Min + rng.Float64()*(p.Max-p.Min)
		}
	}
	return out, nil
}

// Lifecycle is the distance interval during which a card is visible.
type Lifecycle struct {
	Spawn     float64 `json:"spawn"`
	Disappear float64 `json:"disappear"`
}

// Contains reports whether d falls inside [Spawn, Disappear).
func (l Lifecycle) Contains(d float64) bool {
	return d >= l.Spawn && d < l.Disappear
}

// CardLifecycle returns the lifecycle of card index, or false when index is out of range.
func CardLifecycle(index int, distances []float64, lifetime float64) (Lifecycle, bool) {
	if index < 0 || index >= len(distances) {
		return Lifecycle{}, false
	}
	spawn := distances[index]
	return Lifecycle{Spawn: spawn, Disappear: spawn + lifetime}, true
}

// ActiveCards returns the indices of cards visible at distance d, in spawn order.
// distances must be non-decreasing.
func ActiveCards(distances []float64, lifetime, d float64) []int {
	// First card spawning after d.
	hi := sort.Search(len(distances), func(i int) bool { return distances[i] > d })

	var out []int
	for i := hi - 1; i >= 0; i-- {
		if distances[i]+lifetime <= d {
			// Disappear distances are sorted too; nothing earlier is alive.
			break
		}
		out = append(out, i)
	}
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}
