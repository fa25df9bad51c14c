package stream

import "math/rand/v2"

// GapConfig is the two-tier gap distribution: runs of RunMin..RunMax small gaps,
// each run followed by one large gap.
type GapConfig struct {
	SmallMin, SmallMax float64
	LargeMin, LargeMax float64
	RunMin, RunMax     int
}

// DefaultGapConfig returns the gap distribution used when none is configured.
func DefaultGapConfig() GapConfig {
	return GapConfig{
		SmallMin: 16,
		SmallMax: 48,
		LargeMin: 160,
		LargeMax: 320,
		RunMin:   2,
		RunMax:   5,
	}
}

func (c GapConfig) withDefaults() GapConfig {
	d := DefaultGapConfig()
	if c.SmallMin < 0 || c.SmallMax < c.SmallMin || c.SmallMax == 0 {
		c.SmallMin, c.SmallMax = d.SmallMin, d.SmallMax
	}
	if c.LargeMin < 0 || c.LargeMax < c.LargeMin || c.LargeMax == 0 {
		c.LargeMin, c.LargeMax = d.LargeMin, d.LargeMax
	}
	if c.RunMin <= 0 || c.RunMax < c.RunMin {
		c.RunMin, c.RunMax = d.RunMin, d.RunMax
	}
	return c
}

// GapTable hands out the gap after each foreground item. Gaps are keyed by virtual
// index mod period and drawn once, in key order, so the run rhythm holds and a
// repeated lookup never re-rolls.
type GapTable struct {
	cfg       GapConfig
	period    int
	rng       *rand.Rand
	cache     *Cache[int, float64]
	generated int // keys [0, generated) are filled
	runLeft   int // small gaps left before the next large one
}

// NewGapTable creates a table covering period distinct keys.
func NewGapTable(cfg GapConfig, period int, rng *rand.Rand) *GapTable {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	g := &GapTable{
		cfg:    cfg.withDefaults(),
		period: period,
		rng:    rng,
		cache:  NewCache[int, float64](),
	}
	g.runLeft = g.drawRun()
	return g
}

// Gap returns the gap after virtual index i. An empty table returns 0.
func (g *GapTable) Gap(i int) float64 {
	key, ok := Wrap(i, g.period)
	if !ok {
		return 0
	}
	return g.cache.GetOrCompute(key, g.fill)
}

// fill draws every missing gap up to and including key, in key order.
// A miss means key >= generated.
func (g *GapTable) fill(key int) float64 {
	for g.generated < key {
		g.cache.Set(g.generated, g.draw())
		g.generated++
	}
	g.generated++
	return g.draw()
}

// Len returns how many gaps have been drawn so far.
func (g *GapTable) Len() int { return g.cache.Len() }

// IsLarge reports whether the gap after virtual index i is from the large tier.
func (g *GapTable) IsLarge(i int) bool {
	return g.Gap(i) >= g.cfg.LargeMin && g.cfg.LargeMin > g.cfg.SmallMax
}

func (g *GapTable) draw() float64 {
	if g.runLeft > 0 {
		g.runLeft--
		return uniform(g.rng, g.cfg.SmallMin, g.cfg.SmallMax)
	}
	g.runLeft = g.drawRun()
	return uniform(g.rng, g.cfg.LargeMin, g.cfg.LargeMax)
}

func (g *GapTable) drawRun() int {
	return g.cfg.RunMin + g.rng.IntN(g.cfg.RunMax-g.cfg.RunMin+1)
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
