package distance

import "time"

// Feel-tuning defaults. These are empirical values, not derived from any physical model.
const (
	DefaultStepPixels           = 100.0 // 1px of distance = 1/100 step
	DefaultFriction             = 0.95  // velocity multiplier per momentum frame
	DefaultMomentumMinVelocity  = 200.0 // px/s needed at release to start momentum
	DefaultMomentumStopVelocity = 10.0  // px/s below which momentum ends
	DefaultVelocitySamples      = 5
	DefaultVelocityWindow       = 100 * time.Millisecond
	DefaultWheelIdle            = 150 * time.Millisecond
	DefaultMaxDelta             = 5000.0 // px; larger single deltas are treated as broken input
	DefaultDialStepDegrees      = 15.0
	DefaultDialRadius           = 120.0
)

// Point is a screen coordinate in CSS pixels.
type Point struct {
	X, Y float64
}

// Config contains all tunable parameters for the distance engine.
type Config struct {
	// StepPixels is the distance (px) that makes one step unit.
	StepPixels float64

	// Linear scales from raw device deltas to distance.
	Scale      float64 // generic pointer Move()
	WheelScale float64
	TouchScale float64

	// Momentum
	Friction             float64
	MomentumMinVelocity  float64 // px/s
	MomentumStopVelocity float64 // px/s

	// Velocity smoothing
	VelocitySamples int
	VelocityWindow  time.Duration // release after holding still this long gives no momentum

	// Wheel sessions end after this long without wheel events.
	WheelIdle time.Duration

	// MaxDelta drops single raw deltas larger than this (0 disables the check).
	MaxDelta float64

	// Rotational variants
	Center          Point   // center for RotateStart/RotateMove
	DialStepDegrees float64 // angle per dial detent
	DialRadius      float64 // arc radius for dial detents (px)

	// Display feeds the meters heuristic.
	Display DisplayProfile
}

// DefaultConfig returns a Config with every field populated.
func DefaultConfig() Config {
	return Config{
		StepPixels:           DefaultStepPixels,
		Scale:                1,
		WheelScale:           1,
		TouchScale:           1,
		Friction:             DefaultFriction,
		MomentumMinVelocity:  DefaultMomentumMinVelocity,
		MomentumStopVelocity: DefaultMomentumStopVelocity,
		VelocitySamples:      DefaultVelocitySamples,
		VelocityWindow:       DefaultVelocityWindow,
		WheelIdle:            DefaultWheelIdle,
		MaxDelta:             DefaultMaxDelta,
		DialStepDegrees:      DefaultDialStepDegrees,
		DialRadius:           DefaultDialRadius,
		Display:              DisplayProfile{DevicePixelRatio: 1},
	}
}

// withDefaults fills zero fields so a partially populated Config is usable.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StepPixels <= 0 {
		c.StepPixels = d.StepPixels
	}
	if c.Scale == 0 {
		c.Scale = d.Scale
	}
	if c.WheelScale == 0 {
		c.WheelScale = d.WheelScale
	}
	if c.TouchScale == 0 {
		c.TouchScale = d.TouchScale
	}
	if c.Friction <= 0 || c.Friction >= 1 {
		c.Friction = d.Friction
	}
	if c.MomentumMinVelocity <= 0 {
		c.MomentumMinVelocity = d.MomentumMinVelocity
	}
	if c.MomentumStopVelocity <= 0 {
		c.MomentumStopVelocity = d.MomentumStopVelocity
	}
	if c.VelocitySamples <= 0 {
		c.VelocitySamples = d.VelocitySamples
	}
	if c.VelocityWindow <= 0 {
		c.VelocityWindow = d.VelocityWindow
	}
	if c.WheelIdle <= 0 {
		c.WheelIdle = d.WheelIdle
	}
	if c.MaxDelta < 0 {
		c.MaxDelta = 0
	}
	if c.DialStepDegrees == 0 {
		c.DialStepDegrees = d.DialStepDegrees
	}
	if c.DialRadius <= 0 {
		c.DialRadius = d.DialRadius
	}
	if c.Display.DevicePixelRatio <= 0 {
		c.Display.DevicePixelRatio = 1
	}
	return c
}
