package distance

import "math"

const metersPerInch = 0.0254

// Physical pixel density guesses per screen class. Rough by nature; the meters
// figure is a talking point, not a measurement.
const (
	phonePPI   = 460.0
	tabletPPI  = 264.0
	desktopPPI = 110.0

	phoneMaxShortSide  = 600.0 // CSS px
	tabletMaxShortSide = 1100.0
)

// DisplayProfile describes the surface for the meters heuristic.
type DisplayProfile struct {
	DevicePixelRatio float64
	Width            float64 // CSS px
	Height           float64 // CSS px
	PPI              float64 // physical pixels per inch; 0 = guess from screen class
}

// Meters is a distance pair converted to meters.
type Meters struct {
	Signed   float64 `json:"signed"`
	Absolute float64 `json:"absolute"`
}

// PixelsPerMeter estimates how many CSS pixels make a meter on the given display.
func PixelsPerMeter(p DisplayProfile) float64 {
	dpr := p.DevicePixelRatio
	if dpr <= 0 || math.IsNaN(dpr) || math.IsInf(dpr, 0) {
		dpr = 1
	}
	ppi := p.PPI
	if ppi <= 0 {
		ppi = classPPI(p)
	}
	cssPPI := ppi / dpr
	return cssPPI / metersPerInch
}

func classPPI(p DisplayProfile) float64 {
	short := math.Min(p.Width, p.Height)
	switch {
	case short <= 0:
		return desktopPPI
	case short < phoneMaxShortSide:
		return phonePPI
	case short < tabletMaxShortSide:
		return tabletPPI
	default:
		return desktopPPI
	}
}
