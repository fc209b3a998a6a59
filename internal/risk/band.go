// Package risk holds the risk-band mapping and the interchangeable
// scoring sources (deterministic mock and remote backend).
package risk

import (
	"fmt"

	"github.com/riskroute/backend/pkg/utils"
)

// Band is a categorical risk level.
type Band string

const (
	BandSafe    Band = "safe"
	BandWarning Band = "warning"
	BandDanger  Band = "danger"
)

// Band cut points. Applied identically on every rendering surface:
// risk < 40 is safe, 40-69 warning, >= 70 danger.
const (
	WarningThreshold = 40
	DangerThreshold  = 70
)

// ToBand maps a 0-100 risk score to its band.
func ToBand(risk int) Band {
	switch {
	case risk >= DangerThreshold:
		return BandDanger
	case risk >= WarningThreshold:
		return BandWarning
	default:
		return BandSafe
	}
}

// Color returns the fixed HSL accent color for a risk score's band.
func Color(risk int) string {
	switch ToBand(risk) {
	case BandDanger:
		return "hsl(0, 80%, 50%)"
	case BandWarning:
		return "hsl(45, 90%, 50%)"
	default:
		return "hsl(120, 70%, 45%)"
	}
}

// gradientZone is one piecewise-linear section of the fill ramp.
type gradientZone struct {
	from, to               float64
	h0, h1, s0, s1, l0, l1 float64
}

// Four zones sweep hue from green through yellow and orange to red,
// tightening saturation and lightness as risk climbs.
var gradientZones = []gradientZone{
	{0, 25, 120, 80, 65, 75, 45, 50},
	{25, 50, 80, 50, 75, 90, 50, 52},
	{50, 75, 50, 25, 90, 85, 52, 50},
	{75, 100, 25, 0, 85, 80, 50, 45},
}

// GradientColor maps the exact risk value to a smooth HSL fill color.
// Pure: the same risk value always yields the same string, which the
// map layer relies on for memoized re-rendering.
func GradientColor(risk int) string {
	r := utils.Clamp(float64(risk), 0, 100)
	zone := gradientZones[len(gradientZones)-1]
	for _, z := range gradientZones {
		if r <= z.to {
			zone = z
			break
		}
	}
	t := 0.0
	if zone.to > zone.from {
		t = (r - zone.from) / (zone.to - zone.from)
	}
	h := utils.Lerp(zone.h0, zone.h1, t)
	s := utils.Lerp(zone.s0, zone.s1, t)
	l := utils.Lerp(zone.l0, zone.l1, t)
	return fmt.Sprintf("hsl(%.0f, %.0f%%, %.0f%%)", h, s, l)
}
