package chart

import (
	"image/color"
	"math"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// DivergingRedBlue is the reversed red-blue diverging scale: blue for
// values below the midpoint, white at it, red above.
var DivergingRedBlue = []string{
	"#053061", "#2166ac", "#4393c3", "#92c5de", "#d1e5f0", "#f7f7f7",
	"#fddbc7", "#f4a582", "#d6604d", "#b2182b", "#67001f",
}

// Range is a closed colour scale extent.
type Range struct {
	Min, Max float64
}

// Mid is the centre of the range.
func (r Range) Mid() float64 { return (r.Min + r.Max) / 2 }

// SymmetricRange returns the smallest range centred on mid that covers
// every finite value. A set with no spread around mid gets a unit range.
func SymmetricRange(mid float64, values ...[]float64) Range {
	dev := 0.0
	for _, vs := range values {
		for _, v := range vs {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			dev = math.Max(dev, math.Abs(v-mid))
		}
	}
	if dev == 0 {
		dev = 1
	}
	return Range{Min: mid - dev, Max: mid + dev}
}

// ColorMap returns the static-image counterpart of DivergingRedBlue,
// converging to white at the centre of r.
func (r Range) ColorMap() palette.DivergingColorMap {
	cm := moreland.SmoothBlueRed()
	cm.SetMin(r.Min)
	cm.SetMax(r.Max)
	cm.SetConvergePoint(r.Mid())
	return cm
}

// ColorOf clamps v into r and looks it up in cm. Missing values are
// transparent.
func (r Range) ColorOf(cm palette.ColorMap, v float64) color.Color {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return color.Transparent
	}
	c, err := cm.At(math.Max(r.Min, math.Min(r.Max, v)))
	if err != nil {
		return color.Transparent
	}
	return c
}
