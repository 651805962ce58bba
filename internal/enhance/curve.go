package enhance

import (
	"math"
	"math/rand/v2"
	"slices"
)

const ControlPoints = 16

// Curve is a chromosome: a monotone transfer function sampled at evenly
// spaced input levels, values in [0, 1].
type Curve [ControlPoints]float64

func IdentityCurve() Curve {
	var c Curve
	for i := range c {
		c[i] = float64(i) / float64(ControlPoints-1)
	}
	return c
}

func RandomCurve(rng *rand.Rand) Curve {
	var c Curve
	for i := range c {
		c[i] = rng.Float64()
	}
	c.normalize()
	return c
}

// normalize clamps genes to [0, 1] and restores monotonicity.
func (c *Curve) normalize() {
	for i, v := range c {
		c[i] = min(max(v, 0), 1)
	}
	slices.Sort(c[:])
}

// LUT interpolates the curve linearly over the 256 gray levels.
func (c Curve) LUT() [256]uint8 {
	var lut [256]uint8
	segments := float64(ControlPoints - 1)
	for v := range lut {
		x := float64(v) / 255 * segments
		i := min(int(x), ControlPoints-2)
		frac := x - float64(i)
		y := c[i] + (c[i+1]-c[i])*frac
		lut[v] = uint8(math.Round(min(max(y, 0), 1) * 255))
	}
	return lut
}
