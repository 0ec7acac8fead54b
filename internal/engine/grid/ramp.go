package grid

import (
	"image"
	"image/color"
	"math"
)

// Ramp maps a normalized depth in [0,1] to a colour.
type Ramp interface {
	At(t float64) color.NRGBA
}

// Stops is a piecewise linear ramp over evenly spaced colours.
type Stops []color.NRGBA

// GrayRamp runs from black to white.
var GrayRamp = Stops{{0, 0, 0, 255}, {255, 255, 255, 255}}

// SeismicRamp is the usual blue-white-red horizon palette.
var SeismicRamp = Stops{
	{0, 0, 160, 255},
	{80, 160, 255, 255},
	{255, 255, 255, 255},
	{255, 160, 60, 255},
	{160, 0, 0, 255},
}

// At interpolates between the two stops around t.
func (s Stops) At(t float64) color.NRGBA {
	switch len(s) {
	case 0:
		return color.NRGBA{255, 255, 255, 255}
	case 1:
		return s[0]
	}
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(s)-1)
	k := int(pos)
	if k >= len(s)-1 {
		return s[len(s)-1]
	}
	f := pos - float64(k)
	a, b := s[k], s[k+1]
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x)*(1-f) + float64(y)*f))
	}
	return color.NRGBA{lerp(a.R, b.R), lerp(a.G, b.G), lerp(a.B, b.B), lerp(a.A, b.A)}
}

// ElevationImage colours every sample by its depth. The image is Height
// pixels wide and Width rows tall, so pixel (x=j, y=i) shows sample (i, j)
// and lines up with the cutout coordinates of the tessellator. Undefined
// samples are fully transparent.
func (g *Grid) ElevationImage(r Ramp) *image.NRGBA {
	if r == nil {
		r = GrayRamp
	}
	img := image.NewNRGBA(image.Rect(0, 0, g.Height, g.Width))
	lo, hi, ok := g.Range()
	if !ok {
		return img
	}
	span := hi - lo
	for i := 0; i < g.Width; i++ {
		for j := 0; j < g.Height; j++ {
			v := g.Samples[i*g.Height+j]
			if g.IsUndef(v) {
				continue
			}
			t := 0.5
			if span > 0 {
				t = (v - lo) / span
			}
			img.SetNRGBA(j, i, r.At(t))
		}
	}
	return img
}
