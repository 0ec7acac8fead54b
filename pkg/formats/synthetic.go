package formats

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/horizon3d/internal/engine/grid"
)

// SyntheticCellSize is the real-world spacing of synthetic samples.
const SyntheticCellSize = 25.0

// Synthetic builds a w x h test surface: a product of sines with a little
// seeded noise, with the odd columns 100..199 left undefined so the
// boundary decoration has something to draw.
func Synthetic(w, h int, seed uint64) *Raster {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	r := &Raster{
		Width:   w,
		Height:  h,
		Samples: make([]float64, w*h),
		Undef:   grid.DefaultUndef,
		Corners: [3]mgl64.Vec2{
			{0, 0},
			{0, SyntheticCellSize * float64(h-1)},
			{SyntheticCellSize * float64(w-1), 0},
		},
	}
	for i := 0; i < w; i++ {
		for j := 0; j < h; j++ {
			if i >= 100 && i < 200 && i%2 == 1 {
				r.Samples[i*h+j] = r.Undef
				continue
			}
			u := float64(i) / float64(max(1, w-1))
			v := float64(j) / float64(max(1, h-1))
			depth := 1500 + 200*math.Sin(3*math.Pi*u)*math.Sin(2*math.Pi*v) + 50*u
			r.Samples[i*h+j] = depth + rng.Float64()*2
		}
	}
	return r
}
