// Package grid holds horizon elevation samples and maps grid indices to
// real-world positions.
package grid

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// DefaultUndef is the threshold used when none is configured. Samples at or
// above it carry no data.
const DefaultUndef = 1e30

var (
	ErrSize        = errors.New("grid needs at least 2x2 samples")
	ErrSampleCount = errors.New("sample count does not match grid size")
)

// Grid is a W x H lattice of elevation samples. Sample (i, j) lives at
// Samples[i*H+j]; i runs along the +X corner, j along the +Y corner.
type Grid struct {
	Width   int
	Height  int
	Samples []float64
	Undef   float64

	// Corners holds the origin, the +Y end and the +X end of the grid.
	Corners [3]mgl64.Vec2
}

// New validates the dimensions and wraps samples without copying them.
func New(width, height int, samples []float64, undef float64, corners [3]mgl64.Vec2) (*Grid, error) {
	if width < 2 || height < 2 {
		return nil, ErrSize
	}
	if len(samples) != width*height {
		return nil, ErrSampleCount
	}
	return &Grid{
		Width:   width,
		Height:  height,
		Samples: samples,
		Undef:   undef,
		Corners: corners,
	}, nil
}

// UnitCorners returns the basis (0,0)-(0,1)-(1,0).
func UnitCorners() [3]mgl64.Vec2 {
	return [3]mgl64.Vec2{{0, 0}, {0, 1}, {1, 0}}
}

// FromFloat32 widens a float32 sample array.
func FromFloat32(src []float32) []float64 {
	dst := make([]float64, len(src))
	for i, v := range src {
		dst[i] = float64(v)
	}
	return dst
}

// IsUndef reports whether v is a no-data value.
func (g *Grid) IsUndef(v float64) bool {
	return v >= g.Undef
}

// At returns the sample at (i, j). Indices outside the grid yield the
// undefined threshold.
func (g *Grid) At(i, j int) float64 {
	if i < 0 || j < 0 || i >= g.Width || j >= g.Height {
		return g.Undef
	}
	return g.Samples[i*g.Height+j]
}

// Defined reports whether (i, j) is inside the grid and carries data.
func (g *Grid) Defined(i, j int) bool {
	return !g.IsUndef(g.At(i, j))
}

// IInc is the real-world step between consecutive i indices.
func (g *Grid) IInc() mgl64.Vec2 {
	return g.Corners[2].Sub(g.Corners[0]).Mul(1 / float64(g.Width-1))
}

// JInc is the real-world step between consecutive j indices.
func (g *Grid) JInc() mgl64.Vec2 {
	return g.Corners[1].Sub(g.Corners[0]).Mul(1 / float64(g.Height-1))
}

// Position maps (i, j) to world space. Z is the raw sample, so undefined
// samples keep their sentinel.
func (g *Grid) Position(i, j int) mgl32.Vec3 {
	p := g.Corners[0].Add(g.IInc().Mul(float64(i))).Add(g.JInc().Mul(float64(j)))
	return mgl32.Vec3{float32(p[0]), float32(p[1]), float32(g.At(i, j))}
}

// CellSize is the smaller real-world extent of one sample cell.
func (g *Grid) CellSize() float64 {
	iDen := g.Corners[2].Sub(g.Corners[0]).Mul(1 / float64(g.Width)).Len()
	jDen := g.Corners[1].Sub(g.Corners[0]).Mul(1 / float64(g.Height)).Len()
	return math.Min(iDen, jDen)
}

// Range returns the min and max over defined samples. ok is false when no
// sample is defined.
func (g *Grid) Range() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range g.Samples {
		if g.IsUndef(v) {
			continue
		}
		ok = true
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}

// UndefCount counts samples without data.
func (g *Grid) UndefCount() int {
	n := 0
	for _, v := range g.Samples {
		if g.IsUndef(v) {
			n++
		}
	}
	return n
}

// Center returns the world-space midpoint of the grid footprint at the
// middle of the defined depth range.
func (g *Grid) Center() mgl32.Vec3 {
	mid := g.Corners[1].Add(g.Corners[2]).Mul(0.5)
	lo, hi, _ := g.Range()
	return mgl32.Vec3{float32(mid[0]), float32(mid[1]), float32((lo + hi) / 2)}
}
