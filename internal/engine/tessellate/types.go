// Package tessellate turns horizon grids into tiled, level-of-detail
// triangle meshes with boundary lines and isolated points.
package tessellate

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/horizon3d/internal/engine/layered"
)

// Tiling defaults.
const (
	DefaultTileSize = 256
	DefaultLevels   = 3
)

// Job identifies one tile at one resolution level. Level L keeps every
// 2^L-th sample along both axes.
type Job struct {
	H, V     int // tile index along i and j
	Level    int
	TileSize int // reference tile size in samples
}

// Cutter supplies texture cutouts for a rectangle in sample space.
// *layered.LayeredTexture implements it.
type Cutter interface {
	CreateCutout(origin, opposite mgl32.Vec2) layered.Cutout
}

// Result is the geometry of one tile. It is not modified after the worker
// producing it returns.
type Result struct {
	Job Job

	// Start is the first grid sample (i, j); Size the kept sample count
	// along each axis.
	Start [2]int
	Size  [2]int

	Vertices []mgl32.Vec3
	Normals  []mgl32.Vec3
	// TexCoords holds one array per Cutout entry, parallel to Vertices.
	TexCoords [][]mgl32.Vec2
	Cutout    layered.Cutout

	Triangles []uint32 // three indices per triangle
	Lines     []uint32 // two indices per segment
	Points    []uint32

	Bounds Bounds
}

// Bounds is the axis-aligned box over the defined vertices.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// TriangleCount returns the number of emitted triangles.
func (r *Result) TriangleCount() int { return len(r.Triangles) / 3 }

// LineCount returns the number of boundary segments.
func (r *Result) LineCount() int { return len(r.Lines) / 2 }

// Empty reports whether the tile has nothing to draw.
func (r *Result) Empty() bool {
	return len(r.Triangles) == 0 && len(r.Lines) == 0 && len(r.Points) == 0
}

// Levels groups results by resolution level. Order inside a level carries
// no meaning.
type Levels [][]Result

// Count returns the number of triangles, lines and points in level l.
func (lv Levels) Count(l int) (triangles, lines, points int) {
	if l < 0 || l >= len(lv) {
		return 0, 0, 0
	}
	for k := range lv[l] {
		triangles += lv[l][k].TriangleCount()
		lines += lv[l][k].LineCount()
		points += len(lv[l][k].Points)
	}
	return triangles, lines, points
}
