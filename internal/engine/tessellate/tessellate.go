package tessellate

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/horizon3d/internal/engine/grid"
	"github.com/Faultbox/horizon3d/internal/engine/layered"
)

// NumTiles returns the tile count along an axis of total samples.
func NumTiles(total, tileSize int) int {
	return (total + tileSize - 1) / tileSize
}

// extent returns the first sample of tile n and its kept sample count.
// Non-last tiles share their last sample with the next tile; the last tile
// stops at the final kept sample inside the grid.
func extent(total, tileSize, n, level int) (start, count int) {
	step := 1 << level
	start = n * tileSize
	if n < NumTiles(total, tileSize)-1 {
		return start, tileSize/step + 1
	}
	return start, (total-start-1)/step + 1
}

// tile is the sample window of one job.
type tile struct {
	g            *grid.Grid
	step         int
	i0, j0       int
	hSize, vSize int
	lastH, lastV bool
}

func newTile(job Job, g *grid.Grid) tile {
	t := tile{g: g, step: 1 << job.Level}
	t.i0, t.hSize = extent(g.Width, job.TileSize, job.H, job.Level)
	t.j0, t.vSize = extent(g.Height, job.TileSize, job.V, job.Level)
	t.lastH = job.H == NumTiles(g.Width, job.TileSize)-1
	t.lastV = job.V == NumTiles(g.Height, job.TileSize)-1
	return t
}

// gi and gj map kept indices to grid samples.
func (t *tile) gi(i int) int { return t.i0 + i*t.step }
func (t *tile) gj(j int) int { return t.j0 + j*t.step }

func (t *tile) index(i, j int) uint32 { return uint32(i*t.vSize + j) }

// defined looks up a grid sample; positions outside the grid are undefined.
func (t *tile) defined(gi, gj int) bool { return t.g.Defined(gi, gj) }

// lower and upper triangle of the quad whose low corner is grid sample
// (gi, gj), at the tile's step. Both need the off-diagonal corners.
func (t *tile) lower(gi, gj int) bool {
	s := t.step
	return t.defined(gi+s, gj) && t.defined(gi, gj+s) && t.defined(gi, gj)
}

func (t *tile) upper(gi, gj int) bool {
	s := t.step
	return t.defined(gi+s, gj) && t.defined(gi, gj+s) && t.defined(gi+s, gj+s)
}

// Tessellate builds the geometry of one tile. It only reads g, so several
// jobs may run on the same grid concurrently. cut may be nil.
func Tessellate(job Job, g *grid.Grid, cut Cutter) Result {
	t := newTile(job, g)
	res := Result{
		Job:   job,
		Start: [2]int{t.i0, t.j0},
		Size:  [2]int{t.hSize, t.vSize},
	}
	n := t.hSize * t.vSize
	if n <= 0 {
		return res
	}

	res.Vertices = make([]mgl32.Vec3, n)
	res.Bounds = Bounds{
		Min: mgl32.Vec3{1e30, 1e30, 1e30},
		Max: mgl32.Vec3{-1e30, -1e30, -1e30},
	}
	anyDefined := false
	for i := 0; i < t.hSize; i++ {
		for j := 0; j < t.vSize; j++ {
			p := g.Position(t.gi(i), t.gj(j))
			res.Vertices[t.index(i, j)] = p
			if t.defined(t.gi(i), t.gj(j)) {
				anyDefined = true
				updateBounds(&res.Bounds, p)
			}
		}
	}
	if !anyDefined {
		res.Bounds = Bounds{}
	}

	res.TexCoords, res.Cutout = t.texCoords(cut)
	res.Triangles = t.triangles()
	res.Normals = vertexNormals(res.Vertices, res.Triangles)
	res.Lines, res.Points = t.boundary()
	return res
}

// texCoords requests the cutout for the tile's sample rectangle and
// interpolates every entry's corner coordinates over the kept samples.
func (t *tile) texCoords(cut Cutter) ([][]mgl32.Vec2, layered.Cutout) {
	if cut == nil {
		return nil, nil
	}
	origin := mgl32.Vec2{float32(t.j0), float32(t.i0)}
	opposite := mgl32.Vec2{float32(t.gj(t.vSize - 1)), float32(t.gi(t.hSize - 1))}
	cutout := cut.CreateCutout(origin, opposite)

	coords := make([][]mgl32.Vec2, len(cutout))
	for e := range cutout {
		tc00 := cutout[e].TC00
		d := cutout[e].TC11.Sub(tc00)
		tc := make([]mgl32.Vec2, t.hSize*t.vSize)
		for i := 0; i < t.hSize; i++ {
			for j := 0; j < t.vSize; j++ {
				tc[t.index(i, j)] = tc00.Add(mgl32.Vec2{
					fraction(j, t.vSize) * d[0],
					fraction(i, t.hSize) * d[1],
				})
			}
		}
		coords[e] = tc
	}
	return coords, cutout
}

func fraction(k, n int) float32 {
	if n <= 1 {
		return 0
	}
	return float32(k) / float32(n-1)
}

// triangles emits up to two triangles per quad, counter-clockwise for a
// right-handed corner basis.
func (t *tile) triangles() []uint32 {
	var idx []uint32
	for i := 0; i < t.hSize-1; i++ {
		for j := 0; j < t.vSize-1; j++ {
			gi, gj := t.gi(i), t.gj(j)
			i00, i10 := t.index(i, j), t.index(i+1, j)
			i01, i11 := t.index(i, j+1), t.index(i+1, j+1)
			if t.lower(gi, gj) {
				idx = append(idx, i00, i10, i01)
			}
			if t.upper(gi, gj) {
				idx = append(idx, i10, i11, i01)
			}
		}
	}
	return idx
}

// vertexNormals averages the unit normals of the triangles around each
// vertex. The stored normal is the negated average so that a right-handed
// basis yields normals facing +Z. Vertices without triangles keep a zero
// normal.
func vertexNormals(verts []mgl32.Vec3, tris []uint32) []mgl32.Vec3 {
	sums := make([]mgl32.Vec3, len(verts))
	for k := 0; k+2 < len(tris); k += 3 {
		a, b, c := verts[tris[k]], verts[tris[k+1]], verts[tris[k+2]]
		n := c.Sub(a).Cross(b.Sub(a))
		if n.Len() == 0 {
			continue
		}
		n = n.Normalize()
		for _, v := range tris[k : k+3] {
			sums[v] = sums[v].Add(n)
		}
	}
	for k, s := range sums {
		if s.Len() > 0 {
			sums[k] = s.Normalize().Mul(-1)
		}
	}
	return sums
}

// boundary decorates the data frontier. An axis edge between two defined
// samples that no triangle covers becomes a line; a defined sample whose
// four axis neighbours are undefined becomes a point. Edges and points on
// the high side of a tile are left to the next tile.
func (t *tile) boundary() (lines, points []uint32) {
	s := t.step
	for i := 0; i < t.hSize; i++ {
		for j := 0; j < t.vSize; j++ {
			gi, gj := t.gi(i), t.gj(j)
			if !t.defined(gi, gj) {
				continue
			}
			ownI := i < t.hSize-1 || t.lastH
			ownJ := j < t.vSize-1 || t.lastV

			if ownI && j+1 < t.vSize && t.defined(gi, gj+s) &&
				!t.lower(gi, gj) && !t.upper(gi-s, gj) {
				lines = append(lines, t.index(i, j), t.index(i, j+1))
			}
			if ownJ && i+1 < t.hSize && t.defined(gi+s, gj) &&
				!t.lower(gi, gj) && !t.upper(gi, gj-s) {
				lines = append(lines, t.index(i, j), t.index(i+1, j))
			}
			if ownI && ownJ &&
				!t.defined(gi-s, gj) && !t.defined(gi+s, gj) &&
				!t.defined(gi, gj-s) && !t.defined(gi, gj+s) {
				points = append(points, t.index(i, j))
			}
		}
	}
	return lines, points
}

func updateBounds(b *Bounds, p mgl32.Vec3) {
	for k := range 3 {
		b.Min[k] = min(b.Min[k], p[k])
		b.Max[k] = max(b.Max[k], p[k])
	}
}
