package tessellate

import (
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/horizon3d/internal/engine/grid"
	"github.com/Faultbox/horizon3d/internal/engine/layered"
)

func testGrid(t *testing.T, w, h int, undef func(i, j int) bool) *grid.Grid {
	t.Helper()
	samples := make([]float64, w*h)
	for i := 0; i < w; i++ {
		for j := 0; j < h; j++ {
			v := 0.05*float64(i*i) - 0.02*float64(j)
			if undef != nil && undef(i, j) {
				v = grid.DefaultUndef
			}
			samples[i*h+j] = v
		}
	}
	g, err := grid.New(w, h, samples, grid.DefaultUndef, grid.UnitCorners())
	if err != nil {
		t.Fatalf("grid.New: %v", err)
	}
	return g
}

func job(h, v, level int) Job {
	return Job{H: h, V: v, Level: level, TileSize: DefaultTileSize}
}

func TestFullyDefinedTile(t *testing.T) {
	g := testGrid(t, 4, 4, nil)
	res := Tessellate(job(0, 0, 0), g, nil)

	if got := res.TriangleCount(); got != 18 {
		t.Errorf("triangles = %d, want 18", got)
	}
	if res.LineCount() != 0 || len(res.Points) != 0 {
		t.Errorf("lines = %d, points = %d, want none", res.LineCount(), len(res.Points))
	}
	if len(res.Vertices) != 16 || len(res.Normals) != 16 {
		t.Errorf("vertices = %d, normals = %d, want 16", len(res.Vertices), len(res.Normals))
	}
}

func TestUndefinedColumn(t *testing.T) {
	g := testGrid(t, 4, 4, func(_, j int) bool { return j == 2 })
	res := Tessellate(job(0, 0, 0), g, nil)

	column := func(idx uint32) int { return int(idx) % res.Size[1] }

	if got := res.TriangleCount(); got != 6 {
		t.Errorf("triangles = %d, want 6", got)
	}
	for k := 0; k < len(res.Triangles); k += 3 {
		for _, idx := range res.Triangles[k : k+3] {
			if c := column(idx); c >= 2 {
				t.Errorf("triangle %v reaches column %d", res.Triangles[k:k+3], c)
			}
		}
	}

	if got := res.LineCount(); got != 3 {
		t.Fatalf("lines = %d, want 3", got)
	}
	for k := 0; k < len(res.Lines); k += 2 {
		a, b := res.Lines[k], res.Lines[k+1]
		if column(a) != 3 || column(b) != 3 {
			t.Errorf("line %d-%d not along column 3", a, b)
		}
	}
	if len(res.Points) != 0 {
		t.Errorf("points = %v, want none", res.Points)
	}
}

func TestIsolatedPoint(t *testing.T) {
	g := testGrid(t, 5, 5, func(i, j int) bool { return i != 2 || j != 2 })
	res := Tessellate(job(0, 0, 0), g, nil)

	if !(res.TriangleCount() == 0 && res.LineCount() == 0) {
		t.Errorf("triangles = %d, lines = %d, want none", res.TriangleCount(), res.LineCount())
	}
	if len(res.Points) != 1 || res.Points[0] != 2*5+2 {
		t.Errorf("points = %v, want [12]", res.Points)
	}
}

func TestDiagonalQuadIsEmpty(t *testing.T) {
	g := testGrid(t, 2, 2, func(i, j int) bool { return i != j })
	res := Tessellate(job(0, 0, 0), g, nil)
	if res.TriangleCount() != 0 {
		t.Errorf("triangles = %d, want 0", res.TriangleCount())
	}
	if len(res.Points) != 2 {
		t.Errorf("points = %v, want both diagonal samples", res.Points)
	}
}

func TestEmptyTile(t *testing.T) {
	g := testGrid(t, 3, 3, func(int, int) bool { return true })
	res := Tessellate(job(0, 0, 0), g, nil)
	if !res.Empty() {
		t.Errorf("fully undefined tile not empty: %+v", res)
	}
	if res.Bounds != (Bounds{}) {
		t.Errorf("bounds = %v, want zero", res.Bounds)
	}
}

func TestDefinedTriangleCount(t *testing.T) {
	tests := []struct {
		w, h     int
		tileSize int
		level    int
	}{
		{4, 4, 256, 0},
		{9, 9, 256, 1},
		{17, 10, 8, 0},
		{17, 10, 8, 1},
		{17, 10, 8, 2},
		{5, 6, 4, 0},
	}

	for _, tt := range tests {
		g := testGrid(t, tt.w, tt.h, nil)
		for h := 0; h < NumTiles(tt.w, tt.tileSize); h++ {
			for v := 0; v < NumTiles(tt.h, tt.tileSize); v++ {
				res := Tessellate(Job{H: h, V: v, Level: tt.level, TileSize: tt.tileSize}, g, nil)
				want := 2 * (res.Size[0] - 1) * (res.Size[1] - 1)
				if got := res.TriangleCount(); got != want {
					t.Errorf("%dx%d tile %d,%d level %d: triangles = %d, want %d",
						tt.w, tt.h, h, v, tt.level, got, want)
				}
				if res.LineCount() != 0 || len(res.Points) != 0 {
					t.Errorf("%dx%d tile %d,%d level %d: lines = %d, points = %d",
						tt.w, tt.h, h, v, tt.level, res.LineCount(), len(res.Points))
				}
			}
		}
	}
}

func TestUndefinedExclusionAndNormals(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	mask := make([]bool, 20*20)
	for k := range mask {
		mask[k] = rng.IntN(4) == 0
	}
	g := testGrid(t, 20, 20, func(i, j int) bool { return mask[i*20+j] })

	for level := 0; level < 3; level++ {
		res := Tessellate(job(0, 0, level), g, nil)
		used := make(map[uint32]bool)
		for _, idx := range res.Triangles {
			used[idx] = true
			i := res.Start[0] + (int(idx)/res.Size[1])<<level
			j := res.Start[1] + (int(idx)%res.Size[1])<<level
			if !g.Defined(i, j) {
				t.Fatalf("level %d: triangle uses undefined sample (%d,%d)", level, i, j)
			}
		}
		for idx, n := range res.Normals {
			if !used[uint32(idx)] {
				if n.Len() != 0 {
					t.Errorf("level %d: vertex %d without triangles has normal %v", level, idx, n)
				}
				continue
			}
			if l := n.Len(); l < 0.999 || l > 1.001 {
				t.Errorf("level %d: normal %d length %f", level, idx, l)
			}
		}
	}
}

func TestNormalsFaceUp(t *testing.T) {
	samples := make([]float64, 9)
	g, err := grid.New(3, 3, samples, grid.DefaultUndef, grid.UnitCorners())
	if err != nil {
		t.Fatal(err)
	}
	res := Tessellate(job(0, 0, 0), g, nil)
	for k, n := range res.Normals {
		if !n.ApproxEqual(mgl32.Vec3{0, 0, 1}) {
			t.Errorf("normal %d = %v, want +Z", k, n)
		}
	}
}

func TestTileEdgesAreShared(t *testing.T) {
	g := testGrid(t, 10, 7, nil)
	a := Tessellate(Job{H: 0, V: 0, Level: 0, TileSize: 4}, g, nil)
	b := Tessellate(Job{H: 1, V: 0, Level: 0, TileSize: 4}, g, nil)

	if a.Size != [2]int{5, 5} || b.Start != [2]int{4, 0} {
		t.Fatalf("tile a size %v, tile b start %v", a.Size, b.Start)
	}
	for j := 0; j < a.Size[1]; j++ {
		last := a.Vertices[(a.Size[0]-1)*a.Size[1]+j]
		first := b.Vertices[j]
		if last != first {
			t.Errorf("column %d: %v != %v", j, last, first)
		}
	}

	// 10 samples in tiles of 4: the last tile holds samples 8 and 9.
	c := Tessellate(Job{H: 2, V: 1, Level: 0, TileSize: 4}, g, nil)
	if c.Start != [2]int{8, 4} || c.Size != [2]int{2, 3} {
		t.Errorf("last tile start %v size %v", c.Start, c.Size)
	}
}

type fakeCutter struct {
	origin, opposite mgl32.Vec2
}

func (f *fakeCutter) CreateCutout(origin, opposite mgl32.Vec2) layered.Cutout {
	f.origin, f.opposite = origin, opposite
	return layered.Cutout{{
		LayerID: 2,
		Unit:    1,
		TC00:    mgl32.Vec2{0.25, 0.5},
		TC11:    mgl32.Vec2{0.75, 1},
	}}
}

func TestTexCoords(t *testing.T) {
	g := testGrid(t, 9, 9, nil)
	cut := &fakeCutter{}
	res := Tessellate(Job{H: 1, V: 0, Level: 1, TileSize: 4}, g, cut)

	if cut.origin != (mgl32.Vec2{0, 4}) || cut.opposite != (mgl32.Vec2{4, 8}) {
		t.Errorf("cutout request %v-%v, want (0,4)-(4,8)", cut.origin, cut.opposite)
	}
	if len(res.TexCoords) != 1 || len(res.TexCoords[0]) != len(res.Vertices) {
		t.Fatalf("texcoord arrays = %d", len(res.TexCoords))
	}
	tc := res.TexCoords[0]
	last := len(tc) - 1
	if !tc[0].ApproxEqual(mgl32.Vec2{0.25, 0.5}) || !tc[last].ApproxEqual(mgl32.Vec2{0.75, 1}) {
		t.Errorf("corner texcoords %v %v", tc[0], tc[last])
	}
	// (i=0, j=1) is halfway along j.
	if !tc[1].ApproxEqual(mgl32.Vec2{0.5, 0.5}) {
		t.Errorf("tc[1] = %v", tc[1])
	}
}
