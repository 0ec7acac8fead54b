package horizon

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/horizon3d/internal/engine/layered"
)

func depths(w, h int) []float64 {
	d := make([]float64, w*h)
	for k := range d {
		d[k] = float64(k%7) * 0.1
	}
	return d
}

func newHorizon(t *testing.T, w, h int, opts ...Option) *Horizon {
	t.Helper()
	hz := New(opts...)
	hz.SetSize(w, h)
	hz.SetDepthArray(depths(w, h))
	return hz
}

func TestOnUpdateIsIdempotent(t *testing.T) {
	hz := newHorizon(t, 4, 4)

	if !hz.OnUpdate() {
		t.Fatal("first OnUpdate did not build")
	}
	if hz.OnUpdate() {
		t.Error("second OnUpdate rebuilt without changes")
	}

	tiles := hz.OnSelectGeometry(0)
	if len(tiles) != 1 {
		t.Fatalf("tiles = %d, want 1", len(tiles))
	}
	if got := tiles[0].TriangleCount(); got != 18 {
		t.Errorf("triangles = %d, want 18", got)
	}
	if len(tiles[0].Cutout) != 1 || tiles[0].Cutout[0].LayerID != hz.ElevationLayerID() {
		t.Errorf("cutout = %+v, want the elevation layer", tiles[0].Cutout)
	}
	if s := hz.Setup(); !s.UseShaders || s.Fragment == nil {
		t.Errorf("setup has no fragment program: %+v", s)
	}

	hz.SetCornerCoords([3]mgl64.Vec2{{0, 0}, {0, 10}, {10, 0}})
	if !hz.OnUpdate() {
		t.Error("OnUpdate ignored a corner change")
	}
}

func TestTextureChangeRetiles(t *testing.T) {
	hz := newHorizon(t, 4, 4)
	hz.OnUpdate()

	// A translucent layer in front keeps the elevation layer visible.
	overlay := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	draw.Draw(overlay, overlay.Bounds(), image.NewUniform(color.NRGBA{255, 0, 0, 128}), image.Point{}, draw.Src)

	lt := hz.Texture()
	id := lt.AddDataLayer()
	lt.SetDataLayerImage(id, overlay)
	lt.AddProcess(layered.NewIdentityProcess(lt, id))

	if !hz.OnUpdate() {
		t.Fatal("OnUpdate ignored a new layer")
	}
	if got := len(hz.OnSelectGeometry(0)[0].Cutout); got != 2 {
		t.Errorf("cutout entries = %d, want 2", got)
	}
	if hz.OnUpdate() {
		t.Error("OnUpdate rebuilt twice")
	}
}

func TestCompositePath(t *testing.T) {
	lt := layered.New(layered.WithShaders(false))
	hz := newHorizon(t, 5, 3, WithTexture(lt))

	if !hz.OnUpdate() {
		t.Fatal("OnUpdate did not build")
	}
	s := hz.Setup()
	if s.UseShaders || s.Composite == nil {
		t.Fatalf("setup = %+v, want a composite image", s)
	}
	// The 3x5 elevation image is rescaled to 4x8, which sets the texel size.
	if b := s.Composite.Bounds(); b.Dx() != 4 || b.Dy() != 8 {
		t.Errorf("composite %v, want 4x8", b)
	}
	cut := hz.OnSelectGeometry(0)[0].Cutout
	if len(cut) != 1 || cut[0].LayerID != lt.CompositeLayerID() {
		t.Errorf("cutout = %+v, want the composite layer", cut)
	}
	if hz.OnUpdate() {
		t.Error("composite path does not settle")
	}
}

func TestUnsupportedDepthArray(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	hz := New(WithLogger(zap.New(core)))
	hz.SetSize(2, 2)
	hz.SetDepthArray([]int{1, 2, 3, 4})

	hz.OnUpdate()
	if tiles := hz.OnSelectGeometry(0); tiles != nil {
		t.Errorf("tiles = %d, want none", len(tiles))
	}
	if logs.FilterMessage("unsupported elevation array, no geometry will be built").Len() != 1 {
		t.Errorf("missing warning, got %v", logs.All())
	}
	for _, e := range logs.All() {
		if e.ContextMap()["horizon"] != hz.ID() {
			t.Errorf("entry %q lacks horizon id", e.Message)
		}
	}

	hz.SetDepthArray([]float32{1, 2, 3, 4})
	if !hz.OnUpdate() || len(hz.OnSelectGeometry(0)) != 1 {
		t.Error("float32 depths not tessellated")
	}
}

func TestSizeMismatch(t *testing.T) {
	hz := New()
	hz.SetSize(3, 3)
	hz.SetDepthArray(depths(2, 2))
	hz.OnUpdate()
	if hz.Grid() != nil || hz.OnSelectGeometry(0) != nil {
		t.Error("mismatched depth array produced geometry")
	}
}

func TestLevelForDistance(t *testing.T) {
	hz := newHorizon(t, 4, 4)
	hz.OnUpdate()

	// Unit corners over 4 samples: cell size 0.25.
	near, far := hz.Thresholds()
	if near != 500 || far != 2000 {
		t.Fatalf("thresholds = %v, %v, want 500, 2000", near, far)
	}
	tests := []struct {
		distance float64
		want     int
	}{
		{0, 0},
		{499, 0},
		{500, 1},
		{1999, 1},
		{2000, 2},
		{1e9, 2},
	}
	for _, tt := range tests {
		if got := hz.LevelForDistance(tt.distance); got != tt.want {
			t.Errorf("LevelForDistance(%v) = %d, want %d", tt.distance, got, tt.want)
		}
	}
	if len(hz.OnSelectGeometry(1e9)) != 1 {
		t.Error("far level has no tile")
	}
}

func TestBound(t *testing.T) {
	hz := newHorizon(t, 4, 4)
	hz.OnUpdate()
	center, radius := hz.Bound()
	if center[0] != 0.5 || center[1] != 0.5 {
		t.Errorf("center = %v", center)
	}
	if radius < 0.7 || radius > 0.8 {
		t.Errorf("radius = %v, want about 0.77", radius)
	}
}

func TestSelectedGeometryAliasesLevels(t *testing.T) {
	hz := newHorizon(t, 40, 40)
	if !hz.OnUpdate() {
		t.Fatal("OnUpdate did not build")
	}
	levels := hz.Levels()
	for _, distance := range []float64{0, 1000, 1e9} {
		got := hz.OnSelectGeometry(distance)
		want := levels[min(hz.LevelForDistance(distance), len(levels)-1)]
		if len(got) == 0 || len(got) != len(want) {
			t.Fatalf("OnSelectGeometry(%v) = %d tiles, want %d", distance, len(got), len(want))
		}
		for k := range got {
			if &got[k] != &want[k] {
				t.Errorf("OnSelectGeometry(%v)[%d] is not the Levels() result", distance, k)
			}
		}
	}
}
