package formats

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestFromPixels(t *testing.T) {
	// 3 columns x 2 rows, row-major; -9999 is nodata.
	buf := []float64{
		1, 2, 3,
		4, -9999, math.NaN(),
	}
	gt := [6]float64{1000, 10, 0, 5000, 0, -10}

	r, err := fromPixels(3, 2, buf, gt, -9999, true)
	if err != nil {
		t.Fatalf("fromPixels: %v", err)
	}
	if r.Width != 3 || r.Height != 2 {
		t.Fatalf("size = %dx%d, want 3x2", r.Width, r.Height)
	}

	g, err := r.Grid()
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}
	tests := []struct {
		i, j    int
		want    float64
		defined bool
	}{
		{0, 0, 1, true},
		{2, 0, 3, true},
		{0, 1, 4, true},
		{1, 1, 0, false},
		{2, 1, 0, false},
	}
	for _, tt := range tests {
		if g.Defined(tt.i, tt.j) != tt.defined {
			t.Errorf("Defined(%d,%d) = %v", tt.i, tt.j, !tt.defined)
			continue
		}
		if tt.defined && g.At(tt.i, tt.j) != tt.want {
			t.Errorf("At(%d,%d) = %v, want %v", tt.i, tt.j, g.At(tt.i, tt.j), tt.want)
		}
	}

	want := [3]mgl64.Vec2{{1005, 4995}, {1005, 4985}, {1025, 4995}}
	for k := range want {
		if !r.Corners[k].ApproxEqual(want[k]) {
			t.Errorf("corner %d = %v, want %v", k, r.Corners[k], want[k])
		}
	}
}

func TestFromPixelsErrors(t *testing.T) {
	if _, err := fromPixels(1, 5, make([]float64, 5), [6]float64{}, 0, false); !errors.Is(err, ErrTooSmall) {
		t.Errorf("1x5: err = %v, want ErrTooSmall", err)
	}
	if _, err := fromPixels(2, 2, make([]float64, 3), [6]float64{}, 0, false); !errors.Is(err, ErrBadLayout) {
		t.Errorf("short buffer: err = %v, want ErrBadLayout", err)
	}
}

func TestSynthetic(t *testing.T) {
	r := Synthetic(256, 64, 1)
	g, err := r.Grid()
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}
	if got, want := g.UndefCount(), 50*64; got != want {
		t.Errorf("undefined samples = %d, want %d", got, want)
	}
	if g.Defined(101, 10) || !g.Defined(100, 10) || !g.Defined(201, 10) {
		t.Error("odd columns 100..199 should be the only undefined ones")
	}
	lo, hi, ok := g.Range()
	if !ok || lo < 1200 || hi > 1800 {
		t.Errorf("range = %v..%v", lo, hi)
	}

	again := Synthetic(256, 64, 1)
	for k := range r.Samples {
		if r.Samples[k] != again.Samples[k] {
			t.Fatalf("sample %d differs between runs with the same seed", k)
		}
	}
	if cs := g.CellSize(); math.Abs(cs-SyntheticCellSize*63/64) > 1e-9 {
		t.Errorf("cell size = %v", cs)
	}
}
