package grid

import (
	"image/color"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		n       int
		wantErr error
	}{
		{"ok", 3, 4, 12, nil},
		{"too narrow", 1, 4, 4, ErrSize},
		{"too short", 4, 1, 4, ErrSize},
		{"count mismatch", 3, 3, 8, ErrSampleCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.w, tt.h, make([]float64, tt.n), DefaultUndef, UnitCorners())
			if err != tt.wantErr {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPosition(t *testing.T) {
	samples := make([]float64, 4*4)
	samples[1*4+2] = 7
	g, err := New(4, 4, samples, DefaultUndef, [3]mgl64.Vec2{{10, 20}, {10, 50}, {40, 20}})
	if err != nil {
		t.Fatal(err)
	}

	p := g.Position(1, 2)
	want := [3]float32{20, 40, 7}
	for k := range want {
		if math.Abs(float64(p[k]-want[k])) > 1e-5 {
			t.Fatalf("Position(1,2) = %v, want %v", p, want)
		}
	}
	if got := g.CellSize(); math.Abs(got-7.5) > 1e-9 {
		t.Errorf("CellSize() = %v, want 7.5", got)
	}
}

func TestUndefAndRange(t *testing.T) {
	samples := []float64{1, 2, 999999, 4, -3, 999999}
	g, err := New(2, 3, samples, 999999, UnitCorners())
	if err != nil {
		t.Fatal(err)
	}

	if g.Defined(0, 2) {
		t.Error("sample (0,2) should be undefined")
	}
	if g.Defined(5, 0) {
		t.Error("out of range sample should be undefined")
	}
	if got := g.UndefCount(); got != 2 {
		t.Errorf("UndefCount() = %d, want 2", got)
	}
	lo, hi, ok := g.Range()
	if !ok || lo != -3 || hi != 4 {
		t.Errorf("Range() = %v, %v, %v; want -3, 4, true", lo, hi, ok)
	}
}

func TestElevationImage(t *testing.T) {
	samples := []float64{0, 10, 999999, 5, 5, 5}
	g, _ := New(2, 3, samples, 999999, UnitCorners())

	img := g.ElevationImage(GrayRamp)
	if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Fatalf("image size = %v, want 3x2", b.Size())
	}
	if c := img.NRGBAAt(0, 0); c != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("pixel (0,0) = %v, want black", c)
	}
	if c := img.NRGBAAt(1, 0); c != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("pixel (1,0) = %v, want white", c)
	}
	if c := img.NRGBAAt(2, 0); c.A != 0 {
		t.Errorf("undefined pixel alpha = %d, want 0", c.A)
	}
}

func TestStops(t *testing.T) {
	s := Stops{{0, 0, 0, 255}, {200, 100, 0, 255}}
	if got := s.At(0.5); got != (color.NRGBA{100, 50, 0, 255}) {
		t.Errorf("At(0.5) = %v", got)
	}
	if got := s.At(2); got != s[1] {
		t.Errorf("At(2) = %v, want clamped %v", got, s[1])
	}
}
