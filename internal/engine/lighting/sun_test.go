package lighting

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestSunDirection(t *testing.T) {
	tests := []struct {
		azimuth, elevation float32
		want               mgl32.Vec3
	}{
		{0, 0, mgl32.Vec3{0, 1, 0}},
		{90, 0, mgl32.Vec3{1, 0, 0}},
		{0, 90, mgl32.Vec3{0, 0, 1}},
		{180, 0, mgl32.Vec3{0, -1, 0}},
	}
	for _, tt := range tests {
		got := SunDirection(tt.azimuth, tt.elevation)
		if !got.ApproxEqualThreshold(tt.want, 1e-5) {
			t.Errorf("SunDirection(%v, %v) = %v, want %v", tt.azimuth, tt.elevation, got, tt.want)
		}
	}
}

func TestDefaultRig(t *testing.T) {
	for k, l := range DefaultRig() {
		if n := l.Direction.Len(); n < 0.9999 || n > 1.0001 {
			t.Errorf("light %d direction length %v", k, n)
		}
		if l.Direction[2] <= 0 {
			t.Errorf("light %d points away from the viewer: %v", k, l.Direction)
		}
	}
}
