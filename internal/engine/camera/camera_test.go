package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func TestPosition(t *testing.T) {
	tests := []struct {
		name       string
		pitch, yaw float32
		want       mgl32.Vec3
	}{
		{"level", 0, 0, mgl32.Vec3{0, -10, 0}},
		{"overhead", math32.Pi / 2, 0, mgl32.Vec3{0, 0, 10}},
		{"quarter turn", 0, math32.Pi / 2, mgl32.Vec3{10, 0, 0}},
	}
	for _, tt := range tests {
		c := NewOrbitCamera()
		c.Distance, c.Pitch, c.Yaw = 10, tt.pitch, tt.yaw
		if got := c.Position(); !got.ApproxEqualThreshold(tt.want, 1e-4) {
			t.Errorf("%s: position = %v, want %v", tt.name, got, tt.want)
		}
		if d := c.DistanceTo(c.Center); math32.Abs(d-10) > 1e-4 {
			t.Errorf("%s: distance = %v", tt.name, d)
		}
	}
}

func TestViewMatrixLooksAtCenter(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = mgl32.Vec3{3, 4, 5}
	c.Yaw = 0.7

	p := c.ViewMatrix().Mul4x1(c.Center.Vec4(1))
	if math32.Abs(p[0]) > 1e-4 || math32.Abs(p[1]) > 1e-4 {
		t.Errorf("centre off axis in view space: %v", p)
	}
	if math32.Abs(p[2]+c.Distance) > 1e-3 {
		t.Errorf("centre depth = %v, want %v", p[2], -c.Distance)
	}
}

func TestDragAndZoomClamp(t *testing.T) {
	c := NewOrbitCamera()
	c.HandleDrag(0, 1e6)
	if c.Pitch != c.MaxPitch {
		t.Errorf("pitch = %v, want %v", c.Pitch, c.MaxPitch)
	}
	c.HandleDrag(0, -1e6)
	if c.Pitch != c.MinPitch {
		t.Errorf("pitch = %v, want %v", c.Pitch, c.MinPitch)
	}

	c.Distance = 10
	c.HandleZoom(1)
	if math32.Abs(c.Distance-9) > 1e-5 {
		t.Errorf("distance after zoom in = %v, want 9", c.Distance)
	}
	c.HandleZoom(-1e9)
	if c.Distance != c.MaxDistance {
		t.Errorf("distance = %v, want max %v", c.Distance, c.MaxDistance)
	}
}

func TestFitToSphere(t *testing.T) {
	c := NewOrbitCamera()
	center := mgl32.Vec3{500, 500, -20}
	c.FitToSphere(center, 700)

	if c.Center != center {
		t.Errorf("centre = %v", c.Center)
	}
	want := 700 / math32.Sin(mgl32.DegToRad(22.5))
	if math32.Abs(c.Distance-want) > 0.5 {
		t.Errorf("distance = %v, want %v", c.Distance, want)
	}
	if c.MaxDistance < c.Distance*50 {
		t.Errorf("max distance %v leaves no room to zoom out", c.MaxDistance)
	}
}
