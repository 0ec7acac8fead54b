// Package camera provides the orbit camera of the horizon viewer.
package camera

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// OrbitCamera circles a centre point above a surface lying in the XY plane;
// Z is up.
type OrbitCamera struct {
	Center mgl32.Vec3

	Distance float32
	Pitch    float32 // elevation above the XY plane, radians
	Yaw      float32 // rotation about Z, radians

	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	DragSensitivity float32
	ZoomSensitivity float32

	FOV float32 // vertical field of view, degrees
}

// NewOrbitCamera returns a camera looking down at about 35 degrees.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        10,
		Pitch:           0.6,
		MinDistance:     0.01,
		MaxDistance:     1e7,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		FOV:             45,
	}
}

// Position returns the eye position.
func (c *OrbitCamera) Position() mgl32.Vec3 {
	cp := math32.Cos(c.Pitch)
	offset := mgl32.Vec3{
		c.Distance * cp * math32.Sin(c.Yaw),
		-c.Distance * cp * math32.Cos(c.Yaw),
		c.Distance * math32.Sin(c.Pitch),
	}
	return c.Center.Add(offset)
}

// ViewMatrix looks from Position at the centre.
func (c *OrbitCamera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position(), c.Center, mgl32.Vec3{0, 0, 1})
}

// ProjectionMatrix returns a perspective projection whose clip planes
// bracket a sphere of the given radius around the centre.
func (c *OrbitCamera) ProjectionMatrix(aspect, radius float32) mgl32.Mat4 {
	far := c.Distance + 2*max(radius, 1e-3)
	near := max(far*1e-4, c.Distance-2*radius)
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, near, far)
}

// DistanceTo returns the eye distance to p.
func (c *OrbitCamera) DistanceTo(p mgl32.Vec3) float32 {
	return c.Position().Sub(p).Len()
}

// HandleDrag rotates by a pointer delta in pixels.
func (c *OrbitCamera) HandleDrag(dx, dy float32) {
	c.Yaw -= dx * c.DragSensitivity
	c.Pitch = mgl32.Clamp(c.Pitch+dy*c.DragSensitivity, c.MinPitch, c.MaxPitch)
}

// HandleZoom moves towards the centre for positive steps.
func (c *OrbitCamera) HandleZoom(steps float32) {
	d := c.Distance - steps*c.Distance*c.ZoomSensitivity
	c.Distance = mgl32.Clamp(d, c.MinDistance, c.MaxDistance)
}

// FitToSphere centres the camera on a bounding sphere and backs off until
// it fills the field of view.
func (c *OrbitCamera) FitToSphere(center mgl32.Vec3, radius float32) {
	c.Center = center
	half := mgl32.DegToRad(c.FOV) / 2
	d := radius / math32.Sin(half)
	if radius <= 0 {
		d = 1
	}
	c.MinDistance = min(c.MinDistance, d/100)
	c.MaxDistance = max(c.MaxDistance, d*100)
	c.Distance = mgl32.Clamp(d, c.MinDistance, c.MaxDistance)
	c.Pitch = 0.6
	c.Yaw = 0
}
