// Package lighting places the two directional lights of the horizon
// program.
package lighting

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Light is a directional light. Direction points towards the light.
type Light struct {
	Direction mgl32.Vec3
	Diffuse   mgl32.Vec4
	Specular  mgl32.Vec4
	Ambient   mgl32.Vec4
}

// SunDirection converts an azimuth (degrees clockwise from +Y) and an
// elevation above the XY plane (degrees) into a unit vector, Z up.
func SunDirection(azimuth, elevation float32) mgl32.Vec3 {
	az := mgl32.DegToRad(azimuth)
	el := mgl32.DegToRad(elevation)
	return mgl32.Vec3{
		math32.Cos(el) * math32.Sin(az),
		math32.Cos(el) * math32.Cos(az),
		math32.Sin(el),
	}
}

// DefaultRig returns a head light along the view axis and a dimmer fill
// light from the upper left, both in eye space.
func DefaultRig() [2]Light {
	ambient := mgl32.Vec4{0.15, 0.15, 0.15, 1}
	return [2]Light{
		{
			Direction: mgl32.Vec3{0, 0, 1},
			Diffuse:   mgl32.Vec4{0.8, 0.8, 0.8, 1},
			Specular:  mgl32.Vec4{0.3, 0.3, 0.3, 1},
			Ambient:   ambient,
		},
		{
			Direction: SunDirection(-35, 45),
			Diffuse:   mgl32.Vec4{0.3, 0.3, 0.3, 1},
			Ambient:   ambient,
		},
	}
}
