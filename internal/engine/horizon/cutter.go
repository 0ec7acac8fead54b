package horizon

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/horizon3d/internal/engine/layered"
	"github.com/Faultbox/horizon3d/internal/engine/tessellate"
)

// sampleCutter translates the tessellator's sample-space rectangles into
// the texture's tile space. Sample (i, j) is the centre of elevation texel
// (j, i), which sits at global (j+0.5, i+0.5).
type sampleCutter struct {
	lt     *layered.LayeredTexture
	origin mgl32.Vec2
	scale  mgl32.Vec2
}

func (h *Horizon) cutter() tessellate.Cutter {
	origin, _ := h.texture.Envelope()
	scale := h.texture.SmallestScale()
	if scale[0] <= 0 || scale[1] <= 0 {
		return nil
	}
	return sampleCutter{lt: h.texture, origin: origin, scale: scale}
}

func (c sampleCutter) tileCoord(p mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{
		(p[0]+0.5-c.origin[0])/c.scale[0] - 0.5,
		(p[1]+0.5-c.origin[1])/c.scale[1] - 0.5,
	}
}

func (c sampleCutter) CreateCutout(origin, opposite mgl32.Vec2) layered.Cutout {
	return c.lt.CreateCutout(c.tileCoord(origin), c.tileCoord(opposite))
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
