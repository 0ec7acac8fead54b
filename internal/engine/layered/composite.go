package layered

import (
	"image"
	"runtime"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
)

// CreateCompositeTexture renders the process stack on the CPU over the
// envelope at the smallest layer scale and installs the result as the
// composite layer's image. It returns nil for an empty envelope.
func (lt *LayeredTexture) CreateCompositeTexture() *image.NRGBA {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return lt.createCompositeTexture().Composite
}

func (lt *LayeredTexture) createCompositeTexture() Setup {
	info := lt.tilingInfo()
	w := ceilInt(info.size[0] / info.smallestScale[0])
	h := ceilInt(info.size[1] / info.smallestScale[1])
	if w < 1 || h < 1 {
		return Setup{}
	}
	scale := mgl32.Vec2{info.size[0] / float32(w), info.size[1] / float32(h)}

	var procs []Process
	for k := len(lt.processes) - 1; k >= 0; k-- {
		if p := lt.processes[k]; p.transparency(false) != FullyTransparent {
			procs = append(procs, p)
		}
	}
	var stack *layer
	if lt.hasImage(lt.stackUndefID) {
		stack = lt.layer(lt.stackUndefID)
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t := 0; t < h; t++ {
		g.Go(func() error {
			row := img.Pix[t*img.Stride : t*img.Stride+4*w]
			for s := 0; s < w; s++ {
				global := mgl32.Vec2{
					(float32(s)+0.5)*scale[0] + info.origin[0],
					(float32(t)+0.5)*scale[1] + info.origin[1],
				}
				storeTexel(row[4*s:4*s+4], lt.compositeTexel(procs, stack, global))
			}
			return nil
		})
	}
	_ = g.Wait()

	if l := lt.layer(lt.compositeID); l != nil {
		l.origin = info.origin
		l.scale = scale
		lt.setImage(l, img)
		lt.touchRetile()
	}
	return Setup{
		Composite: img,
		Opaque:    lt.layerTransparency(lt.compositeID, 3) == Opaque,
	}
}

// compositeTexel evaluates procs front to back at a global coordinate and
// applies the stack-level undefined mask.
func (lt *LayeredTexture) compositeTexel(procs []Process, stack *layer, global mgl32.Vec2) mgl32.Vec4 {
	var frag mgl32.Vec4
	var u float32
	if stack != nil {
		u = clampUnit(stack.textureVec(global)[lt.stackUndefChannel])
	}
	if u < 1 {
		stage := 0
		for _, p := range procs {
			if stage > 0 && frag[3] >= 1 {
				break
			}
			if p.evaluate(&frag, stage, u, global) {
				stage++
			}
		}
		if stage == 0 {
			frag = mgl32.Vec4{1, 1, 1, 1}
		}
	}
	if u >= 1 {
		frag = lt.stackUndefColor
	} else if u > 0 {
		undefBlend(&frag, lt.stackUndefColor, u)
	}
	return frag
}

func storeTexel(dst []byte, c mgl32.Vec4) {
	c = c.Mul(255)
	if c[3] < 0.5 {
		c = mgl32.Vec4{}
	}
	for k := range 4 {
		v := int(math32.Floor(c[k] + 0.5))
		dst[k] = byte(max(0, min(v, 255)))
	}
}
