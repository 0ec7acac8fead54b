package layered

import (
	"image"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
)

// Format is the channel layout of a derived layer image.
type Format int

const (
	RGBA Format = iota
	Luminance
	Alpha
)

func (f Format) String() string {
	switch f {
	case Luminance:
		return "luminance"
	case Alpha:
		return "alpha"
	default:
		return "rgba"
	}
}

// BytesPerTexel is the stride of one texel.
func (f Format) BytesPerTexel() int {
	if f == RGBA {
		return 4
	}
	return 1
}

const (
	channelZero = -1
	channelOne  = -2
)

// imageChannel maps colour channel c onto a byte offset inside a texel, or
// onto one of the constant channels.
func (f Format) imageChannel(c int) int {
	switch f {
	case Luminance:
		if c == 3 {
			return channelOne
		}
		return 0
	case Alpha:
		if c == 3 {
			return 0
		}
		return channelZero
	default:
		return c
	}
}

// textureChannel is the colour channel a texel byte was taken from.
func (f Format) textureChannel(ic int) int {
	switch f {
	case Luminance:
		return 0
	case Alpha:
		return 3
	default:
		return ic
	}
}

// texImage is a layer image normalised to one of the three formats with
// its bounds starting at the origin.
type texImage struct {
	format Format
	img    image.Image
	pix    []byte
	stride int
	w, h   int
}

func newTexImage(src image.Image) *texImage {
	b := src.Bounds()
	r := image.Rect(0, 0, b.Dx(), b.Dy())
	switch src.(type) {
	case *image.Gray, *image.Gray16:
		dst := image.NewGray(r)
		draw.Draw(dst, r, src, b.Min, draw.Src)
		return &texImage{format: Luminance, img: dst, pix: dst.Pix, stride: dst.Stride, w: r.Dx(), h: r.Dy()}
	case *image.Alpha, *image.Alpha16:
		dst := image.NewAlpha(r)
		draw.Draw(dst, r, src, b.Min, draw.Src)
		return &texImage{format: Alpha, img: dst, pix: dst.Pix, stride: dst.Stride, w: r.Dx(), h: r.Dy()}
	default:
		dst := image.NewNRGBA(r)
		draw.Draw(dst, r, src, b.Min, draw.Src)
		return &texImage{format: RGBA, img: dst, pix: dst.Pix, stride: dst.Stride, w: r.Dx(), h: r.Dy()}
	}
}

// scaledTexImage resamples src bilinearly to w x h.
func scaledTexImage(src image.Image, w, h int) *texImage {
	orig := newTexImage(src)
	r := image.Rect(0, 0, w, h)
	var dst draw.Image
	switch orig.format {
	case Luminance:
		dst = image.NewGray(r)
	case Alpha:
		dst = image.NewAlpha(r)
	default:
		dst = image.NewNRGBA(r)
	}
	draw.BiLinear.Scale(dst, r, orig.img, orig.img.Bounds(), draw.Src, nil)
	out := &texImage{format: orig.format, img: dst, w: w, h: h}
	switch d := dst.(type) {
	case *image.Gray:
		out.pix, out.stride = d.Pix, d.Stride
	case *image.Alpha:
		out.pix, out.stride = d.Pix, d.Stride
	case *image.NRGBA:
		out.pix, out.stride = d.Pix, d.Stride
	}
	return out
}

// subImage returns a view sharing pixels with t.
func (t *texImage) subImage(r image.Rectangle) image.Image {
	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	return t.img.(subImager).SubImage(r)
}

// texel returns the colour at (s, t), which must be in bounds.
func (t *texImage) texel(s, u int) mgl32.Vec4 {
	switch t.format {
	case Luminance:
		l := float32(t.pix[u*t.stride+s]) / 255
		return mgl32.Vec4{l, l, l, 1}
	case Alpha:
		return mgl32.Vec4{0, 0, 0, float32(t.pix[u*t.stride+s]) / 255}
	default:
		p := t.pix[u*t.stride+4*s : u*t.stride+4*s+4]
		return mgl32.Vec4{float32(p[0]) / 255, float32(p[1]) / 255, float32(p[2]) / 255, float32(p[3]) / 255}
	}
}

// transparency classifies colour channel c from its bytes.
func (t *texImage) transparency(c int) TransparencyType {
	ic := t.format.imageChannel(c)
	switch ic {
	case channelZero:
		return FullyTransparent
	case channelOne:
		return Opaque
	}
	bpp := t.format.BytesPerTexel()
	var transparent, partial, opaque bool
	for y := 0; y < t.h; y++ {
		row := t.pix[y*t.stride : y*t.stride+t.w*bpp]
		for x := ic; x < len(row); x += bpp {
			switch row[x] {
			case 0:
				transparent = true
			case 255:
				opaque = true
			default:
				partial = true
			}
		}
		if partial {
			return HasTransparencies
		}
	}
	return bytewiseTransparency(transparent, opaque)
}

func bytewiseTransparency(transparent, opaque bool) TransparencyType {
	switch {
	case transparent && opaque:
		return OnlyFullTransparencies
	case transparent:
		return FullyTransparent
	default:
		return Opaque
	}
}

// colorAt returns the texel at (s, t), the border colour outside the image
// if one is set, or the nearest edge texel otherwise.
func (l *layer) colorAt(s, t int) mgl32.Vec4 {
	tex := l.tex
	if s >= 0 && s < tex.w && t >= 0 && t < tex.h {
		return tex.texel(s, t)
	}
	if l.borderColor[0] >= 0 {
		return l.borderColor
	}
	return tex.texel(max(0, min(s, tex.w-1)), max(0, min(t, tex.h-1)))
}

// textureVec samples the layer at a global coordinate with its filter.
func (l *layer) textureVec(global mgl32.Vec2) mgl32.Vec4 {
	if l.tex == nil {
		return mgl32.Vec4{-1, -1, -1, -1}
	}
	p := l.layerCoord(global)
	if l.filter != Nearest {
		p = p.Sub(mgl32.Vec2{0.5, 0.5})
	}
	fs, ft := math32.Floor(p[0]), math32.Floor(p[1])
	s, t := int(fs), int(ft)
	col00 := l.colorAt(s, t)
	if l.filter == Nearest {
		return col00
	}
	sFrac, tFrac := p[0]-fs, p[1]-ft
	if tFrac == 0 {
		if sFrac == 0 {
			return col00
		}
		return lerp(col00, l.colorAt(s+1, t), sFrac)
	}
	col01 := l.colorAt(s, t+1)
	if sFrac == 0 {
		return lerp(col00, col01, tFrac)
	}
	col10 := l.colorAt(s+1, t)
	col11 := l.colorAt(s+1, t+1)
	return lerp(lerp(col00, col10, sFrac), lerp(col01, col11, sFrac), tFrac)
}

func lerp(a, b mgl32.Vec4, f float32) mgl32.Vec4 {
	return a.Mul(1 - f).Add(b.Mul(f))
}
