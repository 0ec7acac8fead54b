package layered

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// WrapMode is the texture wrap mode of one cutout axis.
type WrapMode int

const (
	ClampToEdge WrapMode = iota
	ClampToBorder
)

// TextureCoords describes the sub-image of one layer covering a cutout
// request, and where the request corners fall inside it.
type TextureCoords struct {
	LayerID int
	Unit    int
	// Image shares pixels with the layer's derived image.
	Image  image.Image
	Format Format
	Origin image.Point
	Size   image.Point

	TC00, TC01, TC10, TC11 mgl32.Vec2

	WrapS, WrapT WrapMode
	Filter       FilterType
	BorderColor  mgl32.Vec4

	tex *texImage
	log *zap.Logger
}

// Cutout holds one TextureCoords per bound texture unit.
type Cutout []TextureCoords

// CreateCutout computes, for every layer bound to a texture unit, the
// power-of-two sub-image covering the rectangle origin..opposite given in
// tile space (smallest-scale texels from the envelope origin). Sub-images
// never exceed the image bounds.
func (lt *LayeredTexture) CreateCutout(origin, opposite mgl32.Vec2) Cutout {
	lt.mu.RLock()
	defer lt.mu.RUnlock()

	info := lt.tilingInfo()
	globalOrigin := info.globalCoord(origin)
	globalOpposite := info.globalCoord(opposite)

	var cut Cutout
	for idx := len(lt.layers) - 1; idx >= 0; idx-- {
		l := lt.layers[idx]
		if l.unit < 0 || l.tex == nil {
			continue
		}
		localOrigin := l.layerCoord(globalOrigin)
		localOpposite := l.layerCoord(globalOpposite)
		imgSize := [2]int{l.tex.w, l.tex.h}

		var size, overshoot, tileOrigin, tileSize [2]int
		for a := 0; a < 2; a++ {
			size[a] = ceilInt(localOpposite[a] + 0.5)
			overshoot[a] = size[a] - imgSize[a]
			if overshoot[a] > 0 {
				size[a] -= overshoot[a]
				overshoot[a] = 0
			}
			tileOrigin[a] = floorInt(localOrigin[a] - 0.5)
			if tileOrigin[a] < 0 {
				tileOrigin[a] = 0
			} else {
				size[a] -= tileOrigin[a]
			}
		}
		if size[0] < 1 || size[1] < 1 {
			size = [2]int{1, 1}
			tileOrigin = [2]int{0, 0}
		}
		for a := 0; a < 2; a++ {
			tileSize[a] = TextureSize(size[a])
			overshoot[a] += tileSize[a] - size[a]
		}
		if tileOrigin[0] < overshoot[0] || tileOrigin[1] < overshoot[1] {
			lt.log.Debug("texture size mismatch, using non power-of-two tile",
				zap.Int("layer", l.id),
				zap.Ints("size", size[:]),
			)
			overshoot = [2]int{0, 0}
			tileSize = size
		}
		for a := 0; a < 2; a++ {
			if overshoot[a] > 0 {
				tileOrigin[a] -= overshoot[a]
			}
		}

		tc := TextureCoords{
			LayerID:     l.id,
			Unit:        l.unit,
			Format:      l.tex.format,
			Origin:      image.Pt(tileOrigin[0], tileOrigin[1]),
			Size:        image.Pt(tileSize[0], tileSize[1]),
			Filter:      l.filter,
			BorderColor: l.borderColor,
			tex:         l.tex,
			log:         lt.log,
		}
		tc.Image = l.tex.subImage(image.Rectangle{Min: tc.Origin, Max: tc.Origin.Add(tc.Size)})
		tc.TC00 = mgl32.Vec2{
			(localOrigin[0] - float32(tileOrigin[0])) / float32(tileSize[0]),
			(localOrigin[1] - float32(tileOrigin[1])) / float32(tileSize[1]),
		}
		tc.TC11 = mgl32.Vec2{
			(localOpposite[0] - float32(tileOrigin[0])) / float32(tileSize[0]),
			(localOpposite[1] - float32(tileOrigin[1])) / float32(tileSize[1]),
		}
		tc.TC01 = mgl32.Vec2{tc.TC11[0], tc.TC00[1]}
		tc.TC10 = mgl32.Vec2{tc.TC00[0], tc.TC11[1]}
		if l.borderColor[0] >= 0 && (tc.TC00[0] < 0 || tc.TC11[0] > 1) {
			tc.WrapS = ClampToBorder
		}
		if l.borderColor[0] >= 0 && (tc.TC00[1] < 0 || tc.TC11[1] > 1) {
			tc.WrapT = ClampToBorder
		}
		cut = append(cut, tc)
	}
	return cut
}

// PackedPixels copies the sub-image into a tightly packed buffer, row by
// row, as GL expects without GL_UNPACK_ROW_LENGTH. Rows that would read
// outside the layer image are truncated and logged.
func (tc *TextureCoords) PackedPixels() []byte {
	if tc.tex == nil {
		return nil
	}
	bpp := tc.Format.BytesPerTexel()
	rowLen := tc.Size.X * bpp
	out := make([]byte, rowLen*tc.Size.Y)
	src := tc.tex.pix
	for y := 0; y < tc.Size.Y; y++ {
		off := (tc.Origin.Y+y)*tc.tex.stride + tc.Origin.X*bpp
		boundedCopy(tc.log, out[y*rowLen:(y+1)*rowLen], src, off)
	}
	return out
}

// boundedCopy copies len(dst) bytes of src starting at off, clipped to src.
func boundedCopy(log *zap.Logger, dst, src []byte, off int) {
	n := len(dst)
	if off >= len(src) || off+n <= 0 {
		logUnsafeCopy(log, off, n, len(src))
		return
	}
	if off < 0 {
		logUnsafeCopy(log, off, n, len(src))
		dst = dst[-off:]
		n += off
		off = 0
	}
	if off+n > len(src) {
		logUnsafeCopy(log, off, n, len(src))
		n = len(src) - off
	}
	copy(dst[:n], src[off:off+n])
}

func logUnsafeCopy(log *zap.Logger, off, n, limit int) {
	if log == nil {
		return
	}
	log.Warn("unsafe pixel copy truncated",
		zap.Int("offset", off),
		zap.Int("length", n),
		zap.Int("limit", limit),
	)
}
