package layered

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// TextureSize returns the smallest power of two >= n, capped at
// MaxTextureSize. Sizes up to 2 are returned unchanged.
func TextureSize(n int) int {
	if n <= 2 {
		return n
	}
	size := 4
	for size < n && size < MaxTextureSize {
		size <<= 1
	}
	return size
}

const tileOverlap = 2

// DivideAxis splits an axis of total texels into overlapping tiles of at
// most brick texels. Consecutive tiles share tileOverlap texels and the
// last tick mark is total-1.
func DivideAxis(total float32, brick int) []float32 {
	if total <= 1 {
		return []float32{0, 1}
	}
	brick = max(brick, TextureSize(tileOverlap+1))

	var ticks []float32
	var cur float32
	for {
		ticks = append(ticks, cur)
		if cur >= total-1 {
			return ticks
		}
		if cur+float32(brick) >= total {
			cur = total - 1
		} else {
			cur += float32(brick - tileOverlap)
		}
	}
}

// tilingInfo is derived from layer geometry and cached per tiling revision.
type tilingInfo struct {
	origin        mgl32.Vec2
	size          mgl32.Vec2
	smallestScale mgl32.Vec2
	maxTileSize   mgl32.Vec2
}

// tilingInfo returns the current envelope. The caller holds lt.mu.
func (lt *LayeredTexture) tilingInfo() tilingInfo {
	lt.tilingMu.Lock()
	defer lt.tilingMu.Unlock()
	if rev := lt.tilingRev.Load(); lt.tilingBuilt != rev {
		lt.tiling = lt.computeTiling()
		lt.tilingBuilt = rev
	}
	return lt.tiling
}

func (lt *LayeredTexture) computeTiling() tilingInfo {
	info := tilingInfo{smallestScale: mgl32.Vec2{1, 1}}
	var minBound, maxBound, minScale, minNoPow2 mgl32.Vec2
	found := false
	for _, l := range lt.layers {
		if l.tex == nil || l.id == lt.compositeID {
			continue
		}
		scale := mgl32.Vec2{l.scale[0] * l.imageScale[0], l.scale[1] * l.imageScale[1]}
		dims := [2]int{l.tex.w, l.tex.h}
		size := mgl32.Vec2{float32(dims[0]) * scale[0], float32(dims[1]) * scale[1]}
		bound := l.origin.Add(size)
		if !found {
			minBound, maxBound = l.origin, bound
			found = true
		}
		for a := 0; a < 2; a++ {
			maxBound[a] = max(maxBound[a], bound[a])
			minBound[a] = min(minBound[a], l.origin[a])
			if minScale[a] <= 0 || scale[a] < minScale[a] {
				minScale[a] = scale[a]
			}
			if (minNoPow2[a] <= 0 || size[a] < minNoPow2[a]) && dims[a] != TextureSize(dims[a]) {
				minNoPow2[a] = size[a]
			}
		}
	}
	if !found || minScale[0] <= 0 || minScale[1] <= 0 {
		return info
	}
	info.origin = minBound
	info.size = maxBound.Sub(minBound)
	info.smallestScale = minScale
	info.maxTileSize = mgl32.Vec2{minNoPow2[0] / minScale[0], minNoPow2[1] / minScale[1]}
	return info
}

// Envelope returns the origin and size of the union of all layer extents,
// the composite layer excluded.
func (lt *LayeredTexture) Envelope() (origin, size mgl32.Vec2) {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	info := lt.tilingInfo()
	return info.origin, info.size
}

// EnvelopeCenter is the centre of the envelope in global coordinates.
func (lt *LayeredTexture) EnvelopeCenter() mgl32.Vec2 {
	origin, size := lt.Envelope()
	return origin.Add(size.Mul(0.5))
}

// TextureEnvelopeSize is the envelope size between the outermost texel
// centres.
func (lt *LayeredTexture) TextureEnvelopeSize() mgl32.Vec2 {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	info := lt.tilingInfo()
	return info.size.Sub(info.smallestScale)
}

// SmallestScale is the finest texel size among all layers.
func (lt *LayeredTexture) SmallestScale() mgl32.Vec2 {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	return lt.tilingInfo().smallestScale
}

// MaxTileSize is the largest tile, in smallest-scale texels, that keeps
// tile boundaries inside every non power-of-two layer. Zero means
// unlimited.
func (lt *LayeredTexture) MaxTileSize() mgl32.Vec2 {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	return lt.tilingInfo().maxTileSize
}

// PlanTiling returns the tick marks of a tiling of the envelope, in
// smallest-scale texels, with tiles of at most brickSize texels.
func (lt *LayeredTexture) PlanTiling(brickSize int) (x, y []float32) {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	info := lt.tilingInfo()

	safe := [2]int{TextureSize(brickSize), TextureSize(brickSize)}
	for a := 0; a < 2; a++ {
		for info.maxTileSize[a] > 0 && float32(safe[a]) > info.maxTileSize[a] {
			safe[a] /= 2
		}
	}
	x = DivideAxis(info.size[0]/info.smallestScale[0], safe[0])
	y = DivideAxis(info.size[1]/info.smallestScale[1], safe[1])
	return x, y
}

// globalCoord maps a tile-space position (smallest-scale texels from the
// envelope origin) to the centre of that texel in global coordinates.
func (info tilingInfo) globalCoord(p mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{
		info.smallestScale[0]*(p[0]+0.5) + info.origin[0],
		info.smallestScale[1]*(p[1]+0.5) + info.origin[1],
	}
}

func ceilInt(f float32) int  { return int(math32.Ceil(f)) }
func floorInt(f float32) int { return int(math32.Floor(f)) }
