// Package layered manages a stack of co-registered image layers and the
// processes that composite them, either into GLSL programs or into a single
// CPU-rendered RGBA image.
package layered

import (
	"errors"
	"image"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

const (
	// DefaultTextureUnits is the texture unit budget of the shader path.
	DefaultTextureUnits = 8
	// DefaultMaxTextureCopySize is the largest texel count rescaled to a
	// power-of-two copy when a layer image is set.
	DefaultMaxTextureCopySize = 32 * 32
	// MaxTextureSize caps TextureSize.
	MaxTextureSize = 65536
)

var (
	ErrUnknownLayer    = errors.New("layered: unknown layer id")
	ErrCompositeLayer  = errors.New("layered: composite layer cannot be removed")
	ErrLayerReferenced = errors.New("layered: layer is still referenced as undefined mask")
)

// FilterType selects texel interpolation.
type FilterType int

const (
	Nearest FilterType = iota
	Linear
)

func (f FilterType) String() string {
	if f == Nearest {
		return "nearest"
	}
	return "linear"
}

// layer is one entry of the registry.
type layer struct {
	id         int
	origin     mgl32.Vec2
	scale      mgl32.Vec2
	source     image.Image
	tex        *texImage
	imageScale mgl32.Vec2
	unit       int
	filter     FilterType

	undefLayerID int
	undefChannel int

	borderColor       mgl32.Vec4
	borderColorSource mgl32.Vec4
	undefColor        mgl32.Vec4
	undefColorSource  mgl32.Vec4

	transparency [4]atomic.Int32
}

func newLayer(id int) *layer {
	l := &layer{
		id:                id,
		scale:             mgl32.Vec2{1, 1},
		imageScale:        mgl32.Vec2{1, 1},
		unit:              -1,
		filter:            Linear,
		undefLayerID:      -1,
		borderColor:       mgl32.Vec4{1, 1, 1, 1},
		borderColorSource: mgl32.Vec4{1, 1, 1, 1},
		undefColor:        mgl32.Vec4{-1, -1, -1, -1},
		undefColorSource:  mgl32.Vec4{-1, -1, -1, -1},
	}
	l.clearTransparency()
	return l
}

func (l *layer) clearTransparency() {
	for c := range l.transparency {
		l.transparency[c].Store(int32(TransparencyUnknown))
	}
}

// adaptColors maps the source border and undefined colours onto the
// channels the texture format actually carries.
func (l *layer) adaptColors() {
	l.undefColor = l.undefColorSource
	l.borderColor = l.borderColorSource
	if l.tex == nil {
		return
	}
	for c := 0; c < 4; c++ {
		switch ic := l.tex.format.imageChannel(c); ic {
		case channelZero:
			l.undefColor[c] = constChannel(l.undefColor[c], 0)
			l.borderColor[c] = constChannel(l.borderColor[c], 0)
		case channelOne:
			l.undefColor[c] = constChannel(l.undefColor[c], 1)
			l.borderColor[c] = constChannel(l.borderColor[c], 1)
		default:
			tc := l.tex.format.textureChannel(ic)
			l.undefColor[c] = l.undefColorSource[tc]
			l.borderColor[c] = l.borderColorSource[tc]
		}
	}
}

func constChannel(v, c float32) float32 {
	if v < 0 {
		return -1
	}
	return c
}

// layerCoord maps a global coordinate into texel space of the derived image.
func (l *layer) layerCoord(global mgl32.Vec2) mgl32.Vec2 {
	res := global.Sub(l.origin)
	res[0] /= l.scale[0] * l.imageScale[0]
	res[1] /= l.scale[1] * l.imageScale[1]
	return res
}

// Option configures a LayeredTexture.
type Option func(*LayeredTexture)

// WithLogger routes diagnostics to log.
func WithLogger(log *zap.Logger) Option {
	return func(lt *LayeredTexture) { lt.log = log }
}

// WithTextureUnits sets the texture unit budget of the shader path.
func WithTextureUnits(n int) Option {
	return func(lt *LayeredTexture) {
		if n > 1 {
			lt.units = n
		}
	}
}

// WithMaxTextureCopySize sets the texel count below which layer images are
// rescaled to power-of-two copies.
func WithMaxTextureCopySize(n int) Option {
	return func(lt *LayeredTexture) { lt.maxCopySize = n }
}

// WithShaders selects the shader path (true) or the CPU composite (false).
func WithShaders(yn bool) Option {
	return func(lt *LayeredTexture) { lt.useShaders = yn }
}

// LayeredTexture is the layer registry, tiling planner, process stack and
// compositor. All methods are safe for concurrent use; CreateCutout may run
// from many goroutines at once while mutations are serialized.
type LayeredTexture struct {
	mu  sync.RWMutex
	log *zap.Logger

	layers      []*layer
	freeID      int
	compositeID int
	maxCopySize int
	units       int
	useShaders  bool

	stackUndefID      int
	stackUndefChannel int
	stackUndefColor   mgl32.Vec4
	invertUndef       bool

	processes []Process

	tilingRev atomic.Uint64
	setupRev  atomic.Uint64
	retileRev atomic.Uint64

	tilingMu    sync.Mutex
	tiling      tilingInfo
	tilingBuilt uint64

	setup      Setup
	setupBuilt uint64
}

// New creates a texture holding only the composite layer.
func New(opts ...Option) *LayeredTexture {
	lt := &LayeredTexture{
		log:          zap.NewNop(),
		freeID:       1,
		maxCopySize:  DefaultMaxTextureCopySize,
		units:        DefaultTextureUnits,
		useShaders:   true,
		stackUndefID: -1,
	}
	for _, opt := range opts {
		opt(lt)
	}
	lt.tilingRev.Store(1)
	lt.setupRev.Store(1)
	lt.retileRev.Store(1)
	lt.compositeID = lt.AddDataLayer()
	return lt
}

func (lt *LayeredTexture) touchTiling() { lt.tilingRev.Add(1) }
func (lt *LayeredTexture) touchSetup()  { lt.setupRev.Add(1) }
func (lt *LayeredTexture) touchRetile() { lt.retileRev.Add(1) }

// TilingRevision changes whenever layer geometry changes.
func (lt *LayeredTexture) TilingRevision() uint64 { return lt.tilingRev.Load() }

// SetupRevision changes whenever the shader program or composite image is
// stale.
func (lt *LayeredTexture) SetupRevision() uint64 { return lt.setupRev.Load() }

// RetilingRevision changes whenever previously created cutouts became
// invalid, for example after texture units or filters changed.
func (lt *LayeredTexture) RetilingRevision() uint64 {
	return lt.retileRev.Load() + lt.tilingRev.Load()
}

// CompositeLayerID is the id of the layer receiving the CPU composite.
func (lt *LayeredTexture) CompositeLayerID() int { return lt.compositeID }

// UseShaders reports which compositing path is active.
func (lt *LayeredTexture) UseShaders() bool {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	return lt.useShaders
}

// SetUseShaders switches between the shader path and the CPU composite.
func (lt *LayeredTexture) SetUseShaders(yn bool) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if lt.useShaders == yn {
		return
	}
	lt.useShaders = yn
	lt.touchSetup()
	lt.touchRetile()
}

// SetMaxTextureCopySize changes the rescale limit and re-derives images
// whose copy status would change.
func (lt *LayeredTexture) SetMaxTextureCopySize(texels int) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.maxCopySize = texels
	for _, l := range lt.layers {
		if l.source != nil && l.id != lt.compositeID {
			lt.setImage(l, l.source)
		}
	}
}

// AddDataLayer appends an empty layer and returns its id.
func (lt *LayeredTexture) AddDataLayer() int {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	l := newLayer(lt.freeID)
	lt.freeID++
	lt.layers = append(lt.layers, l)
	return l.id
}

// RemoveDataLayer deletes a layer. The composite layer and layers still
// serving as another layer's (or the stack's) undefined mask are rejected
// and the registry is left unchanged.
func (lt *LayeredTexture) RemoveDataLayer(id int) error {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if id == lt.compositeID {
		return ErrCompositeLayer
	}
	idx := lt.layerIndex(id)
	if idx < 0 {
		return ErrUnknownLayer
	}
	if n := lt.undefReferences(id); n > 0 {
		lt.log.Warn("broken link to undef layer",
			zap.Int("layer", id),
			zap.Int("references", n),
		)
		return ErrLayerReferenced
	}
	lt.layers = append(lt.layers[:idx], lt.layers[idx+1:]...)
	lt.touchTiling()
	lt.touchSetup()
	return nil
}

// UndefReferenceCount counts the layers other than id itself, plus the
// stack, that use id as undefined mask.
func (lt *LayeredTexture) UndefReferenceCount(id int) int {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	return lt.undefReferences(id)
}

func (lt *LayeredTexture) undefReferences(id int) int {
	n := 0
	for _, l := range lt.layers {
		if l.id != id && l.undefLayerID == id {
			n++
		}
	}
	if lt.stackUndefID == id {
		n++
	}
	return n
}

// DataLayerIDs lists layer ids in registration order.
func (lt *LayeredTexture) DataLayerIDs() []int {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	ids := make([]int, len(lt.layers))
	for k, l := range lt.layers {
		ids[k] = l.id
	}
	return ids
}

// DataLayerIndex returns the registration index of id, or -1.
func (lt *LayeredTexture) DataLayerIndex(id int) int {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	return lt.layerIndex(id)
}

// layerIndex relies on layers being sorted by id.
func (lt *LayeredTexture) layerIndex(id int) int {
	n := len(lt.layers)
	if id < n {
		n = id
	}
	for idx := n - 1; idx >= 0; idx-- {
		if lt.layers[idx].id == id {
			return idx
		}
	}
	return -1
}

func (lt *LayeredTexture) layer(id int) *layer {
	if idx := lt.layerIndex(id); idx >= 0 {
		return lt.layers[idx]
	}
	return nil
}

// SetDataLayerOrigin places a layer in global coordinates.
func (lt *LayeredTexture) SetDataLayerOrigin(id int, origin mgl32.Vec2) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if l := lt.layer(id); l != nil {
		l.origin = origin
		lt.touchTiling()
		lt.touchSetup()
	}
}

// SetDataLayerScale sets the global size of one texel. Negative x or
// non-positive y are ignored.
func (lt *LayeredTexture) SetDataLayerScale(id int, scale mgl32.Vec2) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if l := lt.layer(id); l != nil && scale[0] >= 0 && scale[1] > 0 {
		l.scale = scale
		lt.touchTiling()
		lt.touchSetup()
	}
}

// SetDataLayerImage sets or clears (nil) the source image of a layer. The
// image stays owned by the caller; call TouchDataLayerImage after
// modifying its pixels.
func (lt *LayeredTexture) SetDataLayerImage(id int, img image.Image) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if l := lt.layer(id); l != nil {
		lt.setImage(l, img)
	}
}

// TouchDataLayerImage re-derives a layer after its source pixels changed.
func (lt *LayeredTexture) TouchDataLayerImage(id int) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if l := lt.layer(id); l != nil && l.source != nil {
		lt.setImage(l, l.source)
		for _, dep := range lt.layers {
			if dep.undefLayerID == id {
				dep.clearTransparency()
			}
		}
	}
}

func (lt *LayeredTexture) setImage(l *layer, img image.Image) {
	if img == nil {
		l.source, l.tex = nil, nil
		l.imageScale = mgl32.Vec2{1, 1}
		l.clearTransparency()
		l.adaptColors()
		lt.touchTiling()
		lt.touchSetup()
		return
	}
	b := img.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 {
		lt.log.Warn("data layer image is empty", zap.Int("layer", l.id))
		return
	}
	w, h := TextureSize(b.Dx()), TextureSize(b.Dy())
	rescale := (w > b.Dx() || h > b.Dy()) && w*h <= lt.maxCopySize
	if rescale && l.id != lt.compositeID {
		l.tex = scaledTexImage(img, w, h)
		l.imageScale = mgl32.Vec2{float32(b.Dx()) / float32(w), float32(b.Dy()) / float32(h)}
	} else {
		l.tex = newTexImage(img)
		l.imageScale = mgl32.Vec2{1, 1}
	}
	l.source = img
	l.clearTransparency()
	l.adaptColors()
	if l.id == lt.compositeID {
		return
	}
	lt.touchTiling()
	lt.touchSetup()
}

// SetDataLayerFilterType selects nearest or linear sampling.
func (lt *LayeredTexture) SetDataLayerFilterType(id int, f FilterType) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if l := lt.layer(id); l != nil && l.filter != f {
		l.filter = f
		lt.touchSetup()
		if l.unit >= 0 {
			lt.touchRetile()
		}
	}
}

// SetDataLayerUndefLayerID makes undefID supply the undefined mask of id.
func (lt *LayeredTexture) SetDataLayerUndefLayerID(id, undefID int) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if l := lt.layer(id); l != nil && l.undefLayerID != undefID {
		l.undefLayerID = undefID
		lt.touchSetup()
		lt.touchRetile()
	}
}

// SetDataLayerUndefChannel selects the mask channel. A layer without mask
// layer becomes its own mask. Channels outside 0..3 are ignored.
func (lt *LayeredTexture) SetDataLayerUndefChannel(id, channel int) {
	if channel < 0 || channel > 3 {
		return
	}
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if l := lt.layer(id); l != nil {
		l.undefChannel = channel
		if l.undefLayerID < 0 {
			l.undefLayerID = id
			lt.touchRetile()
		}
		lt.touchSetup()
	}
}

// SetDataLayerUndefColor sets the colour undefined texels were
// blended with in the source. Negative components mean unset.
func (lt *LayeredTexture) SetDataLayerUndefColor(id int, col mgl32.Vec4) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if l := lt.layer(id); l != nil {
		for c := range col {
			switch {
			case col[c] < 0:
				l.undefColorSource[c] = -1
			case col[c] >= 1:
				l.undefColorSource[c] = 1
			default:
				l.undefColorSource[c] = col[c]
			}
		}
		l.adaptColors()
		lt.touchSetup()
	}
}

// SetDataLayerBorderColor sets the colour outside the image. Any negative
// component unsets the border, so sampling clamps to the edge instead.
func (lt *LayeredTexture) SetDataLayerBorderColor(id int, col mgl32.Vec4) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	l := lt.layer(id)
	if l == nil {
		return
	}
	l.borderColorSource = mgl32.Vec4{-1, -1, -1, -1}
	if col[0] >= 0 && col[1] >= 0 && col[2] >= 0 && col[3] >= 0 {
		for c := range col {
			l.borderColorSource[c] = min(col[c], 1)
		}
	}
	l.adaptColors()
	l.clearTransparency()
	lt.touchSetup()
	if l.unit >= 0 {
		lt.touchRetile()
	}
}

// SetDataLayerTextureUnit binds a layer to a texture unit; -1 unbinds.
func (lt *LayeredTexture) SetDataLayerTextureUnit(id, unit int) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if l := lt.layer(id); l != nil && l.unit != unit {
		l.unit = unit
		lt.touchRetile()
	}
}

// LayerInfo is a snapshot of one layer's settings.
type LayerInfo struct {
	ID           int
	Origin       mgl32.Vec2
	Scale        mgl32.Vec2
	Image        image.Image
	Size         image.Point
	Filter       FilterType
	TextureUnit  int
	UndefLayerID int
	UndefChannel int
	BorderColor  mgl32.Vec4
	UndefColor   mgl32.Vec4
}

// DataLayer returns a snapshot of layer id.
func (lt *LayeredTexture) DataLayer(id int) (LayerInfo, bool) {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	l := lt.layer(id)
	if l == nil {
		return LayerInfo{}, false
	}
	info := LayerInfo{
		ID:           l.id,
		Origin:       l.origin,
		Scale:        l.scale,
		Image:        l.source,
		Filter:       l.filter,
		TextureUnit:  l.unit,
		UndefLayerID: l.undefLayerID,
		UndefChannel: l.undefChannel,
		BorderColor:  l.borderColor,
		UndefColor:   l.undefColor,
	}
	if l.tex != nil {
		info.Size = image.Pt(l.tex.w, l.tex.h)
	}
	return info, true
}

// SetStackUndefLayerID selects the layer masking the whole stack; -1
// disables the stack mask.
func (lt *LayeredTexture) SetStackUndefLayerID(id int) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if lt.stackUndefID != id {
		lt.stackUndefID = id
		lt.touchSetup()
		lt.touchRetile()
	}
}

// SetStackUndefChannel selects the stack mask channel.
func (lt *LayeredTexture) SetStackUndefChannel(channel int) {
	if channel < 0 || channel > 3 {
		return
	}
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.stackUndefChannel = channel
	lt.touchSetup()
}

// SetStackUndefColor sets the colour shown where the stack mask is set.
func (lt *LayeredTexture) SetStackUndefColor(col mgl32.Vec4) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.stackUndefColor = clampColor(col)
	lt.touchSetup()
}

// StackUndef returns the stack mask layer, channel and colour.
func (lt *LayeredTexture) StackUndef() (id, channel int, col mgl32.Vec4) {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	return lt.stackUndefID, lt.stackUndefChannel, lt.stackUndefColor
}

// InvertUndefLayers treats mask value 1 as defined instead of undefined.
func (lt *LayeredTexture) InvertUndefLayers(yn bool) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if lt.invertUndef != yn {
		lt.invertUndef = yn
		lt.touchSetup()
	}
}

// DataLayerTextureVec samples layer id at a global coordinate. Unknown
// layers yield (-1,-1,-1,-1).
func (lt *LayeredTexture) DataLayerTextureVec(id int, global mgl32.Vec2) mgl32.Vec4 {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	return lt.textureVec(id, global)
}

func (lt *LayeredTexture) textureVec(id int, global mgl32.Vec2) mgl32.Vec4 {
	l := lt.layer(id)
	if l == nil {
		return mgl32.Vec4{-1, -1, -1, -1}
	}
	return l.textureVec(global)
}

// DataLayerTransparencyType classifies one channel of a layer, border
// colour included.
func (lt *LayeredTexture) DataLayerTransparencyType(id, channel int) TransparencyType {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	return lt.layerTransparency(id, channel)
}

func (lt *LayeredTexture) layerTransparency(id, channel int) TransparencyType {
	l := lt.layer(id)
	if l == nil || channel < 0 || channel > 3 || l.tex == nil {
		return FullyTransparent
	}
	tt := TransparencyType(l.transparency[channel].Load())
	if tt == TransparencyUnknown {
		tt = l.tex.transparency(channel)
		l.transparency[channel].Store(int32(tt))
	}
	return AddOpacity(tt, l.borderColor[channel])
}

func (lt *LayeredTexture) hasImage(id int) bool {
	l := lt.layer(id)
	return l != nil && l.tex != nil
}

func (lt *LayeredTexture) layerUnit(id int) int {
	if l := lt.layer(id); l != nil {
		return l.unit
	}
	return -1
}

func (lt *LayeredTexture) undefLayerOf(id int) int {
	if l := lt.layer(id); l != nil {
		return l.undefLayerID
	}
	return -1
}

func (lt *LayeredTexture) undefChannelOf(id int) int {
	if l := lt.layer(id); l != nil {
		return l.undefChannel
	}
	return -1
}

func (lt *LayeredTexture) undefColorOf(id int) mgl32.Vec4 {
	if l := lt.layer(id); l != nil {
		return l.undefColor
	}
	return mgl32.Vec4{-1, -1, -1, -1}
}

func clampUnit(v float32) float32 {
	return max(0, min(v, 1))
}

func clampColor(col mgl32.Vec4) mgl32.Vec4 {
	for c := range col {
		col[c] = max(0, min(col[c], 1))
	}
	return col
}
