package layered

import (
	"image/color"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/horizon3d/internal/engine/layered/glsl"
)

// IdentityProcess shows one layer as it is.
type IdentityProcess struct {
	processBase
	id int
}

// NewIdentityProcess creates a process showing layer id. It is not part of
// the stack until passed to AddProcess.
func NewIdentityProcess(lt *LayeredTexture, id int) *IdentityProcess {
	return &IdentityProcess{processBase: newProcessBase(lt), id: id}
}

func (p *IdentityProcess) DataLayerID(idx int) int {
	if idx != 0 {
		return -1
	}
	return p.id
}

func (p *IdentityProcess) TransparencyType(imageOnly bool) TransparencyType {
	p.lt.mu.RLock()
	defer p.lt.mu.RUnlock()
	return p.transparency(imageOnly)
}

func (p *IdentityProcess) transparency(imageOnly bool) TransparencyType {
	tt := p.lt.layerTransparency(p.id, 3)
	if imageOnly {
		return tt
	}
	return p.withUndef(tt, p.lt.undefLayerOf(p.id))
}

func (p *IdentityProcess) shaderCode(stage int) []glsl.Stmt {
	if !p.lt.hasImage(p.id) {
		return nil
	}
	nrUdf := 0
	code := p.headerCode(p.id, -1, -1, &nrUdf)
	return append(code, p.footerCode(nrUdf, stage)...)
}

func (p *IdentityProcess) evaluate(fragColor *mgl32.Vec4, stage int, stackUdf float32, coord mgl32.Vec2) bool {
	if !p.lt.hasImage(p.id) {
		return false
	}
	var c mgl32.Vec4
	var u float32
	p.processHeader(&c, &u, coord, p.id, -1, -1)
	p.processFooter(fragColor, stage, stackUdf, c, u)
	return true
}

// RGBAProcess assembles a colour from four independent layer channels.
type RGBAProcess struct {
	processBase
	ids      [4]int
	channels [4]int
	on       [4]bool
}

// NewRGBAProcess creates a process without sources; all channels are on.
func NewRGBAProcess(lt *LayeredTexture) *RGBAProcess {
	return &RGBAProcess{
		processBase: newProcessBase(lt),
		ids:         [4]int{-1, -1, -1, -1},
		on:          [4]bool{true, true, true, true},
	}
}

// SetDataLayerID makes output channel idx read channel of layer id.
// Channels outside 0..3 select channel 0.
func (p *RGBAProcess) SetDataLayerID(idx, id, channel int) {
	if idx < 0 || idx > 3 {
		return
	}
	if channel < 0 || channel > 3 {
		channel = 0
	}
	p.lt.mu.Lock()
	defer p.lt.mu.Unlock()
	p.ids[idx] = id
	p.channels[idx] = channel
	p.lt.touchSetup()
}

func (p *RGBAProcess) DataLayerID(idx int) int {
	if idx < 0 || idx > 3 {
		return -1
	}
	return p.ids[idx]
}

// DataLayerTextureChannel returns the source channel of output idx.
func (p *RGBAProcess) DataLayerTextureChannel(idx int) int {
	if idx < 0 || idx > 3 {
		return -1
	}
	return p.channels[idx]
}

// TurnOn enables or disables output channel idx.
func (p *RGBAProcess) TurnOn(idx int, yn bool) {
	if idx < 0 || idx > 3 {
		return
	}
	p.lt.mu.Lock()
	defer p.lt.mu.Unlock()
	p.on[idx] = yn
	p.lt.touchSetup()
}

func (p *RGBAProcess) IsOn(idx int) bool {
	return idx >= 0 && idx < 4 && p.on[idx]
}

func (p *RGBAProcess) TransparencyType(imageOnly bool) TransparencyType {
	p.lt.mu.RLock()
	defer p.lt.mu.RUnlock()
	return p.transparency(imageOnly)
}

func (p *RGBAProcess) transparency(imageOnly bool) TransparencyType {
	lt := p.lt
	if !p.on[3] || !lt.hasImage(p.ids[3]) {
		if imageOnly {
			return Opaque
		}
		return MultiplyOpacity(Opaque, p.opacity)
	}
	tt := lt.layerTransparency(p.ids[3], p.channels[3])
	if imageOnly {
		return tt
	}
	for idx := range 4 {
		if p.on[idx] && lt.hasImage(lt.undefLayerOf(p.ids[idx])) {
			tt = AddOpacity(tt, p.newUndef[3])
			break
		}
	}
	return MultiplyOpacity(tt, p.opacity)
}

func (p *RGBAProcess) shaderCode(stage int) []glsl.Stmt {
	code := []glsl.Stmt{glsl.Set(col, glsl.Vec4(mgl32.Vec4{0, 0, 0, 1}))}
	nrUdf := 0
	for idx := range 4 {
		if p.on[idx] && p.lt.hasImage(p.ids[idx]) {
			code = append(code, p.headerCode(p.ids[idx], idx, p.channels[idx], &nrUdf)...)
		}
	}
	return append(code, p.footerCode(nrUdf, stage)...)
}

func (p *RGBAProcess) evaluate(fragColor *mgl32.Vec4, stage int, stackUdf float32, coord mgl32.Vec2) bool {
	c := mgl32.Vec4{0, 0, 0, 1}
	var u float32
	for idx := range 4 {
		if p.on[idx] && p.lt.hasImage(p.ids[idx]) {
			p.processHeader(&c, &u, coord, p.ids[idx], idx, p.channels[idx])
		}
	}
	p.processFooter(fragColor, stage, stackUdf, c, u)
	return true
}

// ColorSequence is a 256-entry colour table.
type ColorSequence [256]color.NRGBA

// NewColorSequence samples at over [0,1].
func NewColorSequence(at func(t float64) color.NRGBA) *ColorSequence {
	var seq ColorSequence
	for k := range seq {
		seq[k] = at(float64(k) / 255)
	}
	return &seq
}

// TransparencyType classifies the alpha values of the table.
func (s *ColorSequence) TransparencyType() TransparencyType {
	var transparent, partial, opaque bool
	for _, c := range s {
		switch c.A {
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
	return bytewiseTransparency(transparent, opaque)
}

// ColTabProcess maps one layer channel through a colour table.
type ColTabProcess struct {
	processBase
	id      int
	channel int
	seq     *ColorSequence
}

// NewColTabProcess creates a process without source or colour table.
func NewColTabProcess(lt *LayeredTexture) *ColTabProcess {
	return &ColTabProcess{processBase: newProcessBase(lt), id: -1}
}

// SetDataLayerID selects the source layer channel. Channels outside 0..3
// select channel 0.
func (p *ColTabProcess) SetDataLayerID(id, channel int) {
	if channel < 0 || channel > 3 {
		channel = 0
	}
	p.lt.mu.Lock()
	defer p.lt.mu.Unlock()
	p.id = id
	p.channel = channel
	p.lt.touchSetup()
}

func (p *ColTabProcess) DataLayerID(idx int) int {
	if idx != 0 {
		return -1
	}
	return p.id
}

// DataLayerTextureChannel returns the source channel.
func (p *ColTabProcess) DataLayerTextureChannel() int { return p.channel }

// SetColorSequence installs a copy of seq; nil removes the table.
func (p *ColTabProcess) SetColorSequence(seq *ColorSequence) {
	p.lt.mu.Lock()
	defer p.lt.mu.Unlock()
	if seq == nil {
		p.seq = nil
	} else {
		cp := *seq
		p.seq = &cp
	}
	p.lt.touchSetup()
}

func (p *ColTabProcess) NeedsColorSequence() bool { return true }

func (p *ColTabProcess) TransparencyType(imageOnly bool) TransparencyType {
	p.lt.mu.RLock()
	defer p.lt.mu.RUnlock()
	return p.transparency(imageOnly)
}

func (p *ColTabProcess) transparency(imageOnly bool) TransparencyType {
	if p.seq == nil || !p.lt.hasImage(p.id) {
		return FullyTransparent
	}
	tt := p.seq.TransparencyType()
	if imageOnly {
		return tt
	}
	return p.withUndef(tt, p.lt.undefLayerOf(p.id))
}

func (p *ColTabProcess) shaderCode(stage int) []glsl.Stmt {
	if !p.lt.hasImage(p.id) {
		return nil
	}
	nrUdf := 0
	code := p.headerCode(p.id, 0, p.channel, &nrUdf)
	code = append(code,
		glsl.Set(texcrd, glsl.Fn("vec2",
			glsl.Add(glsl.Mul(glsl.F(0.996093), glsl.At(col, 0)), glsl.F(0.001953)),
			glsl.F(p.colSeqCoord),
		)),
		glsl.Set(col, glsl.Texture(samplerName(0), texcrd)),
	)
	return append(code, p.footerCode(nrUdf, stage)...)
}

func (p *ColTabProcess) evaluate(fragColor *mgl32.Vec4, stage int, stackUdf float32, coord mgl32.Vec2) bool {
	if p.seq == nil || !p.lt.hasImage(p.id) {
		return false
	}
	var c mgl32.Vec4
	var u float32
	p.processHeader(&c, &u, coord, p.id, 0, p.channel)
	val := int(math32.Floor(255*c[0] + 0.5))
	entry := p.seq[max(0, min(val, 255))]
	c = mgl32.Vec4{
		float32(entry.R) / 255,
		float32(entry.G) / 255,
		float32(entry.B) / 255,
		float32(entry.A) / 255,
	}
	p.processFooter(fragColor, stage, stackUdf, c, u)
	return true
}
