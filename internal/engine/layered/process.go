package layered

import (
	"strconv"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/horizon3d/internal/engine/layered/glsl"
)

// Process is one compositing operation of the stack. Implementations are
// created by NewIdentityProcess, NewRGBAProcess and NewColTabProcess.
type Process interface {
	// DataLayerID returns the idx-th layer read by the process, or -1.
	DataLayerID(idx int) int
	TransparencyType(imageOnly bool) TransparencyType
	NeedsColorSequence() bool
	Opacity() float32
	SetOpacity(opacity float32)
	NewUndefColor() mgl32.Vec4
	SetNewUndefColor(col mgl32.Vec4)

	base() *processBase
	transparency(imageOnly bool) TransparencyType
	shaderCode(stage int) []glsl.Stmt
	// evaluate is the CPU counterpart of shaderCode. It reports whether it
	// wrote fragColor, which advances the stage.
	evaluate(fragColor *mgl32.Vec4, stage int, stackUdf float32, coord mgl32.Vec2) bool
}

// processBase holds the state shared by all process variants.
type processBase struct {
	lt          *LayeredTexture
	opacity     float32
	newUndef    mgl32.Vec4
	colSeqCoord float32
}

func newProcessBase(lt *LayeredTexture) processBase {
	return processBase{lt: lt, opacity: 1, newUndef: mgl32.Vec4{1, 1, 1, 1}}
}

func (p *processBase) base() *processBase { return p }

func (p *processBase) Opacity() float32 {
	p.lt.mu.RLock()
	defer p.lt.mu.RUnlock()
	return p.opacity
}

// SetOpacity clamps opacity to [0,1].
func (p *processBase) SetOpacity(opacity float32) {
	p.lt.mu.Lock()
	defer p.lt.mu.Unlock()
	p.opacity = max(0, min(opacity, 1))
	p.lt.touchSetup()
}

func (p *processBase) NewUndefColor() mgl32.Vec4 {
	p.lt.mu.RLock()
	defer p.lt.mu.RUnlock()
	return p.newUndef
}

// SetNewUndefColor sets the colour replacing undefined texels, clamped to
// [0,1].
func (p *processBase) SetNewUndefColor(col mgl32.Vec4) {
	p.lt.mu.Lock()
	defer p.lt.mu.Unlock()
	p.newUndef = clampColor(col)
	p.lt.touchSetup()
}

func (p *processBase) NeedsColorSequence() bool { return false }

// withUndef merges the new undefined colour and the opacity into a layer
// transparency.
func (p *processBase) withUndef(tt TransparencyType, undefID int) TransparencyType {
	if p.lt.hasImage(undefID) {
		tt = AddOpacity(tt, p.newUndef[3])
	}
	return MultiplyOpacity(tt, p.opacity)
}

// Shader locals of process().
var (
	col     = glsl.V("col")
	udfcol  = glsl.V("udfcol")
	texcrd  = glsl.V("texcrd")
	udf     = glsl.V("udf")
	oldudf  = glsl.V("oldudf")
	fa      = glsl.V("a")
	fb      = glsl.V("b")
	frag    = glsl.V("gl_FragColor")
	stackUd = glsl.V("stackudf")
)

func samplerName(unit int) string { return "texture" + strconv.Itoa(unit) }

func texCoord(unit int) glsl.Expr {
	return glsl.Sw(glsl.V("gl_TexCoord["+strconv.Itoa(unit)+"]"), "st")
}

// headerCode reads layer id into col (to < 0) or into col[to] from
// channel from, correcting for the layer's undefined mask. nrUdf counts
// the masks read so far by the process.
func (p *processBase) headerCode(id, to, from int, nrUdf *int) []glsl.Stmt {
	lt := p.lt
	unit := lt.layerUnit(id)
	udfID := lt.undefLayerOf(id)
	prior := *nrUdf

	dst := col
	value := glsl.Texture(samplerName(unit), texcrd)
	if to >= 0 {
		dst = glsl.At(col, to)
		value = glsl.At(value, from)
	}

	var body []glsl.Stmt
	if !lt.hasImage(udfID) {
		body = append(body,
			glsl.Set(texcrd, texCoord(unit)),
			glsl.Set(dst, value),
		)
	} else {
		if prior > 0 {
			body = append(body, glsl.Set(oldudf, udf))
		}
		udfUnit := lt.layerUnit(udfID)
		body = append(body,
			glsl.Set(texcrd, texCoord(udfUnit)),
			glsl.Set(udf, glsl.At(glsl.Texture(samplerName(udfUnit), texcrd), lt.undefChannelOf(id))),
		)
		if lt.invertUndef {
			body = append(body, glsl.Set(udf, glsl.Sub(glsl.F(1), udf)))
		}

		var inner []glsl.Stmt
		if udfID != id {
			inner = append(inner, glsl.Set(texcrd, texCoord(unit)))
		}
		inner = append(inner, glsl.Set(dst, value))

		udfColor := lt.undefColorOf(id)
		if to < 0 {
			sel := ""
			for c := range 4 {
				if udfColor[c] >= 0 {
					sel += "rgba"[c : c+1]
				}
			}
			if sel != "" {
				lhs, ucol := col, udfcol
				if len(sel) < 4 {
					lhs, ucol = glsl.Sw(col, sel), glsl.Sw(udfcol, sel)
				}
				inner = append(inner,
					glsl.Set(udfcol, glsl.Vec4(udfColor)),
					glsl.When(glsl.Gt(udf, glsl.F(0)), glsl.Set(lhs, glsl.Div(glsl.Sub(lhs, glsl.Mul(udf, ucol)), glsl.Sub(glsl.F(1), udf)))),
				)
			}
		} else if udfColor[from] >= 0 {
			inner = append(inner,
				glsl.When(glsl.Gt(udf, glsl.F(0)), glsl.Set(dst, glsl.Div(glsl.Sub(dst, glsl.Mul(glsl.F(udfColor[from]), udf)), glsl.Sub(glsl.F(1), udf)))),
			)
		}
		body = append(body, glsl.When(glsl.Lt(udf, glsl.F(1)), inner...))
		if prior > 0 {
			body = append(body, glsl.Set(udf, glsl.Fn("max", udf, oldudf)))
		}
		*nrUdf++
	}

	if prior > 0 {
		return []glsl.Stmt{glsl.When(glsl.Lt(udf, glsl.F(1)), body...)}
	}
	return body
}

// processHeader is the CPU counterpart of headerCode.
func (p *processBase) processHeader(c *mgl32.Vec4, udfOut *float32, coord mgl32.Vec2, id, to, from int) {
	if *udfOut >= 1 {
		return
	}
	lt := p.lt
	udfID := lt.undefLayerOf(id)
	if !lt.hasImage(udfID) {
		if to < 0 {
			*c = lt.textureVec(id, coord)
		} else {
			c[to] = lt.textureVec(id, coord)[from]
		}
		return
	}

	u := clampUnit(lt.textureVec(udfID, coord)[lt.undefChannelOf(id)])
	if lt.invertUndef {
		u = 1 - u
	}
	if u < 1 {
		udfColor := lt.undefColorOf(id)
		if to < 0 {
			*c = lt.textureVec(id, coord)
			for k := range 4 {
				if u > 0 && udfColor[k] >= 0 {
					c[k] = (c[k] - udfColor[k]*u) / (1 - u)
				}
			}
		} else {
			c[to] = lt.textureVec(id, coord)[from]
			if u > 0 && udfColor[from] >= 0 {
				c[to] = (c[to] - udfColor[from]*u) / (1 - u)
			}
		}
	}
	*udfOut = max(u, *udfOut)
}

// footerCode blends col with the new undefined colour and accumulates it
// into gl_FragColor.
func (p *processBase) footerCode(nrUdf, stage int) []glsl.Stmt {
	lt := p.lt
	var out []glsl.Stmt
	if nrUdf > 0 {
		out = append(out, glsl.Set(udfcol, glsl.Vec4(p.newUndef)))
		chain := glsl.When(glsl.Ge(udf, glsl.F(1)), glsl.Set(col, udfcol))
		var blend []glsl.Stmt
		threshold := glsl.F(0)
		if lt.hasImage(lt.stackUndefID) {
			threshold = stackUd
			blend = append(blend, glsl.Set(udf, glsl.Div(glsl.Sub(udf, stackUd), glsl.Sub(glsl.F(1), stackUd))))
		}
		blend = append(blend, undefBlendCode(col, p.newUndef[3])...)
		chain.ElseIf(glsl.Gt(udf, threshold), blend...)
		out = append(out, chain)
	}
	if p.opacity < 1 {
		out = append(out, glsl.MulSet(glsl.Sw(col, "a"), glsl.F(p.opacity)))
	}
	if stage == 0 {
		return append(out, glsl.Set(frag, col))
	}
	return append(out,
		glsl.Set(fa, glsl.Sw(frag, "a")),
		glsl.Set(fb, glsl.Mul(glsl.Sw(col, "a"), glsl.Sub(glsl.F(1), fa))),
		glsl.AddSet(glsl.Sw(frag, "a"), fb),
		glsl.When(glsl.Gt(glsl.Sw(frag, "a"), glsl.F(0)),
			glsl.Set(glsl.Sw(frag, "rgb"), glsl.Div(glsl.Add(glsl.Mul(fa, glsl.Sw(frag, "rgb")), glsl.Mul(fb, glsl.Sw(col, "rgb"))), glsl.Sw(frag, "a"))),
		),
	)
}

// undefBlendCode blends x towards udfcol by udf. The strategy depends on
// the alpha of the undefined colour and, at run time, on the alpha of x.
func undefBlendCode(x glsl.Expr, undefAlpha float32) []glsl.Stmt {
	xa := glsl.Sw(x, "a")
	premul := []glsl.Stmt{
		glsl.Set(fa, xa),
		glsl.Set(xa, glsl.Fn("mix", fa, glsl.Sw(udfcol, "a"), udf)),
		glsl.Set(glsl.Sw(x, "rgb"), glsl.Div(glsl.Fn("mix", glsl.Mul(fa, glsl.Sw(x, "rgb")), glsl.Mul(glsl.Sw(udfcol, "a"), glsl.Sw(udfcol, "rgb")), udf), xa)),
	}
	transparent := glsl.Set(x, glsl.Fn("vec4", glsl.Sw(udfcol, "rgb"), glsl.Mul(udf, glsl.Sw(udfcol, "a"))))

	switch {
	case undefAlpha <= 0:
		return []glsl.Stmt{glsl.MulSet(xa, glsl.Sub(glsl.F(1), udf))}
	case undefAlpha >= 1:
		s := glsl.When(glsl.Ge(xa, glsl.F(1)), glsl.Set(x, glsl.Fn("mix", x, udfcol, udf)))
		s.ElseIf(glsl.Gt(xa, glsl.F(0)), premul...).Otherwise(transparent)
		return []glsl.Stmt{s}
	default:
		return []glsl.Stmt{glsl.When(glsl.Gt(xa, glsl.F(0)), premul...).Otherwise(transparent)}
	}
}

// undefBlend is the CPU counterpart of undefBlendCode.
func undefBlend(c *mgl32.Vec4, undefCol mgl32.Vec4, u float32) {
	switch {
	case undefCol[3] <= 0:
		c[3] *= 1 - u
	case undefCol[3] >= 1 && c[3] >= 1:
		*c = c.Mul(1 - u).Add(undefCol.Mul(u))
	case c[3] > 0:
		a := c[3] * (1 - u)
		b := undefCol[3] * u
		sum := a + b
		*c = c.Mul(a).Add(undefCol.Mul(b)).Mul(1 / sum)
		c[3] = sum
	default:
		*c = undefCol
		c[3] *= u
	}
}

// processFooter is the CPU counterpart of footerCode. Stage 0 overwrites
// fragColor.
func (p *processBase) processFooter(fragColor *mgl32.Vec4, stage int, stackUdf float32, c mgl32.Vec4, u float32) {
	if u >= 1 {
		c = p.newUndef
	} else if u > stackUdf {
		u = (u - stackUdf) / (1 - stackUdf)
		undefBlend(&c, p.newUndef, u)
	}
	if p.opacity < 1 {
		c[3] *= p.opacity
	}
	if stage == 0 {
		*fragColor = c
		return
	}
	a := fragColor[3]
	b := c[3] * (1 - a)
	sum := a + b
	if sum > 0 {
		*fragColor = fragColor.Mul(a).Add(c.Mul(b)).Mul(1 / sum)
	}
	fragColor[3] = sum
}

// AddProcess appends p as the new front-most process.
func (lt *LayeredTexture) AddProcess(p Process) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.processes = append(lt.processes, p)
	lt.touchSetup()
}

// RemoveProcess drops p from the stack.
func (lt *LayeredTexture) RemoveProcess(p Process) bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	idx := lt.processIndex(p)
	if idx < 0 {
		return false
	}
	lt.processes = append(lt.processes[:idx], lt.processes[idx+1:]...)
	lt.touchSetup()
	return true
}

// MoveProcessEarlier swaps p with its predecessor, moving it towards the
// back of the stack.
func (lt *LayeredTexture) MoveProcessEarlier(p Process) bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	idx := lt.processIndex(p)
	if idx < 1 {
		return false
	}
	lt.processes[idx-1], lt.processes[idx] = lt.processes[idx], lt.processes[idx-1]
	lt.touchSetup()
	return true
}

// MoveProcessLater swaps p with its successor, moving it towards the
// front of the stack.
func (lt *LayeredTexture) MoveProcessLater(p Process) bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	idx := lt.processIndex(p)
	if idx < 0 || idx >= len(lt.processes)-1 {
		return false
	}
	lt.processes[idx+1], lt.processes[idx] = lt.processes[idx], lt.processes[idx+1]
	lt.touchSetup()
	return true
}

// Processes returns the stack back to front.
func (lt *LayeredTexture) Processes() []Process {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	return append([]Process(nil), lt.processes...)
}

func (lt *LayeredTexture) processIndex(p Process) int {
	for k, q := range lt.processes {
		if q == p {
			return k
		}
	}
	return -1
}
