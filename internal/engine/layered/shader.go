package layered

import (
	"image"
	"slices"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/horizon3d/internal/engine/layered/glsl"
)

// colorSequenceID stands for the colour sequence texture among layer ids.
const colorSequenceID = 0

// Setup is the per-texture render state shared by all tiles.
type Setup struct {
	Revision   uint64
	UseShaders bool

	// Shader path.
	Vertex         *glsl.Program
	Fragment       *glsl.Program
	VertexSource   string
	FragmentSource string
	// Samplers lists the texture units bound to uniforms "textureN".
	Samplers      []int
	ColorSequence *image.NRGBA

	// CPU path.
	Composite *image.NRGBA

	// Opaque selects the opaque render bin; otherwise alpha blending is
	// required.
	Opaque bool
}

// processInfo is the outcome of walking the stack front to back.
type processInfo struct {
	// ids are the layers needing a texture unit, most important first.
	ids     []int
	nrProc  int
	opaque  bool
	dropped bool
}

func (lt *LayeredTexture) processInfo() processInfo {
	var info processInfo
	if lt.hasImage(lt.stackUndefID) {
		info.ids = append(info.ids, lt.stackUndefID)
	}
	for k := len(lt.processes) - 1; k >= 0; k-- {
		p := lt.processes[k]
		tt := p.transparency(false)
		if tt == FullyTransparent {
			info.nrProc++
			continue
		}

		var pushed []int
		push := func(id int) {
			if id < 0 || (id != colorSequenceID && !lt.hasImage(id)) {
				return
			}
			if !slices.Contains(info.ids, id) && !slices.Contains(pushed, id) {
				pushed = append(pushed, id)
			}
		}
		if p.NeedsColorSequence() {
			push(colorSequenceID)
		}
		for idx := range 4 {
			if id := p.DataLayerID(idx); id >= 0 {
				push(id)
				push(lt.undefLayerOf(id))
			}
		}

		if len(info.ids)+len(pushed) > lt.units {
			info.dropped = true
			break
		}
		info.ids = append(info.ids, pushed...)
		info.nrProc++
		if tt == Opaque {
			info.opaque = true
			break
		}
	}
	return info
}

// AssignTextureUnits binds the layers needed by the current stack to
// texture units. Unit 0 is kept for the colour sequence while other units
// are free. Without shaders only the composite layer is bound.
func (lt *LayeredTexture) AssignTextureUnits() {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	before := make(map[int]int, len(lt.layers))
	for _, l := range lt.layers {
		before[l.id] = l.unit
		l.unit = -1
	}
	if lt.useShaders {
		info := lt.processInfo()
		if info.dropped {
			lt.log.Warn("earliest process(es) dropped for lack of texture units",
				zap.Int("units", lt.units),
				zap.Int("processes", len(lt.processes)),
			)
		}
		unit := 0
		for _, id := range info.ids {
			if id == colorSequenceID {
				continue
			}
			unit++
			lt.layer(id).unit = unit % lt.units
		}
	} else if l := lt.layer(lt.compositeID); l != nil {
		l.unit = 0
	}

	changed := false
	for _, l := range lt.layers {
		if before[l.id] != l.unit {
			changed = true
		}
	}
	if changed {
		lt.touchRetile()
		lt.touchSetup()
	}
}

// UpdateSetup rebuilds the shader program or the composite image when the
// setup revision moved. ok is false when the shaders need texture units
// that are not assigned yet; RetilingRevision moves in that case.
func (lt *LayeredTexture) UpdateSetup() (setup Setup, ok bool) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	rev := lt.setupRev.Load()
	if lt.setupBuilt == rev {
		return lt.setup, true
	}

	if lt.useShaders {
		s, built := lt.buildShaders()
		if !built {
			return Setup{}, false
		}
		lt.setup = s
	} else {
		lt.setup = lt.createCompositeTexture()
	}
	lt.setup.Revision = rev
	lt.setupBuilt = rev
	return lt.setup, true
}

func (lt *LayeredTexture) buildShaders() (Setup, bool) {
	info := lt.processInfo()

	var units []int
	needColSeq := false
	for _, id := range info.ids {
		if id == colorSequenceID {
			needColSeq = true
			continue
		}
		unit := lt.layerUnit(id)
		if unit < 0 {
			lt.touchRetile()
			return Setup{}, false
		}
		units = append(units, unit)
	}
	if needColSeq && slices.Contains(units, 0) {
		lt.touchRetile()
		return Setup{}, false
	}

	s := Setup{UseShaders: true}
	s.Vertex = vertexProgram(units)
	if needColSeq {
		s.ColorSequence = lt.colorSequenceImage()
		units = append(units, 0)
	}
	s.Fragment = lt.fragmentProgram(units, info.nrProc)
	s.VertexSource = s.Vertex.Source()
	s.FragmentSource = s.Fragment.Source()
	s.Samplers = units

	opaque := info.opaque
	if lt.hasImage(lt.stackUndefID) && lt.stackUndefColor[3] < 1 {
		opaque = false
	}
	s.Opaque = opaque
	return s, true
}

// colorSequenceImage packs the colour table of every process into one row
// of a 256 wide texture and records each process's row coordinate.
func (lt *LayeredTexture) colorSequenceImage() *image.NRGBA {
	rows := max(1, TextureSize(len(lt.processes)))
	img := image.NewNRGBA(image.Rect(0, 0, 256, rows))
	for idx, p := range lt.processes {
		if ct, ok := p.(*ColTabProcess); ok && ct.seq != nil {
			for k, c := range ct.seq {
				img.SetNRGBA(k, idx, c)
			}
		}
		p.base().colSeqCoord = (float32(idx) + 0.5) / float32(rows)
	}
	return img
}

// vertexProgram is a two-light Phong approximation forwarding texture
// coordinates of the active units.
func vertexProgram(units []int) *glsl.Program {
	normal := glsl.V("fragNormal")
	diffuse, ambient, specular := glsl.V("diffuse"), glsl.V("ambient"), glsl.V("specular")
	zero := glsl.Vec4(mgl32.Vec4{})

	body := []glsl.Stmt{
		glsl.LocalInit("vec3", "fragNormal", glsl.Fn("normalize", glsl.Mul(glsl.V("gl_NormalMatrix"), glsl.V("gl_Normal")))),
		glsl.LocalInit("vec4", "diffuse", zero),
		glsl.LocalInit("vec4", "ambient", zero),
		glsl.LocalInit("vec4", "specular", zero),
		glsl.Local("vec3", "lightDir"),
		glsl.Local("float", "NdotL", "nDotHV", "pf"),
	}
	for light := range 2 {
		src := "gl_LightSource[" + strconv.Itoa(light) + "]"
		ndotl := glsl.V("NdotL")
		pf := glsl.V("pf")
		body = append(body,
			glsl.Set(glsl.V("lightDir"), glsl.Fn("normalize", glsl.Fn("vec3", glsl.V(src+".position")))),
			glsl.Set(ndotl, glsl.Fn("abs", glsl.Fn("dot", normal, glsl.V("lightDir")))),
			glsl.AddSet(diffuse, glsl.Mul(glsl.V(src+".diffuse"), ndotl)),
			glsl.AddSet(ambient, glsl.V(src+".ambient")),
			glsl.Set(pf, glsl.F(0)),
			glsl.When(glsl.Ne(ndotl, glsl.F(0)),
				glsl.Set(glsl.V("nDotHV"), glsl.Fn("abs", glsl.Fn("dot", normal, glsl.Fn("vec3", glsl.V(src+".halfVector"))))),
				glsl.Set(pf, glsl.Fn("pow", glsl.V("nDotHV"), glsl.V("gl_FrontMaterial.shininess"))),
			),
			glsl.AddSet(specular, glsl.Mul(glsl.V(src+".specular"), pf)),
		)
	}
	body = append(body,
		glsl.Set(glsl.V("gl_FrontColor"), glsl.Add(glsl.Add(glsl.Add(
			glsl.V("gl_FrontLightModelProduct.sceneColor"),
			glsl.Mul(ambient, glsl.V("gl_FrontMaterial.ambient"))),
			glsl.Mul(diffuse, glsl.V("gl_FrontMaterial.diffuse"))),
			glsl.Mul(specular, glsl.V("gl_FrontMaterial.specular")))),
		glsl.Set(glsl.V("gl_Position"), glsl.Fn("ftransform")),
	)
	for _, unit := range units {
		n := strconv.Itoa(unit)
		body = append(body, glsl.Set(
			glsl.V("gl_TexCoord["+n+"]"),
			glsl.Mul(glsl.V("gl_TextureMatrix["+n+"]"), glsl.V("gl_MultiTexCoord"+n)),
		))
	}
	return &glsl.Program{
		Version: 120,
		Funcs:   []*glsl.Func{{Ret: "void", Name: "main", Body: body}},
	}
}

// fragmentProgram composes the first nrProc processes, front to back.
func (lt *LayeredTexture) fragmentProgram(units []int, nrProc int) *glsl.Program {
	prog := &glsl.Program{Version: 120}
	for _, unit := range units {
		prog.Uniforms = append(prog.Uniforms, glsl.Uniform{Type: "sampler2D", Name: samplerName(unit)})
	}

	stackUdf := lt.hasImage(lt.stackUndefID)
	process := &glsl.Func{Ret: "void", Name: "process"}
	if stackUdf {
		process.Params = []glsl.Param{{Type: "float", Name: "stackudf"}}
	}
	process.Body = []glsl.Stmt{
		glsl.Local("vec4", "col", "udfcol"),
		glsl.Local("vec2", "texcrd"),
		glsl.Local("float", "a", "b", "udf", "oldudf"),
	}

	stage := 0
	for k := len(lt.processes) - 1; k >= 0 && nrProc > 0; k-- {
		nrProc--
		p := lt.processes[k]
		if p.transparency(false) == FullyTransparent {
			continue
		}
		code := p.shaderCode(stage)
		if len(code) == 0 {
			continue
		}
		if stage > 0 {
			process.Body = append(process.Body, glsl.When(glsl.Ge(glsl.Sw(frag, "a"), glsl.F(1)), glsl.Return{}))
		}
		process.Body = append(process.Body, code...)
		stage++
	}
	if stage == 0 {
		process.Body = append(process.Body, glsl.Set(frag, glsl.Vec4(mgl32.Vec4{1, 1, 1, 1})))
	}

	main := &glsl.Func{Ret: "void", Name: "main", Body: []glsl.Stmt{
		glsl.When(glsl.Le(glsl.V("gl_FrontMaterial.diffuse.a"), glsl.F(0)), glsl.Discard{}),
	}}
	if stackUdf {
		udfUnit := lt.layerUnit(lt.stackUndefID)
		main.Body = append(main.Body,
			glsl.Local("float", "a"),
			glsl.LocalInit("float", "udf", glsl.At(glsl.Texture(samplerName(udfUnit), texCoord(udfUnit)), lt.stackUndefChannel)),
			glsl.LocalInit("vec4", "udfcol", glsl.Vec4(lt.stackUndefColor)),
			glsl.When(glsl.Lt(udf, glsl.F(1)), glsl.CallStmt("process", udf)),
		)
		chain := glsl.When(glsl.Ge(udf, glsl.F(1)), glsl.Set(frag, udfcol))
		chain.ElseIf(glsl.Gt(udf, glsl.F(0)), undefBlendCode(frag, lt.stackUndefColor[3])...)
		main.Body = append(main.Body, chain)
	} else {
		main.Body = append(main.Body, glsl.CallStmt("process"))
	}
	main.Body = append(main.Body,
		glsl.MulSet(glsl.Sw(frag, "a"), glsl.V("gl_FrontMaterial.diffuse.a")),
		glsl.MulSet(glsl.Sw(frag, "rgb"), glsl.Sw(glsl.V("gl_Color"), "rgb")),
	)

	prog.Funcs = []*glsl.Func{process, main}
	return prog
}
