// Package renderer uploads horizon tiles to OpenGL 2.1 and draws them with
// the program synthesized by the layered texture, or with the composite
// image when shaders are off.
package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/horizon3d/internal/engine/layered"
	"github.com/Faultbox/horizon3d/internal/engine/lighting"
	"github.com/Faultbox/horizon3d/internal/engine/shader"
	"github.com/Faultbox/horizon3d/internal/engine/tessellate"
	"github.com/Faultbox/horizon3d/internal/logger"
)

// Config holds renderer settings.
type Config struct {
	Width  int
	Height int
	// PointSize is the size of isolated samples.
	PointSize float32
}

// Stats describes the last frame.
type Stats struct {
	Level     int
	Tiles     int
	Triangles int
	Lines     int
	Points    int
}

// Renderer draws uploaded horizon geometry.
type Renderer struct {
	config Config
	log    *zap.Logger

	// tiles maps each uploaded result, by address in the horizon's level
	// slices, to its GL objects.
	tiles map[*tessellate.Result]*tile

	program     uint32
	programRev  uint64
	hasProgram  bool
	colorSeqTex uint32

	stats Stats
}

// New initializes GL. Call it after the context exists.
func New(cfg Config) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	if cfg.PointSize <= 0 {
		cfg.PointSize = 3
	}
	r := &Renderer{config: cfg, log: logger.Named("renderer")}

	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.String("glsl", gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	gl.ClearColor(0.1, 0.1, 0.15, 1.0)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.Viewport(0, 0, int32(cfg.Width), int32(cfg.Height))
	setupLights()
	return r, nil
}

// Close releases all GL objects.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	r.releaseGeometry()
	if r.hasProgram {
		gl.DeleteProgram(r.program)
	}
	if r.colorSeqTex != 0 {
		gl.DeleteTextures(1, &r.colorSeqTex)
	}
}

// Resize updates the viewport.
func (r *Renderer) Resize(width, height int) {
	r.config.Width, r.config.Height = width, height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized", zap.Int("width", width), zap.Int("height", height))
}

// Aspect is the viewport width over height.
func (r *Renderer) Aspect() float32 {
	if r.config.Height == 0 {
		return 1
	}
	return float32(r.config.Width) / float32(r.config.Height)
}

// Stats returns the counters of the last Draw.
func (r *Renderer) Stats() Stats { return r.stats }

// SetGeometry replaces the uploaded tiles with every level of levels.
// Draw accepts any level slice of the same levels.
func (r *Renderer) SetGeometry(levels tessellate.Levels) {
	r.releaseGeometry()
	r.tiles = make(map[*tessellate.Result]*tile)
	for _, results := range levels {
		for k := range results {
			if results[k].Empty() {
				continue
			}
			r.tiles[&results[k]] = uploadTile(&results[k])
		}
	}
	r.log.Debug("geometry uploaded", zap.Int("levels", len(levels)), zap.Int("tiles", len(r.tiles)))
}

func (r *Renderer) releaseGeometry() {
	for _, t := range r.tiles {
		t.release()
	}
	r.tiles = nil
}

// SetSetup compiles the program of a new texture setup. A setup whose
// revision is already compiled is ignored.
func (r *Renderer) SetSetup(setup layered.Setup) error {
	if r.hasProgram && setup.Revision == r.programRev {
		return nil
	}
	if r.hasProgram {
		gl.DeleteProgram(r.program)
		r.hasProgram = false
	}
	r.programRev = setup.Revision
	if r.colorSeqTex != 0 {
		gl.DeleteTextures(1, &r.colorSeqTex)
		r.colorSeqTex = 0
	}
	if !setup.UseShaders {
		return nil
	}

	program, err := shader.CompileProgram(setup.VertexSource, setup.FragmentSource)
	if err != nil {
		return fmt.Errorf("compile layered program: %w", err)
	}
	r.program, r.hasProgram = program, true
	gl.UseProgram(program)
	shader.BindSamplers(program, setup.Samplers)
	gl.UseProgram(0)

	if setup.ColorSequence != nil {
		b := setup.ColorSequence.Bounds()
		r.colorSeqTex = uploadTexture(layered.RGBA, b.Dx(), b.Dy(), setup.ColorSequence.Pix, layered.Nearest)
	}
	r.log.Debug("layered program compiled",
		zap.Uint64("revision", setup.Revision),
		zap.Ints("samplers", setup.Samplers),
	)
	return nil
}

// Draw renders the selected tiles, one level slice of the geometry last
// passed to SetGeometry. Results that were not uploaded are skipped.
func (r *Renderer) Draw(results []tessellate.Result, view, projection mgl32.Mat4, setup layered.Setup) {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	r.stats = Stats{Level: -1}
	if len(results) == 0 {
		return
	}
	r.stats.Level = results[0].Job.Level

	gl.MatrixMode(gl.PROJECTION)
	gl.LoadMatrixf(&projection[0])
	gl.MatrixMode(gl.MODELVIEW)
	gl.LoadMatrixf(&view[0])

	if setup.Opaque {
		gl.Disable(gl.BLEND)
	} else {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	}
	gl.PointSize(r.config.PointSize)

	if r.hasProgram {
		gl.UseProgram(r.program)
		if r.colorSeqTex != 0 {
			gl.ActiveTexture(gl.TEXTURE0)
			gl.BindTexture(gl.TEXTURE_2D, r.colorSeqTex)
		}
	} else {
		gl.UseProgram(0)
		gl.Enable(gl.LIGHTING)
	}

	for k := range results {
		t, ok := r.tiles[&results[k]]
		if !ok {
			continue
		}
		t.draw(!r.hasProgram)
		r.stats.Tiles++
		r.stats.Triangles += int(t.triangles) / 3
		r.stats.Lines += int(t.lines) / 2
		r.stats.Points += int(t.points)
	}

	gl.UseProgram(0)
	gl.Disable(gl.LIGHTING)
}

// setupLights loads the lighting rig in eye space.
func setupLights() {
	gl.MatrixMode(gl.MODELVIEW)
	gl.LoadIdentity()
	for k, l := range lighting.DefaultRig() {
		id := uint32(gl.LIGHT0 + k)
		pos := l.Direction.Vec4(0)
		gl.Lightfv(id, gl.POSITION, &pos[0])
		gl.Lightfv(id, gl.DIFFUSE, &l.Diffuse[0])
		gl.Lightfv(id, gl.SPECULAR, &l.Specular[0])
		gl.Lightfv(id, gl.AMBIENT, &l.Ambient[0])
		gl.Enable(id)
	}
	gl.LightModeli(gl.LIGHT_MODEL_TWO_SIDE, gl.TRUE)

	white := [4]float32{1, 1, 1, 1}
	gl.Materialfv(gl.FRONT_AND_BACK, gl.DIFFUSE, &white[0])
	gl.Materialfv(gl.FRONT_AND_BACK, gl.AMBIENT, &white[0])
	gl.Materialfv(gl.FRONT_AND_BACK, gl.SPECULAR, &white[0])
	gl.Materialf(gl.FRONT_AND_BACK, gl.SHININESS, 40)
}

// ReadPixels reads the framebuffer as RGBA rows, bottom row first.
func (r *Renderer) ReadPixels() ([]byte, int, int) {
	w, h := r.config.Width, r.config.Height
	pix := make([]byte, w*h*4)
	if len(pix) == 0 {
		return pix, w, h
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	return pix, w, h
}
