// Package viewer runs the interactive horizon window.
package viewer

import (
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/horizon3d/internal/config"
	"github.com/Faultbox/horizon3d/internal/engine/camera"
	"github.com/Faultbox/horizon3d/internal/engine/debug"
	"github.com/Faultbox/horizon3d/internal/engine/input"
	"github.com/Faultbox/horizon3d/internal/engine/renderer"
	"github.com/Faultbox/horizon3d/internal/engine/scene"
	"github.com/Faultbox/horizon3d/internal/engine/tessellate"
	"github.com/Faultbox/horizon3d/internal/engine/window"
	"github.com/Faultbox/horizon3d/internal/logger"
)

// Viewer owns the window and draws one scene.
type Viewer struct {
	cfg     *config.Config
	scene   *scene.Scene
	log     *zap.Logger
	running bool

	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	camera   *camera.OrbitCamera
	capture  *debug.Capture

	// forcedLevel overrides distance-based LOD selection when >= 0.
	forcedLevel int
	fitted      bool
}

// New opens the window for sc.
func New(cfg *config.Config, sc *scene.Scene) (*Viewer, error) {
	v := &Viewer{
		cfg:         cfg,
		scene:       sc,
		log:         logger.Named("viewer"),
		input:       input.New(),
		camera:      camera.NewOrbitCamera(),
		capture:     debug.NewCapture("screenshots", "horizon", ".png"),
		forcedLevel: -1,
	}

	var err error
	v.window, err = window.New(window.Config{
		Title:      "Horizon3D - " + sc.Source,
		Width:      cfg.Viewer.Width,
		Height:     cfg.Viewer.Height,
		Fullscreen: cfg.Viewer.Fullscreen,
		VSync:      cfg.Viewer.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// The renderer needs the GL context created by the window.
	w, h := v.window.Size()
	v.renderer, err = renderer.New(renderer.Config{Width: w, Height: h})
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	return v, nil
}

// Run drives the frame loop until the window closes.
func (v *Viewer) Run() error {
	v.running = true
	frames := 0
	statsTimer := time.Now()
	var frameBudget time.Duration
	if v.cfg.Viewer.FPSLimit > 0 {
		frameBudget = time.Second / time.Duration(v.cfg.Viewer.FPSLimit)
	}

	v.log.Info("starting frame loop")
	for v.running {
		start := time.Now()
		if v.input.Update() {
			break
		}
		v.handleEvents()

		if err := v.update(); err != nil {
			return fmt.Errorf("update error: %w", err)
		}
		v.render()
		v.window.SwapBuffers()

		frames++
		if time.Since(statsTimer) >= time.Second {
			st := v.renderer.Stats()
			v.window.SetTitle(fmt.Sprintf("Horizon3D - %s | level %d | %d tris | %d fps",
				v.scene.Source, st.Level, st.Triangles, frames))
			frames = 0
			statsTimer = time.Now()
		}
		if frameBudget > 0 {
			if rest := frameBudget - time.Since(start); rest > 0 {
				time.Sleep(rest)
			}
		}
	}
	return nil
}

func (v *Viewer) handleEvents() {
	lt := v.scene.Horizon.Texture()
	for _, e := range v.input.Events() {
		switch e.Type {
		case input.EventQuit:
			v.running = false
		case input.EventResize:
			w, h := v.window.Size()
			v.renderer.Resize(w, h)
		case input.EventDrag:
			v.camera.HandleDrag(e.DX, e.DY)
		case input.EventZoom:
			v.camera.HandleZoom(e.DY)
		case input.EventKeyDown:
			switch e.Key {
			case sdl.SCANCODE_S:
				lt.SetUseShaders(!lt.UseShaders())
				v.log.Info("shader path toggled", zap.Bool("shaders", lt.UseShaders()))
			case sdl.SCANCODE_L:
				v.forcedLevel++
				if v.forcedLevel >= len(v.scene.Horizon.Levels()) {
					v.forcedLevel = -1
				}
				v.log.Info("level override", zap.Int("level", v.forcedLevel))
			case sdl.SCANCODE_F:
				v.fitted = false
			case sdl.SCANCODE_F12:
				v.screenshot()
			}
		}
	}
}

func (v *Viewer) update() error {
	h := v.scene.Horizon
	if h.OnUpdate() {
		v.renderer.SetGeometry(h.Levels())
	}
	if !v.fitted {
		if center, radius := h.Bound(); radius > 0 {
			v.camera.FitToSphere(center, radius)
			v.fitted = true
		}
	}
	return v.renderer.SetSetup(h.Setup())
}

func (v *Viewer) render() {
	h := v.scene.Horizon
	center, radius := h.Bound()
	var tiles []tessellate.Result
	if v.forcedLevel >= 0 {
		if levels := h.Levels(); len(levels) > 0 {
			tiles = levels[min(v.forcedLevel, len(levels)-1)]
		}
	} else {
		tiles = h.OnSelectGeometry(float64(v.camera.DistanceTo(center)))
	}
	v.renderer.Draw(tiles, v.camera.ViewMatrix(), v.camera.ProjectionMatrix(v.renderer.Aspect(), radius), h.Setup())
}

func (v *Viewer) screenshot() {
	pix, w, h := v.renderer.ReadPixels()
	name, err := v.capture.SavePixels(pix, w, h)
	if err != nil {
		v.log.Warn("screenshot failed", zap.Error(err))
		return
	}
	v.log.Info("screenshot saved", zap.String("file", name))
}

// Close releases GL and window resources.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")
	if v.renderer != nil {
		v.renderer.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
}
