package scene

import (
	"errors"
	"image"
	"image/color"
	"io/fs"
	"path/filepath"
	"testing"

	"go.uber.org/multierr"

	"github.com/Faultbox/horizon3d/internal/config"
	"github.com/Faultbox/horizon3d/internal/engine/grid"
	"github.com/Faultbox/horizon3d/internal/engine/layered"
	"github.com/Faultbox/horizon3d/internal/engine/texture"
)

func TestBuildSynthetic(t *testing.T) {
	cfg := config.Default()
	cfg.Tessellation.TileSize = 64

	s, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s.Source != "synthetic" || s.Raster.Width != SyntheticSize {
		t.Fatalf("source %q width %d", s.Source, s.Raster.Width)
	}
	if !s.Horizon.OnUpdate() {
		t.Fatal("OnUpdate built nothing")
	}
	levels := s.Horizon.Levels()
	if len(levels) != 3 {
		t.Fatalf("levels = %d, want 3", len(levels))
	}
	if len(levels[0]) != 16 {
		t.Errorf("level 0 tiles = %d, want 16", len(levels[0]))
	}
	tris, lines, _ := levels.Count(0)
	if tris == 0 || lines == 0 {
		t.Errorf("triangles %d lines %d, want both", tris, lines)
	}
}

func TestBuildLayers(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for k := range img.Pix {
		img.Pix[k] = 200
	}
	img.SetNRGBA(3, 3, color.NRGBA{255, 0, 0, 255})
	path := filepath.Join(t.TempDir(), "overlay.png")
	if err := texture.Save(path, img); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Tessellation.TileSize = 128
	l := config.NewLayer(path)
	l.Filter = "nearest"
	l.Opacity = 0.5
	l.Scale = [2]float32{16, 16}
	cfg.Data.Layers = []config.LayerConfig{l}

	s, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(s.Layers) != 1 {
		t.Fatalf("layers = %d, want 1", len(s.Layers))
	}
	lt := s.Horizon.Texture()
	if got := len(lt.Processes()); got != 2 {
		t.Errorf("processes = %d, want 2", got)
	}
	info, ok := lt.DataLayer(s.Layers[0].ID)
	if !ok {
		t.Fatal("layer not registered")
	}
	if info.Filter != layered.Nearest || info.Scale != [2]float32{16, 16} {
		t.Errorf("layer info %+v", info)
	}
	if op := s.Layers[0].Process.Opacity(); op != 0.5 {
		t.Errorf("opacity = %v, want 0.5", op)
	}
}

func TestBuildMissingLayers(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Data.Layers = []config.LayerConfig{
		config.NewLayer(filepath.Join(dir, "a.png")),
		config.NewLayer(filepath.Join(dir, "b.tga")),
	}

	s, err := Build(cfg, nil)
	if s != nil || err == nil {
		t.Fatalf("Build = %v, %v, want an error", s, err)
	}
	if n := len(multierr.Errors(err)); n != 2 {
		t.Errorf("errors = %d, want 2: %v", n, err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want not-exist", err)
	}
}

func TestNames(t *testing.T) {
	if Ramp("gray") == nil || Ramp("anything") == nil {
		t.Fatal("nil ramp")
	}
	if got := Ramp("gray").At(1); got != grid.GrayRamp.At(1) {
		t.Errorf("gray ramp end = %v", got)
	}
	if Filter("nearest") != layered.Nearest || Filter("linear") != layered.Linear {
		t.Error("filter names not mapped")
	}
}
