// Package scene assembles a horizon from configuration: the elevation
// raster, the texture options and the image layers draped over it.
package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/horizon3d/internal/config"
	"github.com/Faultbox/horizon3d/internal/engine/grid"
	"github.com/Faultbox/horizon3d/internal/engine/horizon"
	"github.com/Faultbox/horizon3d/internal/engine/layered"
	"github.com/Faultbox/horizon3d/internal/engine/texture"
	"github.com/Faultbox/horizon3d/pkg/formats"
)

// Synthetic surface used when no grid is configured.
const (
	SyntheticSize = 256
	SyntheticSeed = 1
)

// Layer is an image layer loaded from the configuration.
type Layer struct {
	ID      int
	Path    string
	Process *layered.IdentityProcess
}

// Scene is a configured horizon.
type Scene struct {
	Horizon *horizon.Horizon
	Raster  *formats.Raster
	Layers  []Layer
	// Source names the elevation input.
	Source string
}

// Build loads the grid and every layer. Layer failures are collected and
// returned together; no scene is returned in that case.
func Build(cfg *config.Config, log *zap.Logger) (*Scene, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scene{Source: cfg.Data.Grid}
	if cfg.Data.Grid == "" {
		s.Raster = formats.Synthetic(SyntheticSize, SyntheticSize, SyntheticSeed)
		s.Source = "synthetic"
	} else {
		r, err := formats.LoadRaster(cfg.Data.Grid)
		if err != nil {
			return nil, err
		}
		s.Raster = r
	}

	lt := layered.New(
		layered.WithLogger(log),
		layered.WithTextureUnits(cfg.Texture.Units),
		layered.WithMaxTextureCopySize(cfg.Texture.MaxCopySize),
		layered.WithShaders(cfg.Texture.UseShaders),
	)
	t := cfg.Tessellation
	h := horizon.New(
		horizon.WithLogger(log),
		horizon.WithTexture(lt),
		horizon.WithScheduler(t.TileSize, t.Levels, t.Workers),
		horizon.WithLODFactors(cfg.Horizon.NearFactor, cfg.Horizon.FarFactor),
	)
	h.SetSize(s.Raster.Width, s.Raster.Height)
	h.SetCornerCoords(s.Raster.Corners)
	h.SetUndefThreshold(min(s.Raster.Undef, cfg.Horizon.Undef))
	h.SetColorRamp(Ramp(cfg.Horizon.Ramp))
	h.SetDepthArray(s.Raster.Samples)
	s.Horizon = h

	var errs error
	for _, lc := range cfg.Data.Layers {
		l, err := addLayer(lt, lc)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		s.Layers = append(s.Layers, l)
	}
	if errs != nil {
		return nil, errs
	}

	log.Info("scene built",
		zap.String("grid", s.Source),
		zap.Int("width", s.Raster.Width),
		zap.Int("height", s.Raster.Height),
		zap.Int("layers", len(s.Layers)),
	)
	return s, nil
}

func addLayer(lt *layered.LayeredTexture, lc config.LayerConfig) (Layer, error) {
	img, err := texture.Load(lc.Path)
	if err != nil {
		return Layer{}, fmt.Errorf("layer %s: %w", lc.Path, err)
	}
	id := lt.AddDataLayer()
	lt.SetDataLayerImage(id, img)
	lt.SetDataLayerOrigin(id, mgl32.Vec2(lc.Origin))
	lt.SetDataLayerScale(id, mgl32.Vec2(lc.Scale))
	lt.SetDataLayerFilterType(id, Filter(lc.Filter))

	p := layered.NewIdentityProcess(lt, id)
	p.SetOpacity(lc.Opacity)
	lt.AddProcess(p)
	return Layer{ID: id, Path: lc.Path, Process: p}, nil
}

// Ramp maps a configured ramp name onto a palette.
func Ramp(name string) grid.Ramp {
	if name == "gray" {
		return grid.GrayRamp
	}
	return grid.SeismicRamp
}

// Filter maps a configured filter name onto a filter type.
func Filter(name string) layered.FilterType {
	if name == "nearest" {
		return layered.Nearest
	}
	return layered.Linear
}
