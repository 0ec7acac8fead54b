package config

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

var (
	ErrTileSize = errors.New("tessellation.tile_size must be at least 2")
	ErrLevels   = errors.New("tessellation.levels must be between 1 and 8")
	ErrUnits    = errors.New("texture.units must be at least 2")
	ErrLOD      = errors.New("horizon.lod_near must be positive and not above lod_far")
)

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	if c.Tessellation.TileSize < 2 {
		err = multierr.Append(err, ErrTileSize)
	}
	if c.Tessellation.Levels < 1 || c.Tessellation.Levels > 8 {
		err = multierr.Append(err, ErrLevels)
	}
	if c.Tessellation.Workers < 0 {
		err = multierr.Append(err, fmt.Errorf("tessellation.workers: %d is negative", c.Tessellation.Workers))
	}
	if c.Texture.Units < 2 {
		err = multierr.Append(err, ErrUnits)
	}
	if c.Horizon.NearFactor <= 0 || c.Horizon.FarFactor < c.Horizon.NearFactor {
		err = multierr.Append(err, ErrLOD)
	}
	switch c.Horizon.Ramp {
	case "seismic", "gray":
	default:
		err = multierr.Append(err, fmt.Errorf("horizon.ramp: unknown ramp %q", c.Horizon.Ramp))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	for k, l := range c.Data.Layers {
		if l.Path == "" {
			err = multierr.Append(err, fmt.Errorf("data.layers[%d]: path is empty", k))
		}
		if l.Scale[0] <= 0 || l.Scale[1] <= 0 {
			err = multierr.Append(err, fmt.Errorf("data.layers[%d]: scale %v must be positive", k, l.Scale))
		}
		if l.Filter != "linear" && l.Filter != "nearest" {
			err = multierr.Append(err, fmt.Errorf("data.layers[%d]: unknown filter %q", k, l.Filter))
		}
		if l.Opacity < 0 || l.Opacity > 1 {
			err = multierr.Append(err, fmt.Errorf("data.layers[%d]: opacity %v outside [0,1]", k, l.Opacity))
		}
	}
	return err
}
