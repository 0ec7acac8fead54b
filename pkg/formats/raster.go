package formats

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lukeroth/gdal"

	"github.com/Faultbox/horizon3d/internal/engine/grid"
)

var (
	ErrNoBands   = errors.New("raster has no bands")
	ErrTooSmall  = errors.New("raster needs at least 2x2 pixels")
	ErrBadLayout = errors.New("pixel buffer does not match raster size")
)

// Raster is an elevation surface read from disk. Samples follow the grid
// layout: sample (i, j) is pixel column i, row j, stored at i*Height+j.
type Raster struct {
	Width   int
	Height  int
	Samples []float64
	Undef   float64
	Corners [3]mgl64.Vec2
}

// Grid wraps the raster samples without copying them.
func (r *Raster) Grid() (*grid.Grid, error) {
	return grid.New(r.Width, r.Height, r.Samples, r.Undef, r.Corners)
}

// LoadRaster reads band 1 of any GDAL-readable raster. NoData and NaN
// pixels become undefined samples; the geotransform places the grid.
func LoadRaster(path string) (*Raster, error) {
	ds, err := gdal.Open(path, gdal.ReadOnly)
	if err != nil {
		return nil, fmt.Errorf("open raster %s: %w", path, err)
	}
	defer ds.Close()

	if ds.RasterCount() < 1 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoBands)
	}
	xsize, ysize := ds.RasterXSize(), ds.RasterYSize()
	band := ds.RasterBand(1)

	buf := make([]float64, xsize*ysize)
	if err := band.IO(gdal.Read, 0, 0, xsize, ysize, buf, xsize, ysize, 0, 0); err != nil {
		return nil, fmt.Errorf("read raster %s: %w", path, err)
	}
	nodata, hasNoData := band.NoDataValue()

	r, err := fromPixels(xsize, ysize, buf, ds.GeoTransform(), nodata, hasNoData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// fromPixels transposes a row-major pixel buffer into grid order and maps
// pixel centres through the geotransform.
func fromPixels(xsize, ysize int, buf []float64, gt [6]float64, nodata float64, hasNoData bool) (*Raster, error) {
	if xsize < 2 || ysize < 2 {
		return nil, ErrTooSmall
	}
	if len(buf) != xsize*ysize {
		return nil, ErrBadLayout
	}

	r := &Raster{
		Width:   xsize,
		Height:  ysize,
		Samples: make([]float64, xsize*ysize),
		Undef:   grid.DefaultUndef,
	}
	for row := 0; row < ysize; row++ {
		for col := 0; col < xsize; col++ {
			v := buf[row*xsize+col]
			if math.IsNaN(v) || (hasNoData && v == nodata) || v >= r.Undef {
				v = r.Undef
			}
			r.Samples[col*ysize+row] = v
		}
	}

	geo := func(col, row int) mgl64.Vec2 {
		x, y := float64(col)+0.5, float64(row)+0.5
		return mgl64.Vec2{
			gt[0] + x*gt[1] + y*gt[2],
			gt[3] + x*gt[4] + y*gt[5],
		}
	}
	r.Corners = [3]mgl64.Vec2{geo(0, 0), geo(0, ysize-1), geo(xsize-1, 0)}
	return r, nil
}
