// Package formats loads elevation surfaces for horizons: GDAL rasters from
// disk and synthetic test surfaces.
package formats
