// horizontool inspects horizon grids and the layered texture built over
// them without opening a window.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Faultbox/horizon3d/internal/config"
	"github.com/Faultbox/horizon3d/internal/engine/scene"
	"github.com/Faultbox/horizon3d/internal/engine/texture"
	"github.com/Faultbox/horizon3d/internal/logger"
)

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}
	command, args := args[0], args[1:]
	switch command {
	case "info":
		return cmdInfo(args, out)
	case "tessellate", "tess":
		return cmdTessellate(args, out)
	case "shader":
		return cmdShader(args, out)
	case "composite":
		return cmdComposite(args, out)
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", command, errUsage)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `horizontool - horizon grid and layered texture utility

Usage:
  horizontool <command> [options]

Commands:
  info        Show grid size, range and undefined samples
  tessellate  Tessellate every level and report counts
  shader      Print the synthesized vertex and fragment programs
  composite   Write the CPU composite of the layer stack

Common options:
  -config <file>   Config file (defaults otherwise)
  -grid <file>     Elevation raster (synthetic surface when empty)
  -layer <file>    Image layer, repeatable
  -debug           Log to stderr at debug level

Examples:
  horizontool info -grid depth.tif
  horizontool tessellate -tile 128 -distance 5000
  horizontool shader -layer overlay.png
  horizontool composite -layer overlay.png -o composite.png`)
}

// layerList collects repeated -layer values.
type layerList []string

func (l *layerList) String() string { return strings.Join(*l, ",") }

func (l *layerList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// common holds the options shared by every command.
type common struct {
	config string
	grid   string
	layers layerList
	debug  bool
}

func newFlagSet(name string, c *common) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&c.config, "config", "", "Config file")
	fs.StringVar(&c.grid, "grid", "", "Elevation raster")
	fs.Var(&c.layers, "layer", "Image layer (repeatable)")
	fs.BoolVar(&c.debug, "debug", false, "Debug logging")
	return fs
}

// load builds the scene described by the options. edit adjusts the config
// before the scene is built.
func (c *common) load(edit func(*config.Config)) (*scene.Scene, error) {
	cfg := config.Default()
	if c.config != "" {
		var err error
		if cfg, err = config.LoadFile(c.config); err != nil {
			return nil, err
		}
	}
	if c.grid != "" {
		cfg.Data.Grid = c.grid
	}
	for _, path := range c.layers {
		cfg.Data.Layers = append(cfg.Data.Layers, config.NewLayer(path))
	}
	if edit != nil {
		edit(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := zap.NewNop()
	if c.debug {
		log = logger.New("debug", logger.FileConfig{}, true)
	}
	return scene.Build(cfg, log)
}

func printer() *message.Printer {
	return message.NewPrinter(language.English)
}

func cmdInfo(args []string, out io.Writer) error {
	var c common
	fs := newFlagSet("info", &c)
	if err := fs.Parse(args); err != nil {
		return err
	}
	sc, err := c.load(nil)
	if err != nil {
		return err
	}
	sc.Horizon.OnUpdate()
	g := sc.Horizon.Grid()
	if g == nil {
		return errors.New("grid rejected, see the log with -debug")
	}

	p := printer()
	p.Fprintf(out, "Grid:      %s\n", sc.Source)
	p.Fprintf(out, "Size:      %d x %d\n", g.Width, g.Height)
	p.Fprintf(out, "Samples:   %d\n", g.Width*g.Height)
	p.Fprintf(out, "Undefined: %d\n", g.UndefCount())
	if lo, hi, ok := g.Range(); ok {
		p.Fprintf(out, "Range:     %.2f .. %.2f\n", lo, hi)
	}
	p.Fprintf(out, "Cell size: %.3f\n", g.CellSize())
	near, far := sc.Horizon.Thresholds()
	p.Fprintf(out, "LOD:       %.0f / %.0f\n", near, far)
	p.Fprintf(out, "Layers:    %d\n", len(sc.Layers))
	return nil
}

func cmdTessellate(args []string, out io.Writer) error {
	var c common
	fs := newFlagSet("tessellate", &c)
	tileSize := fs.Int("tile", 0, "Tile size in samples")
	levels := fs.Int("levels", 0, "Number of LOD levels")
	workers := fs.Int("workers", 0, "Worker count (0 = one per CPU)")
	distance := fs.Float64("distance", -1, "Report the tiles selected at this viewer distance")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sc, err := c.load(func(cfg *config.Config) {
		if *tileSize > 0 {
			cfg.Tessellation.TileSize = *tileSize
		}
		if *levels > 0 {
			cfg.Tessellation.Levels = *levels
		}
		cfg.Tessellation.Workers = *workers
	})
	if err != nil {
		return err
	}

	start := time.Now()
	sc.Horizon.OnUpdate()
	elapsed := time.Since(start)

	p := printer()
	all := sc.Horizon.Levels()
	for l := range all {
		tris, lines, points := all.Count(l)
		p.Fprintf(out, "Level %d: %d tiles, %d triangles, %d lines, %d points\n",
			l, len(all[l]), tris, lines, points)
	}
	p.Fprintf(out, "Built in %v\n", elapsed.Round(time.Millisecond))

	if *distance >= 0 {
		tiles := sc.Horizon.OnSelectGeometry(*distance)
		tris := 0
		for k := range tiles {
			tris += tiles[k].TriangleCount()
		}
		p.Fprintf(out, "At distance %.0f: level %d, %d tiles, %d triangles\n",
			*distance, sc.Horizon.LevelForDistance(*distance), len(tiles), tris)
	}
	return nil
}

func cmdShader(args []string, out io.Writer) error {
	var c common
	fs := newFlagSet("shader", &c)
	vertex := fs.Bool("vertex", false, "Print the vertex program too")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sc, err := c.load(func(cfg *config.Config) { cfg.Texture.UseShaders = true })
	if err != nil {
		return err
	}
	sc.Horizon.OnUpdate()
	s := sc.Horizon.Setup()
	if !s.UseShaders || s.Fragment == nil {
		return errors.New("no shader program, texture units are not assigned")
	}

	p := printer()
	p.Fprintf(out, "// samplers %v, opaque %v\n", s.Samplers, s.Opaque)
	if *vertex {
		fmt.Fprintln(out, s.VertexSource)
	}
	fmt.Fprintln(out, s.FragmentSource)
	return nil
}

func cmdComposite(args []string, out io.Writer) error {
	var c common
	fs := newFlagSet("composite", &c)
	output := fs.String("o", "composite.png", "Output image (.png, .tiff or .bmp)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sc, err := c.load(func(cfg *config.Config) { cfg.Texture.UseShaders = false })
	if err != nil {
		return err
	}
	sc.Horizon.OnUpdate()
	img := sc.Horizon.Setup().Composite
	if img == nil {
		return errors.New("empty composite")
	}
	if err := texture.Save(*output, img); err != nil {
		return err
	}
	b := img.Bounds()
	printer().Fprintf(out, "Wrote %s (%d x %d)\n", *output, b.Dx(), b.Dy())
	return nil
}
