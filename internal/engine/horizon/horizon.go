// Package horizon connects an elevation grid, the tile tessellator and a
// layered texture behind the two calls a host renderer makes per frame:
// OnUpdate and OnSelectGeometry.
package horizon

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/horizon3d/internal/engine/grid"
	"github.com/Faultbox/horizon3d/internal/engine/layered"
	"github.com/Faultbox/horizon3d/internal/engine/tessellate"
)

// Distance factors applied to the grid cell size to pick the LOD level.
const (
	DefaultNearFactor = 2000
	DefaultFarFactor  = 8000
)

// Horizon owns the geometry of one elevation surface.
type Horizon struct {
	mu  sync.Mutex
	id  string
	log *zap.Logger

	width, height int
	depths        []float64
	undef         float64
	corners       [3]mgl64.Vec2
	ramp          grid.Ramp
	nearFactor    float64
	farFactor     float64

	// gridRev moves with every setter; builtGridRev and builtRetile record
	// what the current geometry was built from.
	gridRev      uint64
	builtGridRev uint64
	builtRetile  uint64
	built        bool

	sched     tessellate.Scheduler
	texture   *layered.LayeredTexture
	elevation int
	grid      *grid.Grid
	levels    tessellate.Levels
	setup     layered.Setup
}

// Option configures a Horizon.
type Option func(*Horizon)

// WithLogger sets the logger; the horizon id is added to every entry.
func WithLogger(log *zap.Logger) Option {
	return func(h *Horizon) { h.log = log }
}

// WithTexture uses lt instead of a default layered texture.
func WithTexture(lt *layered.LayeredTexture) Option {
	return func(h *Horizon) { h.texture = lt }
}

// WithScheduler sets the tile size, level count and worker count. Zero
// values keep the defaults.
func WithScheduler(tileSize, levels, workers int) Option {
	return func(h *Horizon) {
		h.sched.TileSize = tileSize
		h.sched.Levels = levels
		h.sched.Workers = workers
	}
}

// WithLODFactors overrides the near and far distance factors.
func WithLODFactors(near, far float64) Option {
	return func(h *Horizon) {
		if near > 0 && far >= near {
			h.nearFactor, h.farFactor = near, far
		}
	}
}

// New creates an empty horizon. Its texture holds one elevation layer shown
// by an Identity process at the back of the stack.
func New(opts ...Option) *Horizon {
	h := &Horizon{
		id:         uuid.NewString(),
		log:        zap.NewNop(),
		undef:      grid.DefaultUndef,
		corners:    grid.UnitCorners(),
		ramp:       grid.SeismicRamp,
		nearFactor: DefaultNearFactor,
		farFactor:  DefaultFarFactor,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With(zap.String("horizon", h.id))
	h.sched.Log = h.log
	if h.texture == nil {
		h.texture = layered.New(layered.WithLogger(h.log))
	}
	h.elevation = h.texture.AddDataLayer()
	h.texture.AddProcess(layered.NewIdentityProcess(h.texture, h.elevation))
	return h
}

// ID is the instance id used in log fields.
func (h *Horizon) ID() string { return h.id }

// Texture returns the layered texture draped over the surface. Hosts add
// their own layers and processes to it.
func (h *Horizon) Texture() *layered.LayeredTexture { return h.texture }

// ElevationLayerID is the layer holding the coloured depth image.
func (h *Horizon) ElevationLayerID() int { return h.elevation }

// SetSize sets the sample counts along i and j.
func (h *Horizon) SetSize(width, height int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.width, h.height = width, height
	h.gridRev++
}

// SetCornerCoords sets the origin, the +Y end and the +X end of the grid.
func (h *Horizon) SetCornerCoords(corners [3]mgl64.Vec2) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.corners = corners
	h.gridRev++
}

// SetDepthArray accepts []float64 or []float32 samples. Any other array
// leaves the horizon without geometry until a supported one is set.
func (h *Horizon) SetDepthArray(depths any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch d := depths.(type) {
	case []float64:
		h.depths = d
	case []float32:
		h.depths = grid.FromFloat32(d)
	default:
		h.log.Warn("unsupported elevation array, no geometry will be built",
			zap.String("type", typeName(depths)),
		)
		h.depths = nil
	}
	h.gridRev++
}

// SetUndefThreshold sets the value at and above which samples carry no
// data.
func (h *Horizon) SetUndefThreshold(undef float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undef = undef
	h.gridRev++
}

// SetColorRamp sets the palette of the elevation layer; nil selects gray.
func (h *Horizon) SetColorRamp(r grid.Ramp) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r == nil {
		r = grid.GrayRamp
	}
	h.ramp = r
	h.gridRev++
}

// OnUpdate rebuilds whatever is stale: the grid and elevation layer when a
// setter ran, the texture setup when the layer stack changed, and the tile
// geometry when either the grid or the texture tiling moved. It reports
// whether geometry was rebuilt; calling it again without changes does
// nothing.
func (h *Horizon) OnUpdate() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	gridChanged := !h.built || h.gridRev != h.builtGridRev
	if gridChanged {
		h.refreshGrid()
	}

	lt := h.texture
	lt.AssignTextureUnits()
	if setup, ok := lt.UpdateSetup(); ok {
		h.setup = setup
	} else {
		h.log.Debug("texture setup deferred until units are assigned")
	}

	retile := lt.RetilingRevision()
	if !gridChanged && h.built && retile == h.builtRetile {
		return false
	}

	h.levels = nil
	if h.grid != nil {
		h.levels = h.sched.Rebuild(h.grid, h.cutter())
	}
	h.built = true
	h.builtGridRev = h.gridRev
	h.builtRetile = retile
	return true
}

func (h *Horizon) refreshGrid() {
	h.grid = nil
	if h.depths == nil {
		h.texture.SetDataLayerImage(h.elevation, nil)
		return
	}
	g, err := grid.New(h.width, h.height, h.depths, h.undef, h.corners)
	if err != nil {
		h.log.Warn("horizon grid rejected",
			zap.Int("width", h.width),
			zap.Int("height", h.height),
			zap.Int("samples", len(h.depths)),
			zap.Error(err),
		)
		h.texture.SetDataLayerImage(h.elevation, nil)
		return
	}
	h.grid = g
	h.texture.SetDataLayerImage(h.elevation, g.ElevationImage(h.ramp))
	h.log.Info("horizon grid updated",
		zap.Int("width", g.Width),
		zap.Int("height", g.Height),
		zap.Int("undefined", g.UndefCount()),
	)
}

// OnSelectGeometry returns the tiles of the level suited to a viewer at
// distance from the surface centre.
func (h *Horizon) OnSelectGeometry(distance float64) []tessellate.Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.levels) == 0 {
		return nil
	}
	return h.levels[min(h.levelForDistance(distance), len(h.levels)-1)]
}

// LevelForDistance returns 0 below the near threshold, 1 below the far
// threshold and 2 beyond it.
func (h *Horizon) LevelForDistance(distance float64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.levelForDistance(distance)
}

func (h *Horizon) levelForDistance(distance float64) int {
	near, far := h.thresholds()
	switch {
	case distance < near:
		return 0
	case distance < far:
		return 1
	default:
		return 2
	}
}

// Thresholds returns the near and far LOD distances.
func (h *Horizon) Thresholds() (near, far float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.thresholds()
}

func (h *Horizon) thresholds() (near, far float64) {
	if h.grid == nil {
		return 0, 0
	}
	cell := h.grid.CellSize()
	return cell * h.nearFactor, cell * h.farFactor
}

// Bound returns the centre and radius of a sphere enclosing the surface.
func (h *Horizon) Bound() (center mgl32.Vec3, radius float32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	g := h.grid
	if g == nil {
		return mgl32.Vec3{}, 0
	}
	center = g.Center()
	lo, hi, _ := g.Range()
	for _, c := range g.Corners {
		d := mgl32.Vec3{float32(c[0]), float32(c[1]), float32(lo)}.Sub(center)
		radius = max(radius, d.Len())
	}
	far := g.Corners[1].Add(g.Corners[2]).Sub(g.Corners[0])
	d := mgl32.Vec3{float32(far[0]), float32(far[1]), float32(hi)}.Sub(center)
	return center, max(radius, d.Len())
}

// Grid returns the current grid, nil when no valid depth array is set.
func (h *Horizon) Grid() *grid.Grid {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.grid
}

// Levels returns every level of the current geometry.
func (h *Horizon) Levels() tessellate.Levels {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.levels
}

// Setup returns the texture setup of the last OnUpdate.
func (h *Horizon) Setup() layered.Setup {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.setup
}
