package tessellate

import (
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/horizon3d/internal/engine/grid"
)

// Scheduler fans tile jobs out to a fixed set of workers for one rebuild.
// The zero value uses the package defaults.
type Scheduler struct {
	TileSize int
	Levels   int
	Workers  int
	Log      *zap.Logger
}

func (s *Scheduler) levels() int {
	if s.Levels <= 0 {
		return DefaultLevels
	}
	return s.Levels
}

// tileSize rounds the configured size up to a multiple of the coarsest
// step so tiles of every level share their edge samples.
func (s *Scheduler) tileSize() int {
	size := s.TileSize
	if size <= 0 {
		size = DefaultTileSize
	}
	step := 1 << (s.levels() - 1)
	return (size + step - 1) / step * step
}

func (s *Scheduler) workers() int {
	if s.Workers <= 0 {
		return runtime.NumCPU()
	}
	return s.Workers
}

// Jobs enumerates every tile of every level, level-major.
func (s *Scheduler) Jobs(g *grid.Grid) []Job {
	size := s.tileSize()
	numH, numV := NumTiles(g.Width, size), NumTiles(g.Height, size)
	jobs := make([]Job, 0, numH*numV*s.levels())
	for level := 0; level < s.levels(); level++ {
		for h := 0; h < numH; h++ {
			for v := 0; v < numV; v++ {
				jobs = append(jobs, Job{H: h, V: v, Level: level, TileSize: size})
			}
		}
	}
	return jobs
}

// Rebuild tessellates the whole grid at every level. Jobs are dealt
// round-robin into one private queue per worker; the call returns once all
// queues are drained. Nothing from a previous rebuild is reused.
func (s *Scheduler) Rebuild(g *grid.Grid, cut Cutter) Levels {
	start := time.Now()
	jobs := s.Jobs(g)
	workers := min(s.workers(), max(1, len(jobs)))

	queues := make([][]Job, workers)
	for k, job := range jobs {
		queues[k%workers] = append(queues[k%workers], job)
	}

	done := make([][]Result, workers)
	var eg errgroup.Group
	for w := range queues {
		eg.Go(func() error {
			out := make([]Result, 0, len(queues[w]))
			for _, job := range queues[w] {
				out = append(out, Tessellate(job, g, cut))
			}
			done[w] = out
			return nil
		})
	}
	_ = eg.Wait()

	levels := make(Levels, s.levels())
	for _, out := range done {
		for _, r := range out {
			levels[r.Job.Level] = append(levels[r.Job.Level], r)
		}
	}

	if s.Log != nil {
		tris, lines, points := levels.Count(0)
		s.Log.Debug("tessellation rebuilt",
			zap.Int("jobs", len(jobs)),
			zap.Int("workers", workers),
			zap.Int("triangles", tris),
			zap.Int("lines", lines),
			zap.Int("points", points),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return levels
}
