// Package growth grows new strands from sampled roots by blending the
// per-step deltas of their captured neighbors.
package growth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/densehair/geom"
	"github.com/pthm-cable/densehair/hair"
	"github.com/pthm-cable/densehair/neighbors"
	"github.com/pthm-cable/densehair/rng"
)

// ErrLength is returned when the requested strand length cannot be read from
// every captured neighbor.
var ErrLength = errors.New("growth: invalid strand length")

// Options controls growth.
type Options struct {
	// Length is the number of vertices per grown strand. Zero uses the
	// shortest captured strand.
	Length int
	// Workers grows strands concurrently when > 1. Output is identical to
	// sequential growth.
	Workers int
	Streams rng.Streams
}

// StrandStats describes one grown strand.
type StrandStats struct {
	Root      geom.Vec3
	ArcLength float32
	Active    int // neighbors still weighted after the last step
	Stalled   bool
}

// Stats summarizes a growth run.
type Stats struct {
	Length  int
	Strands []StrandStats
}

// Stalled returns how many strands lost every neighbor.
func (s Stats) Stalled() int {
	n := 0
	for _, st := range s.Strands {
		if st.Stalled {
			n++
		}
	}
	return n
}

// Grow appends one strand per root in res to dst. Every strand has exactly
// Length vertices and Length-1 segments, and strands are appended in root
// order. On error dst is left untouched.
//
// The neighbor weights in res are consumed: pruned neighbors are zeroed.
func Grow(ctx context.Context, dst *geom.Geometry, captured *hair.Strands, res *neighbors.Result, opts Options) (Stats, error) {
	length := opts.Length
	if length == 0 {
		length = captured.StrandLength()
	}
	if length < 1 || length > captured.StrandLength() {
		return Stats{}, fmt.Errorf("%w: %d (shortest captured strand has %d vertices)", ErrLength, length, captured.StrandLength())
	}
	streams := opts.Streams
	if streams == nil {
		streams = rng.NewPCG(0)
	}

	n := res.Len()
	stats := Stats{Length: length, Strands: make([]StrandStats, n)}
	segments := make([]geom.Geometry, n)

	grow := func(s int) {
		g := &grower{
			src:      &captured.Geometry,
			length:   length,
			rand:     streams.Stream(rng.DomainGrowth, uint64(s)),
			root:     res.Roots[s],
			neighbor: res.Neighbors[s],
		}
		stats.Strands[s] = g.grow(&segments[s])
	}

	if opts.Workers > 1 {
		if err := growParallel(ctx, n, opts.Workers, grow); err != nil {
			return Stats{}, err
		}
	} else {
		for s := 0; s < n; s++ {
			if err := ctx.Err(); err != nil {
				return Stats{}, err
			}
			grow(s)
		}
	}

	for s := range segments {
		dst.AppendGeometry(&segments[s])
	}
	return stats, nil
}

// growParallel runs grow for [0, n) over contiguous chunks, one per worker.
// Each strand writes only its own segment and stats slot.
func growParallel(ctx context.Context, n, workers int, grow func(int)) error {
	g, ctx := errgroup.WithContext(ctx)
	chunk := (n + workers - 1) / workers
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			for s := start; s < end; s++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				grow(s)
			}
			return nil
		})
	}
	return g.Wait()
}

// grower holds the state of one strand while it grows.
type grower struct {
	src      *geom.Geometry
	length   int
	rand     rng.Source
	root     geom.Vec3
	neighbor []neighbors.Neighbor

	deltas []geom.Vec3
	active []int
}

// grow writes the strand into seg, whose indices are local to seg.
func (g *grower) grow(seg *geom.Geometry) StrandStats {
	color := geom.V3(g.rand.Float32(), g.rand.Float32(), g.rand.Float32())
	seg.Vertices = make([]geom.Vertex, 0, g.length)
	seg.Indices = make([]uint32, 0, 2*(g.length-1))

	cur := seg.Append(geom.Vertex{Position: g.root, Tangent: geom.UnitY, Color: color})
	if g.length > 1 {
		seg.AppendSegment(cur, cur+1)
	}

	g.deltas = make([]geom.Vec3, len(g.neighbor))
	g.active = make([]int, 0, len(g.neighbor))

	var arc float32
	for p := 1; p < g.length; p++ {
		step := g.blend(p)
		arc += step.Length()

		seg.SetTangent(cur, step.Normal())
		cur = seg.Append(geom.Vertex{
			Position: seg.Position(cur).Add(step),
			Tangent:  geom.UnitY,
			Color:    color,
		})
		if p < g.length-1 {
			seg.AppendSegment(cur, cur+1)
		}

		g.prune()
	}

	active := 0
	for _, n := range g.neighbor {
		if n.Active() {
			active++
		}
	}
	return StrandStats{
		Root:      g.root,
		ArcLength: arc,
		Active:    active,
		Stalled:   active == 0 && len(g.neighbor) > 0,
	}
}

// blend records each active neighbor's delta between steps p-1 and p of its
// captured strand and returns their weighted sum.
func (g *grower) blend(p int) geom.Vec3 {
	var sum geom.Vec3
	g.active = g.active[:0]
	for i, n := range g.neighbor {
		if !n.Active() {
			continue
		}
		at := n.Root + uint32(p)
		d := g.src.Position(at).Sub(g.src.Position(at - 1))
		g.deltas[i] = d
		g.active = append(g.active, i)
		sum = sum.Add(d.MulScalar(n.Weight))
	}
	return sum
}

// prune picks a random active neighbor as reference and zeroes every other
// active neighbor whose direction does not agree with it. Zero-length deltas
// carry no direction and are left alone.
func (g *grower) prune() {
	if len(g.active) < 2 {
		return
	}
	ref := g.active[g.rand.IntN(len(g.active))]
	refDir := g.deltas[ref].Normal()
	if refDir.IsZero() {
		return
	}
	for _, i := range g.active {
		if i == ref {
			continue
		}
		dir := g.deltas[i].Normal()
		if dir.IsZero() {
			continue
		}
		if refDir.Dot(dir) <= 0 {
			g.neighbor[i].Weight = 0
		}
	}
}
