package neighbors

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/densehair/geom"
	"github.com/pthm-cable/densehair/rng"
	"github.com/pthm-cable/densehair/scalp"
)

// DefaultBatchSize is the number of roots handled by one worker.
const DefaultBatchSize = 2000

// ErrNoCapturedRoots is returned when there are no captured roots to rank
// against.
var ErrNoCapturedRoots = errors.New("neighbors: no captured roots to search")

// Options controls a search.
type Options struct {
	Neighbors int // neighbors kept per root (0 = DefaultCount)
	BatchSize int // roots per worker (0 = DefaultBatchSize)
	Workers   int // concurrent batches (0 = one goroutine per batch)
	Streams   rng.Streams
}

func (o Options) withDefaults() Options {
	if o.Neighbors <= 0 {
		o.Neighbors = DefaultCount
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Streams == nil {
		o.Streams = rng.NewPCG(0)
	}
	return o
}

// Result holds one sampled root and its weighted neighbor set per new strand.
// Roots[i] and Neighbors[i] belong to the same strand.
type Result struct {
	Roots     []geom.Vec3
	Neighbors [][]Neighbor
}

// Len returns the number of roots.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Roots)
}

// Batches returns the number of batches a workload of n roots is split into.
func Batches(n, batchSize int) int {
	if n <= 0 {
		return 0
	}
	return (n + batchSize - 1) / batchSize
}

// Search samples every root of the layout and finds its weighted nearest
// captured roots. Batches run concurrently and each one owns a disjoint range
// of the output slices. Search returns once every batch has finished; the
// first failing batch (or a cancelled context) fails the whole call.
func Search(ctx context.Context, layout *scalp.Layout, index Index, opts Options) (*Result, error) {
	if index == nil || index.Len() == 0 {
		return nil, ErrNoCapturedRoots
	}
	opts = opts.withDefaults()

	n := layout.Strands
	res := &Result{
		Roots:     make([]geom.Vec3, n),
		Neighbors: make([][]Neighbor, n),
	}
	if n == 0 {
		return res, nil
	}

	k := min(opts.Neighbors, index.Len())

	g, ctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}

	batches := Batches(n, opts.BatchSize)
	for b := 0; b < batches; b++ {
		start := b * opts.BatchSize
		end := min(start+opts.BatchSize, n)
		g.Go(func() error {
			if err := searchBatch(ctx, layout, index, opts.Streams, k, res, start, end); err != nil {
				return fmt.Errorf("batch %d [%d,%d): %w", b, start, end, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// searchBatch fills res for roots [start, end).
func searchBatch(ctx context.Context, layout *scalp.Layout, index Index, streams rng.Streams, k int, res *Result, start, end int) error {
	for s := start; s < end; s++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		root := layout.Sample(s, streams.Stream(rng.DomainRoots, uint64(s)))
		if !root.IsFinite() {
			return fmt.Errorf("root %d sampled non-finite position %v", s, root)
		}

		ns := index.Nearest(make([]Neighbor, 0, k), root, k)
		if len(ns) != k {
			return fmt.Errorf("root %d: index returned %d neighbors, want %d", s, len(ns), k)
		}
		Weigh(ns)

		res.Roots[s] = root
		res.Neighbors[s] = ns
	}
	return nil
}
