package neighbors

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/pthm-cable/densehair/geom"
)

// Index answers k-nearest-root queries. Implementations must be safe for
// concurrent queries.
type Index interface {
	// Nearest appends the k roots closest to p to dst, sorted ascending by
	// distance, and returns the extended slice. Fewer than k are returned
	// when the index holds fewer roots.
	Nearest(dst []Neighbor, p geom.Vec3, k int) []Neighbor
	// Len returns the number of indexed roots.
	Len() int
}

// Kind names an Index implementation.
type Kind string

const (
	KindLinear Kind = "linear"
	KindKDTree Kind = "kdtree"
)

// NewIndex builds an index of the given kind over root positions.
// ids[i] is the vertex index reported for positions[i].
func NewIndex(kind Kind, positions []geom.Vec3, ids []uint32) (Index, error) {
	if len(positions) != len(ids) {
		return nil, fmt.Errorf("neighbors: %d positions but %d ids", len(positions), len(ids))
	}
	switch kind {
	case KindLinear:
		return NewLinearIndex(positions, ids), nil
	case KindKDTree, "":
		return NewKDIndex(positions, ids), nil
	default:
		return nil, fmt.Errorf("neighbors: unknown index kind %q", kind)
	}
}

// LinearIndex ranks every root on each query.
type LinearIndex struct {
	positions []geom.Vec3
	ids       []uint32
}

// NewLinearIndex returns a brute-force index.
func NewLinearIndex(positions []geom.Vec3, ids []uint32) *LinearIndex {
	return &LinearIndex{positions: positions, ids: ids}
}

// Len returns the number of indexed roots.
func (l *LinearIndex) Len() int {
	return len(l.positions)
}

// Nearest measures the distance to every root, sorts, and keeps the first k.
func (l *LinearIndex) Nearest(dst []Neighbor, p geom.Vec3, k int) []Neighbor {
	all := make([]Neighbor, len(l.positions))
	for i, q := range l.positions {
		all[i] = Neighbor{Root: l.ids[i], Dist: q.DistanceTo(p)}
	}
	sortNearest(all)
	if k > len(all) {
		k = len(all)
	}
	return append(dst, all[:k]...)
}

// KDIndex answers queries with a gonum k-d tree.
type KDIndex struct {
	tree *kdtree.Tree
	n    int
}

// NewKDIndex builds a k-d tree over the roots. The input slices are not
// modified.
func NewKDIndex(positions []geom.Vec3, ids []uint32) *KDIndex {
	pts := make(rootPoints, len(positions))
	for i, p := range positions {
		pts[i] = rootPoint{
			pos: [3]float64{float64(p.X), float64(p.Y), float64(p.Z)},
			vec: p,
			id:  ids[i],
		}
	}
	idx := &KDIndex{n: len(pts)}
	if len(pts) > 0 {
		idx.tree = kdtree.New(pts, false)
	}
	return idx
}

// Len returns the number of indexed roots.
func (t *KDIndex) Len() int {
	return t.n
}

// Nearest returns the k nearest roots. Roots tied with the k-th distance are
// all gathered before the cut so ties resolve by root like LinearIndex.
func (t *KDIndex) Nearest(dst []Neighbor, p geom.Vec3, k int) []Neighbor {
	if t.tree == nil || k <= 0 {
		return dst
	}
	if k > t.n {
		k = t.n
	}

	q := rootPoint{pos: [3]float64{float64(p.X), float64(p.Y), float64(p.Z)}}
	nk := kdtree.NewNKeeper(k)
	t.tree.NearestSet(nk, q)
	var bound float64
	for _, c := range nk.Heap {
		// the keeper is seeded with an empty sentinel
		if c.Comparable != nil && c.Dist > bound {
			bound = c.Dist
		}
	}

	// Widen the bound past float32 rounding of the distances compared below.
	dk := kdtree.NewDistKeeper(bound*(1+tieSlack) + math.SmallestNonzeroFloat64)
	t.tree.NearestSet(dk, q)

	start := len(dst)
	for _, c := range dk.Heap {
		if c.Comparable == nil {
			continue
		}
		r := c.Comparable.(rootPoint)
		dst = append(dst, Neighbor{Root: r.id, Dist: r.vec.DistanceTo(p)})
	}
	sortNearest(dst[start:])
	return dst[:start+min(k, len(dst)-start)]
}

// tieSlack is the relative squared-distance margin used to collect ties.
const tieSlack = 1e-5

// rootPoint is a kdtree.Comparable carrying the root's vertex index.
type rootPoint struct {
	pos [3]float64
	vec geom.Vec3
	id  uint32
}

func (p rootPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(rootPoint)
	return p.pos[d] - q.pos[d]
}

func (p rootPoint) Dims() int { return 3 }

func (p rootPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(rootPoint)
	var sum float64
	for i := range p.pos {
		d := p.pos[i] - q.pos[i]
		sum += d * d
	}
	return sum
}

// rootPoints implements kdtree.Interface.
type rootPoints []rootPoint

func (p rootPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p rootPoints) Len() int                              { return len(p) }
func (p rootPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p rootPoints) Pivot(d kdtree.Dim) int {
	return rootPlane{Dim: d, points: p}.Pivot()
}

// rootPlane sorts roots along one dimension for median partitioning.
type rootPlane struct {
	kdtree.Dim
	points rootPoints
}

func (p rootPlane) Less(i, j int) bool { return p.points[i].pos[p.Dim] < p.points[j].pos[p.Dim] }
func (p rootPlane) Len() int           { return len(p.points) }
func (p rootPlane) Swap(i, j int)      { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p rootPlane) Pivot() int         { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p rootPlane) Slice(start, end int) kdtree.SortSlicer {
	return rootPlane{Dim: p.Dim, points: p.points[start:end]}
}
