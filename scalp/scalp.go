// Package scalp selects the hair-growth triangles of a skull mesh and spreads
// a strand budget over them in proportion to area.
package scalp

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/densehair/geom"
	"github.com/pthm-cable/densehair/rng"
)

// DefaultColorThreshold is the blue-channel cutoff below which a vertex is
// part of the scalp mask.
const DefaultColorThreshold = 0.1

// ErrNoScalp is returned when the selection is empty or its area is zero or
// not finite.
var ErrNoScalp = errors.New("scalp: no growth surface")

// Face is a selected scalp triangle and its share of the strand budget.
// Strands [Offset, Offset+Quota) grow from this face.
type Face struct {
	A, B, C uint32
	Area    float64
	Quota   int
	Offset  int
}

// Select returns the triangles of skull that touch the scalp mask, in source
// order. A triangle is kept when any of its vertices has a blue channel below
// threshold.
func Select(skull *geom.Geometry, threshold float32) []Face {
	if skull == nil {
		return nil
	}
	var faces []Face
	n := skull.Triangles()
	for t := 0; t < n; t++ {
		a, b, c := skull.Indices[t*3], skull.Indices[t*3+1], skull.Indices[t*3+2]
		if skull.Vertices[a].Color.Z < threshold ||
			skull.Vertices[b].Color.Z < threshold ||
			skull.Vertices[c].Color.Z < threshold {
			faces = append(faces, Face{A: a, B: b, C: c})
		}
	}
	return faces
}

// Layout is the per-face strand plan for one augmentation call.
type Layout struct {
	Faces     []Face
	TotalArea float64
	// Strands is the sum of all quotas. Truncation can leave it below the
	// requested total, by at most one per face.
	Strands int

	skull *geom.Geometry
}

// Plan computes each face's area and strand quota for a requested total.
func Plan(skull *geom.Geometry, faces []Face, total int) (*Layout, error) {
	if total < 0 {
		return nil, fmt.Errorf("scalp: negative strand total %d", total)
	}
	if len(faces) == 0 {
		return nil, ErrNoScalp
	}

	areas := make([]float64, len(faces))
	for i, f := range faces {
		a := triangle(skull, f).Area64()
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return nil, fmt.Errorf("%w: face %d has area %v", ErrNoScalp, i, a)
		}
		areas[i] = a
	}
	totalArea := floats.Sum(areas)
	if !(totalArea > 0) || math.IsInf(totalArea, 0) {
		return nil, fmt.Errorf("%w: total area %v over %d faces", ErrNoScalp, totalArea, len(faces))
	}

	l := &Layout{
		Faces:     make([]Face, len(faces)),
		TotalArea: totalArea,
		skull:     skull,
	}
	for i, f := range faces {
		f.Area = areas[i]
		f.Quota = int(math.Floor(float64(total) * areas[i] / totalArea))
		f.Offset = l.Strands
		l.Strands += f.Quota
		l.Faces[i] = f
	}
	return l, nil
}

// FaceFor returns the index of the face that root s grows from.
// s must be in [0, Strands).
func (l *Layout) FaceFor(s int) int {
	return sort.Search(len(l.Faces), func(i int) bool {
		f := l.Faces[i]
		return f.Offset+f.Quota > s
	})
}

// Triangle returns the geometry of face i.
func (l *Layout) Triangle(i int) geom.Triangle {
	return triangle(l.skull, l.Faces[i])
}

// Sample draws root s's position from its face using src.
func (l *Layout) Sample(s int, src rng.Source) geom.Vec3 {
	tri := l.Triangle(l.FaceFor(s))
	u := src.Float32()
	v := src.Float32()
	return tri.Sample(u, v)
}

func triangle(skull *geom.Geometry, f Face) geom.Triangle {
	return geom.Triangle{
		A: skull.Vertices[f.A].Position,
		B: skull.Vertices[f.B].Position,
		C: skull.Vertices[f.C].Position,
	}
}
