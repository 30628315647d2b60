// Package hair holds captured strand sets: a strand geometry plus the vertex
// index of each strand's root.
package hair

import (
	"errors"
	"fmt"
	"slices"

	"github.com/pthm-cable/densehair/geom"
)

// ErrNoStrands is returned when a strand set has no roots.
var ErrNoStrands = errors.New("hair: no strands")

// Strands is a set of polylines stored back to back in one geometry.
// Strand i occupies vertices [Roots[i], Roots[i+1]), the last one runs to the
// end of the vertex buffer.
type Strands struct {
	Geometry geom.Geometry
	Roots    []uint32
}

// Count returns the number of strands.
func (s *Strands) Count() int {
	return len(s.Roots)
}

// StrandSize returns the number of vertices in strand i.
func (s *Strands) StrandSize(i int) int {
	end := s.Geometry.Len()
	if i+1 < len(s.Roots) {
		end = s.Roots[i+1]
	}
	return int(end - s.Roots[i])
}

// StrandLength returns the vertex count of the shortest strand, or 0 when
// there are none. Growth never reads a neighbor step past this.
func (s *Strands) StrandLength() int {
	if len(s.Roots) == 0 {
		return 0
	}
	shortest := s.StrandSize(0)
	for i := 1; i < len(s.Roots); i++ {
		if n := s.StrandSize(i); n < shortest {
			shortest = n
		}
	}
	return shortest
}

// Clone returns a deep copy of s.
func (s *Strands) Clone() *Strands {
	return &Strands{
		Geometry: *s.Geometry.Clone(),
		Roots:    slices.Clone(s.Roots),
	}
}

// RootPositions returns the position of every root, in root order.
func (s *Strands) RootPositions() []geom.Vec3 {
	out := make([]geom.Vec3, len(s.Roots))
	for i, r := range s.Roots {
		out[i] = s.Geometry.Vertices[r].Position
	}
	return out
}

// Validate checks that roots are in range and strictly increasing, that the
// first strand starts at vertex 0, and that every segment joins consecutive
// vertices of one strand.
func (s *Strands) Validate() error {
	if len(s.Roots) == 0 {
		return ErrNoStrands
	}
	if s.Roots[0] != 0 {
		return fmt.Errorf("hair: first root is vertex %d, want 0", s.Roots[0])
	}
	n := s.Geometry.Len()
	for i, r := range s.Roots {
		if r >= n {
			return fmt.Errorf("hair: root %d (vertex %d) out of range (%d vertices)", i, r, n)
		}
		if i > 0 && r <= s.Roots[i-1] {
			return fmt.Errorf("hair: root %d (vertex %d) not after previous root %d", i, r, s.Roots[i-1])
		}
	}
	if err := s.Geometry.CheckIndices(); err != nil {
		return fmt.Errorf("hair: %w", err)
	}
	return s.checkContiguous()
}

// checkContiguous rejects segments that skip vertices, run backwards or cross
// into the next strand.
func (s *Strands) checkContiguous() error {
	idx := s.Geometry.Indices
	if len(idx)%2 != 0 {
		return fmt.Errorf("hair: odd index count %d for line segments", len(idx))
	}
	for i := 0; i < len(idx); i += 2 {
		a, b := idx[i], idx[i+1]
		if b != a+1 {
			return fmt.Errorf("hair: segment %d (%d, %d) does not join consecutive vertices", i/2, a, b)
		}
		if _, root := slices.BinarySearch(s.Roots, b); root {
			return fmt.Errorf("hair: segment %d (%d, %d) crosses into the strand rooted at %d", i/2, a, b, b)
		}
	}
	return nil
}

// FromGeometry derives roots from a line-segment geometry. A vertex is a root
// when no segment ends at it.
func FromGeometry(g geom.Geometry) (*Strands, error) {
	if err := g.CheckIndices(); err != nil {
		return nil, fmt.Errorf("hair: %w", err)
	}
	if len(g.Indices)%2 != 0 {
		return nil, fmt.Errorf("hair: odd index count %d for line segments", len(g.Indices))
	}

	reached := make([]bool, len(g.Vertices))
	for i := 1; i < len(g.Indices); i += 2 {
		reached[g.Indices[i]] = true
	}

	s := &Strands{Geometry: g}
	for v, ok := range reached {
		if !ok {
			s.Roots = append(s.Roots, uint32(v))
		}
	}
	if len(s.Roots) == 0 {
		return s, nil
	}
	if err := s.checkContiguous(); err != nil {
		return nil, err
	}
	return s, nil
}

// FromColoredPoints rebuilds strands from a flat point list in which every
// strand carries one uniform color. A new strand starts wherever the color
// changes between consecutive points. Tangents point to the next point of the
// same strand; a strand's final point repeats the tangent before it.
func FromColoredPoints(points, colors []geom.Vec3) (*Strands, error) {
	if len(points) != len(colors) {
		return nil, fmt.Errorf("hair: %d points but %d colors", len(points), len(colors))
	}
	if len(points) == 0 {
		return nil, ErrNoStrands
	}

	s := &Strands{
		Geometry: geom.Geometry{
			Vertices: make([]geom.Vertex, 0, len(points)),
		},
		Roots: []uint32{0},
	}

	tangent := geom.UnitY
	for i := range points {
		switch {
		case i+1 < len(points) && colors[i] == colors[i+1]:
			tangent = points[i+1].Sub(points[i]).Normal()
		case i == 0 || colors[i] != colors[i-1]:
			// single-point strand
			tangent = geom.UnitY
		}
		s.Geometry.Append(geom.Vertex{
			Position: points[i],
			Tangent:  tangent,
			Color:    colors[i],
		})

		if i+1 == len(points) {
			break
		}
		if colors[i] == colors[i+1] {
			s.Geometry.Indices = append(s.Geometry.Indices, uint32(i), uint32(i+1))
		} else {
			s.Roots = append(s.Roots, uint32(i+1))
		}
	}
	return s, nil
}
