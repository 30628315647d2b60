package geom

import "fmt"

// UnitY is the placeholder tangent given to freshly appended strand vertices.
var UnitY = Vec3{0, 1, 0}

// Vertex is a single mesh or strand vertex.
// Normal and UV are carried through untouched.
type Vertex struct {
	Position Vec3
	Normal   Vec3
	Tangent  Vec3
	UV       Vec2
	Color    Vec3
}

// Geometry is an append-only vertex arena plus an index list.
// For strands the indices are line-segment pairs, for meshes they are
// triangle triples.
type Geometry struct {
	Vertices []Vertex
	Indices  []uint32
}

// Len returns the number of vertices, which is also the index the next
// appended vertex will receive.
func (g *Geometry) Len() uint32 {
	return uint32(len(g.Vertices))
}

// Append adds a vertex and returns its index.
func (g *Geometry) Append(v Vertex) uint32 {
	g.Vertices = append(g.Vertices, v)
	return uint32(len(g.Vertices) - 1)
}

// AppendSegment adds a line-segment index pair.
// a must reference an existing vertex; b may reference the vertex about to be
// appended (b == Len()).
func (g *Geometry) AppendSegment(a, b uint32) {
	n := g.Len()
	if a >= n || b > n {
		panic(fmt.Sprintf("geom: segment (%d,%d) out of range for %d vertices", a, b, n))
	}
	g.Indices = append(g.Indices, a, b)
}

// Last returns the index of the most recently appended vertex.
// Panics on an empty arena.
func (g *Geometry) Last() uint32 {
	if len(g.Vertices) == 0 {
		panic("geom: Last on empty geometry")
	}
	return uint32(len(g.Vertices) - 1)
}

// SetTangent back-patches the tangent of vertex i.
func (g *Geometry) SetTangent(i uint32, t Vec3) {
	g.Vertices[i].Tangent = t
}

// Position returns the position of vertex i.
func (g *Geometry) Position(i uint32) Vec3 {
	return g.Vertices[i].Position
}

// AppendGeometry appends all vertices and indices of o, rebasing the indices
// of o onto the end of g.
func (g *Geometry) AppendGeometry(o *Geometry) {
	if o == nil {
		return
	}
	base := g.Len()
	g.Vertices = append(g.Vertices, o.Vertices...)
	for _, idx := range o.Indices {
		g.Indices = append(g.Indices, idx+base)
	}
}

// Clone returns a deep copy of g.
func (g *Geometry) Clone() *Geometry {
	c := &Geometry{
		Vertices: make([]Vertex, len(g.Vertices)),
		Indices:  make([]uint32, len(g.Indices)),
	}
	copy(c.Vertices, g.Vertices)
	copy(c.Indices, g.Indices)
	return c
}

// Segments returns the number of complete index pairs.
func (g *Geometry) Segments() int {
	return len(g.Indices) / 2
}

// Triangles returns the number of complete index triples.
func (g *Geometry) Triangles() int {
	return len(g.Indices) / 3
}

// Triangle returns the triangle formed by the t-th index triple.
func (g *Geometry) Triangle(t int) Triangle {
	i := t * 3
	return Triangle{
		A: g.Vertices[g.Indices[i]].Position,
		B: g.Vertices[g.Indices[i+1]].Position,
		C: g.Vertices[g.Indices[i+2]].Position,
	}
}

// CheckIndices returns an error if any index references a missing vertex.
func (g *Geometry) CheckIndices() error {
	n := g.Len()
	for i, idx := range g.Indices {
		if idx >= n {
			return fmt.Errorf("index %d at position %d out of range (%d vertices)", idx, i, n)
		}
	}
	return nil
}
