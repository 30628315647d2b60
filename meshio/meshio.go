// Package meshio reads and writes geometry in a minimal CSV exchange layout:
// a directory holding vertices.csv and indices.csv.
package meshio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/densehair/geom"
	"github.com/pthm-cable/densehair/hair"
)

// File names inside a geometry directory.
const (
	VerticesFile = "vertices.csv"
	IndicesFile  = "indices.csv"
)

// VertexRow is one vertex in vertices.csv.
type VertexRow struct {
	X  float32 `csv:"x"`
	Y  float32 `csv:"y"`
	Z  float32 `csv:"z"`
	NX float32 `csv:"nx"`
	NY float32 `csv:"ny"`
	NZ float32 `csv:"nz"`
	TX float32 `csv:"tx"`
	TY float32 `csv:"ty"`
	TZ float32 `csv:"tz"`
	U  float32 `csv:"u"`
	V  float32 `csv:"v"`
	R  float32 `csv:"r"`
	G  float32 `csv:"g"`
	B  float32 `csv:"b"`
}

// IndexRow is one index in indices.csv.
type IndexRow struct {
	Index uint32 `csv:"index"`
}

func toRow(v geom.Vertex) VertexRow {
	return VertexRow{
		X: v.Position.X, Y: v.Position.Y, Z: v.Position.Z,
		NX: v.Normal.X, NY: v.Normal.Y, NZ: v.Normal.Z,
		TX: v.Tangent.X, TY: v.Tangent.Y, TZ: v.Tangent.Z,
		U: v.UV.X, V: v.UV.Y,
		R: v.Color.X, G: v.Color.Y, B: v.Color.Z,
	}
}

func (r VertexRow) vertex() geom.Vertex {
	return geom.Vertex{
		Position: geom.V3(r.X, r.Y, r.Z),
		Normal:   geom.V3(r.NX, r.NY, r.NZ),
		Tangent:  geom.V3(r.TX, r.TY, r.TZ),
		UV:       geom.Vec2{X: r.U, Y: r.V},
		Color:    geom.V3(r.R, r.G, r.B),
	}
}

// Load reads a geometry directory. A missing indices.csv yields a geometry
// with vertices only.
func Load(dir string) (*geom.Geometry, error) {
	var rows []VertexRow
	if err := readCSV(filepath.Join(dir, VerticesFile), &rows); err != nil {
		return nil, err
	}

	g := &geom.Geometry{Vertices: make([]geom.Vertex, len(rows))}
	for i, r := range rows {
		g.Vertices[i] = r.vertex()
	}

	var idx []IndexRow
	err := readCSV(filepath.Join(dir, IndicesFile), &idx)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		g.Indices = make([]uint32, len(idx))
		for i, r := range idx {
			g.Indices[i] = r.Index
		}
	}

	if err := g.CheckIndices(); err != nil {
		return nil, fmt.Errorf("meshio: %s: %w", dir, err)
	}
	return g, nil
}

// LoadStrands reads captured strands from dir. A directory without indices is
// treated as colour-coded points, one colour per strand. A directory with no
// vertices yields an empty strand set.
func LoadStrands(dir string) (*hair.Strands, error) {
	g, err := Load(dir)
	if err != nil {
		return nil, err
	}
	var s *hair.Strands
	if len(g.Indices) == 0 {
		points := make([]geom.Vec3, len(g.Vertices))
		colors := make([]geom.Vec3, len(g.Vertices))
		for i, v := range g.Vertices {
			points[i] = v.Position
			colors[i] = v.Color
		}
		s, err = hair.FromColoredPoints(points, colors)
	} else {
		s, err = hair.FromGeometry(*g)
	}
	if errors.Is(err, hair.ErrNoStrands) {
		return &hair.Strands{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("meshio: %s: %w", dir, err)
	}
	return s, nil
}

// Save writes g into dir, creating it if needed.
func Save(dir string, g *geom.Geometry) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("meshio: creating %s: %w", dir, err)
	}

	rows := make([]VertexRow, len(g.Vertices))
	for i, v := range g.Vertices {
		rows[i] = toRow(v)
	}
	if err := writeCSV(filepath.Join(dir, VerticesFile), &rows); err != nil {
		return err
	}

	idx := make([]IndexRow, len(g.Indices))
	for i, v := range g.Indices {
		idx[i] = IndexRow{Index: v}
	}
	return writeCSV(filepath.Join(dir, IndicesFile), &idx)
}

func readCSV(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("meshio: %w", err)
	}
	defer f.Close()

	if err := gocsv.UnmarshalFile(f, out); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil
		}
		return fmt.Errorf("meshio: parsing %s: %w", path, err)
	}
	return nil
}

func writeCSV(path string, in any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("meshio: %w", err)
	}
	if err := gocsv.MarshalFile(in, f); err != nil {
		f.Close()
		return fmt.Errorf("meshio: writing %s: %w", path, err)
	}
	return f.Close()
}
