package scalp

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/densehair/geom"
)

var (
	scalpColor = geom.V3(1, 1, 0.05)
	skinColor  = geom.V3(1, 1, 1)
)

// gridSkull builds an n x n grid of quads (2n^2 triangles) on the XZ plane
// with cell sizes that vary per column, all painted as scalp.
func gridSkull(n int) *geom.Geometry {
	g := &geom.Geometry{}
	x := float32(0)
	xs := make([]float32, n+1)
	for i := range xs {
		xs[i] = x
		x += 0.5 + float32(i%3)
	}
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			g.Append(geom.Vertex{Position: geom.V3(xs[i], 0, float32(j)), Color: scalpColor})
		}
	}
	row := uint32(n + 1)
	for j := uint32(0); j < uint32(n); j++ {
		for i := uint32(0); i < uint32(n); i++ {
			a := j*row + i
			g.Indices = append(g.Indices, a, a+1, a+row, a+1, a+row+1, a+row)
		}
	}
	return g
}

func TestSelect(t *testing.T) {
	skull := &geom.Geometry{
		Vertices: []geom.Vertex{
			{Position: geom.V3(0, 0, 0), Color: skinColor},
			{Position: geom.V3(1, 0, 0), Color: skinColor},
			{Position: geom.V3(0, 1, 0), Color: skinColor},
			{Position: geom.V3(1, 1, 0), Color: scalpColor},
		},
		Indices: []uint32{0, 1, 2, 1, 3, 2},
	}

	faces := Select(skull, DefaultColorThreshold)
	require.Len(t, faces, 1)
	assert.Equal(t, Face{A: 1, B: 3, C: 2}, faces[0])

	assert.Empty(t, Select(&geom.Geometry{}, DefaultColorThreshold))
	assert.Empty(t, Select(nil, DefaultColorThreshold))
}

func TestPlanQuotaBounds(t *testing.T) {
	skull := gridSkull(12)
	faces := Select(skull, DefaultColorThreshold)
	require.Len(t, faces, 2*12*12)

	for _, total := range []int{0, 1, 17, 1000, 40000, 123457} {
		l, err := Plan(skull, faces, total)
		require.NoError(t, err)

		sum := 0
		for i, f := range l.Faces {
			assert.Equal(t, sum, f.Offset, "face %d offset", i)
			sum += f.Quota
		}
		assert.Equal(t, sum, l.Strands)
		assert.LessOrEqual(t, l.Strands, total)
		if total > 0 {
			assert.Greater(t, l.Strands, total-len(faces))
		}
	}
}

func TestPlanQuotaProportionalToArea(t *testing.T) {
	skull := &geom.Geometry{
		Vertices: []geom.Vertex{
			{Position: geom.V3(0, 0, 0), Color: scalpColor},
			{Position: geom.V3(1, 0, 0), Color: scalpColor},
			{Position: geom.V3(0, 1, 0), Color: scalpColor},
			{Position: geom.V3(3, 0, 0), Color: scalpColor},
			{Position: geom.V3(0, 3, 0), Color: scalpColor},
		},
		// areas 0.5 and 4.5
		Indices: []uint32{0, 1, 2, 0, 3, 4},
	}
	l, err := Plan(skull, Select(skull, DefaultColorThreshold), 100)
	require.NoError(t, err)
	assert.Equal(t, 10, l.Faces[0].Quota)
	assert.Equal(t, 90, l.Faces[1].Quota)
	assert.InDelta(t, 5.0, l.TotalArea, 1e-6)
}

func TestPlanErrors(t *testing.T) {
	_, err := Plan(&geom.Geometry{}, nil, 10)
	assert.ErrorIs(t, err, ErrNoScalp)

	degenerate := &geom.Geometry{
		Vertices: []geom.Vertex{
			{Position: geom.V3(0, 0, 0), Color: scalpColor},
			{Position: geom.V3(1, 1, 1), Color: scalpColor},
			{Position: geom.V3(2, 2, 2), Color: scalpColor},
		},
		Indices: []uint32{0, 1, 2},
	}
	_, err = Plan(degenerate, Select(degenerate, DefaultColorThreshold), 10)
	assert.ErrorIs(t, err, ErrNoScalp)

	inf := float32(math.Inf(1))
	unbounded := &geom.Geometry{
		Vertices: []geom.Vertex{
			{Position: geom.V3(0, 0, 0), Color: scalpColor},
			{Position: geom.V3(inf, 0, 0), Color: scalpColor},
			{Position: geom.V3(0, 0, 1), Color: scalpColor},
		},
		Indices: []uint32{0, 1, 2},
	}
	_, err = Plan(unbounded, Select(unbounded, DefaultColorThreshold), 10)
	assert.ErrorIs(t, err, ErrNoScalp)

	_, err = Plan(gridSkull(1), Select(gridSkull(1), DefaultColorThreshold), -1)
	assert.Error(t, err)
}

func TestPlanHugeTriangle(t *testing.T) {
	// float32 area of the first face overflows; quotas must stay bounded.
	skull := &geom.Geometry{
		Vertices: []geom.Vertex{
			{Position: geom.V3(0, 0, 0), Color: scalpColor},
			{Position: geom.V3(1e20, 0, 0), Color: scalpColor},
			{Position: geom.V3(0, 0, 1e20), Color: scalpColor},
			{Position: geom.V3(0, 1, 0), Color: scalpColor},
			{Position: geom.V3(1, 1, 0), Color: scalpColor},
			{Position: geom.V3(0, 1, 1), Color: scalpColor},
		},
		Indices: []uint32{0, 1, 2, 3, 4, 5},
	}
	l, err := Plan(skull, Select(skull, DefaultColorThreshold), 10)
	require.NoError(t, err)
	assert.False(t, math.IsInf(l.TotalArea, 0))
	assert.Equal(t, 10, l.Faces[0].Quota)
	assert.Equal(t, 0, l.Faces[1].Quota)
	assert.Equal(t, 10, l.Strands)

	p := l.Sample(0, rand.New(rand.NewPCG(1, 2)))
	assert.True(t, p.IsFinite())
}

func TestFaceForAndSample(t *testing.T) {
	skull := gridSkull(4)
	l, err := Plan(skull, Select(skull, DefaultColorThreshold), 500)
	require.NoError(t, err)

	r := rand.New(rand.NewPCG(9, 9))
	for s := 0; s < l.Strands; s++ {
		fi := l.FaceFor(s)
		f := l.Faces[fi]
		require.True(t, s >= f.Offset && s < f.Offset+f.Quota, "root %d mapped to face %d", s, fi)

		p := l.Sample(s, r)
		assert.True(t, l.Triangle(fi).Contains(p, 1e-4))
	}
}
