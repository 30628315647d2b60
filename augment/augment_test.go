package augment

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/densehair/config"
	"github.com/pthm-cable/densehair/geom"
	"github.com/pthm-cable/densehair/hair"
	"github.com/pthm-cable/densehair/neighbors"
	"github.com/pthm-cable/densehair/telemetry"
)

var scalpTri = geom.Triangle{A: geom.V3(0, 0, 0), B: geom.V3(1, 0, 0), C: geom.V3(0, 0, 1)}

// testSkull has one scalp triangle and one bone-coloured triangle of equal
// area.
func testSkull() *geom.Geometry {
	scalpColor := geom.V3(1, 0, 0)
	bone := geom.V3(1, 1, 1)
	return &geom.Geometry{
		Vertices: []geom.Vertex{
			{Position: scalpTri.A, Color: scalpColor},
			{Position: scalpTri.B, Color: scalpColor},
			{Position: scalpTri.C, Color: scalpColor},
			{Position: geom.V3(3, 0, 0), Color: bone},
			{Position: geom.V3(4, 0, 0), Color: bone},
			{Position: geom.V3(3, 0, 1), Color: bone},
		},
		Indices: []uint32{0, 1, 2, 3, 4, 5},
	}
}

// testCaptured returns two far-apart strands that both climb +Y by one unit
// per step.
func testCaptured(t *testing.T) *hair.Strands {
	t.Helper()
	a := geom.V3(1, 0, 0)
	b := geom.V3(0, 1, 0)
	s, err := hair.FromColoredPoints(
		[]geom.Vec3{
			geom.V3(-10, 0, 0), geom.V3(-10, 1, 0), geom.V3(-10, 2, 0), geom.V3(-10, 3, 0),
			geom.V3(10, 0, 0), geom.V3(10, 1, 0), geom.V3(10, 2, 0), geom.V3(10, 3, 0),
		},
		[]geom.Vec3{a, a, a, a, b, b, b, b},
	)
	require.NoError(t, err)
	return s
}

func testConfig() config.AugmentConfig {
	cfg := config.Default().Augment
	cfg.Seed = 7
	return cfg
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAugmentEndToEnd(t *testing.T) {
	captured := testCaptured(t)
	before := captured.Geometry.Clone()

	a := New(testConfig(), quiet())
	report, err := a.Augment(context.Background(), captured, testSkull(), 10)
	require.NoError(t, err)

	assert.Equal(t, 10, report.Requested)
	assert.Equal(t, 10, report.Planned)
	assert.Equal(t, 10, report.Grown)
	assert.Equal(t, 1, report.ScalpFaces)
	assert.Equal(t, 2, report.CapturedStrands)
	assert.Equal(t, 4, report.StrandLength)
	assert.Equal(t, 2, report.Neighbors)
	assert.Equal(t, 1, report.Batches)
	assert.Empty(t, report.Skipped)
	assert.InDelta(t, 2.0, report.ActiveMean, 1e-9)
	assert.InDelta(t, 3.0, report.ArcMean, 1e-5)
	assert.Zero(t, report.Stalled)

	g := &captured.Geometry
	assert.Equal(t, before.Vertices, g.Vertices[:before.Len()], "captured vertices unchanged")
	assert.Equal(t, before.Indices, g.Indices[:len(before.Indices)], "captured indices unchanged")
	require.Equal(t, int(before.Len())+10*4, int(g.Len()))
	require.Equal(t, len(before.Indices)+10*3*2, len(g.Indices))
	require.NoError(t, g.CheckIndices())

	for s := 0; s < 10; s++ {
		base := before.Len() + uint32(s*4)
		root := g.Vertices[base].Position
		assert.True(t, scalpTri.Contains(root, 1e-5), "root %d at %v outside scalp", s, root)
		for j := uint32(1); j < 4; j++ {
			want := root.Add(geom.V3(0, float32(j), 0))
			got := g.Vertices[base+j].Position
			assert.InDelta(t, want.X, got.X, 1e-5)
			assert.InDelta(t, want.Y, got.Y, 1e-5)
			assert.InDelta(t, want.Z, got.Z, 1e-5)
		}
	}
}

func TestAugmentDeterministic(t *testing.T) {
	run := func(batch, workers int) *geom.Geometry {
		cfg := testConfig()
		cfg.BatchSize = batch
		cfg.Workers = workers
		cfg.GrowthWorkers = workers
		captured := testCaptured(t)
		_, err := New(cfg, quiet()).Augment(context.Background(), captured, testSkull(), 200)
		require.NoError(t, err)
		return &captured.Geometry
	}
	want := run(2000, 0)
	assert.Equal(t, want, run(2000, 0), "same seed")
	assert.Equal(t, want, run(7, 4), "different batching")
}

func TestAugmentNoGrowth(t *testing.T) {
	bone := testSkull()
	for i := range bone.Vertices {
		bone.Vertices[i].Color = geom.V3(1, 1, 1)
	}
	// Two equal scalp faces split a total of one into two zero quotas.
	twoFaces := testSkull()
	for i := 3; i < 6; i++ {
		twoFaces.Vertices[i].Color = geom.V3(0, 0, 0)
	}
	degenerate := &geom.Geometry{
		Vertices: []geom.Vertex{{}, {Position: geom.V3(1, 0, 0)}, {Position: geom.V3(2, 0, 0)}},
		Indices:  []uint32{0, 1, 2},
	}

	tests := []struct {
		name   string
		skull  *geom.Geometry
		total  int
		reason string
	}{
		{"zero total", testSkull(), 0, SkipZeroRequested},
		{"no scalp", bone, 10, SkipNoScalp},
		{"nil skull", nil, 10, SkipNoScalp},
		{"zero area", degenerate, 10, SkipNoScalp},
		{"rounds to zero", twoFaces, 1, SkipZeroPlanned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captured := testCaptured(t)
			before := captured.Geometry.Clone()

			report, err := New(testConfig(), quiet()).Augment(context.Background(), captured, tt.skull, tt.total)
			require.NoError(t, err)
			assert.Equal(t, tt.reason, report.Skipped)
			assert.Zero(t, report.Grown)
			assert.Equal(t, before, &captured.Geometry)
		})
	}
}

func TestAugmentErrors(t *testing.T) {
	t.Run("no captured roots", func(t *testing.T) {
		captured := &hair.Strands{}
		_, err := New(testConfig(), quiet()).Augment(context.Background(), captured, testSkull(), 10)
		assert.ErrorIs(t, err, neighbors.ErrNoCapturedRoots)
		assert.Zero(t, captured.Geometry.Len())
	})

	t.Run("nil captured", func(t *testing.T) {
		_, err := New(testConfig(), quiet()).Augment(context.Background(), nil, testSkull(), 10)
		assert.ErrorIs(t, err, neighbors.ErrNoCapturedRoots)
	})

	t.Run("negative total", func(t *testing.T) {
		_, err := New(testConfig(), quiet()).Augment(context.Background(), testCaptured(t), testSkull(), -1)
		assert.Error(t, err)
	})

	t.Run("strand length too long", func(t *testing.T) {
		cfg := testConfig()
		cfg.StrandLength = 5
		captured := testCaptured(t)
		before := captured.Geometry.Clone()
		_, err := New(cfg, quiet()).Augment(context.Background(), captured, testSkull(), 10)
		assert.Error(t, err)
		assert.Equal(t, before, &captured.Geometry)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		captured := testCaptured(t)
		before := captured.Geometry.Clone()
		_, err := New(testConfig(), quiet()).Augment(ctx, captured, testSkull(), 10)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, before, &captured.Geometry)
	})
}

type recordingMesh struct {
	calls int
	last  *geom.Geometry
}

func (m *recordingMesh) SetGeometry(g *geom.Geometry) {
	m.calls++
	m.last = g
}

func TestDeliver(t *testing.T) {
	a := New(testConfig(), quiet())

	mesh := &recordingMesh{}
	captured := testCaptured(t)
	report, err := a.Deliver(context.Background(), mesh, captured, testSkull(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, mesh.calls)
	assert.Same(t, &captured.Geometry, mesh.last)
	assert.Equal(t, int(captured.Geometry.Len()), 8+report.Grown*4)

	failed := &recordingMesh{}
	_, err = a.Deliver(context.Background(), failed, &hair.Strands{}, testSkull(), 10)
	assert.Error(t, err)
	assert.Zero(t, failed.calls)
}

func TestStrandRowsAndPerf(t *testing.T) {
	pc := telemetry.NewPerfCollector(4)
	a := New(testConfig(), quiet(), WithPerfCollector(pc))

	_, err := a.Augment(context.Background(), testCaptured(t), testSkull(), 10)
	require.NoError(t, err)

	rows := a.StrandRows()
	require.Len(t, rows, 10)
	for i, r := range rows {
		assert.Equal(t, 1, r.Run)
		assert.Equal(t, i, r.Strand)
		assert.Equal(t, 2, r.Active)
	}

	sample := a.LastSample()
	for _, phase := range []string{telemetry.PhaseSelect, telemetry.PhasePlan, telemetry.PhaseIndex, telemetry.PhaseSearch, telemetry.PhaseGrow} {
		assert.Contains(t, sample.Phases, phase)
	}
	assert.Equal(t, 1, pc.Stats().Runs)
	assert.Same(t, pc, a.Perf())
	assert.Equal(t, uint64(7), a.Seed())
}
