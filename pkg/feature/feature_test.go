package feature

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azybler/tracematch/pkg/geo"
)

func sampleFeature() *Feature {
	return &Feature{
		ID:       "seg-1",
		Geometry: orb.LineString{{0, 0}, {0.01, 0}, {0.02, 0}},
		Connectors: []ConnectorRef{
			{ID: "conn-a", At: 0},
			{ID: "conn-b", At: 1},
		},
		Properties: map[string]any{"class": "residential"},
	}
}

func TestFeatureConnectorIDs(t *testing.T) {
	f := sampleFeature()
	assert.Equal(t, []string{"conn-a", "conn-b"}, f.ConnectorIDs())
}

func TestFeatureLength(t *testing.T) {
	f := sampleFeature()
	assert.Greater(t, f.Length(), 0.0)
}

func TestFeatureConnectorAt(t *testing.T) {
	f := sampleFeature()

	p, ratio, ok := f.ConnectorAt("conn-a")
	require.True(t, ok)
	assert.Equal(t, 0.0, ratio)
	assert.InDelta(t, 0.0, p[0], 1e-9)

	p, ratio, ok = f.ConnectorAt("conn-b")
	require.True(t, ok)
	assert.Equal(t, 1.0, ratio)
	assert.InDelta(t, 0.02, p[0], 1e-6)

	_, _, ok = f.ConnectorAt("missing")
	assert.False(t, ok)
}

func TestFeatureArcDistance(t *testing.T) {
	f := sampleFeature()
	full := f.ArcDistance(0, 1)
	assert.InDelta(t, f.Length(), full, 1e-6)

	half := f.ArcDistance(0, 0.5)
	assert.InDelta(t, full/2, half, 1e-6)
}

func TestFeatureNearestPoint(t *testing.T) {
	f := sampleFeature()
	snapped, dist := f.NearestPoint(geo.Point{0.01, 0.0005})
	assert.Less(t, dist, 100.0)
	assert.InDelta(t, 0.01, snapped[0], 1e-3)
}

func TestMultiLineStringFeaturePointAtRatio(t *testing.T) {
	f := &Feature{
		ID: "seg-multi",
		Geometry: orb.MultiLineString{
			{{0, 0}, {0.01, 0}},
			{{0.01, 0}, {0.02, 0}},
		},
	}
	start := f.PointAtRatio(0)
	assert.InDelta(t, 0.0, start[0], 1e-9)

	end := f.PointAtRatio(1)
	assert.InDelta(t, 0.02, end[0], 1e-6)
}

func TestNewTraceFromFeature(t *testing.T) {
	f := &Feature{
		ID:       "trace-1",
		Geometry: orb.LineString{{0, 0}, {0.001, 0.001}},
		Times:    []float64{1000, 1010},
	}
	tr := NewTraceFromFeature(f)
	require.Len(t, tr.Points, 2)
	assert.Equal(t, "trace-1", tr.ID)
	assert.True(t, tr.Points[1].Time.After(tr.Points[0].Time))
	assert.InDelta(t, 10.0, tr.ElapsedSeconds(0, 1), 1e-9)
}

func TestTraceLength(t *testing.T) {
	tr := &Trace{Points: []TracePoint{
		{Point: geo.Point{0, 0}, Time: time.Unix(0, 0)},
		{Point: geo.Point{0.01, 0}, Time: time.Unix(10, 0)},
		{Point: geo.Point{0.02, 0}, Time: time.Unix(20, 0)},
	}}
	assert.Greater(t, tr.Length(), 0.0)
	assert.InDelta(t, tr.DistanceBetween(0, 1)+tr.DistanceBetween(1, 2), tr.Length(), 1e-6)
}
