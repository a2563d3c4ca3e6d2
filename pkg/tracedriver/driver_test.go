package tracedriver

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azybler/tracematch/pkg/feature"
	"github.com/azybler/tracematch/pkg/geo"
	"github.com/azybler/tracematch/pkg/hmm"
	"github.com/azybler/tracematch/pkg/spatial"
)

func straightRoad() *feature.Feature {
	return &feature.Feature{
		ID:       "road-A",
		Geometry: orb.LineString{{0, 0}, {0.001, 0}, {0.002, 0}},
		Connectors: []feature.ConnectorRef{
			{ID: "c-start", At: 0},
			{ID: "c-end", At: 1},
		},
	}
}

func straightTraceForDriver() *feature.Trace {
	base := time.Unix(1_700_000_000, 0).UTC()
	return &feature.Trace{
		ID: "trace-1",
		Points: []feature.TracePoint{
			{Point: geo.Point{0, 0}, Time: base},
			{Point: geo.Point{0.001, 0}, Time: base.Add(5 * time.Second)},
			{Point: geo.Point{0.002, 0}, Time: base.Add(10 * time.Second)},
		},
	}
}

func TestMatchOne(t *testing.T) {
	roads := spatial.NewMatchableSet([]*feature.Feature{straightRoad()}, 0)
	r := MatchOne(straightTraceForDriver(), roads, hmm.DefaultOptions())

	assert.Equal(t, "trace-1", r.ID)
	assert.Equal(t, 3, r.PointsWithMatches)
	assert.Equal(t, []string{"road-A"}, r.MatchedTargetIDs)
	assert.True(t, r.HasAvgDistToRoad)
	assert.Equal(t, 0, r.SequenceBreaks)
	assert.Greater(t, r.TargetCandidatesCount, 0)
	assert.Equal(t, 1, r.CandidateComponents)
}

func TestMatchOneNoCandidatesNearby(t *testing.T) {
	farRoad := &feature.Feature{
		ID:       "far-road",
		Geometry: orb.LineString{{10, 10}, {10.01, 10}},
		Connectors: []feature.ConnectorRef{
			{ID: "f1", At: 0},
			{ID: "f2", At: 1},
		},
	}
	roads := spatial.NewMatchableSet([]*feature.Feature{farRoad}, 0)
	r := MatchOne(straightTraceForDriver(), roads, hmm.DefaultOptions())

	assert.Equal(t, 0, r.PointsWithMatches)
	assert.False(t, r.HasAvgDistToRoad)
	assert.Empty(t, r.MatchedTargetIDs)
	assert.Equal(t, 0, r.CandidateComponents)
}

func TestMatchOneDisconnectedCandidates(t *testing.T) {
	// Two roads inside the same search radius but sharing no connector:
	// the candidate graph splits into two components, and no amount of
	// Dijkstra tuning lets a route cross between them.
	roadA := straightRoad()
	roadB := &feature.Feature{
		ID:       "road-B",
		Geometry: orb.LineString{{0, 0.0005}, {0.002, 0.0005}},
		Connectors: []feature.ConnectorRef{
			{ID: "b-start", At: 0},
			{ID: "b-end", At: 1},
		},
	}
	roads := spatial.NewMatchableSet([]*feature.Feature{roadA, roadB}, 0)
	r := MatchOne(straightTraceForDriver(), roads, hmm.DefaultOptions())

	assert.Equal(t, 2, r.CandidateComponents)
}

func TestMatchAllPreservesOrderAndRunsConcurrently(t *testing.T) {
	roads := spatial.NewMatchableSet([]*feature.Feature{straightRoad()}, 0)

	traces := make([]*feature.Trace, 5)
	for i := range traces {
		tr := straightTraceForDriver()
		tr.ID = tr.ID + "-" + string(rune('a'+i))
		traces[i] = tr
	}

	results := MatchAll(traces, roads, hmm.DefaultOptions(), 3)
	require.Len(t, results, 5)
	for i, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, traces[i].ID, r.ID)
	}
}

func TestOriginalWKT(t *testing.T) {
	roads := spatial.NewMatchableSet([]*feature.Feature{straightRoad()}, 0)
	r := MatchOne(straightTraceForDriver(), roads, hmm.DefaultOptions())
	assert.Contains(t, r.OriginalWKT(), "LINESTRING")
}
