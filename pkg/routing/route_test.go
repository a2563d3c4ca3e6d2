package routing

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azybler/tracematch/pkg/feature"
	"github.com/azybler/tracematch/pkg/roadgraph"
)

func chainFeatures() map[string]*feature.Feature {
	feats := map[string]*feature.Feature{
		"seg-1": {
			ID:       "seg-1",
			Geometry: orb.LineString{{0, 0}, {0.01, 0}},
			Connectors: []feature.ConnectorRef{
				{ID: "c1", At: 0},
				{ID: "c2", At: 1},
			},
		},
		"seg-2": {
			ID:       "seg-2",
			Geometry: orb.LineString{{0.01, 0}, {0.02, 0}},
			Connectors: []feature.ConnectorRef{
				{ID: "c2", At: 0},
				{ID: "c3", At: 1},
			},
		},
	}
	return feats
}

func TestShortestRouteSameFeature(t *testing.T) {
	feats := chainFeatures()
	var list []*feature.Feature
	for _, f := range feats {
		list = append(list, f)
	}
	g := roadgraph.Build(list)

	route, err := ShortestRoute(g, feats, Endpoint{FeatureID: "seg-1", Ratio: 0.1}, Endpoint{FeatureID: "seg-1", Ratio: 0.9}, nil)
	require.NoError(t, err)
	require.Len(t, route.Steps, 1)
	assert.InDelta(t, feats["seg-1"].ArcDistance(0.1, 0.9), route.Distance, 1e-6)
}

func TestShortestRouteAcrossFeatures(t *testing.T) {
	feats := chainFeatures()
	var list []*feature.Feature
	for _, f := range feats {
		list = append(list, f)
	}
	g := roadgraph.Build(list)

	route, err := ShortestRoute(g, feats, Endpoint{FeatureID: "seg-1", Ratio: 0.5}, Endpoint{FeatureID: "seg-2", Ratio: 0.5}, nil)
	require.NoError(t, err)
	require.Len(t, route.Steps, 2)
	assert.Equal(t, "seg-1", route.Steps[0].FeatureID)
	assert.Equal(t, "seg-2", route.Steps[1].FeatureID)
	assert.Greater(t, route.Distance, 0.0)
}

func TestShortestRouteNoPath(t *testing.T) {
	feats := chainFeatures()
	isolated := &feature.Feature{
		ID:       "island",
		Geometry: orb.LineString{{10, 10}, {10.01, 10}},
		Connectors: []feature.ConnectorRef{
			{ID: "i1", At: 0},
			{ID: "i2", At: 1},
		},
	}
	feats["island"] = isolated
	var list []*feature.Feature
	for _, f := range feats {
		list = append(list, f)
	}
	g := roadgraph.Build(list)

	_, err := ShortestRoute(g, feats, Endpoint{FeatureID: "seg-1", Ratio: 0.1}, Endpoint{FeatureID: "island", Ratio: 0.9}, nil)
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestShortestRouteExcludedIntermediate(t *testing.T) {
	feats := chainFeatures()
	feats["seg-3"] = &feature.Feature{
		ID:       "seg-3",
		Geometry: orb.LineString{{0.01, 0}, {0.01, 0.01}, {0.02, 0}},
		Connectors: []feature.ConnectorRef{
			{ID: "c2", At: 0},
			{ID: "c3", At: 1},
		},
	}
	var list []*feature.Feature
	for _, f := range feats {
		list = append(list, f)
	}
	g := roadgraph.Build(list)

	// Without exclusions, either seg-2 or seg-3 could carry the c2->c3 hop.
	_, err := ShortestRoute(g, feats, Endpoint{FeatureID: "seg-1", Ratio: 0.5}, Endpoint{FeatureID: "seg-2", Ratio: 0.5}, nil)
	require.NoError(t, err)

	// Excluding seg-2 as an intermediate still allows seg-2 as the
	// destination feature itself (original §4.4: "f is not from_feature
	// or to_feature").
	route, err := ShortestRoute(g, feats, Endpoint{FeatureID: "seg-1", Ratio: 0.5}, Endpoint{FeatureID: "seg-2", Ratio: 0.5}, map[string]bool{"seg-2": true})
	require.NoError(t, err)
	assert.Greater(t, route.Distance, 0.0)
}
