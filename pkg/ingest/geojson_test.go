package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azybler/tracematch/pkg/feature"
)

const sampleFeatureCollection = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "id": "seg-1",
      "geometry": {"type": "LineString", "coordinates": [[0,0],[0.001,0],[0.002,0]]},
      "properties": {
        "connectors": [
          {"connector_id": "conn-a", "at": 0.0},
          {"connector_id": "conn-b", "at": 1.0}
        ]
      }
    },
    {
      "type": "Feature",
      "id": "trace-1",
      "geometry": {"type": "LineString", "coordinates": [[0,0],[0.001,0]]},
      "properties": {
        "times": [1700000000, 1700000005]
      }
    },
    {
      "type": "Feature",
      "id": "poly-1",
      "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]},
      "properties": {}
    }
  ]
}`

func TestLoadFeatureCollection(t *testing.T) {
	feats, err := LoadFeatureCollection([]byte(sampleFeatureCollection))
	require.NoError(t, err)

	// The Polygon feature is skipped; only the two line features survive.
	require.Len(t, feats, 2)

	byID := make(map[string]bool)
	for _, f := range feats {
		byID[f.ID] = true
	}
	assert.True(t, byID["seg-1"])
	assert.True(t, byID["trace-1"])

	segFeature := findByID(feats, "seg-1")
	traceFeature := findByID(feats, "trace-1")

	require.NotNil(t, segFeature)
	require.Len(t, segFeature.Connectors, 2)
	assert.Equal(t, "conn-a", segFeature.Connectors[0].ID)

	require.NotNil(t, traceFeature)
	require.Len(t, traceFeature.Times, 2)
	assert.Equal(t, 1700000000.0, traceFeature.Times[0])
}

func findByID(feats []*feature.Feature, id string) *feature.Feature {
	for _, f := range feats {
		if f.ID == id {
			return f
		}
	}
	return nil
}
