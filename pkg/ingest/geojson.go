// Package ingest loads Overture-style GeoJSON feature collections into the
// core's read-only data model (original §1 Non-goals: "ingestion... [is]
// an external collaborator, not specified" by the core, but a complete
// repo needs one). Grounded on paulmach/orb/geojson's decode API, the same
// geometry library family pkg/geo and pkg/feature already build on.
package ingest

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/azybler/tracematch/pkg/feature"
)

// LoadFeatureCollection parses raw GeoJSON bytes into road-network
// Features (original §6 "a feature loader returning MatchableSets... the
// core requires only id, geometry, properties.times, and connector id
// extraction"). A feature whose geometry cannot be parsed as a line is
// skipped rather than aborting the whole load (original §7
// GeometryInvalid: "skip the feature during loading; continue").
func LoadFeatureCollection(data []byte) ([]*feature.Feature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("ingest: parse feature collection: %w", err)
	}

	feats := make([]*feature.Feature, 0, len(fc.Features))
	for _, gf := range fc.Features {
		f, ok := toFeature(gf)
		if !ok {
			continue
		}
		feats = append(feats, f)
	}
	return feats, nil
}

func toFeature(gf *geojson.Feature) (*feature.Feature, bool) {
	switch gf.Geometry.(type) {
	case orb.LineString, orb.MultiLineString:
	default:
		return nil, false
	}

	id := featureID(gf)
	if id == "" {
		return nil, false
	}

	f := &feature.Feature{
		ID:         id,
		Geometry:   gf.Geometry,
		Connectors: connectorsFromProperties(gf.Properties),
		Properties: map[string]any(gf.Properties),
		Times:      timesFromProperties(gf.Properties),
	}
	return f, true
}

func featureID(gf *geojson.Feature) string {
	if s, ok := gf.ID.(string); ok && s != "" {
		return s
	}
	if s, ok := gf.Properties["id"].(string); ok {
		return s
	}
	return ""
}

// connectorsFromProperties reads the Overture GERS
// TransportationSegment.connectors shape: a list of
// {"connector_id": "...", "at": 0.0} objects (original_source's
// overture-schema-transportation-theme segment model), resolving
// SPEC_FULL.md's "Resolved Open Questions" #2 connector-position
// representation.
func connectorsFromProperties(props geojson.Properties) []feature.ConnectorRef {
	raw, ok := props["connectors"].([]any)
	if !ok {
		return nil
	}
	refs := make([]feature.ConnectorRef, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := obj["connector_id"].(string)
		if id == "" {
			continue
		}
		at, _ := obj["at"].(float64)
		refs = append(refs, feature.ConnectorRef{ID: id, At: at})
	}
	return refs
}

// timesFromProperties reads an optional parallel array of unix-second
// timestamps aligned 1:1 with a trace feature's geometry vertices
// (original §3 Trace: "optional parallel times array").
func timesFromProperties(props geojson.Properties) []float64 {
	raw, ok := props["times"].([]any)
	if !ok {
		return nil
	}
	times := make([]float64, 0, len(raw))
	for _, v := range raw {
		switch t := v.(type) {
		case float64:
			times = append(times, t)
		case int:
			times = append(times, float64(t))
		}
	}
	return times
}
