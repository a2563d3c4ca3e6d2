// Package feature defines the read-only road-network and trace data model
// (original §3): Feature, MatchableSet's building block, Point and Trace.
package feature

import (
	"github.com/paulmach/orb"

	"github.com/azybler/tracematch/pkg/geo"
)

// ConnectorRef is one connector a feature is physically connected to, and
// its relative position along the feature's geometry (0..1). The position
// resolves original §4.4's "distance along feature to nearest connector"
// without widening the connector-id contract of original §3 (callers still
// only ever see opaque connector id strings); see SPEC_FULL.md "Resolved
// Open Questions" #2.
type ConnectorRef struct {
	ID string
	At float64
}

// Feature is an immutable road-network element (original §3). Geometry is
// either a single orb.LineString or an orb.MultiLineString; both satisfy
// orb.Geometry.
type Feature struct {
	ID         string
	Geometry   orb.Geometry
	Connectors []ConnectorRef
	Properties map[string]any

	// Times holds per-vertex timestamps when this feature is used as a
	// trace (original §3's Trace); nil for ordinary road features.
	Times []float64 // unix seconds, parallel to Geometry's vertex order
}

// ConnectorIDs returns the feature's connector ids in order, discarding
// position — the view original §4.3's road-graph construction needs.
func (f *Feature) ConnectorIDs() []string {
	ids := make([]string, len(f.Connectors))
	for i, c := range f.Connectors {
		ids[i] = c.ID
	}
	return ids
}

// Length returns the feature's geometry length in meters (original §4.1).
func (f *Feature) Length() float64 {
	return geo.GeometryLength(f.Geometry)
}

// Lines returns the feature's geometry as a flat list of linestring parts,
// treating a single linestring as a one-part "multi" (original §3: "nearest
// point ops consider all parts").
func (f *Feature) Lines() []orb.LineString {
	switch g := f.Geometry.(type) {
	case orb.LineString:
		return []orb.LineString{g}
	case orb.MultiLineString:
		return []orb.LineString(g)
	default:
		return nil
	}
}

// NearestPoint projects p onto the feature's geometry, returning the
// closest point on it and the distance in meters (original §4.1).
func (f *Feature) NearestPoint(p geo.Point) (snapped geo.Point, dist float64) {
	return geo.NearestPointOnGeometry(p, f.Geometry)
}

// NearestPointRatio projects p onto the feature's geometry like
// NearestPoint, but also returns the arc-length ratio (0..1) of the
// snapped point along the feature's full geometry (all parts
// concatenated), in the same convention as PointAtRatio and ArcDistance —
// the form pkg/hmm needs to record a candidate snap as a routing
// Endpoint.
func (f *Feature) NearestPointRatio(p geo.Point) (snapped geo.Point, ratio float64, dist float64) {
	lines := f.Lines()
	if len(lines) == 0 {
		return geo.Point{}, 0, 0
	}
	if len(lines) == 1 {
		return geo.NearestPointOnLineString(p, lines[0])
	}

	total := f.Length()
	best := -1.0
	var bestPoint geo.Point
	var bestGlobalRatio float64
	cum := 0.0
	for _, ls := range lines {
		segLen := geo.LineStringLength(ls)
		sp, localRatio, d := geo.NearestPointOnLineString(p, ls)
		if best < 0 || d < best {
			best = d
			bestPoint = sp
			if total > 0 {
				bestGlobalRatio = (cum + localRatio*segLen) / total
			}
		}
		cum += segLen
	}
	return bestPoint, bestGlobalRatio, best
}

// ConnectorAt returns the geometry coordinate of the connector with the
// given id, and whether it was found. When the feature is a
// MultiLineString, the ratio is resolved against the single contiguous
// line formed by concatenating parts in order, matching Length()'s and
// GeometryLength's treatment of multi-linestrings.
func (f *Feature) ConnectorAt(connectorID string) (geo.Point, float64, bool) {
	for _, c := range f.Connectors {
		if c.ID == connectorID {
			return f.PointAtRatio(c.At), c.At, true
		}
	}
	return geo.Point{}, 0, false
}

// PointAtRatio returns the coordinate at arc-length ratio r (0..1) along the
// feature's full geometry (all parts concatenated in order).
func (f *Feature) PointAtRatio(r float64) geo.Point {
	lines := f.Lines()
	if len(lines) == 0 {
		return geo.Point{}
	}
	if len(lines) == 1 {
		return geo.PointAtRatio(lines[0], r)
	}

	total := f.Length()
	if total == 0 {
		return lines[0][0]
	}
	target := r * total
	cum := 0.0
	for _, ls := range lines {
		segLen := geo.LineStringLength(ls)
		if cum+segLen >= target || segLen == 0 {
			localRatio := 0.0
			if segLen > 0 {
				localRatio = (target - cum) / segLen
			}
			return geo.PointAtRatio(ls, localRatio)
		}
		cum += segLen
	}
	last := lines[len(lines)-1]
	return last[len(last)-1]
}

// ArcDistance returns the distance in meters between two arc-length ratios
// (0..1) along the feature's full geometry. Since ratios are arc-length
// parameterized, this is exactly |r2-r1| * Length() — no further geometry
// walk needed.
func (f *Feature) ArcDistance(r1, r2 float64) float64 {
	d := r2 - r1
	if d < 0 {
		d = -d
	}
	return d * f.Length()
}
