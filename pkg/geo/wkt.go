package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// PointWKT returns the WKT representation of a point, e.g. "POINT(103.8 1.3)".
func PointWKT(p Point) string {
	return wkt.MarshalString(orb.Point(p))
}

// LineStringWKT returns the WKT representation of a linestring.
func LineStringWKT(ls orb.LineString) string {
	return wkt.MarshalString(ls)
}

// GeometryWKT returns the WKT representation of any supported geometry kind.
func GeometryWKT(g orb.Geometry) string {
	return wkt.MarshalString(g)
}
