package geo

import "github.com/paulmach/orb"

// LineStringLength returns the cumulative distance in meters along a
// linestring's vertices.
func LineStringLength(ls orb.LineString) float64 {
	var total float64
	for i := 0; i+1 < len(ls); i++ {
		total += Distance(ls[i], ls[i+1])
	}
	return total
}

// MultiLineStringLength sums LineStringLength across every part, treating a
// multi-linestring as a concatenation of independent parts for length
// purposes (original §3).
func MultiLineStringLength(mls orb.MultiLineString) float64 {
	var total float64
	for _, ls := range mls {
		total += LineStringLength(ls)
	}
	return total
}

// GeometryLength dispatches to LineStringLength/MultiLineStringLength
// depending on the concrete geometry kind.
func GeometryLength(g orb.Geometry) float64 {
	switch v := g.(type) {
	case orb.LineString:
		return LineStringLength(v)
	case orb.MultiLineString:
		return MultiLineStringLength(v)
	case orb.Point:
		return 0
	default:
		return 0
	}
}

// NearestPointOnLineString projects p onto ls, returning the closest point,
// its arc-length ratio along the whole linestring (0 at the first vertex, 1
// at the last), and the distance in meters from p to the projected point.
//
// Projection for segment selection happens in the same equirectangular
// approximation as PointToSegmentDist (teacher's pkg/geo approach);
// consistent within a trace is all the original requires (§4.1).
func NearestPointOnLineString(p Point, ls orb.LineString) (snapped Point, ratio float64, dist float64) {
	if len(ls) == 0 {
		return Point{}, 0, 0
	}
	if len(ls) == 1 {
		return ls[0], 0, Distance(p, ls[0])
	}

	segLens := make([]float64, len(ls)-1)
	total := 0.0
	for i := range segLens {
		segLens[i] = Distance(ls[i], ls[i+1])
		total += segLens[i]
	}

	bestDist := Distance(p, ls[0])
	bestPoint := ls[0]
	bestCumLen := 0.0

	cum := 0.0
	for i := 0; i+1 < len(ls); i++ {
		a, b := ls[i], ls[i+1]
		d, t := PointToSegmentDist(p, a, b)
		if d < bestDist {
			bestDist = d
			bestPoint = Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
			bestCumLen = cum + t*segLens[i]
		}
		cum += segLens[i]
	}

	if total == 0 {
		return bestPoint, 0, bestDist
	}
	return bestPoint, bestCumLen / total, bestDist
}

// NearestPointOnGeometry projects p onto every linestring part of g and
// keeps the closest result, as original §3 requires for multi-linestrings
// ("nearest-point ops consider all parts").
func NearestPointOnGeometry(p Point, g orb.Geometry) (snapped Point, dist float64) {
	switch v := g.(type) {
	case orb.LineString:
		sp, _, d := NearestPointOnLineString(p, v)
		return sp, d
	case orb.MultiLineString:
		best := -1.0
		var bestPoint Point
		for _, ls := range v {
			sp, _, d := NearestPointOnLineString(p, ls)
			if best < 0 || d < best {
				best = d
				bestPoint = sp
			}
		}
		return bestPoint, best
	case orb.Point:
		return v, Distance(p, v)
	default:
		return Point{}, 0
	}
}

// PointAtRatio returns the coordinate at arc-length ratio r (0..1) along ls.
func PointAtRatio(ls orb.LineString, r float64) Point {
	if len(ls) == 0 {
		return Point{}
	}
	if len(ls) == 1 || r <= 0 {
		return ls[0]
	}
	if r >= 1 {
		return ls[len(ls)-1]
	}

	total := LineStringLength(ls)
	if total == 0 {
		return ls[0]
	}
	target := r * total

	cum := 0.0
	for i := 0; i+1 < len(ls); i++ {
		a, b := ls[i], ls[i+1]
		segLen := Distance(a, b)
		if cum+segLen >= target {
			if segLen == 0 {
				return a
			}
			t := (target - cum) / segLen
			return Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
		}
		cum += segLen
	}
	return ls[len(ls)-1]
}
