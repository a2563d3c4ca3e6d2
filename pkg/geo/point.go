package geo

import "github.com/paulmach/orb"

// Point is a geographic coordinate (longitude, latitude), matching the
// [lon, lat] axis order used throughout orb and GeoJSON.
type Point = orb.Point

// NewPoint builds a Point from longitude and latitude.
func NewPoint(lon, lat float64) Point {
	return Point{lon, lat}
}

// Lon returns the point's longitude.
func Lon(p Point) float64 { return p[0] }

// Lat returns the point's latitude.
func Lat(p Point) float64 { return p[1] }

// Distance returns the great-circle distance in meters between two points.
func Distance(a, b Point) float64 {
	return Haversine(a, b)
}
