// Package spatial implements the candidate-road lookup structure (original
// §4.2, "C2 Spatial Index"): given a GPS point, return the road Features
// within a search radius, plus the hierarchical cell ids a Feature covers.
package spatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/tidwall/rtree"

	"github.com/azybler/tracematch/pkg/feature"
	"github.com/azybler/tracematch/pkg/geo"
)

// DefaultResolution is the maptile zoom level used when none is given
// (original default --resolution, a single fixed integer cell resolution
// analogous to an H3 resolution).
const DefaultResolution maptile.Zoom = 12

// MatchableSet is the queryable set of candidate road Features for one
// matching run (original §4.2/§4.3's "the matchable set"). It answers two
// questions: which features lie within a radius of a point ("by_cell" /
// "get_features_with_cells" in the original), and which cells does a
// feature's geometry span ("cells_of").
type MatchableSet struct {
	resolution maptile.Zoom

	byID   map[string]*feature.Feature
	byCell map[maptile.Tile][]string // cell -> feature ids touching it

	tree rtree.RTreeG[string] // bbox index over feature ids, for fast radius pre-filtering
}

// NewMatchableSet indexes feats at the given cell resolution. A zero
// resolution selects DefaultResolution.
func NewMatchableSet(feats []*feature.Feature, resolution maptile.Zoom) *MatchableSet {
	if resolution == 0 {
		resolution = DefaultResolution
	}
	ms := &MatchableSet{
		resolution: resolution,
		byID:       make(map[string]*feature.Feature, len(feats)),
		byCell:     make(map[maptile.Tile][]string),
	}
	for _, f := range feats {
		ms.add(f)
	}
	return ms
}

func (ms *MatchableSet) add(f *feature.Feature) {
	ms.byID[f.ID] = f

	minLon, minLat := math.Inf(1), math.Inf(1)
	maxLon, maxLat := math.Inf(-1), math.Inf(-1)
	for _, ls := range f.Lines() {
		for _, c := range ls {
			if c[0] < minLon {
				minLon = c[0]
			}
			if c[0] > maxLon {
				maxLon = c[0]
			}
			if c[1] < minLat {
				minLat = c[1]
			}
			if c[1] > maxLat {
				maxLat = c[1]
			}
		}
	}
	if math.IsInf(minLon, 1) {
		return // empty geometry, nothing to index
	}

	ms.tree.Insert([2]float64{minLon, minLat}, [2]float64{maxLon, maxLat}, f.ID)

	for _, t := range ms.cellsOfBound(orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}) {
		ms.byCell[t] = append(ms.byCell[t], f.ID)
	}
}

// ByID returns the feature with the given id, and whether it exists
// (original "by_id").
func (ms *MatchableSet) ByID(id string) (*feature.Feature, bool) {
	f, ok := ms.byID[id]
	return f, ok
}

// CellOf returns the cell a single point falls in at the set's resolution
// (original "cell_of").
func (ms *MatchableSet) CellOf(p geo.Point) maptile.Tile {
	return maptile.At(orb.Point(p), ms.resolution)
}

// cellsOfBound returns every cell the given bound overlaps, scanning the
// bound's tile-space rectangle at the set's resolution.
func (ms *MatchableSet) cellsOfBound(b orb.Bound) []maptile.Tile {
	lo := maptile.At(b.Min, ms.resolution)
	hi := maptile.At(b.Max, ms.resolution)

	minX, maxX := lo.X, hi.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	// Y grows downward in tile space; latitude grows upward, so the
	// min-latitude corner maps to the larger Y.
	minY, maxY := hi.Y, lo.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}

	var tiles []maptile.Tile
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			tiles = append(tiles, maptile.New(x, y, ms.resolution))
		}
	}
	return tiles
}

// CellsOf returns every cell a feature's geometry spans (original
// "cells_of"), used to build the original's cell->feature reverse index.
func (ms *MatchableSet) CellsOf(f *feature.Feature) []maptile.Tile {
	b := f.Geometry.Bound()
	return ms.cellsOfBound(b)
}

// FeaturesInCell returns the ids of features touching the given cell
// (original "by_cell").
func (ms *MatchableSet) FeaturesInCell(t maptile.Tile) []string {
	return ms.byCell[t]
}

// FeaturesNear returns candidate road Features within radiusMeters of p
// (original "get_features_with_cells": find candidates near a trace
// point). It unions two independent lookups over the same search bound:
// the rtree's exact-bbox range query, and the cell index's cells ∪
// byCell[c] union over every cell the bound overlaps (original
// "get_features_with_cells"'s own cell-neighborhood logic, generalized
// from a fixed 0.01 degree grid to orb/maptile cells — see
// pkg/routing/snap.go's 3x3-grid-then-exact-distance shape in the
// teacher this is adapted from). The cell union catches any feature
// whose own bounding box is much larger than the small piece of it that
// actually passes near p, which a pure bbox range query on the whole
// feature can miss; either lookup finding a feature is enough to admit
// it as a candidate, matching-in-pkg/hmm then applies the real
// max_point_to_road_distance cutoff.
func (ms *MatchableSet) FeaturesNear(p geo.Point, radiusMeters float64) []*feature.Feature {
	min, max := boundingBox(p, radiusMeters)

	seen := make(map[string]bool)
	ms.tree.Search(min, max, func(_, _ [2]float64, id string) bool {
		seen[id] = true
		return true
	})

	bound := orb.Bound{Min: orb.Point{min[0], min[1]}, Max: orb.Point{max[0], max[1]}}
	for _, t := range ms.cellsOfBound(bound) {
		for _, id := range ms.FeaturesInCell(t) {
			seen[id] = true
		}
	}

	out := make([]*feature.Feature, 0, len(seen))
	for id := range seen {
		if f, ok := ms.byID[id]; ok {
			out = append(out, f)
		}
	}
	return out
}

// boundingBox expands p by radiusMeters into a longitude/latitude box,
// using the same equirectangular approximation as pkg/geo.
func boundingBox(p geo.Point, radiusMeters float64) (min, max [2]float64) {
	latDelta := radiusMeters / 111_000.0
	cosLat := math.Cos(p[1] * math.Pi / 180)
	if cosLat < 1e-6 {
		cosLat = 1e-6
	}
	lonDelta := radiusMeters / (111_000.0 * cosLat)

	min = [2]float64{p[0] - lonDelta, p[1] - latDelta}
	max = [2]float64{p[0] + lonDelta, p[1] + latDelta}
	return min, max
}

// Len returns the number of indexed features.
func (ms *MatchableSet) Len() int {
	return len(ms.byID)
}
