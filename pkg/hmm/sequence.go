package hmm

import (
	"github.com/azybler/tracematch/pkg/feature"
	"github.com/azybler/tracematch/pkg/geo"
	"github.com/azybler/tracematch/pkg/routing"
)

// maxViaPointAncestorWalk caps how far back the revisited-via-point walk
// looks (original §4.5.4's "stop once the set exceeds 100 entries"
// optimization, preserved verbatim per §9: "must be preserved for
// behavioral parity on very long traces").
const maxViaPointAncestorWalk = 100

// extendSequence extends a predecessor's best_sequence with the features
// crossed by route, and counts segment revisits (original §4.5.4, steps
// 1-2). It returns the extended sequence and the via-point WKTs
// introduced by entering a new feature mid-route (every step after the
// first, since the first step starts inside the 'from' feature with no
// connector crossed).
func extendSequence(route routing.Route, prev Prediction, featuresByID map[string]*feature.Feature) (extended []string, addedVia []string, revisitedSegments int) {
	extended = append(extended, prev.BestSequence...)

	for i, step := range route.Steps {
		if len(extended) == 0 || step.FeatureID != extended[len(extended)-1] {
			if containsString(extended, step.FeatureID) {
				revisitedSegments++
			}
			extended = append(extended, step.FeatureID)
		}
		if i > 0 {
			if f := featuresByID[step.FeatureID]; f != nil {
				via := f.PointAtRatio(step.FromRatio)
				addedVia = append(addedVia, geo.PointWKT(via))
			}
		}
	}
	return extended, addedVia, revisitedSegments
}

// countRevisitedViaPoints walks the chain of predecessors backward from
// prevIdx, accumulating each predecessor's full best_route_via_points into
// a set and stopping once the set holds more than maxViaPointAncestorWalk
// entries, then counts how many of addedVia are already in that set
// (original §4.5.4, step 3).
func countRevisitedViaPoints(arena []Prediction, prevIdx int32, addedVia []string) int {
	seen := make(map[string]bool, maxViaPointAncestorWalk)
	idx := prevIdx
	for idx != noPrediction && len(seen) <= maxViaPointAncestorWalk {
		p := arena[idx]
		for _, v := range p.BestRouteViaPoints {
			seen[v] = true
		}
		idx = p.BestPrevIndex
	}

	revisited := 0
	for _, v := range addedVia {
		if seen[v] {
			revisited++
		}
	}
	return revisited
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func toFeatureSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, v := range list {
		set[v] = true
	}
	return set
}
