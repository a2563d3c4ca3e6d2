package routing

import (
	"errors"

	"github.com/azybler/tracematch/pkg/feature"
	"github.com/azybler/tracematch/pkg/roadgraph"
)

// ErrNoRoute is returned when no path connects the two snapped points
// within the candidate graph (original §4.4/§7 "no route found").
var ErrNoRoute = errors.New("no route between snapped points")

// Endpoint is a point snapped onto a feature at a given arc-length ratio
// (original §4.4's routing query endpoints; produced by pkg/hmm's
// candidate snapping step).
type Endpoint struct {
	FeatureID string
	Ratio     float64
}

// Step is one hop of a computed route: travel along FeatureID from
// FromRatio to ToRatio.
type Step struct {
	FeatureID string
	FromRatio float64
	ToRatio   float64
	Distance  float64
}

// Route is a shortest path between two Endpoints (original §4.4).
type Route struct {
	Steps    []Step
	Distance float64 // total meters
}

// virtualStart and virtualEnd are sentinel connector ids that never
// collide with real connector ids (which come from Overture GERS and are
// opaque non-empty strings); they seed the search from/to a point that
// may sit mid-feature, matching teacher's engine.go seedForward/
// seedBackward pattern of injecting a temporary node into a persistent
// graph rather than rebuilding it per query. Because this matcher already
// rebuilds roadgraph.Graph fresh per trace, the virtual nodes are
// injected directly into a query-local adjacency overlay instead of
// mutating the shared graph.
const (
	virtualStart = "\x00start"
	virtualEnd   = "\x00end"
)

// arrival records the edge used to reach a node during the search, so the
// backtrack can read FromRatio/ToRatio straight off it instead of
// re-deriving them from feature connector lists.
type arrival struct {
	from      string
	featureID string
	fromRatio float64
	toRatio   float64
}

// ShortestRoute computes the shortest path from 'from' to 'to' within g's
// candidate feature set, using features for arc-distance and ratio-to-
// point lookups (original §4.4: "the route between two snapped points,
// restricted to the trace's candidate road features"). excluded is the
// original's excluded_feature_ids blacklist (loop suppression): a feature
// in excluded may not be used as an intermediate hop, but may still be the
// from/to feature itself. A nil excluded excludes nothing.
func ShortestRoute(g *roadgraph.Graph, featuresByID map[string]*feature.Feature, from, to Endpoint, excluded map[string]bool) (Route, error) {
	if from.FeatureID == to.FeatureID {
		if f := featuresByID[from.FeatureID]; f != nil {
			d := f.ArcDistance(from.Ratio, to.Ratio)
			return Route{
				Steps:    []Step{{FeatureID: from.FeatureID, FromRatio: from.Ratio, ToRatio: to.Ratio, Distance: d}},
				Distance: d,
			}, nil
		}
	}

	fromFeature := featuresByID[from.FeatureID]
	toFeature := featuresByID[to.FeatureID]
	if fromFeature == nil || toFeature == nil {
		return Route{}, ErrNoRoute
	}

	// Virtual edges from the start node to every connector on the 'from'
	// feature, and from every connector on the 'to' feature to the
	// virtual end node, each weighted by arc distance to/from the snap
	// ratio.
	startEdges := make([]roadgraph.Edge, 0, len(fromFeature.Connectors))
	for _, c := range fromFeature.Connectors {
		startEdges = append(startEdges, roadgraph.Edge{
			To: c.ID, FeatureID: from.FeatureID,
			FromRatio: from.Ratio, ToRatio: c.At,
			Weight: fromFeature.ArcDistance(from.Ratio, c.At),
		})
	}
	endEdgeFrom := make(map[string]roadgraph.Edge, len(toFeature.Connectors))
	for _, c := range toFeature.Connectors {
		endEdgeFrom[c.ID] = roadgraph.Edge{
			To: virtualEnd, FeatureID: to.FeatureID,
			FromRatio: c.At, ToRatio: to.Ratio,
			Weight: toFeature.ArcDistance(c.At, to.Ratio),
		}
	}

	dist := make(map[string]float64)
	came := make(map[string]arrival)
	visited := make(map[string]bool)

	var pq MinHeap
	dist[virtualStart] = 0
	pq.Push(virtualStart, 0)

	isExcluded := func(featureID string) bool {
		if len(excluded) == 0 {
			return false
		}
		if featureID == from.FeatureID || featureID == to.FeatureID {
			return false
		}
		return excluded[featureID]
	}

	neighbors := func(node string) []roadgraph.Edge {
		if node == virtualStart {
			return startEdges
		}
		var edges []roadgraph.Edge
		for _, e := range g.Neighbors(node) {
			if !isExcluded(e.FeatureID) {
				edges = append(edges, e)
			}
		}
		if e, ok := endEdgeFrom[node]; ok && !isExcluded(e.FeatureID) {
			edges = append(edges, e)
		}
		return edges
	}

	for pq.Len() > 0 {
		cur := pq.Pop()
		if visited[cur.Node] {
			continue
		}
		if cur.Dist > dist[cur.Node] {
			continue
		}
		visited[cur.Node] = true

		if cur.Node == virtualEnd {
			break
		}

		for _, e := range neighbors(cur.Node) {
			nd := cur.Dist + e.Weight
			if existing, ok := dist[e.To]; !ok || nd < existing {
				dist[e.To] = nd
				came[e.To] = arrival{from: cur.Node, featureID: e.FeatureID, fromRatio: e.FromRatio, toRatio: e.ToRatio}
				pq.Push(e.To, nd)
			}
		}
	}

	if !visited[virtualEnd] {
		return Route{}, ErrNoRoute
	}

	var reversed []Step
	node := virtualEnd
	for node != virtualStart {
		a, ok := came[node]
		if !ok {
			return Route{}, ErrNoRoute
		}
		reversed = append(reversed, Step{
			FeatureID: a.featureID,
			FromRatio: a.fromRatio,
			ToRatio:   a.toRatio,
			Distance:  dist[node] - dist[a.from],
		})
		node = a.from
	}

	// Consecutive edges along the same feature collapse into one Step, so
	// a route has one step per feature entered.
	steps := make([]Step, 0, len(reversed))
	total := 0.0
	for i := len(reversed) - 1; i >= 0; i-- {
		s := reversed[i]
		total += s.Distance
		if n := len(steps); n > 0 && steps[n-1].FeatureID == s.FeatureID {
			steps[n-1].ToRatio = s.ToRatio
			steps[n-1].Distance += s.Distance
			continue
		}
		steps = append(steps, s)
	}

	return Route{Steps: steps, Distance: total}, nil
}
