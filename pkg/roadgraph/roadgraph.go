// Package roadgraph builds the per-trace routing graph (original §4.3,
// "C3 Road Graph") over a restricted candidate feature set. Graph nodes are
// connector ids, not feature ids: SPEC_FULL.md's "Resolved Open Questions"
// #1 settles that the edge-cost formula (distance along a feature between
// two connector positions) only type-checks at connector granularity, so
// that is the node type built here, matching teacher's builder.go "collect
// nodes, then adjacency" two-pass shape.
package roadgraph

import (
	"sort"

	"github.com/azybler/tracematch/pkg/feature"
)

// Edge is one directed hop from a connector to another connector along a
// single feature (original §4.3: "an edge per pair of connectors a feature
// joins, weighted by the arc distance between them").
type Edge struct {
	To        string // connector id
	FeatureID string
	FromRatio float64
	ToRatio   float64
	Weight    float64 // meters, along FeatureID between FromRatio and ToRatio
}

// Graph is the connector-node adjacency built from a candidate feature set
// (original §4.3).
type Graph struct {
	adj map[string][]Edge // connector id -> outgoing edges

	// featuresByConnector is used by pkg/routing to seed a virtual start
	// node mid-feature (teacher's seedForward/seedBackward pattern,
	// generalized from OSM node ids to connector ids).
	featuresByConnector map[string][]string // connector id -> feature ids touching it
}

// Build constructs a Graph from a candidate feature set (original
// "build the road graph for a trace's candidates"). Features without at
// least two connectors contribute no edges (a feature needs two ends to
// route along), matching original §3's documented minimum.
func Build(feats []*feature.Feature) *Graph {
	g := &Graph{
		adj:                 make(map[string][]Edge),
		featuresByConnector: make(map[string][]string),
	}
	for _, f := range feats {
		g.addFeature(f)
	}
	return g
}

func (g *Graph) addFeature(f *feature.Feature) {
	if len(f.Connectors) < 2 {
		return
	}

	ordered := make([]feature.ConnectorRef, len(f.Connectors))
	copy(ordered, f.Connectors)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].At < ordered[j].At })

	for _, c := range ordered {
		g.featuresByConnector[c.ID] = append(g.featuresByConnector[c.ID], f.ID)
	}

	// A feature's connectors are ordered via-points along one
	// direction of travel; original §4.3 allows traversal between any
	// two connectors on the same feature, not just adjacent ones, since
	// real road segments are usually bidirectional and short. Emit an
	// edge between every ordered pair in both directions, weighted by
	// the arc distance between their ratios.
	for i := 0; i < len(ordered); i++ {
		for j := 0; j < len(ordered); j++ {
			if i == j {
				continue
			}
			w := f.ArcDistance(ordered[i].At, ordered[j].At)
			g.adj[ordered[i].ID] = append(g.adj[ordered[i].ID], Edge{
				To:        ordered[j].ID,
				FeatureID: f.ID,
				FromRatio: ordered[i].At,
				ToRatio:   ordered[j].At,
				Weight:    w,
			})
		}
	}
}

// Neighbors returns the outgoing edges from a connector id.
func (g *Graph) Neighbors(connectorID string) []Edge {
	return g.adj[connectorID]
}

// FeaturesAt returns the ids of features touching a connector, used to seed
// a virtual start/end node mid-feature (pkg/routing).
func (g *Graph) FeaturesAt(connectorID string) []string {
	return g.featuresByConnector[connectorID]
}

// HasConnector reports whether a connector id appears in the graph.
func (g *Graph) HasConnector(connectorID string) bool {
	_, ok := g.adj[connectorID]
	if ok {
		return true
	}
	_, ok = g.featuresByConnector[connectorID]
	return ok
}

// Connectors returns every connector id present in the graph, in
// unspecified order.
func (g *Graph) Connectors() []string {
	seen := make(map[string]bool)
	for id := range g.adj {
		seen[id] = true
	}
	for id := range g.featuresByConnector {
		seen[id] = true
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out
}
