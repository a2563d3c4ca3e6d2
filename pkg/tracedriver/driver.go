// Package tracedriver orchestrates matching a batch of GPS traces against a
// road network (original "C6 Trace Driver", §4.6): for each trace it asks
// pkg/spatial for nearby candidate features, runs pkg/hmm.Match, and
// aggregates the result into the metrics the original's snap_traces /
// print_stats / calculate_error_rate report.
package tracedriver

import (
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/azybler/tracematch/pkg/feature"
	"github.com/azybler/tracematch/pkg/geo"
	"github.com/azybler/tracematch/pkg/hmm"
	"github.com/azybler/tracematch/pkg/roadgraph"
	"github.com/azybler/tracematch/pkg/spatial"
)

// SearchRadiusFactor scales Options.MaxPointToRoadDistance into the radius
// passed to MatchableSet.FeaturesNear (original get_features_with_cells
// queries a whole cell neighborhood rather than an exact radius; a factor
// over the per-point cutoff widens the search box that FeaturesNear hands
// to both its rtree bbox query and its cell-index union, giving a similarly
// "slightly generous" candidate net).
const SearchRadiusFactor = 3.0

// TraceResult is one trace's full match outcome plus the original's
// per-trace aggregate metrics (original TraceMatchResult, §3/§4.6).
type TraceResult struct {
	ID     string
	Source *feature.Trace
	Match  *hmm.Result

	SourceLength          float64
	RouteLength           float64
	TargetCandidatesCount int
	MatchedTargetIDs      []string
	PointsWithMatches     int
	AvgDistToRoad         float64
	HasAvgDistToRoad      bool
	SequenceBreaks        int
	RevisitedViaPoints    int
	RevisitedSegments     int
	Elapsed               time.Duration

	// CandidateComponents is the number of weakly connected components
	// the candidate feature set splits into (roadgraph.Components). A
	// value above 1 explains a NoPath result between two trace points
	// whose candidates never share a component: no Dijkstra tuning will
	// fix it, the candidate set itself is disconnected.
	CandidateComponents int
}

// MatchOne runs the matcher on a single trace against the road network
// indexed in roads, and folds the raw hmm.Result into a TraceResult
// (original get_trace_matches).
func MatchOne(trace *feature.Trace, roads *spatial.MatchableSet, opts hmm.Options) *TraceResult {
	start := time.Now()

	candidateSet := make(map[string]*feature.Feature)
	radius := opts.MaxPointToRoadDistance * SearchRadiusFactor
	for _, tp := range trace.Points {
		for _, f := range roads.FeaturesNear(tp.Point, radius) {
			candidateSet[f.ID] = f
		}
	}
	candidates := make([]*feature.Feature, 0, len(candidateSet))
	for _, f := range candidateSet {
		candidates = append(candidates, f)
	}

	matchResult := hmm.Match(trace, candidates, opts)

	r := &TraceResult{
		ID:                    trace.ID,
		Source:                trace,
		Match:                 matchResult,
		SourceLength:          trace.Length(),
		TargetCandidatesCount: len(candidates),
		SequenceBreaks:        matchResult.SequenceBreaks,
		CandidateComponents:   len(roadgraph.Components(roadgraph.Build(candidates))),
	}
	setTraceMatchMetrics(r)
	r.Elapsed = time.Since(start)
	return r
}

// setTraceMatchMetrics folds per-point prediction outcomes into the
// trace-level aggregates (original set_trace_match_metrics).
func setTraceMatchMetrics(r *TraceResult) {
	matched := make(map[string]bool)
	var routeLength, distToRoad float64
	var pointsWithMatches int

	for _, p := range r.Match.Points {
		if p.BestPrediction == hmm.NoPrediction {
			continue // no match at this point
		}
		pred := r.Match.Arena[p.BestPrediction]
		pointsWithMatches++
		routeLength += pred.RouteDistanceToPrev
		distToRoad += pred.DistanceToRoad
		r.RevisitedViaPoints += pred.RevisitedViaPointsCount
		r.RevisitedSegments += pred.RevisitedSegmentsCount
		matched[pred.FeatureID] = true
	}

	r.MatchedTargetIDs = make([]string, 0, len(matched))
	for id := range matched {
		r.MatchedTargetIDs = append(r.MatchedTargetIDs, id)
	}
	r.PointsWithMatches = pointsWithMatches
	r.RouteLength = routeLength
	if pointsWithMatches > 0 {
		r.AvgDistToRoad = distToRoad / float64(pointsWithMatches)
		r.HasAvgDistToRoad = true
	}
}

// MatchAll runs MatchOne over every trace, using up to concurrency workers
// at once (original snap_traces processes traces sequentially; concurrency
// is this repo's own addition for batches large enough that C4's per-pair
// Dijkstra calls dominate wall clock). concurrency <= 1 runs sequentially.
// Results are returned in the same order as traces.
func MatchAll(traces []*feature.Trace, roads *spatial.MatchableSet, opts hmm.Options, concurrency int) []*TraceResult {
	results := make([]*TraceResult, len(traces))
	if concurrency < 1 {
		concurrency = 1
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, trace := range traces {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, trace *feature.Trace) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = MatchOne(trace, roads, opts)
		}(i, trace)
	}
	wg.Wait()
	return results
}

// OriginalWKT returns the source trace's geometry as WKT (original
// TraceMatchResult.source_wkt, used in the auto_metrics report).
func (r *TraceResult) OriginalWKT() string {
	if len(r.Source.Points) == 0 {
		return ""
	}
	ls := make(orb.LineString, len(r.Source.Points))
	for i, tp := range r.Source.Points {
		ls[i] = orb.Point(tp.Point)
	}
	return geo.LineStringWKT(ls)
}
