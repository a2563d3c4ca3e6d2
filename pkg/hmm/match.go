// Package hmm implements the HMM map-matcher (original §4.5, "C5 HMM
// Matcher"): per-point candidate generation, emission and transition
// probabilities scored via pkg/routing, Viterbi path selection over a
// per-trace prediction arena, and sequence-break recovery.
package hmm

import (
	"math"
	"sort"

	"github.com/azybler/tracematch/pkg/feature"
	"github.com/azybler/tracematch/pkg/geo"
	"github.com/azybler/tracematch/pkg/roadgraph"
	"github.com/azybler/tracematch/pkg/routing"
)

// Result is the outcome of matching one trace against a candidate feature
// set (original TraceSnapOptions' output before driver-level aggregation,
// §4.5.7).
type Result struct {
	Trace          *feature.Trace
	Points         []Point
	Arena          []Prediction
	SequenceBreaks int
}

// Match runs the HMM matcher on trace against candidates (original
// "get_trace_matches"). candidates should already be restricted to the
// trace's spatial neighborhood (pkg/spatial.MatchableSet.FeaturesNear /
// cell union), matching original §4.6's "C6 asks C2 for candidate
// features" data flow.
func Match(trace *feature.Trace, candidates []*feature.Feature, opts Options) *Result {
	featuresByID := make(map[string]*feature.Feature, len(candidates))
	for _, f := range candidates {
		featuresByID[f.ID] = f
	}
	graph := roadgraph.Build(candidates)

	m := &matcher{
		trace:        trace,
		candidates:   candidates,
		featuresByID: featuresByID,
		graph:        graph,
		opts:         opts,
		prevPoint:    -1,
	}
	return m.run()
}

type matcher struct {
	trace        *feature.Trace
	candidates   []*feature.Feature
	featuresByID map[string]*feature.Feature
	graph        *roadgraph.Graph
	opts         Options

	arena     []Prediction
	prevPoint int // index into points of the chain anchor, -1 means "no chain"
	breaks    int
}

func (m *matcher) push(p Prediction) int32 {
	idx := int32(len(m.arena))
	m.arena = append(m.arena, p)
	return idx
}

func (m *matcher) run() *Result {
	points := make([]Point, len(m.trace.Points))

	for i, tp := range m.trace.Points {
		points[i] = Point{
			Index:          i,
			OriginalPoint:  tp.Point,
			Time:           tp.Time,
			HasTime:        !tp.Time.IsZero(),
			BestPrediction: noPrediction,
		}
		if i > 0 {
			points[i].TimeSincePrevPoint = m.trace.ElapsedSeconds(i-1, i)
		}

		survivors := m.candidatesAt(tp.Point)
		if len(survivors) == 0 {
			points[i].Ignore = true
			m.handleNoMatch(points, i)
			continue
		}

		var predIdxs []int32
		if m.prevPoint < 0 {
			predIdxs = m.seedChain(survivors)
		} else {
			predIdxs = m.extendChain(points, i, survivors)
		}

		if len(predIdxs) == 0 {
			points[i].Ignore = true
			m.handleNoMatch(points, i)
			continue
		}

		sort.Slice(predIdxs, func(a, b int) bool {
			return m.arena[predIdxs[a]].BestLogProb > m.arena[predIdxs[b]].BestLogProb
		})
		points[i].Predictions = predIdxs
		m.prevPoint = i
	}

	m.backtrack(points)

	return &Result{
		Trace:          m.trace,
		Points:         points,
		Arena:          m.arena,
		SequenceBreaks: m.breaks,
	}
}

// handleNoMatch applies original §4.5.5's sequence-break recovery when
// point i produced zero viable predictions (whether from zero candidates
// within max_point_to_road_distance, or zero candidates that produced a
// valid transition — the original does not distinguish the two).
func (m *matcher) handleNoMatch(points []Point, i int) {
	if m.prevPoint < 0 {
		return
	}
	points[m.prevPoint].Ignore = true

	if m.prevPoint == 0 {
		// The chain anchor is the trace's very first point: there is no
		// earlier point to step back to, so the gap check never applies
		// and no sequence break is counted here.
		m.prevPoint = -1
		return
	}

	timeSincePrev := m.trace.ElapsedSeconds(m.prevPoint, i)
	traceDist := m.trace.DistanceBetween(m.prevPoint, i)

	if timeSincePrev > m.opts.BrokenTimeGapResetSequence || traceDist > m.opts.BrokenDistanceGapResetSequence {
		m.breaks++
		m.prevPoint = -1
	} else {
		m.prevPoint--
	}
}

// candidateHit is a surviving candidate feature for one trace point,
// after the max_point_to_road_distance cutoff (original §4.5.1).
type candidateHit struct {
	feature  *feature.Feature
	snapped  geo.Point
	ratio    float64
	dist     float64
	emission float64
}

func (m *matcher) candidatesAt(p geo.Point) []candidateHit {
	var hits []candidateHit
	for _, f := range m.candidates {
		snapped, ratio, d := f.NearestPointRatio(p)
		if d > m.opts.MaxPointToRoadDistance {
			continue
		}
		hits = append(hits, candidateHit{
			feature:  f,
			snapped:  snapped,
			ratio:    ratio,
			dist:     d,
			emission: emissionProb(d, m.opts.Sigma),
		})
	}
	return hits
}

// seedChain creates first-point predictions (original §4.5.2): no
// predecessor, best_transition_prob = 1, best_log_prob = log(emission).
func (m *matcher) seedChain(survivors []candidateHit) []int32 {
	idxs := make([]int32, 0, len(survivors))
	for _, c := range survivors {
		p := Prediction{
			FeatureID:          c.feature.ID,
			SnappedPoint:       c.snapped,
			Ratio:              c.ratio,
			DistanceToRoad:     c.dist,
			EmissionProb:       c.emission,
			BestTransitionProb: 1,
			BestLogProb:        math.Log(c.emission),
			BestPrevIndex:      noPrediction,
			BestSequence:       []string{c.feature.ID},
			HasRoute:           false,
		}
		idxs = append(idxs, m.push(p))
	}
	return idxs
}

// extendChain scores each surviving candidate feature against every
// prediction attached to the chain's previous point (original §4.5.3).
func (m *matcher) extendChain(points []Point, i int, survivors []candidateHit) []int32 {
	prevPoint := points[m.prevPoint]
	traceDist := m.trace.DistanceBetween(m.prevPoint, i)

	idxs := make([]int32, 0, len(survivors))
	for _, c := range survivors {
		best, ok := m.bestTransition(prevPoint, c, traceDist)
		if !ok {
			continue
		}
		idxs = append(idxs, m.push(best))
	}
	return idxs
}

// bestTransition evaluates candidate c against every prediction attached
// to prevPoint, keeping the highest-log-probability transition (original
// §4.5.3, steps 1-10).
func (m *matcher) bestTransition(prevPoint Point, c candidateHit, traceDist float64) (Prediction, bool) {
	var best Prediction
	bestLogProb := math.Inf(-1)
	found := false

	for _, prevIdx := range prevPoint.Predictions {
		P := m.arena[prevIdx]

		if !m.opts.AllowLoops && containsString(P.BestSequence, c.feature.ID) && P.FeatureID != c.feature.ID {
			continue // loop pruning (§4.5.3 step 1)
		}

		var excluded map[string]bool
		if !m.opts.AllowLoops {
			excluded = toFeatureSet(P.BestSequence)
		}

		route, err := routing.ShortestRoute(m.graph, m.featuresByID,
			routing.Endpoint{FeatureID: P.FeatureID, Ratio: P.Ratio},
			routing.Endpoint{FeatureID: c.feature.ID, Ratio: c.ratio},
			excluded)
		if err != nil {
			continue
		}

		delta := math.Abs(traceDist - route.Distance)
		if delta > m.opts.MaxRouteToTraceDistanceDifference {
			continue
		}

		t := (1 / m.opts.Beta) * math.Exp(-delta/m.opts.Beta)

		extended, addedVia, revisitedSegments := extendSequence(route, P, m.featuresByID)
		revisitedViaPoints := countRevisitedViaPoints(m.arena, prevIdx, addedVia)

		t *= math.Exp(-float64(revisitedViaPoints)*m.opts.RevisitViaPointPenaltyWeight) *
			math.Exp(-float64(revisitedSegments)*m.opts.RevisitSegmentPenaltyWeight)
		if t <= 0 {
			continue
		}

		logProb := P.BestLogProb + math.Log(c.emission) + math.Log(t)
		if !found || logProb > bestLogProb {
			found = true
			bestLogProb = logProb
			best = Prediction{
				FeatureID:               c.feature.ID,
				SnappedPoint:            c.snapped,
				Ratio:                   c.ratio,
				DistanceToRoad:          c.dist,
				HasRoute:                true,
				RouteDistanceToPrev:     route.Distance,
				EmissionProb:            c.emission,
				BestTransitionProb:      t,
				BestLogProb:             logProb,
				BestPrevIndex:           prevIdx,
				BestSequence:            extended,
				BestRouteViaPoints:      addedVia,
				RevisitedViaPointsCount: revisitedViaPoints,
				RevisitedSegmentsCount:  revisitedSegments,
			}
		}
	}

	return best, found
}

// backtrack recovers the maximum-log-probability path (original §4.5.6).
func (m *matcher) backtrack(points []Point) {
	if len(points) == 0 {
		return
	}
	last := len(points) - 1

	if len(points[last].Predictions) == 0 || m.arena[points[last].Predictions[0]].BestLogProb == 0 {
		return // no path found; every best_prediction stays noPrediction
	}

	points[last].BestPrediction = points[last].Predictions[0]
	for i := last - 1; i >= 0; i-- {
		if points[i+1].BestPrediction != noPrediction {
			points[i].BestPrediction = m.arena[points[i+1].BestPrediction].BestPrevIndex
		} else if !points[i].Ignore && len(points[i].Predictions) > 0 {
			points[i].BestPrediction = points[i].Predictions[0]
		}
	}
}

// emissionProb computes the Gaussian emission probability for a snap
// distance d given a GPS error standard deviation sigma (original
// §4.5.1).
func emissionProb(d, sigma float64) float64 {
	return (1.0 / (sigma * math.Sqrt(2*math.Pi))) * math.Exp(-0.5*(d/sigma)*(d/sigma))
}
