package hmm

import (
	"time"

	"github.com/azybler/tracematch/pkg/geo"
)

// noPrediction is the arena-index sentinel for "no predecessor" /
// "no chosen prediction" (original §9 design note: replace the GC'd
// best_prev_prediction back-pointer with an index into a per-trace
// arena, dropped as a unit once the result is serialized).
const noPrediction = int32(-1)

// NoPrediction is the exported form of the arena-index sentinel, for
// callers outside this package inspecting Point.BestPrediction (original
// pkg/tracedriver's per-trace aggregation).
const NoPrediction = noPrediction

// Prediction is one lattice node: a candidate road feature for a trace
// point, together with the best path reaching it (original
// SnappedPointPrediction, §3).
type Prediction struct {
	FeatureID      string
	SnappedPoint   geo.Point
	Ratio          float64 // arc-length ratio of SnappedPoint along FeatureID
	DistanceToRoad float64

	HasRoute                bool // false only for the first prediction in a chain
	RouteDistanceToPrev     float64
	EmissionProb            float64
	BestTransitionProb      float64
	BestLogProb             float64
	BestPrevIndex           int32 // arena index, noPrediction if chain start
	BestSequence            []string
	BestRouteViaPoints      []string
	RevisitedViaPointsCount int
	RevisitedSegmentsCount  int
}

// Point is one trace vertex's matching state (original PointSnapInfo,
// §3).
type Point struct {
	Index              int
	OriginalPoint      geo.Point
	Time               time.Time
	HasTime            bool
	TimeSincePrevPoint float64 // seconds since the previous trace vertex, 0 at index 0

	Predictions    []int32 // arena indices, sorted descending by BestLogProb
	BestPrediction int32   // arena index, noPrediction if no path chosen
	Ignore         bool
}
