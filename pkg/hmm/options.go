package hmm

import "github.com/paulmach/orb/maptile"

// Options is the matcher's tuning configuration (original §3
// TraceSnapOptions). JSON field names match the option names in the
// original's options table exactly, since the driver writes this struct
// next to its output as the run's configuration record (original §6).
type Options struct {
	Sigma                              float64      `json:"sigma"`
	Beta                               float64      `json:"beta"`
	AllowLoops                         bool         `json:"allow_loops"`
	MaxPointToRoadDistance             float64      `json:"max_point_to_road_distance"`
	MaxRouteToTraceDistanceDifference  float64      `json:"max_route_to_trace_distance_difference"`
	RevisitSegmentPenaltyWeight        float64      `json:"revisit_segment_penalty_weight"`
	RevisitViaPointPenaltyWeight       float64      `json:"revisit_via_point_penalty_weight"`
	BrokenTimeGapResetSequence         float64      `json:"broken_time_gap_reset_sequence"`
	BrokenDistanceGapResetSequence     float64      `json:"broken_distance_gap_reset_sequence"`
	Resolution                         maptile.Zoom `json:"resolution"`
}

// DefaultOptions returns the matcher's default tuning, in the same spirit
// as the teacher's DefaultConfig for ServerConfig: reasonable values a
// caller can start from and override selectively.
func DefaultOptions() Options {
	return Options{
		Sigma:                              10,
		Beta:                               10,
		AllowLoops:                         false,
		MaxPointToRoadDistance:             50,
		MaxRouteToTraceDistanceDifference:  100,
		RevisitSegmentPenaltyWeight:        0.5,
		RevisitViaPointPenaltyWeight:       0.5,
		BrokenTimeGapResetSequence:         180,
		BrokenDistanceGapResetSequence:     500,
		Resolution:                         12,
	}
}
