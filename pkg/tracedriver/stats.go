package tracedriver

import (
	"fmt"
	"io"
	"time"
)

// BatchStats summarizes a whole batch run (original print_stats).
type BatchStats struct {
	NumTraces              int
	NumTargetFeatures      int
	TotalElapsed           time.Duration
	AvgRuntimePerTrace     time.Duration
	AvgRuntimePerKM        float64
	HasAvgRuntimePerKM     bool
	AvgDistToRoad          float64
	HasAvgDistToRoad       bool
	TotalRouteLengthKM     float64
	TotalTraceLengthKM     float64
	TotalCandidates        int
	TotalMatches           int
	TotalSequenceBreaks    int
	TotalRevisitedViaPoint int
	TotalRevisitedSegments int
}

// Summarize folds a batch of TraceResults into BatchStats (original
// print_stats). numTargetFeatures is the size of the road network searched,
// reported purely for context.
func Summarize(results []*TraceResult, numTargetFeatures int) BatchStats {
	s := BatchStats{
		NumTraces:         len(results),
		NumTargetFeatures: numTargetFeatures,
	}
	if len(results) == 0 {
		return s
	}

	var totalAvgDist float64
	var tracesWithMatches int

	for _, r := range results {
		s.TotalElapsed += r.Elapsed
		s.TotalRouteLengthKM += r.RouteLength / 1000
		s.TotalTraceLengthKM += r.SourceLength / 1000
		s.TotalCandidates += r.TargetCandidatesCount
		s.TotalMatches += len(r.MatchedTargetIDs)
		s.TotalSequenceBreaks += r.SequenceBreaks
		s.TotalRevisitedViaPoint += r.RevisitedViaPoints
		s.TotalRevisitedSegments += r.RevisitedSegments
		if r.PointsWithMatches > 0 {
			tracesWithMatches++
			totalAvgDist += r.AvgDistToRoad
		}
	}

	s.AvgRuntimePerTrace = s.TotalElapsed / time.Duration(len(results))
	if s.TotalTraceLengthKM > 0 {
		s.AvgRuntimePerKM = s.TotalElapsed.Seconds() / s.TotalTraceLengthKM
		s.HasAvgRuntimePerKM = true
	}
	if tracesWithMatches > 0 {
		s.AvgDistToRoad = round2(totalAvgDist / float64(tracesWithMatches))
		s.HasAvgDistToRoad = true
	}
	return s
}

// WriteReport prints the batch summary in the original's tabular console
// report (original print_stats' print() calls).
func (s BatchStats) WriteReport(w io.Writer) {
	n := float64(s.NumTraces)
	fmt.Fprintln(w, "==================================================================")
	fmt.Fprintln(w, "Totals:")
	fmt.Fprintln(w, "==================================================================")
	fmt.Fprintf(w, "Traces.............................%d\n", s.NumTraces)
	fmt.Fprintf(w, "Target features....................%d\n", s.NumTargetFeatures)
	fmt.Fprintf(w, "Elapsed:...........................%dmin %.3fs\n",
		int(s.TotalElapsed.Minutes()), s.TotalElapsed.Seconds()-60*float64(int(s.TotalElapsed.Minutes())))
	fmt.Fprintf(w, "Avg runtime/trace..................%.3fs\n", s.AvgRuntimePerTrace.Seconds())
	if s.HasAvgRuntimePerKM {
		fmt.Fprintf(w, "Avg runtime/km.....................%.3fs\n", s.AvgRuntimePerKM)
	}
	if s.HasAvgDistToRoad {
		fmt.Fprintf(w, "Avg distance to snapped road.......%gm\n", s.AvgDistToRoad)
	}
	fmt.Fprintf(w, "Snapped route length...............%.2fkm\n", s.TotalRouteLengthKM)
	fmt.Fprintf(w, "GPS traces length..................%.2fkm\n", s.TotalTraceLengthKM)
	if s.TotalTraceLengthKM > 0 {
		fmt.Fprintf(w, "Snapped route len/gps len..........%.2f\n", s.TotalRouteLengthKM/s.TotalTraceLengthKM)
		fmt.Fprintf(w, "Avg number of candidate segments...%.2f/trace, %.2f/km\n",
			float64(s.TotalCandidates)/n, float64(s.TotalCandidates)/s.TotalTraceLengthKM)
		fmt.Fprintf(w, "Avg number of matched segments.....%.2f/trace, %.2f/km\n",
			float64(s.TotalMatches)/n, float64(s.TotalMatches)/s.TotalTraceLengthKM)
		fmt.Fprintf(w, "Avg number of sequence breaks......%.2f/trace, %.2f/km\n",
			float64(s.TotalSequenceBreaks)/n, float64(s.TotalSequenceBreaks)/s.TotalTraceLengthKM)
		fmt.Fprintf(w, "Avg number of revisited via points.%.2f/trace, %.2f/km\n",
			float64(s.TotalRevisitedViaPoint)/n, float64(s.TotalRevisitedViaPoint)/s.TotalTraceLengthKM)
		fmt.Fprintf(w, "Avg number of revisited segments...%.2f/trace, %.2f/km\n",
			float64(s.TotalRevisitedSegments)/n, float64(s.TotalRevisitedSegments)/s.TotalTraceLengthKM)
	}
	fmt.Fprintln(w, "==================================================================")
}
