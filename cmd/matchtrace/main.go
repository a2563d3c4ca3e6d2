// Command matchtrace batch-matches GPS traces against an Overture-style
// road network and writes the result files the original match_traces.py
// CLI produces (original §6).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/paulmach/orb/maptile"

	"github.com/azybler/tracematch/pkg/feature"
	"github.com/azybler/tracematch/pkg/hmm"
	"github.com/azybler/tracematch/pkg/ingest"
	"github.com/azybler/tracematch/pkg/spatial"
	"github.com/azybler/tracematch/pkg/tracedriver"
)

func main() {
	inputToMatch := flag.String("input-to-match", "", "GeoJSON file containing the traces to match")
	inputOverture := flag.String("input-overture", "", "GeoJSON file containing the Overture road network segments")
	output := flag.String("output", "", "Output file path; the driver writes several related files next to it")
	resolution := flag.Int("resolution", int(spatial.DefaultResolution), "Map tile zoom level used to pre-filter candidates")
	sigma := flag.Float64("sigma", hmm.DefaultOptions().Sigma, "Sigma param - controlling tolerance to GPS noise")
	beta := flag.Float64("beta", hmm.DefaultOptions().Beta, "Beta param - controlling confidence in route")
	allowLoops := flag.Bool("allow_loops", hmm.DefaultOptions().AllowLoops, "Allow a matched route to revisit the same road segment")
	maxPointToRoadDistance := flag.Float64("max_point_to_road_distance", hmm.DefaultOptions().MaxPointToRoadDistance, "Max distance in meters from a trace point to a candidate road")
	maxRouteToTraceDistanceDifference := flag.Float64("max_route_to_trace_distance_difference", hmm.DefaultOptions().MaxRouteToTraceDistanceDifference, "Max allowed difference in meters between route distance and trace distance")
	revisitSegmentPenaltyWeight := flag.Float64("revisit_segment_penalty_weight", hmm.DefaultOptions().RevisitSegmentPenaltyWeight, "Penalty weight applied per revisited road segment")
	revisitViaPointPenaltyWeight := flag.Float64("revisit_via_point_penalty_weight", hmm.DefaultOptions().RevisitViaPointPenaltyWeight, "Penalty weight applied per revisited via point")
	brokenTimeGapResetSequence := flag.Float64("broken_time_gap_reset_sequence", hmm.DefaultOptions().BrokenTimeGapResetSequence, "Seconds since the last matched point after which the sequence resets instead of stepping back")
	brokenDistanceGapResetSequence := flag.Float64("broken_distance_gap_reset_sequence", hmm.DefaultOptions().BrokenDistanceGapResetSequence, "Meters since the last matched point after which the sequence resets instead of stepping back")
	outputForJudgment := flag.Bool("j", false, "Also write the for_judgment.txt and snapped_points.txt label-review files")
	concurrency := flag.Int("concurrency", 1, "Number of traces to match concurrently")
	flag.Parse()

	if *inputToMatch == "" || *inputOverture == "" || *output == "" {
		fmt.Fprintln(os.Stderr, "Usage: matchtrace --input-to-match traces.geojson --input-overture roads.geojson --output results.json")
		flag.PrintDefaults()
		os.Exit(1)
	}

	opts := hmm.Options{
		Sigma:                             *sigma,
		Beta:                              *beta,
		AllowLoops:                        *allowLoops,
		MaxPointToRoadDistance:            *maxPointToRoadDistance,
		MaxRouteToTraceDistanceDifference: *maxRouteToTraceDistanceDifference,
		RevisitSegmentPenaltyWeight:       *revisitSegmentPenaltyWeight,
		RevisitViaPointPenaltyWeight:      *revisitViaPointPenaltyWeight,
		BrokenTimeGapResetSequence:        *brokenTimeGapResetSequence,
		BrokenDistanceGapResetSequence:    *brokenDistanceGapResetSequence,
		Resolution:                        maptile.Zoom(*resolution),
	}

	loadStart := time.Now()
	log.Println("Loading features...")

	tracesData, err := os.ReadFile(*inputToMatch)
	if err != nil {
		log.Fatalf("Failed to read --input-to-match: %v", err)
	}
	traceFeatures, err := ingest.LoadFeatureCollection(tracesData)
	if err != nil {
		log.Fatalf("Failed to parse --input-to-match: %v", err)
	}
	if len(traceFeatures) == 0 {
		log.Println("no features to match")
		return
	}

	overtureData, err := os.ReadFile(*inputOverture)
	if err != nil {
		log.Fatalf("Failed to read --input-overture: %v", err)
	}
	roadFeatures, err := ingest.LoadFeatureCollection(overtureData)
	if err != nil {
		log.Fatalf("Failed to parse --input-overture: %v", err)
	}

	log.Printf("Traces to match: %d", len(traceFeatures))
	log.Printf("Overture road features: %d", len(roadFeatures))
	log.Printf("Loading time: %s", time.Since(loadStart).Round(time.Millisecond))

	roads := spatial.NewMatchableSet(roadFeatures, opts.Resolution)

	traces := make([]*feature.Trace, len(traceFeatures))
	for i, f := range traceFeatures {
		traces[i] = feature.NewTraceFromFeature(f)
	}

	matchStart := time.Now()
	results := tracedriver.MatchAll(traces, roads, opts, *concurrency)
	elapsed := time.Since(matchStart)

	for i, r := range results {
		log.Printf(
			"trace#%d id=%s length=%.1f route_length=%.1f points=%d points_w_matches=%d candidates=%d matched_target_ids=%d elapsed=%.2fs",
			i+1, r.ID, r.SourceLength, r.RouteLength, len(r.Match.Points), r.PointsWithMatches,
			r.TargetCandidatesCount, len(r.MatchedTargetIDs), r.Elapsed.Seconds(),
		)
	}

	stats := tracedriver.Summarize(results, roads.Len())
	stats.TotalElapsed = elapsed
	stats.WriteReport(os.Stdout)

	log.Println("Writing results...")
	writeStart := time.Now()
	if err := tracedriver.WriteResults(results, *output, *outputForJudgment, opts); err != nil {
		log.Fatalf("Failed to write results: %v", err)
	}
	log.Printf("Writing time: %s", time.Since(writeStart).Round(time.Millisecond))

	labeledFile := labeledFileName(*inputToMatch)
	if _, err := os.Stat(labeledFile); err != nil {
		log.Printf("no metrics to compute (file %s does not exist)", labeledFile)
		return
	}
	labels, err := tracedriver.ReadLabels(labeledFile)
	if err != nil {
		log.Fatalf("Failed to read labels: %v", err)
	}

	targetsByID := make(map[string]*feature.Feature, len(roadFeatures))
	for _, f := range roadFeatures {
		targetsByID[f.ID] = f
	}

	report, err := tracedriver.CalculateErrorRate(results, labels, targetsByID, labeledFile+".actual.txt")
	if err != nil {
		log.Fatalf("Failed to calculate error rate: %v", err)
	}
	for id, rate := range report.PerTrace {
		log.Printf("trace_id=%s trace_error_rate=%.2f", id, rate)
	}
	if report.HasTotalErrorRate {
		log.Printf("total_error_rate=%.2f total_correct_distance=%.2f total_incorrect_distance=%.2f",
			report.TotalErrorRate, report.TotalCorrectDistance, report.TotalIncorrectDistance)
	} else {
		log.Println("no correct distance")
	}
}

// labeledFileName mirrors the original's convention of deriving a
// ".labeled.txt" ground-truth path from the input file's name (original
// calculate_error_rate's call site: `features_to_match_file.replace(".geojson", ".labeled.txt")`).
func labeledFileName(inputToMatch string) string {
	const suffix = ".geojson"
	if len(inputToMatch) > len(suffix) && inputToMatch[len(inputToMatch)-len(suffix):] == suffix {
		return inputToMatch[:len(inputToMatch)-len(suffix)] + ".labeled.txt"
	}
	return inputToMatch + ".labeled.txt"
}
