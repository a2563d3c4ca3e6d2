package tracedriver

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/azybler/tracematch/pkg/geo"
	"github.com/azybler/tracematch/pkg/hmm"
)

// columnSeparator matches the original's constants.COLUMN_SEPARATOR: plain
// tab, so WKT's embedded commas never need escaping.
const columnSeparator = "\t"

// predictionJSON is one candidate road feature attached to a trace point
// (original SnappedPointPrediction.to_json).
type predictionJSON struct {
	FeatureID               string   `json:"gers_id"`
	SnappedPointWKT         string   `json:"snapped_point_wkt"`
	DistanceToRoad          float64  `json:"distance_to_snapped_road"`
	RouteDistanceToPrev     *float64 `json:"route_distance_to_prev_point,omitempty"`
	EmissionProb            float64  `json:"emission_prob"`
	BestTransitionProb      float64  `json:"best_transition_prob"`
	BestLogProb             float64  `json:"best_log_prob"`
	RevisitedViaPointsCount int      `json:"best_revisited_via_points_count"`
	RevisitedSegmentsCount  int      `json:"best_revisited_segments_count"`
}

// pointJSON is one trace vertex's matching outcome (original
// PointSnapInfo.to_json).
type pointJSON struct {
	Index              int              `json:"index"`
	OriginalPointWKT   string           `json:"original_point_wkt"`
	TimeSincePrevPoint float64          `json:"time_since_prev_point,omitempty"`
	Ignore             bool             `json:"ignore,omitempty"`
	BestPrediction     *predictionJSON  `json:"best_prediction"`
	AllPredictions     []predictionJSON `json:"predictions,omitempty"`
}

// traceResultJSON is one trace's reported outcome (original
// TraceMatchResult.to_json). diagnostics and allPredictions gate which
// optional fields are populated, mirroring the original's
// diagnostic_mode/include_all_predictions flags.
type traceResultJSON struct {
	ID                    string      `json:"id"`
	SourceLength          float64     `json:"source_length"`
	RouteLength           float64     `json:"route_length"`
	PointsWithMatches     int         `json:"points_with_matches"`
	TargetCandidatesCount int         `json:"target_candidates_count"`
	MatchedTargetIDs      []string    `json:"matched_target_ids"`
	AvgDistToRoad         *float64    `json:"avg_dist_to_road"`
	SequenceBreaks        int         `json:"sequence_breaks,omitempty"`
	RevisitedViaPoints    int         `json:"revisited_via_points,omitempty"`
	RevisitedSegments     int         `json:"revisited_segments,omitempty"`
	ElapsedSeconds        float64     `json:"elapsed,omitempty"`
	SourceWKT             string      `json:"source_wkt,omitempty"`
	CandidateComponents   int         `json:"candidate_components,omitempty"`
	Points                []pointJSON `json:"points,omitempty"`
}

// ToJSON renders r the way the original's TraceMatchResult.to_json does:
// the plain form always carries the summary fields; diagnostics adds the
// per-point trace and each point's chosen prediction; allPredictions
// additionally dumps every surviving candidate at each point, not just the
// winner.
func (r *TraceResult) ToJSON(diagnostics, allPredictions bool) traceResultJSON {
	out := traceResultJSON{
		ID:                    r.ID,
		SourceLength:          round2(r.SourceLength),
		RouteLength:           round2(r.RouteLength),
		PointsWithMatches:     r.PointsWithMatches,
		TargetCandidatesCount: r.TargetCandidatesCount,
		MatchedTargetIDs:      r.MatchedTargetIDs,
		SequenceBreaks:        r.SequenceBreaks,
		RevisitedViaPoints:    r.RevisitedViaPoints,
		RevisitedSegments:     r.RevisitedSegments,
		ElapsedSeconds:        r.Elapsed.Seconds(),
	}
	if r.HasAvgDistToRoad {
		v := round2(r.AvgDistToRoad)
		out.AvgDistToRoad = &v
	}
	if !diagnostics {
		return out
	}

	out.SourceWKT = r.OriginalWKT()
	out.CandidateComponents = r.CandidateComponents
	out.Points = make([]pointJSON, len(r.Match.Points))
	for i, p := range r.Match.Points {
		pj := pointJSON{
			Index:              p.Index,
			OriginalPointWKT:   geo.PointWKT(p.OriginalPoint),
			TimeSincePrevPoint: p.TimeSincePrevPoint,
			Ignore:             p.Ignore,
		}
		if p.BestPrediction != hmm.NoPrediction {
			pred := predictionToJSON(r.Match.Arena[p.BestPrediction])
			pj.BestPrediction = &pred
		}
		if allPredictions {
			pj.AllPredictions = make([]predictionJSON, len(p.Predictions))
			for j, idx := range p.Predictions {
				pj.AllPredictions[j] = predictionToJSON(r.Match.Arena[idx])
			}
		}
		out.Points[i] = pj
	}
	return out
}

func predictionToJSON(p hmm.Prediction) predictionJSON {
	pj := predictionJSON{
		FeatureID:               p.FeatureID,
		SnappedPointWKT:         geo.PointWKT(p.SnappedPoint),
		DistanceToRoad:          round2(p.DistanceToRoad),
		EmissionProb:            p.EmissionProb,
		BestTransitionProb:      p.BestTransitionProb,
		BestLogProb:             p.BestLogProb,
		RevisitedViaPointsCount: p.RevisitedViaPointsCount,
		RevisitedSegmentsCount:  p.RevisitedSegmentsCount,
	}
	if p.HasRoute {
		d := round2(p.RouteDistanceToPrev)
		pj.RouteDistanceToPrev = &d
	}
	return pj
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

// WriteResults writes the original's full output_trace_snap_results suite
// next to outputPath: the plain results JSON at outputPath itself, the two
// diagnostic JSON variants, the run's matcher options, the auto-metrics
// TSV, and — when outputForJudgment is set — the judgment and
// snapped-points TSVs.
func WriteResults(results []*TraceResult, outputPath string, outputForJudgment bool, opts hmm.Options) error {
	if err := writeJSON(results, outputPath, false, false); err != nil {
		return err
	}
	if err := writeOptions(opts, outputPath+".options.json"); err != nil {
		return err
	}
	if err := writeJSON(results, outputPath+".with_diagnostics.json", true, false); err != nil {
		return err
	}
	if err := writeJSON(results, outputPath+".with_diagnostics-all-predictions.json", true, true); err != nil {
		return err
	}

	if outputForJudgment {
		if err := writeJudgmentTSV(results, outputPath+".for_judgment.txt"); err != nil {
			return err
		}
		if err := writeSnappedPointsTSV(results, outputPath+".snapped_points.txt"); err != nil {
			return err
		}
	}

	return writeAutoMetricsTSV(results, outputPath+".auto_metrics.txt")
}

// writeOptions writes the matcher options used for this run as a JSON
// document next to the results (original §6: "the snap options used are
// written next to the output... whose keys match §3's options table
// exactly" — Options's json tags are the options table's own names).
func writeOptions(opts hmm.Options, path string) error {
	data, err := json.MarshalIndent(opts, "", "    ")
	if err != nil {
		return fmt.Errorf("tracedriver: marshal options: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func writeJSON(results []*TraceResult, path string, diagnostics, allPredictions bool) error {
	out := make([]traceResultJSON, len(results))
	for i, r := range results {
		out[i] = r.ToJSON(diagnostics, allPredictions)
	}
	data, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return fmt.Errorf("tracedriver: marshal results: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func writeJudgmentTSV(results []*TraceResult, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tracedriver: create judgment file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, joinColumns("trace_id", "point_index", "trace_point_wkt", "gers_id")); err != nil {
		return err
	}
	for _, r := range results {
		for idx, p := range r.Match.Points {
			gersID := bestPredictionFeatureID(r, p.BestPrediction)
			if _, err := fmt.Fprintln(f, joinColumns(r.ID, strconv.Itoa(idx), geo.PointWKT(p.OriginalPoint), gersID)); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeSnappedPointsTSV(results []*TraceResult, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tracedriver: create snapped points file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, joinColumns("trace_id", "point_index", "gers_id", "snapped_point_wkt")); err != nil {
		return err
	}
	for _, r := range results {
		for idx, p := range r.Match.Points {
			gersID := ""
			snappedWKT := ""
			if p.BestPrediction != hmm.NoPrediction {
				pred := r.Match.Arena[p.BestPrediction]
				gersID = pred.FeatureID
				snappedWKT = geo.PointWKT(pred.SnappedPoint)
			}
			if _, err := fmt.Fprintln(f, joinColumns(r.ID, strconv.Itoa(idx), gersID, snappedWKT)); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeAutoMetricsTSV(results []*TraceResult, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("tracedriver: create auto metrics file: %w", err)
	}
	defer f.Close()

	header := []string{
		"id", "source_length", "route_length", "points", "points_with_match",
		"percent_points_with_match", "target_candidates_count", "matched_target_ids_count",
		"avg_dist_to_road", "sequence_breaks", "revisited_via_points", "revisited_segments",
		"elapsed", "source_wkt",
	}
	if _, err := fmt.Fprintln(f, joinColumns(header...)); err != nil {
		return err
	}

	for _, r := range results {
		percent := 0.0
		if len(r.Match.Points) > 0 {
			percent = 100 * float64(r.PointsWithMatches) / float64(len(r.Match.Points))
		}
		avgDist := ""
		if r.HasAvgDistToRoad {
			avgDist = strconv.FormatFloat(round2(r.AvgDistToRoad), 'f', 2, 64)
		}
		columns := []string{
			r.ID,
			strconv.FormatFloat(round2(r.SourceLength), 'f', 2, 64),
			strconv.FormatFloat(round2(r.RouteLength), 'f', 2, 64),
			strconv.Itoa(len(r.Match.Points)),
			strconv.Itoa(r.PointsWithMatches),
			strconv.FormatFloat(percent, 'f', 2, 64),
			strconv.Itoa(r.TargetCandidatesCount),
			strconv.Itoa(len(r.MatchedTargetIDs)),
			avgDist,
			strconv.Itoa(r.SequenceBreaks),
			strconv.Itoa(r.RevisitedViaPoints),
			strconv.Itoa(r.RevisitedSegments),
			strconv.FormatFloat(r.Elapsed.Seconds(), 'f', 3, 64),
			r.OriginalWKT(),
		}
		if _, err := fmt.Fprintln(f, joinColumns(columns...)); err != nil {
			return err
		}
	}
	return nil
}

func bestPredictionFeatureID(r *TraceResult, idx int32) string {
	if idx == hmm.NoPrediction {
		return ""
	}
	return r.Match.Arena[idx].FeatureID
}

func joinColumns(columns ...string) string {
	out := columns[0]
	for _, c := range columns[1:] {
		out += columnSeparator + c
	}
	return out
}
