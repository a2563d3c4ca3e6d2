package tracedriver

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/azybler/tracematch/pkg/feature"
	"github.com/azybler/tracematch/pkg/geo"
	"github.com/azybler/tracematch/pkg/hmm"
)

// Labels is a hand-labeled ground truth set: trace id -> point index ->
// the correct road feature id, in the same four-column shape as the
// for_judgment.txt output this package writes (trace_id, point_index,
// trace_point_wkt, gers_id) so a judgment file can be labeled in place and
// fed back in as ground truth (original read_predictions).
type Labels map[string]map[int]string

// ReadLabels parses a labeled TSV file. Rows that fail to parse (for
// example a header row) are skipped rather than aborting the read
// (original's bare `except ValueError: continue`).
func ReadLabels(path string) (Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tracedriver: open labels file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	labels := make(Labels)
	for {
		row, err := r.Read()
		if err != nil {
			break // EOF or malformed row; original treats both as "done"
		}
		if len(row) < 4 {
			continue
		}
		traceID := row[0]
		pointIndex, err := strconv.Atoi(row[1])
		if err != nil {
			continue // header row
		}
		gersID := row[3]
		if labels[traceID] == nil {
			labels[traceID] = make(map[int]string)
		}
		labels[traceID][pointIndex] = gersID
	}
	return labels, nil
}

// ErrorRateReport is the outcome of scoring a batch of results against
// Labels (original calculate_error_rate's console summary plus the
// .actual.txt it writes).
type ErrorRateReport struct {
	PerTrace               map[string]float64
	TotalCorrectDistance   float64
	TotalIncorrectDistance float64
	TotalErrorRate         float64
	HasTotalErrorRate      bool
}

// CalculateErrorRate scores results against labels: the original paper's
// error metric is (incorrect route distance / correct route distance), but
// since labeling the true route distance needs a working router, this
// approximates it with the distance between consecutive original trace
// points, charged as "incorrect" whenever the winning prediction's feature
// id disagrees with the label (original calculate_error_rate). targetsByID
// resolves a label's gers_id to its geometry so the .actual.txt WKT columns
// can be filled in; a label whose id isn't in targetsByID leaves that
// column blank. actualPath, when non-empty, writes the original's
// per-point `.actual.txt` detail file alongside the summary.
func CalculateErrorRate(results []*TraceResult, labels Labels, targetsByID map[string]*feature.Feature, actualPath string) (*ErrorRateReport, error) {
	report := &ErrorRateReport{PerTrace: make(map[string]float64)}

	var actual *os.File
	if actualPath != "" {
		f, err := os.Create(actualPath)
		if err != nil {
			return nil, fmt.Errorf("tracedriver: create actual-results file: %w", err)
		}
		defer f.Close()
		actual = f

		header := []string{
			"trace_id", "point_index", "label_gers_id", "prediction_gers_id",
			"label_snapped_wkt", "prediction_snapped_wkt", "distance_to_prev_point", "is_correct",
		}
		if _, err := fmt.Fprintln(actual, joinColumns(header...)); err != nil {
			return nil, err
		}
	}

	for _, r := range results {
		traceLabels, ok := labels[r.ID]
		if !ok {
			continue
		}

		var correctDistance, incorrectDistance float64
		havePrev := false
		var prevPoint geo.Point

		for _, p := range r.Match.Points {
			labelGersID, ok := traceLabels[p.Index]
			if !ok {
				break // original: stop scoring this trace once labels run out
			}

			predictionID := ""
			snappedWKT := ""
			if p.BestPrediction != hmm.NoPrediction {
				pred := r.Match.Arena[p.BestPrediction]
				predictionID = pred.FeatureID
				snappedWKT = geo.PointWKT(pred.SnappedPoint)
			}
			isCorrect := predictionID != "" && predictionID == labelGersID

			var distToPrev float64
			if havePrev {
				distToPrev = geo.Distance(prevPoint, p.OriginalPoint)
				correctDistance += distToPrev
				if !isCorrect {
					incorrectDistance += distToPrev
				}
			}

			labelSnappedWKT := ""
			if target, ok := targetsByID[labelGersID]; ok {
				snapped, _ := target.NearestPoint(p.OriginalPoint)
				labelSnappedWKT = geo.PointWKT(snapped)
			}

			if actual != nil {
				columns := []string{
					r.ID,
					strconv.Itoa(p.Index),
					labelGersID,
					predictionID,
					labelSnappedWKT,
					snappedWKT,
					strconv.FormatFloat(distToPrev, 'f', -1, 64),
					strconv.FormatBool(isCorrect),
				}
				if _, err := fmt.Fprintln(actual, joinColumns(columns...)); err != nil {
					return nil, err
				}
			}

			prevPoint = p.OriginalPoint
			havePrev = true
		}

		if correctDistance > 0 {
			report.PerTrace[r.ID] = incorrectDistance / correctDistance
		}
		report.TotalCorrectDistance += correctDistance
		report.TotalIncorrectDistance += incorrectDistance
	}

	if report.TotalCorrectDistance > 0 {
		report.TotalErrorRate = report.TotalIncorrectDistance / report.TotalCorrectDistance
		report.HasTotalErrorRate = true
	}
	return report, nil
}
