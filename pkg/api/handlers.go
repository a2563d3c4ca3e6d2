package api

import (
	"encoding/json"
	"errors"
	"math"
	"mime"
	"net/http"
	"time"

	"github.com/azybler/tracematch/pkg/feature"
	"github.com/azybler/tracematch/pkg/geo"
	"github.com/azybler/tracematch/pkg/hmm"
	"github.com/azybler/tracematch/pkg/spatial"
	"github.com/azybler/tracematch/pkg/tracedriver"
)

// maxTracePoints caps request size the same way the teacher's
// http.MaxBytesReader caps body size: keeps one bad request from running an
// unbounded number of Dijkstra calls on the server's goroutine.
const maxTracePoints = 5000

// Handlers holds the HTTP handlers and their dependencies: a road network
// already indexed for spatial lookup, and the matcher tuning to run every
// request with.
type Handlers struct {
	roads *spatial.MatchableSet
	opts  hmm.Options
	stats StatsResponse
}

// NewHandlers creates handlers serving match requests against roads.
func NewHandlers(roads *spatial.MatchableSet, opts hmm.Options) *Handlers {
	return &Handlers{
		roads: roads,
		opts:  opts,
		stats: StatsResponse{NumRoadFeatures: roads.Len()},
	}
}

// HandleMatch handles POST /api/v1/match: match one trace on demand.
func (h *Handlers) HandleMatch(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	var req MatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}
	if len(req.Points) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "points")
		return
	}
	if len(req.Points) > maxTracePoints {
		writeError(w, http.StatusBadRequest, "too_many_points", "points")
		return
	}
	for _, p := range req.Points {
		if err := validateLatLng(p.Lat, p.Lng); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_coordinates", "points")
			return
		}
	}

	trace := toTrace(req)
	result := tracedriver.MatchOne(trace, h.roads, h.opts)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toMatchResponse(result))
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.stats)
}

func toTrace(req MatchRequest) *feature.Trace {
	points := make([]feature.TracePoint, len(req.Points))
	for i, p := range req.Points {
		var t time.Time
		if p.TimeUnix != nil {
			t = time.Unix(*p.TimeUnix, 0).UTC()
		}
		points[i] = feature.TracePoint{Point: geo.NewPoint(p.Lng, p.Lat), Time: t}
	}
	return &feature.Trace{ID: req.ID, Points: points}
}

func toMatchResponse(r *tracedriver.TraceResult) MatchResponse {
	resp := MatchResponse{
		ID:                    r.ID,
		SourceLength:          r.SourceLength,
		RouteLength:           r.RouteLength,
		PointsWithMatches:     r.PointsWithMatches,
		TargetCandidatesCount: r.TargetCandidatesCount,
		MatchedTargetIDs:      r.MatchedTargetIDs,
		SequenceBreaks:        r.SequenceBreaks,
		RevisitedViaPoints:    r.RevisitedViaPoints,
		RevisitedSegments:     r.RevisitedSegments,
		CandidateComponents:   r.CandidateComponents,
		Points:                make([]MatchedPointJSON, len(r.Match.Points)),
	}
	if r.HasAvgDistToRoad {
		v := r.AvgDistToRoad
		resp.AvgDistToRoad = &v
	}
	for i, p := range r.Match.Points {
		mp := MatchedPointJSON{
			Lat:    p.OriginalPoint[1],
			Lng:    p.OriginalPoint[0],
			Ignore: p.Ignore,
		}
		if p.BestPrediction != hmm.NoPrediction {
			pred := r.Match.Arena[p.BestPrediction]
			mp.GersID = pred.FeatureID
			mp.SnappedLat = pred.SnappedPoint[1]
			mp.SnappedLng = pred.SnappedPoint[0]
			mp.DistanceToRoad = pred.DistanceToRoad
		}
		resp.Points[i] = mp
	}
	return resp
}

func validateLatLng(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return errInvalidCoordinate
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return errInvalidCoordinate
	}
	return nil
}

var errInvalidCoordinate = errors.New("coordinates out of range")

func writeError(w http.ResponseWriter, status int, code, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Field: field})
}
