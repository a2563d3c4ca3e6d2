package feature

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/azybler/tracematch/pkg/geo"
)

// TracePoint is one observed GPS fix along a trace (original §3): a
// location and the time it was recorded.
type TracePoint struct {
	Point geo.Point
	Time  time.Time
}

// Trace is an ordered sequence of GPS observations to be matched against
// the road network (original §3). An id identifies the trace in output.
type Trace struct {
	ID     string
	Points []TracePoint
}

// NewTraceFromFeature builds a Trace from a Feature whose geometry is a
// LineString and whose Times parallel-array holds unix-second timestamps,
// the shape GeoJSON trace input naturally decodes into (pkg/ingest).
func NewTraceFromFeature(f *Feature) *Trace {
	ls, ok := f.Geometry.(orb.LineString)
	if !ok {
		return &Trace{ID: f.ID}
	}
	pts := make([]TracePoint, len(ls))
	for i, c := range ls {
		t := time.Time{}
		if i < len(f.Times) {
			t = time.Unix(int64(f.Times[i]), 0).UTC()
		}
		pts[i] = TracePoint{Point: geo.Point(c), Time: t}
	}
	return &Trace{ID: f.ID, Points: pts}
}

// Length returns the cumulative great-circle distance between consecutive
// trace points in meters (original §4.1's "trace distance").
func (tr *Trace) Length() float64 {
	total := 0.0
	for i := 1; i < len(tr.Points); i++ {
		total += geo.Distance(tr.Points[i-1].Point, tr.Points[i].Point)
	}
	return total
}

// ElapsedSeconds returns the real time elapsed between two point indices,
// per geo.SecondsElapsed (original §4.1).
func (tr *Trace) ElapsedSeconds(i, j int) float64 {
	return geo.SecondsElapsed(tr.Points[i].Time, tr.Points[j].Time)
}

// DistanceBetween returns the great-circle distance in meters between two
// point indices along the trace (not the cumulative trace length).
func (tr *Trace) DistanceBetween(i, j int) float64 {
	return geo.Distance(tr.Points[i].Point, tr.Points[j].Point)
}
