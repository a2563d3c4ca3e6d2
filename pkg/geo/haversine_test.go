package geo

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name             string
		a, b             Point
		wantMeters       float64
		tolerancePercent float64
	}{
		{
			name:             "Singapore CBD to Changi Airport",
			a:                NewPoint(103.8513, 1.2830), // Raffles Place
			b:                NewPoint(103.9915, 1.3644), // Changi Airport
			wantMeters:       18_023,                     // ~18 km great-circle
			tolerancePercent: 1,
		},
		{
			name:             "Same point",
			a:                NewPoint(103.8198, 1.3521),
			b:                NewPoint(103.8198, 1.3521),
			wantMeters:       0,
			tolerancePercent: 0,
		},
		{
			name:             "London to Paris",
			a:                NewPoint(-0.1278, 51.5074),
			b:                NewPoint(2.3522, 48.8566),
			wantMeters:       343_500, // ~343.5 km
			tolerancePercent: 1,
		},
		{
			name:             "Short distance (~100m)",
			a:                NewPoint(103.8198, 1.3521),
			b:                NewPoint(103.8198, 1.3530),
			wantMeters:       100,
			tolerancePercent: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.a, tt.b)
			if tt.wantMeters == 0 {
				if got != 0 {
					t.Errorf("expected 0, got %f", got)
				}
				return
			}
			diff := math.Abs(got-tt.wantMeters) / tt.wantMeters * 100
			if diff > tt.tolerancePercent {
				t.Errorf("Haversine = %f m, want ~%f m (diff %.1f%%)", got, tt.wantMeters, diff)
			}
		})
	}
}

func TestEquirectangularDist(t *testing.T) {
	// At Singapore latitude, equirectangular should be very close to Haversine.
	a := NewPoint(103.8198, 1.3521)
	b := NewPoint(103.8300, 1.3600)

	h := Haversine(a, b)
	e := EquirectangularDist(a, b)

	diffPercent := math.Abs(h-e) / h * 100
	if diffPercent > 0.5 {
		t.Errorf("EquirectangularDist differs from Haversine by %.2f%% (haversine=%f, equirect=%f)", diffPercent, h, e)
	}
}

func TestPointToSegmentDist(t *testing.T) {
	tests := []struct {
		name      string
		p, a, b   Point
		wantRatio float64
		maxDistM  float64 // max expected distance
	}{
		{
			name:      "Point at start of segment",
			p:         NewPoint(103.8200, 1.3500),
			a:         NewPoint(103.8200, 1.3500),
			b:         NewPoint(103.8200, 1.3600),
			wantRatio: 0.0,
			maxDistM:  1,
		},
		{
			name:      "Point at end of segment",
			p:         NewPoint(103.8200, 1.3600),
			a:         NewPoint(103.8200, 1.3500),
			b:         NewPoint(103.8200, 1.3600),
			wantRatio: 1.0,
			maxDistM:  1,
		},
		{
			name:      "Point at midpoint perpendicular",
			p:         NewPoint(103.8210, 1.3550),
			a:         NewPoint(103.8200, 1.3500),
			b:         NewPoint(103.8200, 1.3600),
			wantRatio: 0.5,
			maxDistM:  200, // roughly 111m perpendicular
		},
		{
			name:      "Degenerate segment (A == B)",
			p:         NewPoint(103.8210, 1.3500),
			a:         NewPoint(103.8200, 1.3500),
			b:         NewPoint(103.8200, 1.3500),
			wantRatio: 0.0,
			maxDistM:  200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, ratio := PointToSegmentDist(tt.p, tt.a, tt.b)
			if dist > tt.maxDistM {
				t.Errorf("dist = %f m, want <= %f m", dist, tt.maxDistM)
			}
			if math.Abs(ratio-tt.wantRatio) > 0.05 {
				t.Errorf("ratio = %f, want ~%f", ratio, tt.wantRatio)
			}
		})
	}
}

func BenchmarkHaversine(b *testing.B) {
	p1 := NewPoint(103.8198, 1.3521)
	p2 := NewPoint(103.8520, 1.2905)
	for b.Loop() {
		Haversine(p1, p2)
	}
}

func BenchmarkEquirectangularDist(b *testing.B) {
	p1 := NewPoint(103.8198, 1.3521)
	p2 := NewPoint(103.8520, 1.2905)
	for b.Loop() {
		EquirectangularDist(p1, p2)
	}
}
