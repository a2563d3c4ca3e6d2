package geo

import "time"

// SecondsElapsed returns the real number of seconds between t1 and t2
// (original §4.1), which may be negative if t2 precedes t1.
func SecondsElapsed(t1, t2 time.Time) float64 {
	return t2.Sub(t1).Seconds()
}
