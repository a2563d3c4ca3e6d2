package tracedriver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	results := sampleResults(t)
	stats := Summarize(results, 1)

	assert.Equal(t, 1, stats.NumTraces)
	assert.Equal(t, 1, stats.NumTargetFeatures)
	assert.True(t, stats.HasAvgDistToRoad)
	assert.Greater(t, stats.TotalTraceLengthKM, 0.0)
}

func TestSummarizeEmptyBatch(t *testing.T) {
	stats := Summarize(nil, 0)
	assert.Equal(t, 0, stats.NumTraces)
	assert.False(t, stats.HasAvgDistToRoad)
}

func TestWriteReportDoesNotPanicOnEmptyBatch(t *testing.T) {
	var sb strings.Builder
	stats := Summarize(nil, 0)
	require.NotPanics(t, func() { stats.WriteReport(&sb) })
	assert.Contains(t, sb.String(), "Totals:")
}

func TestWriteReportIncludesKeyMetrics(t *testing.T) {
	var sb strings.Builder
	stats := Summarize(sampleResults(t), 1)
	stats.WriteReport(&sb)

	out := sb.String()
	assert.Contains(t, out, "Traces")
	assert.Contains(t, out, "Snapped route length")
	assert.Contains(t, out, "GPS traces length")
}
