package tracedriver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azybler/tracematch/pkg/feature"
)

func writeLabelsFile(t *testing.T, dir string, rows [][]string) string {
	t.Helper()
	path := filepath.Join(dir, "labels.txt")
	var sb strings.Builder
	sb.WriteString("trace_id\tpoint_index\ttrace_point_wkt\tgers_id\n")
	for _, row := range rows {
		sb.WriteString(strings.Join(row, "\t") + "\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func TestReadLabels(t *testing.T) {
	dir := t.TempDir()
	path := writeLabelsFile(t, dir, [][]string{
		{"trace-1", "0", "POINT(0 0)", "road-A"},
		{"trace-1", "1", "POINT(0.001 0)", "road-A"},
		{"trace-1", "2", "POINT(0.002 0)", "road-B"},
	})

	labels, err := ReadLabels(path)
	require.NoError(t, err)
	require.Contains(t, labels, "trace-1")
	assert.Equal(t, "road-A", labels["trace-1"][0])
	assert.Equal(t, "road-B", labels["trace-1"][2])
}

func TestCalculateErrorRateAllCorrect(t *testing.T) {
	dir := t.TempDir()
	results := sampleResults(t)
	path := writeLabelsFile(t, dir, [][]string{
		{"trace-1", "0", "POINT(0 0)", "road-A"},
		{"trace-1", "1", "POINT(0.001 0)", "road-A"},
		{"trace-1", "2", "POINT(0.002 0)", "road-A"},
	})
	labels, err := ReadLabels(path)
	require.NoError(t, err)

	targetsByID := map[string]*feature.Feature{"road-A": straightRoad()}
	actualPath := filepath.Join(dir, "labels.txt.actual.txt")

	report, err := CalculateErrorRate(results, labels, targetsByID, actualPath)
	require.NoError(t, err)
	require.True(t, report.HasTotalErrorRate)
	assert.Equal(t, 0.0, report.TotalErrorRate)

	data, err := os.ReadFile(actualPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "trace_id\tpoint_index")
}

func TestCalculateErrorRateUnlabeledTraceIsSkipped(t *testing.T) {
	results := sampleResults(t)
	labels := Labels{"some-other-trace": {0: "road-A"}}

	report, err := CalculateErrorRate(results, labels, nil, "")
	require.NoError(t, err)
	assert.False(t, report.HasTotalErrorRate)
	assert.Empty(t, report.PerTrace)
}
