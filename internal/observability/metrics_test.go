package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets", "POST", 201, 40*time.Millisecond)
	m.RecordRequest("/tickets", "POST", 201, 20*time.Millisecond)
	m.RecordRequest("/tickets/t-1", "GET", 200, 10*time.Millisecond)
	m.RecordError("/tickets/t-1/transition", "POST", "INVALID_TRANSITION")

	routes, errCounts := m.Snapshot()
	require.Len(t, routes, 2)
	byPath := map[string]RouteStat{}
	for _, r := range routes {
		byPath[r.Path] = r
	}
	creates := byPath["/tickets"]
	assert.EqualValues(t, 2, creates.Count)
	assert.Equal(t, 201, creates.Status)
	assert.Equal(t, 30*time.Millisecond, creates.AvgLatency)
	assert.EqualValues(t, 1, errCounts["POST /tickets/t-1/transition INVALID_TRANSITION"])
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/tickets", "GET", 200, time.Millisecond)
	m.RecordError("/tickets", "GET", "INTERNAL_ERROR")
	routes, errCounts := m.Snapshot()
	assert.Nil(t, routes)
	assert.Nil(t, errCounts)
}
