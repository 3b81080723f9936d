package observability

import (
	"sync"
	"time"
)

type routeKey struct {
	path   string
	method string
	status int
}

// Metrics keeps in-process counters for requests and domain-error
// responses, keyed by route. Latency is accumulated per route so a
// snapshot can report averages.
type Metrics struct {
	mu       sync.Mutex
	requests map[routeKey]int64
	elapsed  map[routeKey]time.Duration
	errors   map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: make(map[routeKey]int64),
		elapsed:  make(map[routeKey]time.Duration),
		errors:   make(map[string]int64),
	}
}

// RecordRequest counts a completed request and accumulates its latency.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := routeKey{path: path, method: method, status: status}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[key]++
	m.elapsed[key] += duration
}

// RecordError counts a request that ended in a domain error, keyed by
// route and error code (PERMISSION_DENIED, INVALID_TRANSITION, ...).
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[method+" "+path+" "+code]++
}

// RouteStat is one row of a metrics snapshot.
type RouteStat struct {
	Path       string        `json:"path"`
	Method     string        `json:"method"`
	Status     int           `json:"status"`
	Count      int64         `json:"count"`
	AvgLatency time.Duration `json:"avg_latency"`
}

// Snapshot copies the current counters out under the lock.
func (m *Metrics) Snapshot() ([]RouteStat, map[string]int64) {
	if m == nil {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := make([]RouteStat, 0, len(m.requests))
	for key, count := range m.requests {
		stats = append(stats, RouteStat{
			Path:       key.path,
			Method:     key.method,
			Status:     key.status,
			Count:      count,
			AvgLatency: m.elapsed[key] / time.Duration(count),
		})
	}
	errors := make(map[string]int64, len(m.errors))
	for key, count := range m.errors {
		errors[key] = count
	}
	return stats, errors
}
