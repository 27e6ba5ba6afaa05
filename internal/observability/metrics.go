package observability

import (
	"sync"
	"time"
)

type RouteSnapshot struct {
	Count         int64   `json:"count"`
	Errors        int64   `json:"errors"`
	InFlight      int64   `json:"in_flight"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	LastLatencyMs float64 `json:"last_latency_ms"`
}

type HandlerSnapshot struct {
	Processed int64 `json:"processed"`
	Discarded int64 `json:"discarded"`
	Failed    int64 `json:"failed"`
}

type Snapshot struct {
	UptimeSec       int64                      `json:"uptime_sec"`
	TotalRequests   int64                      `json:"total_requests"`
	TotalErrors     int64                      `json:"total_errors"`
	InFlight        int64                      `json:"in_flight"`
	RateLimitWaits  int64                      `json:"rate_limit_waits"`
	RateLimitWaitMs int64                      `json:"rate_limit_wait_ms"`
	Outcomes        map[string]int64           `json:"outcomes"`
	Handlers        map[string]HandlerSnapshot `json:"handlers"`
	Routes          map[string]RouteSnapshot   `json:"routes"`
}

type routeStats struct {
	count        int64
	errors       int64
	inFlight     int64
	totalLatency time.Duration
	maxLatency   time.Duration
	lastLatency  time.Duration
}

type handlerStats struct {
	processed int64
	discarded int64
	failed    int64
}

// Metrics aggregates request, step-handler and saga-outcome counters.
type Metrics struct {
	mu             sync.Mutex
	start          time.Time
	routes         map[string]*routeStats
	handlers       map[string]*handlerStats
	outcomes       map[string]int64
	rateLimitWaits int64
	rateLimitWait  time.Duration
}

type CallSpan struct {
	metrics *Metrics
	route   string
	start   time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{
		start:    time.Now(),
		routes:   make(map[string]*routeStats),
		handlers: make(map[string]*handlerStats),
		outcomes: make(map[string]int64),
	}
}

// Start opens a call span for an HTTP route.
func (m *Metrics) Start(route string) *CallSpan {
	if m == nil {
		return &CallSpan{}
	}
	m.mu.Lock()
	stats := m.ensureRoute(route)
	stats.inFlight++
	m.mu.Unlock()
	return &CallSpan{
		metrics: m,
		route:   route,
		start:   time.Now(),
	}
}

func (s *CallSpan) End(failed bool) {
	if s == nil || s.metrics == nil {
		return
	}
	dur := time.Since(s.start)
	s.metrics.finish(s.route, dur, failed)
}

// CountOutcome records the terminal state of one saga request.
func (m *Metrics) CountOutcome(outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.outcomes[outcome]++
	m.mu.Unlock()
}

// HandlerProcessed records a message a step handler applied successfully.
func (m *Metrics) HandlerProcessed(handler string) {
	m.countHandler(handler, func(s *handlerStats) { s.processed++ })
}

// HandlerDiscarded records a poison message a step handler dropped.
func (m *Metrics) HandlerDiscarded(handler string) {
	m.countHandler(handler, func(s *handlerStats) { s.discarded++ })
}

// HandlerFailed records a transient handler failure left for redelivery.
func (m *Metrics) HandlerFailed(handler string) {
	m.countHandler(handler, func(s *handlerStats) { s.failed++ })
}

func (m *Metrics) AddRateLimitWait(d time.Duration) {
	if m == nil || d <= 0 {
		return
	}
	m.mu.Lock()
	m.rateLimitWaits++
	m.rateLimitWait += d
	m.mu.Unlock()
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	snap := Snapshot{
		UptimeSec:       int64(now.Sub(m.start).Seconds()),
		Outcomes:        make(map[string]int64),
		Handlers:        make(map[string]HandlerSnapshot),
		Routes:          make(map[string]RouteSnapshot),
		RateLimitWaits:  m.rateLimitWaits,
		RateLimitWaitMs: int64(m.rateLimitWait / time.Millisecond),
	}

	for outcome, count := range m.outcomes {
		snap.Outcomes[outcome] = count
	}
	for handler, stats := range m.handlers {
		snap.Handlers[handler] = HandlerSnapshot{
			Processed: stats.processed,
			Discarded: stats.discarded,
			Failed:    stats.failed,
		}
	}
	for route, stats := range m.routes {
		avg := 0.0
		if stats.count > 0 {
			avg = float64(stats.totalLatency.Milliseconds()) / float64(stats.count)
		}
		snap.Routes[route] = RouteSnapshot{
			Count:         stats.count,
			Errors:        stats.errors,
			InFlight:      stats.inFlight,
			AvgLatencyMs:  avg,
			MaxLatencyMs:  float64(stats.maxLatency.Milliseconds()),
			LastLatencyMs: float64(stats.lastLatency.Milliseconds()),
		}
		snap.TotalRequests += stats.count
		snap.TotalErrors += stats.errors
		snap.InFlight += stats.inFlight
	}

	return snap
}

func (m *Metrics) ensureRoute(route string) *routeStats {
	stats, ok := m.routes[route]
	if !ok {
		stats = &routeStats{}
		m.routes[route] = stats
	}
	return stats
}

func (m *Metrics) countHandler(handler string, apply func(*handlerStats)) {
	if m == nil {
		return
	}
	m.mu.Lock()
	stats, ok := m.handlers[handler]
	if !ok {
		stats = &handlerStats{}
		m.handlers[handler] = stats
	}
	apply(stats)
	m.mu.Unlock()
}

func (m *Metrics) finish(route string, dur time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	stats := m.ensureRoute(route)
	stats.inFlight--
	stats.count++
	if failed {
		stats.errors++
	}
	stats.totalLatency += dur
	if dur > stats.maxLatency {
		stats.maxLatency = dur
	}
	stats.lastLatency = dur
	m.mu.Unlock()
}
