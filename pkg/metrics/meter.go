package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var metricRegisterErrorMessage = "failed to register metric counter"

// Meter observes cache and transport activity. The production
// implementation is prometheus-backed; tests use Nop.
type Meter interface {
	CacheHit()
	CacheMiss()
	CacheRevalidated()
	CacheStaleServed()
	CacheEvicted(items int)
	TransportRequest(method, status string)
	TransportRetry()
	RateLimited()
	NewFetchTimer(method string) *prometheus.Timer
	FlushFetchTimer(t *prometheus.Timer)
}

// Metrics is the prometheus-backed Meter.
type Metrics struct {
	cacheEvents      *prometheus.CounterVec
	evictedCounter   prometheus.Counter
	transportCounter *prometheus.CounterVec
	retryCounter     prometheus.Counter
	rateLimited      prometheus.Counter
	fetchDuration    *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		cacheEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hubview_cache_events_total",
				Help: "Cache outcomes by kind (hit, miss, revalidated, stale_served).",
			},
			[]string{"kind"},
		),
		evictedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hubview_cache_evicted_total",
			Help: "Entries removed by capacity eviction.",
		}),
		transportCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hubview_transport_requests_total",
				Help: "Outbound GitHub requests by method and status.",
			},
			[]string{"method", "status"},
		),
		retryCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hubview_transport_retries_total",
			Help: "Retries issued on transient network failures.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hubview_rate_limited_total",
			Help: "Requests refused or failed because the rate budget was exhausted.",
		}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "hubview_fetch_duration_seconds",
			Help: "Duration of transport fetches.",
		}, []string{"method"}),
	}

	for _, c := range []prometheus.Collector{
		m.cacheEvents, m.evictedCounter, m.transportCounter,
		m.retryCounter, m.rateLimited, m.fetchDuration,
	} {
		if err := reg.Register(c); err != nil {
			log.Err(err).Msg(metricRegisterErrorMessage)
			return nil, errors.New(metricRegisterErrorMessage)
		}
	}

	return m, nil
}

func (m *Metrics) CacheHit()         { m.cacheEvents.WithLabelValues("hit").Inc() }
func (m *Metrics) CacheMiss()        { m.cacheEvents.WithLabelValues("miss").Inc() }
func (m *Metrics) CacheRevalidated() { m.cacheEvents.WithLabelValues("revalidated").Inc() }
func (m *Metrics) CacheStaleServed() { m.cacheEvents.WithLabelValues("stale_served").Inc() }

func (m *Metrics) CacheEvicted(items int) {
	m.evictedCounter.Add(float64(items))
}

func (m *Metrics) TransportRequest(method, status string) {
	m.transportCounter.WithLabelValues(method, status).Inc()
}

func (m *Metrics) TransportRetry() { m.retryCounter.Inc() }
func (m *Metrics) RateLimited()    { m.rateLimited.Inc() }

func (m *Metrics) NewFetchTimer(method string) *prometheus.Timer {
	return prometheus.NewTimer(m.fetchDuration.WithLabelValues(method))
}

func (m *Metrics) FlushFetchTimer(t *prometheus.Timer) {
	t.ObserveDuration()
}

// Nop is a Meter that records nothing.
type Nop struct{}

func (Nop) CacheHit()                              {}
func (Nop) CacheMiss()                             {}
func (Nop) CacheRevalidated()                      {}
func (Nop) CacheStaleServed()                      {}
func (Nop) CacheEvicted(int)                       {}
func (Nop) TransportRequest(string, string)        {}
func (Nop) TransportRetry()                        {}
func (Nop) RateLimited()                           {}
func (Nop) NewFetchTimer(string) *prometheus.Timer { return nil }
func (Nop) FlushFetchTimer(*prometheus.Timer)      {}

var _ Meter = Nop{}
var _ Meter = (*Metrics)(nil)
