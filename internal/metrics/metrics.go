package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records API traffic issued by the client. It owns its registry so
// several clients (and tests) never collide on the default one.
type Collector struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec
	cacheHitsTotal  *prometheus.CounterVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devstudio_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devstudio_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devstudio_api_retries_total",
				Help: "Total number of retried API requests",
			},
			[]string{"endpoint"},
		),
		cacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devstudio_cache_lookups_total",
				Help: "Response cache lookups by result",
			},
			[]string{"key", "result"},
		),
	}
	c.registry.MustRegister(c.requestsTotal, c.requestDuration, c.retriesTotal, c.cacheHitsTotal)
	return c
}

// ObserveRequest records one finished request. status 0 means the transport
// failed before a response arrived.
func (c *Collector) ObserveRequest(method, endpoint string, status int, cost time.Duration) {
	if c == nil {
		return
	}
	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	c.requestsTotal.WithLabelValues(method, endpoint, label).Inc()
	c.requestDuration.WithLabelValues(method, endpoint).Observe(cost.Seconds())
}

func (c *Collector) ObserveRetry(endpoint string) {
	if c == nil {
		return
	}
	c.retriesTotal.WithLabelValues(endpoint).Inc()
}

func (c *Collector) ObserveCache(key string, hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheHitsTotal.WithLabelValues(key, result).Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Summary flattens the counters into name{labels} → value pairs for debug logs.
func (c *Collector) Summary() (map[string]float64, error) {
	families, err := c.registry.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			for _, lp := range m.GetLabel() {
				name += "," + lp.GetName() + "=" + lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				out[name] = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				out[name+",count"] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out, nil
}
