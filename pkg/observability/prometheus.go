package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements every hook interface by recording Prometheus
// metrics in its own registry.
type Collector struct {
	registry *prometheus.Registry

	LoadDuration    *prometheus.HistogramVec
	RecordsLoaded   prometheus.Counter
	RecordsSkipped  prometheus.Counter
	GraphNodes      prometheus.Gauge
	GraphEdges      prometheus.Gauge
	DetectRuns      *prometheus.CounterVec
	DetectDuration  *prometheus.HistogramVec
	Communities     *prometheus.GaugeVec
	Modularity      *prometheus.GaugeVec
	CacheOperations *prometheus.CounterVec
	CacheBytes      *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

// NewCollector creates a collector whose metric names start with namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		LoadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Time spent loading recipe records",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source", "status"}),
		RecordsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_loaded_total",
			Help:      "Total number of recipe records loaded",
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Total number of malformed recipe records skipped",
		}),
		GraphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Number of nodes in the last built graph",
		}),
		GraphEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Number of edges in the last built graph",
		}),
		DetectRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detect_runs_total",
			Help:      "Total number of community detection runs",
		}, []string{"method", "status"}),
		DetectDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detect_duration_seconds",
			Help:      "Community detection duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		Communities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "communities",
			Help:      "Number of communities found by the last run",
		}, []string{"method"}),
		Modularity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "modularity",
			Help:      "Modularity Q of the last partition",
		}, []string{"method"}),
		CacheOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Cache operations by key type and result",
		}, []string{"key_type", "result"}),
		CacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache by key type",
		}, []string{"key_type"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	c.registry.MustRegister(
		c.LoadDuration, c.RecordsLoaded, c.RecordsSkipped,
		c.GraphNodes, c.GraphEdges,
		c.DetectRuns, c.DetectDuration, c.Communities, c.Modularity,
		c.CacheOperations, c.CacheBytes,
		c.HTTPRequests, c.HTTPDuration,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) OnLoadStart(context.Context, string) {}

func (c *Collector) OnLoadComplete(_ context.Context, source string, records int, d time.Duration, err error) {
	c.LoadDuration.WithLabelValues(source, status(err)).Observe(d.Seconds())
	if err == nil {
		c.RecordsLoaded.Add(float64(records))
	}
}

func (c *Collector) OnBuildStart(context.Context, int) {}

func (c *Collector) OnBuildComplete(_ context.Context, nodes, edges, skipped int, _ time.Duration) {
	c.GraphNodes.Set(float64(nodes))
	c.GraphEdges.Set(float64(edges))
	c.RecordsSkipped.Add(float64(skipped))
}

func (c *Collector) OnDetectStart(context.Context, string, int) {}

func (c *Collector) OnDetectComplete(_ context.Context, method string, communities int, q float64, d time.Duration, err error) {
	c.DetectRuns.WithLabelValues(method, status(err)).Inc()
	c.DetectDuration.WithLabelValues(method).Observe(d.Seconds())
	if err == nil {
		c.Communities.WithLabelValues(method).Set(float64(communities))
		c.Modularity.WithLabelValues(method).Set(q)
	}
}

func (c *Collector) OnCacheHit(_ context.Context, keyType string) {
	c.CacheOperations.WithLabelValues(keyType, "hit").Inc()
}

func (c *Collector) OnCacheMiss(_ context.Context, keyType string) {
	c.CacheOperations.WithLabelValues(keyType, "miss").Inc()
}

func (c *Collector) OnCacheSet(_ context.Context, keyType string, size int) {
	c.CacheOperations.WithLabelValues(keyType, "set").Inc()
	c.CacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (c *Collector) OnResponse(_ context.Context, method, route string, code int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var (
	_ PipelineHooks = (*Collector)(nil)
	_ CacheHooks    = (*Collector)(nil)
	_ ServerHooks   = (*Collector)(nil)
)
