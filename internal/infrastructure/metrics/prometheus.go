// Package metrics 通过 Prometheus 暴露同步指标
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cocursor/ontosync/internal/domain/events"
)

const namespace = "ontosync"

// Collector 订阅事件总线并维护 Prometheus 指标
type Collector struct {
	registry *prometheus.Registry

	syncEvents  *prometheus.CounterVec
	nodes       prometheus.Counter
	relations   prometheus.Counter
	syncLatency *prometheus.HistogramVec
	lastSync    prometheus.Gauge

	mu    sync.Mutex
	unsub func()
}

// NewCollector 创建指标收集器，使用独立的 Registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		syncEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_events_total",
			Help:      "Processed file events by outcome.",
		}, []string{"outcome", "event"}),
		nodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_created_total",
			Help:      "Graph nodes created by ingestion.",
		}),
		relations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relations_created_total",
			Help:      "IMPORTS and SIMILAR_TO edges written by ingestion.",
		}),
		syncLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_latency_seconds",
			Help:      "End-to-end latency of a single path event.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"kind"}),
		lastSync: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sync_timestamp_seconds",
			Help:      "Unix time of the last completed sync.",
		}),
	}

	c.registry.MustRegister(
		c.syncEvents,
		c.nodes,
		c.relations,
		c.syncLatency,
		c.lastSync,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Attach 订阅事件总线
func (c *Collector) Attach(bus events.EventBus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsub != nil {
		return
	}
	c.unsub = bus.SubscribeMultiple(
		[]events.EventType{events.ObjectIngested, events.ObjectRemoved, events.IngestFailed},
		events.HandlerFunc(c.HandleEvent),
	)
}

// Detach 取消订阅
func (c *Collector) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
}

// HandleEvent 记录单个同步事件
func (c *Collector) HandleEvent(event events.Event) error {
	e, ok := event.(*events.SyncEvent)
	if !ok {
		return nil
	}

	outcome := "ingested"
	switch e.EventType {
	case events.ObjectRemoved:
		outcome = "removed"
	case events.IngestFailed:
		outcome = "failed"
	}
	c.syncEvents.WithLabelValues(outcome, string(e.Entry.Event)).Inc()

	if e.EventType == events.IngestFailed {
		return nil
	}

	if e.NodeCreated {
		c.nodes.Inc()
	}
	if e.Relations > 0 {
		c.relations.Add(float64(e.Relations))
	}

	kind := string(e.ObjectType.Kind)
	if kind == "" {
		kind = "none"
	}
	c.syncLatency.WithLabelValues(kind).Observe(e.Latency.Seconds())
	c.lastSync.Set(float64(e.EventTime.UnixNano()) / 1e9)
	return nil
}

// Registry 返回指标注册表
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 返回 /metrics 处理器
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
