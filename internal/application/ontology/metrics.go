package ontology

import (
	"sync"
	"sync/atomic"
	"time"

	domainOntology "github.com/cocursor/ontosync/internal/domain/ontology"
)

// latencyWindow 保留的同步耗时样本数
const latencyWindow = 1000

// Metrics 进程级同步指标
type Metrics struct {
	nodesCreated        atomic.Int64
	relationsCreated    atomic.Int64
	streamEvents        atomic.Int64
	ingestFailures      atomic.Int64
	vectorWriteFailures atomic.Int64
	embeddingFailures   atomic.Int64

	mu       sync.Mutex
	samples  []float64
	next     int
	lastSync time.Time
}

// NewMetrics 创建指标
func NewMetrics() *Metrics {
	return &Metrics{samples: make([]float64, 0, latencyWindow)}
}

// RecordSync 记录一次完成的同步耗时
func (m *Metrics) RecordSync(latency time.Duration, at time.Time) {
	ms := float64(latency.Microseconds()) / 1000

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.samples) < latencyWindow {
		m.samples = append(m.samples, ms)
	} else {
		m.samples[m.next] = ms
		m.next = (m.next + 1) % latencyWindow
	}
	m.lastSync = at
}

// Snapshot 返回当前指标，样本按时间先后排列
func (m *Metrics) Snapshot() domainOntology.MetricsSnapshot {
	m.mu.Lock()
	samples := make([]float64, 0, len(m.samples))
	samples = append(samples, m.samples[m.next:]...)
	samples = append(samples, m.samples[:m.next]...)
	lastSync := m.lastSync
	m.mu.Unlock()

	var avg float64
	if len(samples) > 0 {
		var sum float64
		for _, s := range samples {
			sum += s
		}
		avg = sum / float64(len(samples))
	}

	return domainOntology.MetricsSnapshot{
		NodesCreated:        m.nodesCreated.Load(),
		RelationsCreated:    m.relationsCreated.Load(),
		StreamEvents:        m.streamEvents.Load(),
		IngestFailures:      m.ingestFailures.Load(),
		VectorWriteFailures: m.vectorWriteFailures.Load(),
		EmbeddingFailures:   m.embeddingFailures.Load(),
		SyncLatencySamples:  samples,
		AvgSyncLatencyMs:    avg,
		LastSyncTimestamp:   lastSync,
	}
}
