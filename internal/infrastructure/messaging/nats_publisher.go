// Package messaging 将变更日志镜像到 NATS
package messaging

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cocursor/ontosync/internal/domain/events"
	"github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
	"github.com/cocursor/ontosync/internal/infrastructure/log"
)

// ChangelogRecord 发布到 NATS 的消息体
type ChangelogRecord struct {
	Entry      ontology.ChangelogEntry `json:"entry"`
	Status     string                  `json:"status"`
	ObjectType string                  `json:"object_type,omitempty"`
	Relations  int                     `json:"relations"`
	LatencyMs  float64                 `json:"latency_ms"`
	Error      string                  `json:"error,omitempty"`
}

// Conn NATS 连接中发布器用到的部分
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher 订阅事件总线并将同步结果发布到 NATS subject
// 子主题按结果区分：<subject>.ingested / .removed / .failed
type NATSPublisher struct {
	conn    Conn
	subject string
	logger  *slog.Logger

	mu    sync.Mutex
	unsub func()
}

// NewNATSPublisher 创建发布器
func NewNATSPublisher(conn Conn, subject string) *NATSPublisher {
	return &NATSPublisher{
		conn:    conn,
		subject: subject,
		logger:  log.NewModuleLogger("messaging", "nats_publisher"),
	}
}

// Connect 按配置连接 NATS
func Connect(cfg *config.NATSConfig) (*nats.Conn, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name("ontosync"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return conn, nil
}

// Attach 订阅事件总线
func (p *NATSPublisher) Attach(bus events.EventBus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unsub != nil {
		return
	}
	p.unsub = bus.SubscribeMultiple(
		[]events.EventType{events.ObjectIngested, events.ObjectRemoved, events.IngestFailed},
		events.HandlerFunc(p.HandleEvent),
	)
	p.logger.Info("NATS changelog mirror attached", "subject", p.subject)
}

// HandleEvent 发布单个同步事件
func (p *NATSPublisher) HandleEvent(event events.Event) error {
	syncEvent, ok := event.(*events.SyncEvent)
	if !ok {
		return nil
	}

	record := ChangelogRecord{
		Entry:     syncEvent.Entry,
		Status:    statusOf(syncEvent.EventType),
		Relations: syncEvent.Relations,
		LatencyMs: float64(syncEvent.Latency.Microseconds()) / 1000,
	}
	if !syncEvent.ObjectType.IsUnknown() {
		record.ObjectType = syncEvent.ObjectType.String()
	}
	if syncEvent.Err != nil {
		record.Error = syncEvent.Err.Error()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal changelog record: %w", err)
	}

	subject := p.subject + "." + record.Status
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// Close 取消订阅并排空连接
func (p *NATSPublisher) Close() {
	p.mu.Lock()
	unsub := p.unsub
	p.unsub = nil
	p.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("Failed to drain NATS connection", "error", err)
	}
}

func statusOf(t events.EventType) string {
	switch t {
	case events.ObjectIngested:
		return "ingested"
	case events.ObjectRemoved:
		return "removed"
	default:
		return "failed"
	}
}
