// Package websocket 实现订阅者广播通道
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
	"github.com/cocursor/ontosync/internal/infrastructure/log"
)

// 确保 Hub 实现了 ontology.Broadcaster 接口
var _ ontology.Broadcaster = (*Hub)(nil)

const (
	// maxMessageSize 客户端消息上限
	maxMessageSize = 64 * 1024
	// writeWait 单次写入超时
	writeWait = 10 * time.Second
	// defaultQueryLimit 查询未指定 limit 时的默认值
	defaultQueryLimit = 10
	// requestTimeout 单个客户端请求的处理超时
	requestTimeout = 30 * time.Second
)

// QueryHandler 回答订阅者请求的应用层接口
type QueryHandler interface {
	QueryOntology(ctx context.Context, text string, limit int) ([]ontology.OntologyResult, error)
	GetStats(ctx context.Context) (*ontology.Stats, error)
	Tail(ctx context.Context, since int64) ([]*ontology.ChangelogEntry, error)
	CurrentVersion() int64
}

// errNoHandler 查询处理器尚未注入
var errNoHandler = errors.New("query handler not ready")

// Hub WebSocket 连接管理中心
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	handler  QueryHandler
	upgrader websocket.Upgrader
	cfg      *config.WebSocketConfig
	logger   *slog.Logger
	closed   bool

	// ctx 在 Close 时取消，约束所有进行中的请求
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub 创建 Hub
func NewHub(cfg *config.WebSocketConfig) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients: make(map[string]*Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true // 本地守护进程，允许所有来源
			},
		},
		cfg:    cfg,
		logger: log.NewModuleLogger("websocket", "hub"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetQueryHandler 注入查询处理器
// Hub 先于应用层创建，由 App 在组装完成后调用
func (h *Hub) SetQueryHandler(handler QueryHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = handler
}

func (h *Hub) queryHandler() QueryHandler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.handler
}

// ServeWS 升级 HTTP 连接并开始收发
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := newClient(uuid.NewString(), conn, h.cfg.SendBuffer)
	if !h.register(client) {
		_ = conn.Close()
		return
	}

	h.sendInitialState(client)

	go h.writePump(client)
	go h.readPump(client)
}

// register 登记连接，Hub 关闭后拒绝
func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	h.logger.Info("Subscriber connected", "client_id", c.id, "clients", len(h.clients))
	return true
}

// unregister 移除连接并关闭底层 socket
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if existing, ok := h.clients[c.id]; ok && existing == c {
		delete(h.clients, c.id)
	}
	remaining := len(h.clients)
	h.mu.Unlock()

	if c.close() {
		h.logger.Info("Subscriber disconnected", "client_id", c.id, "clients", remaining)
	}
}

// sendInitialState 推送节点数、指标快照和当前版本
func (h *Hub) sendInitialState(c *Client) {
	msg := InitialStateMessage{Type: MessageInitialState}

	if handler := h.queryHandler(); handler != nil {
		ctx, cancel := context.WithTimeout(h.ctx, requestTimeout)
		defer cancel()

		if stats, err := handler.GetStats(ctx); err != nil {
			h.logger.Warn("Failed to load stats for initial state", "client_id", c.id, "error", err)
		} else {
			msg.NodeCount = stats.NodeCount
			msg.MetricsSnapshot = stats.Metrics
		}
		msg.Version = handler.CurrentVersion()
	}

	h.sendJSON(c, msg)
}

// BroadcastChangelog 向订阅了该路径的连接推送变更日志
func (h *Hub) BroadcastChangelog(entry *ontology.ChangelogEntry) {
	data, err := json.Marshal(ChangelogMessage{Type: MessageChangelog, Entry: entry})
	if err != nil {
		h.logger.Error("Failed to marshal changelog entry", "version", entry.Version, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if !c.wants(entry.Path) {
			continue
		}
		if !c.enqueue(data) {
			// 发送缓冲区满，跳过
			h.logger.Warn("Send buffer full, dropping changelog entry",
				"client_id", c.id,
				"version", entry.Version,
			)
		}
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close 关闭所有连接
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	h.cancel()
	for _, c := range clients {
		c.close()
	}
	h.logger.Info("Hub closed", "clients", len(clients))
}

// readPump 读取并处理客户端消息
func (h *Hub) readPump(c *Client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		// 收到 Pong 说明对方存活，续期读取超时
		return c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("Connection read error", "client_id", c.id, "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.sendError(c, "invalid message: "+err.Error())
			continue
		}
		h.handleMessage(c, &msg)
		// 补发可能阻塞较久，处理完后续期读取超时
		_ = c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	}
}

// handleMessage 分发客户端请求，任何失败都以 error 或 query_result 消息返回
func (h *Hub) handleMessage(c *Client, msg *ClientMessage) {
	ctx, cancel := context.WithTimeout(h.ctx, requestTimeout)
	defer cancel()

	switch msg.Type {
	case MessageQuery:
		h.handleQuery(ctx, c, msg)

	case MessageSubscribe:
		c.subscribe(msg.Objects)
		h.logger.Debug("Subscription updated", "client_id", c.id, "objects", len(msg.Objects))

	case MessageGetMetrics:
		handler := h.queryHandler()
		if handler == nil {
			h.sendError(c, errNoHandler.Error())
			return
		}
		stats, err := handler.GetStats(ctx)
		if err != nil {
			h.sendError(c, err.Error())
			return
		}
		h.sendJSON(c, MetricsMessage{Type: MessageMetrics, Data: stats.Metrics})

	case MessageTail:
		h.handleTail(ctx, c, msg.Since)

	default:
		h.sendError(c, "unknown message type: "+msg.Type)
	}
}

// handleQuery 执行 GraphRAG 查询
func (h *Hub) handleQuery(ctx context.Context, c *Client, msg *ClientMessage) {
	result := QueryResultMessage{
		Type: MessageQueryResult,
		Data: []ontology.OntologyResult{},
	}

	handler := h.queryHandler()
	if handler == nil {
		result.Status = StatusError
		result.Error = errNoHandler.Error()
		h.sendJSON(c, result)
		return
	}

	limit := msg.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	data, err := handler.QueryOntology(ctx, msg.Query, limit)
	if err != nil {
		h.logger.Warn("Subscriber query failed", "client_id", c.id, "error", err)
		result.Status = StatusError
		result.Error = err.Error()
	} else {
		result.Status = StatusOK
		if data != nil {
			result.Data = data
		}
	}
	h.sendJSON(c, result)
}

// handleTail 补发 since 之后的变更日志并以 tail_complete 结束
// 补发走阻塞发送，发送队列满时等待 writePump 消费而不是丢弃
func (h *Hub) handleTail(ctx context.Context, c *Client, since int64) {
	handler := h.queryHandler()
	if handler == nil {
		h.sendError(c, errNoHandler.Error())
		return
	}
	entries, err := handler.Tail(ctx, since)
	if err != nil {
		h.sendError(c, err.Error())
		return
	}

	done := TailCompleteMessage{Type: MessageTailComplete, Since: since, Version: since}
	for _, entry := range entries {
		if c.wants(entry.Path) {
			data, err := json.Marshal(ChangelogMessage{Type: MessageChangelog, Entry: entry})
			if err != nil {
				h.logger.Error("Failed to marshal changelog entry", "version", entry.Version, "error", err)
				done.Truncated = true
				break
			}
			if err := c.enqueueWait(ctx, data); err != nil {
				h.logger.Warn("Tail interrupted",
					"client_id", c.id,
					"since", since,
					"delivered", done.Count,
					"error", err,
				)
				done.Truncated = true
				break
			}
			done.Count++
		}
		done.Version = entry.Version
	}

	// 请求 ctx 可能已超时，结束标记单独计时
	markCtx, cancel := context.WithTimeout(h.ctx, writeWait)
	defer cancel()
	data, err := json.Marshal(done)
	if err != nil {
		return
	}
	if err := c.enqueueWait(markCtx, data); err != nil {
		h.logger.Warn("Failed to send tail marker", "client_id", c.id, "error", err)
	}
}

// writePump 写入消息并定期发送 Ping
func (h *Hub) writePump(c *Client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		h.unregister(c)
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Warn("Failed to write message", "client_id", c.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) sendError(c *Client, message string) {
	h.sendJSON(c, ErrorMessage{Type: MessageError, Error: message})
}

func (h *Hub) sendJSON(c *Client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("Failed to marshal message", "client_id", c.id, "error", err)
		return
	}
	if !c.enqueue(data) {
		h.logger.Warn("Send buffer full, dropping message", "client_id", c.id)
	}
}
