package websocket

import (
	"github.com/cocursor/ontosync/internal/domain/ontology"
)

// 服务端 → 客户端消息类型
const (
	MessageInitialState = "initial_state"
	MessageChangelog    = "changelog"
	MessageQueryResult  = "query_result"
	MessageMetrics      = "metrics"
	MessageTailComplete = "tail_complete"
	MessageError        = "error"
)

// 客户端 → 服务端消息类型
const (
	MessageQuery      = "query"
	MessageSubscribe  = "subscribe"
	MessageGetMetrics = "get_metrics"
	MessageTail       = "tail"
)

// 查询结果状态
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ClientMessage 客户端请求
type ClientMessage struct {
	Type    string   `json:"type"`
	Query   string   `json:"query,omitempty"`
	Limit   int      `json:"limit,omitempty"`
	Objects []string `json:"objects,omitempty"`
	Since   int64    `json:"since,omitempty"`
}

// InitialStateMessage 连接建立后的首条消息
type InitialStateMessage struct {
	Type            string                   `json:"type"`
	NodeCount       int                      `json:"nodeCount"`
	MetricsSnapshot ontology.MetricsSnapshot `json:"metricsSnapshot"`
	Version         int64                    `json:"version"`
}

// ChangelogMessage 变更日志推送
type ChangelogMessage struct {
	Type  string                   `json:"type"`
	Entry *ontology.ChangelogEntry `json:"entry"`
}

// QueryResultMessage 查询应答，失败时 Data 为空数组
type QueryResultMessage struct {
	Type   string                    `json:"type"`
	Data   []ontology.OntologyResult `json:"data"`
	Status string                    `json:"status"`
	Error  string                    `json:"error,omitempty"`
}

// MetricsMessage 指标应答
type MetricsMessage struct {
	Type string                   `json:"type"`
	Data ontology.MetricsSnapshot `json:"data"`
}

// TailCompleteMessage 补发结束标记
// Version 为已覆盖的最大版本号（含因订阅过滤而跳过的条目），Truncated 表示补发中途停止，
// 客户端应从 Version 继续请求
type TailCompleteMessage struct {
	Type      string `json:"type"`
	Since     int64  `json:"since"`
	Version   int64  `json:"version"`
	Count     int    `json:"count"`
	Truncated bool   `json:"truncated"`
}

// ErrorMessage 协议错误
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
