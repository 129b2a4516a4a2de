package events

import (
	"time"

	"github.com/cocursor/ontosync/internal/domain/ontology"
)

// SyncEvent 单个路径同步结果事件
type SyncEvent struct {
	// EventType 事件类型（ingested/removed/failed）
	EventType EventType
	// Entry 触发本次同步的变更日志条目
	Entry ontology.ChangelogEntry
	// ObjectType 对象类型，删除事件为空
	ObjectType ontology.ObjectType
	// NodeCreated 是否新建了图节点
	NodeCreated bool
	// Relations 本次写入的关系数量
	Relations int
	// Latency 处理耗时
	Latency time.Duration
	// Err 失败原因，仅 IngestFailed 有值
	Err error
	// EventTime 事件发生时间
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *SyncEvent) Type() EventType {
	return e.EventType
}

// Timestamp 实现 Event 接口
func (e *SyncEvent) Timestamp() time.Time {
	return e.EventTime
}
