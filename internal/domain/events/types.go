// Package events 定义领域事件类型和接口
// 用于编排器与旁路订阅者（指标、消息镜像）之间的解耦通信
package events

import "time"

// EventType 事件类型标识
type EventType string

// 本体同步相关事件类型
const (
	// ObjectIngested 对象摄取完成（Live）
	ObjectIngested EventType = "ontology.object.ingested"
	// ObjectRemoved 对象已删除
	ObjectRemoved EventType = "ontology.object.removed"
	// IngestFailed 对象摄取失败（Failed）
	IngestFailed EventType = "ontology.object.failed"
)

// Event 领域事件接口
// 所有事件类型都必须实现此接口
type Event interface {
	// Type 返回事件类型
	Type() EventType
	// Timestamp 返回事件发生时间
	Timestamp() time.Time
}
