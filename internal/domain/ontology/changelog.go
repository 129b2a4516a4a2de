package ontology

import (
	"fmt"
	"time"
)

// EventKind 文件事件类型
type EventKind string

const (
	// EventAdd 新增文件
	EventAdd EventKind = "add"
	// EventChange 文件内容变更
	EventChange EventKind = "change"
	// EventRemove 文件删除
	EventRemove EventKind = "remove"
)

// ParseEventKind 解析事件类型
func ParseEventKind(s string) (EventKind, error) {
	switch EventKind(s) {
	case EventAdd, EventChange, EventRemove:
		return EventKind(s), nil
	default:
		return "", fmt.Errorf("unknown event kind %q", s)
	}
}

// FileEvent 文件监听器投递的入站事件
type FileEvent struct {
	Event EventKind `json:"event"`
	Path  string    `json:"path"`
}

// ChangelogEntry 变更日志条目，追加后不可变
type ChangelogEntry struct {
	ID        string    `json:"id"`
	Event     EventKind `json:"event"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
	// Version 追加时分配的全局版本号，严格递增且不复用
	Version int64 `json:"version"`
}
