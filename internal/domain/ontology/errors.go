package ontology

import (
	"errors"
	"fmt"
)

// 同步错误分类
var (
	// ErrExtractionDegraded 未识别类型或元数据不完整，属于降级而非错误
	ErrExtractionDegraded = errors.New("extraction degraded")
	// ErrEmbeddingUnavailable 向量化服务失败，已替换为零向量
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrGraphWriteFailed 图存储写入失败，本次事件终止
	ErrGraphWriteFailed = errors.New("graph write failed")
	// ErrVectorWriteFailed 向量索引写入失败，不影响其余步骤
	ErrVectorWriteFailed = errors.New("vector write failed")
	// ErrQueryFailed 查询失败，调用方收到空结果和错误标记
	ErrQueryFailed = errors.New("query failed")
)

// ErrNotFound 对象不存在
var ErrNotFound = errors.New("object not found")

// SyncError 携带路径与版本的同步错误
type SyncError struct {
	Kind    error
	Path    string
	Version int64
	Err     error
}

// NewSyncError 创建同步错误
func NewSyncError(kind error, path string, version int64, err error) *SyncError {
	return &SyncError{Kind: kind, Path: path, Version: version, Err: err}
}

// Error 实现 error 接口
func (e *SyncError) Error() string {
	if e.Path == "" {
		if e.Err == nil {
			return e.Kind.Error()
		}
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	if e.Err == nil {
		return fmt.Sprintf("%v: path=%s version=%d", e.Kind, e.Path, e.Version)
	}
	return fmt.Sprintf("%v: path=%s version=%d: %v", e.Kind, e.Path, e.Version, e.Err)
}

// Unwrap 同时暴露分类和底层错误，便于 errors.Is 判断
func (e *SyncError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName 返回错误分类名称，用于日志和协议消息
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrExtractionDegraded):
		return "ExtractionDegraded"
	case errors.Is(err, ErrEmbeddingUnavailable):
		return "EmbeddingUnavailable"
	case errors.Is(err, ErrGraphWriteFailed):
		return "GraphWriteFailed"
	case errors.Is(err, ErrVectorWriteFailed):
		return "VectorWriteFailed"
	case errors.Is(err, ErrQueryFailed):
		return "QueryFailed"
	default:
		return "Unknown"
	}
}
