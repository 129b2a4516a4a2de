package log

import (
	"context"
	"log/slog"
)

type contextKey string

// 上下文键定义
const (
	// PathContextKey 正在处理的对象路径
	PathContextKey contextKey = "path"
	// VersionContextKey 变更日志版本号
	VersionContextKey contextKey = "version"
	// ConnContextKey 订阅连接 ID
	ConnContextKey contextKey = "conn_id"
	// RequestContextKey HTTP 请求 ID
	RequestContextKey contextKey = "request_id"
)

// WithPath 在上下文中添加对象路径
func WithPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, PathContextKey, path)
}

// WithVersion 在上下文中添加版本号
func WithVersion(ctx context.Context, version int64) context.Context {
	return context.WithValue(ctx, VersionContextKey, version)
}

// WithConnID 在上下文中添加订阅连接 ID
func WithConnID(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, ConnContextKey, connID)
}

// WithRequestID 在上下文中添加请求 ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestContextKey, requestID)
}

// LogCtxFromContext 从上下文中提取日志字段
func LogCtxFromContext(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr

	if path, ok := ctx.Value(PathContextKey).(string); ok {
		attrs = append(attrs, slog.String("path", path))
	}
	if version, ok := ctx.Value(VersionContextKey).(int64); ok {
		attrs = append(attrs, slog.Int64("version", version))
	}
	if connID, ok := ctx.Value(ConnContextKey).(string); ok {
		attrs = append(attrs, slog.String("conn_id", connID))
	}
	if requestID, ok := ctx.Value(RequestContextKey).(string); ok {
		attrs = append(attrs, slog.String("request_id", requestID))
	}

	return attrs
}

// FromContext 返回附带上下文字段的 logger
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	attrs := LogCtxFromContext(ctx)
	if len(attrs) == 0 {
		return logger
	}
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return logger.With(args...)
}
