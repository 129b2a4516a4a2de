package storage

import "github.com/google/wire"

// ProviderSet Storage 基础设施层 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideDB,              // 提供数据库连接
	NewGraphRepository,     // 本体图存储
	NewChangelogRepository, // 变更日志仓储
)
