package config

import "github.com/google/wire"

// ProviderSet 配置 ProviderSet
// *Config 由调用方（命令行）加载后注入
var ProviderSet = wire.NewSet(
	NewServerConfig,
	NewWatchConfig,
	NewSyncConfig,
	NewEmbeddingConfig,
	NewVectorConfig,
	NewWebSocketConfig,
	NewNATSConfig,
	NewDiscoveryConfig,
)
