package embedding

import (
	"fmt"

	"github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
	"github.com/cocursor/ontosync/internal/infrastructure/log"
)

// 向量化服务类型
const (
	ProviderHash   = "hash"
	ProviderOpenAI = "openai"
)

// ProvideEmbeddingProvider 按配置创建向量化服务
func ProvideEmbeddingProvider(cfg *config.EmbeddingConfig) (ontology.EmbeddingProvider, error) {
	logger := log.NewModuleLogger("embedding", "provider")

	switch cfg.Provider {
	case "", ProviderHash:
		logger.Info("Using local hash embedder", "dimension", cfg.Dimension)
		return NewHashEmbedder(cfg.Dimension), nil
	case ProviderOpenAI:
		if cfg.BaseURL == "" || cfg.Model == "" {
			return nil, fmt.Errorf("embedding provider openai requires base_url and model")
		}
		logger.Info("Using remote embedding API",
			"base_url", cfg.BaseURL,
			"model", cfg.Model,
			"dimension", cfg.Dimension,
		)
		return NewClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
