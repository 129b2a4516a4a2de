package vector

import (
	"context"
	"fmt"
	"time"

	"github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
	"github.com/cocursor/ontosync/internal/infrastructure/log"
)

// 向量后端
const (
	BackendMemory = "memory"
	BackendQdrant = "qdrant"
)

// ProvideVectorIndex 按配置选择向量后端
func ProvideVectorIndex(cfg *config.VectorConfig, embedder ontology.EmbeddingProvider) (ontology.VectorIndex, func(), error) {
	logger := log.NewModuleLogger("vector", "provider")

	switch cfg.Backend {
	case "", BackendMemory:
		logger.Info("Using in-memory vector index")
		return NewMemoryIndex(embedder), func() {}, nil

	case BackendQdrant:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		idx, err := NewQdrantIndex(ctx, cfg, embedder)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using qdrant vector index",
			"host", cfg.Host,
			"port", cfg.Port,
			"collection", cfg.Collection,
		)
		cleanup := func() {
			if err := idx.Close(); err != nil {
				logger.Warn("Failed to close qdrant client", "error", err)
			}
		}
		return idx, cleanup, nil

	default:
		return nil, nil, fmt.Errorf("unknown vector backend %q", cfg.Backend)
	}
}
