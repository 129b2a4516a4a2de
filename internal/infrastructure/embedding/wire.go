package embedding

import "github.com/google/wire"

// ProviderSet 向量化服务 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideEmbeddingProvider,
)
