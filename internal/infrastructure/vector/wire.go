package vector

import "github.com/google/wire"

// ProviderSet 向量索引 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideVectorIndex,
)
