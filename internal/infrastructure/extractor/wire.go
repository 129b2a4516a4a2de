package extractor

import (
	"github.com/google/wire"

	"github.com/cocursor/ontosync/internal/domain/ontology"
)

// ProviderSet 对象提取器 ProviderSet
var ProviderSet = wire.NewSet(
	NewExtractor,
	wire.Bind(new(ontology.ObjectExtractor), new(*Extractor)),
)
