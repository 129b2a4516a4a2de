package application

import (
	"github.com/google/wire"

	"github.com/cocursor/ontosync/internal/application/ontology"
)

// ProviderSet Application 层总 ProviderSet
var ProviderSet = wire.NewSet(
	ontology.ProviderSet,
)
