package infrastructure

import (
	"github.com/google/wire"

	"github.com/cocursor/ontosync/internal/infrastructure/config"
	"github.com/cocursor/ontosync/internal/infrastructure/discovery"
	"github.com/cocursor/ontosync/internal/infrastructure/embedding"
	"github.com/cocursor/ontosync/internal/infrastructure/extractor"
	"github.com/cocursor/ontosync/internal/infrastructure/messaging"
	"github.com/cocursor/ontosync/internal/infrastructure/metrics"
	"github.com/cocursor/ontosync/internal/infrastructure/storage"
	"github.com/cocursor/ontosync/internal/infrastructure/vector"
	"github.com/cocursor/ontosync/internal/infrastructure/watcher"
	"github.com/cocursor/ontosync/internal/infrastructure/websocket"
)

// ProviderSet Infrastructure 层总 ProviderSet
var ProviderSet = wire.NewSet(
	config.ProviderSet,
	storage.ProviderSet,
	embedding.ProviderSet,
	vector.ProviderSet,
	extractor.ProviderSet,
	watcher.ProviderSet,
	websocket.ProviderSet,
	messaging.ProviderSet,
	metrics.ProviderSet,
	discovery.ProviderSet,
)
