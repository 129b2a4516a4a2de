package messaging

import (
	"github.com/google/wire"

	"github.com/cocursor/ontosync/internal/domain/events"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
	"github.com/cocursor/ontosync/internal/infrastructure/log"
)

// ProvideNATSPublisher 按配置创建并挂接发布器
// URL 为空或连接失败时返回 nil，镜像是可选功能，不阻止启动
func ProvideNATSPublisher(cfg *config.NATSConfig, bus events.EventBus) (*NATSPublisher, func()) {
	if cfg.URL == "" {
		return nil, func() {}
	}

	logger := log.NewModuleLogger("messaging", "provider")
	conn, err := Connect(cfg)
	if err != nil {
		logger.Warn("NATS unavailable, changelog mirror disabled", "url", cfg.URL, "error", err)
		return nil, func() {}
	}

	publisher := NewNATSPublisher(conn, cfg.Subject)
	publisher.Attach(bus)
	return publisher, publisher.Close
}

// ProviderSet 消息 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideNATSPublisher,
)
