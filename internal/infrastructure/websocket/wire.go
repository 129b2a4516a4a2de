package websocket

import (
	"github.com/google/wire"

	"github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
)

// ProvideHub 提供 Hub，cleanup 关闭所有连接
func ProvideHub(cfg *config.WebSocketConfig) (*Hub, func()) {
	hub := NewHub(cfg)
	return hub, hub.Close
}

// ProviderSet WebSocket ProviderSet
var ProviderSet = wire.NewSet(
	ProvideHub,
	wire.Bind(new(ontology.Broadcaster), new(*Hub)),
)
