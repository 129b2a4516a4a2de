package metrics

import (
	"github.com/google/wire"

	"github.com/cocursor/ontosync/internal/domain/events"
)

// ProvideCollector 创建并挂接指标收集器
func ProvideCollector(bus events.EventBus) (*Collector, func()) {
	c := NewCollector()
	c.Attach(bus)
	return c, c.Detach
}

// ProviderSet 指标 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideCollector,
)
