package watcher

import (
	"github.com/google/wire"

	"github.com/cocursor/ontosync/internal/domain/events"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
)

// ProvideEventBus 提供事件总线实例，cleanup 等待处理器完成
func ProvideEventBus() (events.EventBus, func()) {
	bus := NewEventBus()
	return bus, bus.Close
}

// ProvideIgnoreMatcher 提供忽略规则
func ProvideIgnoreMatcher(cfg *config.WatchConfig) *IgnoreMatcher {
	return NewIgnoreMatcher(cfg.Ignore)
}

// ProvideFileWatcher 提供文件监听器，Start 由 App 负责
func ProvideFileWatcher(cfg *config.WatchConfig, sink Sink) (*FileWatcher, func(), error) {
	fw, err := NewFileWatcher(cfg, sink)
	if err != nil {
		return nil, nil, err
	}
	return fw, fw.Stop, nil
}

// ProviderSet 文件监听 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideEventBus,
	ProvideIgnoreMatcher,
	ProvideFileWatcher,
)
