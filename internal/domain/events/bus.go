package events

// Handler 事件处理器接口
// 订阅者（指标采集、消息镜像、日志）实现此接口接收同步事件
type Handler interface {
	// HandleEvent 处理事件
	// 返回 error 仅用于日志记录，不会重试，也不会影响事件的发布方
	HandleEvent(event Event) error
}

// HandlerFunc 函数类型的处理器适配器
// 方便以匿名函数订阅，例如 App 中记录摄取失败的订阅
type HandlerFunc func(event Event) error

// HandleEvent 实现 Handler 接口
func (f HandlerFunc) HandleEvent(event Event) error {
	return f(event)
}

// EventBus 进程内事件总线
// 订阅者在各自的 goroutine 中执行，不保证跨订阅者的顺序；
// 同一路径事件的先后以 SyncEvent 中的变更日志版本号为准
type EventBus interface {
	// Subscribe 订阅特定类型的事件
	// 返回取消订阅的函数，重复调用无副作用
	Subscribe(eventType EventType, handler Handler) (unsubscribe func())

	// SubscribeMultiple 订阅多个类型的事件
	// 返回取消所有订阅的函数
	SubscribeMultiple(eventTypes []EventType, handler Handler) (unsubscribe func())

	// Publish 异步发布事件
	// 没有订阅者或总线已关闭时直接返回
	Publish(event Event)

	// Close 关闭事件总线
	// 停止接收新事件，等待已发布事件处理完成
	Close()
}
