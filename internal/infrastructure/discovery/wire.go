package discovery

import (
	"github.com/google/wire"
)

// ProviderSet 服务广播 ProviderSet
// 是否启动由 App 按配置决定
var ProviderSet = wire.NewSet(
	NewAdvertiser,
)
