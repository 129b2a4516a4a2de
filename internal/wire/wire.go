//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/google/wire"

	"github.com/cocursor/ontosync/internal/application"
	"github.com/cocursor/ontosync/internal/infrastructure"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
	"github.com/cocursor/ontosync/internal/interfaces"
)

// InitializeAll 初始化所有服务（同步管线 + HTTP + MCP）
// cfg 由命令行加载后传入
func InitializeAll(cfg *config.Config) (*App, func(), error) {
	wire.Build(
		// 按层组合 ProviderSet
		infrastructure.ProviderSet, // 基础设施层
		application.ProviderSet,    // 应用层
		interfaces.ProviderSet,     // 接口层
		NewApp,                     // 组合所有服务的应用结构
	)
	return nil, nil, nil
}
