package wire

import (
	"context"
	"log/slog"
	"sync"

	appOntology "github.com/cocursor/ontosync/internal/application/ontology"
	"github.com/cocursor/ontosync/internal/domain/events"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
	"github.com/cocursor/ontosync/internal/infrastructure/discovery"
	applog "github.com/cocursor/ontosync/internal/infrastructure/log"
	"github.com/cocursor/ontosync/internal/infrastructure/messaging"
	"github.com/cocursor/ontosync/internal/infrastructure/watcher"
	"github.com/cocursor/ontosync/internal/infrastructure/websocket"
	"github.com/cocursor/ontosync/internal/interfaces"
)

// App 应用主结构，组合所有服务
type App struct {
	HTTPServer   *interfaces.HTTPServer
	MCPServer    *interfaces.MCPServer
	Orchestrator *appOntology.Orchestrator

	cfg         *config.Config
	wsHub       *websocket.Hub
	fileWatcher *watcher.FileWatcher
	eventBus    events.EventBus
	publisher   *messaging.NATSPublisher // 未配置 NATS 时为 nil
	advertiser  *discovery.Advertiser
	logger      *slog.Logger

	// bootstrap 在后台执行，Stop 时取消并等待
	bootstrapCancel context.CancelFunc
	bootstrapWg     sync.WaitGroup
	unsubscribe     []func()
}

// NewApp 创建应用实例
func NewApp(
	cfg *config.Config,
	httpServer *interfaces.HTTPServer,
	mcpServer *interfaces.MCPServer,
	wsHub *websocket.Hub,
	orchestrator *appOntology.Orchestrator,
	fileWatcher *watcher.FileWatcher,
	eventBus events.EventBus,
	publisher *messaging.NATSPublisher,
	advertiser *discovery.Advertiser,
) *App {
	// Hub 先于编排器创建，在此注入查询处理器
	wsHub.SetQueryHandler(orchestrator)

	return &App{
		HTTPServer:   httpServer,
		MCPServer:    mcpServer,
		Orchestrator: orchestrator,
		cfg:          cfg,
		wsHub:        wsHub,
		fileWatcher:  fileWatcher,
		eventBus:     eventBus,
		publisher:    publisher,
		advertiser:   advertiser,
		logger:       applog.NewModuleLogger("app", "main"),
	}
}

// Start 启动所有服务
func (a *App) Start() error {
	a.logger.Info("Starting ontosync daemon",
		"roots", a.cfg.Watch.Roots,
		"http_port", a.cfg.Server.HTTPPort,
	)

	a.setupEventSubscribers()

	// 先启动监听再做全量加载，加载期间的变更由同一路径队列串行处理
	if a.cfg.Watch.Enabled && a.fileWatcher != nil {
		if err := a.fileWatcher.Start(); err != nil {
			a.logger.Error("Failed to start file watcher",
				"error", err,
			)
		} else {
			a.logger.Info("File watcher started successfully")
		}
	}

	if a.cfg.Watch.BootstrapOnStart && len(a.cfg.Watch.Roots) > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		a.bootstrapCancel = cancel
		a.bootstrapWg.Add(1)
		go func() {
			defer a.bootstrapWg.Done()
			if _, err := a.Orchestrator.BuildInitialOntology(ctx, nil); err != nil {
				a.logger.Error("Initial ontology build failed",
					"error", err,
				)
			}
		}()
	}

	if a.publisher != nil {
		a.logger.Info("Changelog mirror enabled", "subject", a.cfg.NATS.Subject)
	}

	// 启动 HTTP 服务器（goroutine）
	go func() {
		if err := a.HTTPServer.Start(); err != nil {
			a.logger.Error("Failed to start HTTP server",
				"error", err,
			)
		}
	}()

	if a.cfg.Server.MCPEnabled {
		if err := a.MCPServer.Start(); err != nil {
			a.logger.Error("Failed to start MCP server",
				"error", err,
			)
		}
	}

	if a.cfg.Discovery.Enabled && a.advertiser != nil {
		info, err := discovery.BuildServiceInfo(&a.cfg.Discovery, a.cfg.Server.HTTPPort, config.Version, a.cfg.Watch.Roots)
		if err == nil {
			err = a.advertiser.Start(info)
		}
		if err != nil {
			a.logger.Warn("Failed to start mDNS advertiser",
				"error", err,
			)
		}
	}

	a.logger.Info("ontosync daemon started successfully")
	return nil
}

// setupEventSubscribers 注册事件订阅者
func (a *App) setupEventSubscribers() {
	if a.eventBus == nil {
		return
	}

	// 失败对象需要重新同步，记录到日志便于排查
	unsub := a.eventBus.Subscribe(
		events.IngestFailed,
		events.HandlerFunc(func(event events.Event) error {
			syncEvent, ok := event.(*events.SyncEvent)
			if !ok {
				return nil
			}
			a.logger.Warn("Object failed to sync, resync required",
				"path", syncEvent.Entry.Path,
				"version", syncEvent.Entry.Version,
				"error", syncEvent.Err,
			)
			return nil
		}),
	)
	a.unsubscribe = append(a.unsubscribe, unsub)
}

// Stop 停止对外服务，其余资源由 InitializeAll 返回的 cleanup 释放
func (a *App) Stop() error {
	a.logger.Info("Stopping ontosync daemon")

	if a.advertiser != nil && a.advertiser.IsRunning() {
		a.advertiser.Stop()
	}

	if a.fileWatcher != nil {
		a.fileWatcher.Stop()
	}

	if a.bootstrapCancel != nil {
		a.bootstrapCancel()
		a.bootstrapWg.Wait()
	}

	for _, unsub := range a.unsubscribe {
		unsub()
	}
	a.unsubscribe = nil

	if err := a.HTTPServer.Stop(); err != nil {
		a.logger.Error("Failed to stop HTTP server",
			"error", err,
		)
		return err
	}
	if err := a.MCPServer.Stop(); err != nil {
		a.logger.Error("Failed to stop MCP server",
			"error", err,
		)
		return err
	}

	a.logger.Info("ontosync daemon stopped successfully")
	return nil
}
