package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cocursor/ontosync/internal/infrastructure/config"
	applog "github.com/cocursor/ontosync/internal/infrastructure/log"
	"github.com/cocursor/ontosync/internal/infrastructure/singleton"
	"github.com/cocursor/ontosync/internal/wire"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync daemon with HTTP, WebSocket and MCP endpoints",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := applog.GetLogger()

	// 单例检查：同一数据目录只允许一个实例
	lock, err := singleton.AcquireDataDirLock(config.GetDataDir(), lockTimeout)
	if err != nil {
		if errors.Is(err, singleton.ErrAlreadyRunning) {
			logger.Info("Another instance is already running, exiting", "data_dir", config.GetDataDir())
			return nil
		}
		return err
	}
	defer lock.Release()

	if err := singleton.CheckPort(cfg.Server.HTTPPort); err != nil {
		return fmt.Errorf("cannot bind %s: %w", cfg.Server.HTTPPort, err)
	}

	// Wire 生成的初始化函数
	app, cleanup, err := wire.InitializeAll(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup()

	if err := app.Start(); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	// 优雅关闭
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down application...")
	if err := app.Stop(); err != nil {
		logger.Error("Error during application shutdown",
			"error", err,
		)
	}
	logger.Info("Application stopped")
	return nil
}
