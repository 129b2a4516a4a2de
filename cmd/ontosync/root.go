package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cocursor/ontosync/internal/infrastructure/config"
	applog "github.com/cocursor/ontosync/internal/infrastructure/log"
	"github.com/cocursor/ontosync/internal/infrastructure/singleton"
	"github.com/cocursor/ontosync/internal/wire"
)

// lockTimeout 等待数据目录锁的时间
const lockTimeout = 3 * time.Second

var (
	configPath string
	rootFlags  []string
)

var rootCmd = &cobra.Command{
	Use:          "ontosync",
	Short:        "Keep a semantic ontology of a workspace in sync with the file system",
	SilenceUsage: true,
	Long: `ontosync watches workspace directories, extracts typed objects from files,
embeds them and maintains a graph of IMPORTS and SIMILAR_TO relations.
The graph is queryable over HTTP, WebSocket and MCP.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: <data dir>/config.yaml)")
	rootCmd.PersistentFlags().StringArrayVarP(&rootFlags, "root", "r", nil, "workspace root to sync, repeatable (overrides watch.roots)")
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig 加载配置并初始化日志
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if len(rootFlags) > 0 {
		cfg.Watch.Roots = rootFlags
	}
	applog.Init(&cfg.Log)
	return cfg, nil
}

// withApp 持有数据目录锁并组装应用，fn 返回后释放全部资源
// 不启动 HTTP 服务和文件监听，供一次性命令使用
func withApp(fn func(ctx context.Context, app *wire.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lock, err := singleton.AcquireDataDirLock(config.GetDataDir(), lockTimeout)
	if err != nil {
		return err
	}
	defer lock.Release()

	app, cleanup, err := wire.InitializeAll(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup()

	return fn(context.Background(), app)
}

// printJSON 以缩进 JSON 输出到标准输出
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
