package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cocursor/ontosync/internal/infrastructure/log"
)

// EnvPrefix 环境变量前缀，例如 ONTOSYNC_SERVER_HTTP_PORT 覆盖 server.http_port
const EnvPrefix = "ONTOSYNC"

// Version 服务版本号，通过 MCP 和 mDNS 对外暴露
const Version = "0.1.0"

// DefaultConfigName 数据目录下默认配置文件名（不含扩展名）
const DefaultConfigName = "config"

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Database  DatabaseConfig  `mapstructure:"database"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Log       log.Config      `mapstructure:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTPPort       string `mapstructure:"http_port"`
	MCPEnabled     bool   `mapstructure:"mcp_enabled"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
}

// WatchConfig 文件监听配置
type WatchConfig struct {
	// Roots 需要同步的根目录
	Roots []string `mapstructure:"roots"`
	// Ignore 忽略列表，支持 doublestar 通配符，按路径片段或相对路径匹配
	Ignore []string `mapstructure:"ignore"`
	// DebounceDelay 同一路径事件的防抖延迟
	DebounceDelay time.Duration `mapstructure:"debounce_delay"`
	// Enabled 是否启用实时监听
	Enabled bool `mapstructure:"enabled"`
	// BootstrapOnStart 启动时是否对 Roots 执行全量加载
	BootstrapOnStart bool `mapstructure:"bootstrap_on_start"`
	// MaxFileSize 超过此大小的文件不读取内容
	MaxFileSize int64 `mapstructure:"max_file_size"`
}

// SyncConfig 同步管线配置
type SyncConfig struct {
	// SimilarityK 每个对象最多建立的 SIMILAR_TO 边数
	SimilarityK int `mapstructure:"similarity_k"`
	// SimilarityThreshold 建立 SIMILAR_TO 边的最低分数
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	// MinScore 语义检索结果需严格高于此分数
	MinScore float64 `mapstructure:"min_score"`
	// AdapterTimeout 每次外部调用的超时时间
	AdapterTimeout time.Duration `mapstructure:"adapter_timeout"`
	// Workers 跨路径并发处理数
	Workers int `mapstructure:"workers"`
	// ExcerptLimit 内容摘录最大字符数
	ExcerptLimit int `mapstructure:"excerpt_limit"`
	// ChangelogWindow 内存中保留的变更日志条数
	ChangelogWindow int `mapstructure:"changelog_window"`
}

// EmbeddingConfig 向量化配置
type EmbeddingConfig struct {
	// Provider hash（本地哈希）或 openai（OpenAI 兼容接口）
	Provider  string `mapstructure:"provider"`
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	Dimension int    `mapstructure:"dimension"`
}

// VectorConfig 向量索引配置
type VectorConfig struct {
	// Backend memory 或 qdrant
	Backend    string `mapstructure:"backend"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	APIKey     string `mapstructure:"api_key"`
	Collection string `mapstructure:"collection"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Path 为空时使用数据目录下的 ontosync.db
	Path string `mapstructure:"path"`
}

// WebSocketConfig WebSocket 配置
type WebSocketConfig struct {
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	SendBuffer      int           `mapstructure:"send_buffer"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
}

// NATSConfig 变更日志镜像配置，URL 为空表示关闭
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

// DiscoveryConfig mDNS 服务广播配置
type DiscoveryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Instance string `mapstructure:"instance"`
}

// NewConfig 创建配置（默认值）
func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:       ":19970",
			MCPEnabled:     true,
			MetricsEnabled: true,
		},
		Watch: WatchConfig{
			Roots: []string{},
			Ignore: []string{
				"node_modules", ".git", "dist", "build", "vendor",
				"bin", "target", "__pycache__", ".cache",
			},
			DebounceDelay:    300 * time.Millisecond,
			Enabled:          true,
			BootstrapOnStart: true,
			MaxFileSize:      1 << 20,
		},
		Sync: SyncConfig{
			SimilarityK:         5,
			SimilarityThreshold: 0.7,
			MinScore:            0,
			AdapterTimeout:      10 * time.Second,
			Workers:             8,
			ExcerptLimit:        2000,
			ChangelogWindow:     10000,
		},
		Embedding: EmbeddingConfig{
			Provider:  "hash",
			Model:     "text-embedding-3-small",
			Dimension: 384,
		},
		Vector: VectorConfig{
			Backend:    "memory",
			Host:       "localhost",
			Port:       6334,
			Collection: "ontosync_objects",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			SendBuffer:      256,
			PingInterval:    30 * time.Second,
			PongTimeout:     60 * time.Second,
		},
		NATS: NATSConfig{
			Subject: "ontosync.changelog",
		},
		Discovery: DiscoveryConfig{
			Instance: "ontosync",
		},
		Log: *log.DefaultConfig(),
	}
}

// Load 加载配置：默认值 < 配置文件 < 环境变量
// path 为空时尝试读取数据目录下的 config.yaml，不存在则忽略
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, NewConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(GetDataDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults 注册所有键的默认值，AutomaticEnv 只对已知键生效
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.mcp_enabled", d.Server.MCPEnabled)
	v.SetDefault("server.metrics_enabled", d.Server.MetricsEnabled)

	v.SetDefault("watch.roots", d.Watch.Roots)
	v.SetDefault("watch.ignore", d.Watch.Ignore)
	v.SetDefault("watch.debounce_delay", d.Watch.DebounceDelay)
	v.SetDefault("watch.enabled", d.Watch.Enabled)
	v.SetDefault("watch.bootstrap_on_start", d.Watch.BootstrapOnStart)
	v.SetDefault("watch.max_file_size", d.Watch.MaxFileSize)

	v.SetDefault("sync.similarity_k", d.Sync.SimilarityK)
	v.SetDefault("sync.similarity_threshold", d.Sync.SimilarityThreshold)
	v.SetDefault("sync.min_score", d.Sync.MinScore)
	v.SetDefault("sync.adapter_timeout", d.Sync.AdapterTimeout)
	v.SetDefault("sync.workers", d.Sync.Workers)
	v.SetDefault("sync.excerpt_limit", d.Sync.ExcerptLimit)
	v.SetDefault("sync.changelog_window", d.Sync.ChangelogWindow)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.base_url", d.Embedding.BaseURL)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimension", d.Embedding.Dimension)

	v.SetDefault("vector.backend", d.Vector.Backend)
	v.SetDefault("vector.host", d.Vector.Host)
	v.SetDefault("vector.port", d.Vector.Port)
	v.SetDefault("vector.api_key", d.Vector.APIKey)
	v.SetDefault("vector.collection", d.Vector.Collection)

	v.SetDefault("database.path", d.Database.Path)

	v.SetDefault("websocket.read_buffer_size", d.WebSocket.ReadBufferSize)
	v.SetDefault("websocket.write_buffer_size", d.WebSocket.WriteBufferSize)
	v.SetDefault("websocket.send_buffer", d.WebSocket.SendBuffer)
	v.SetDefault("websocket.ping_interval", d.WebSocket.PingInterval)
	v.SetDefault("websocket.pong_timeout", d.WebSocket.PongTimeout)

	v.SetDefault("nats.url", d.NATS.URL)
	v.SetDefault("nats.subject", d.NATS.Subject)

	v.SetDefault("discovery.enabled", d.Discovery.Enabled)
	v.SetDefault("discovery.instance", d.Discovery.Instance)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("log.add_source", d.Log.AddSource)
}

// Validate 检查配置取值范围
func (c *Config) Validate() error {
	if c.Sync.SimilarityK <= 0 {
		return fmt.Errorf("sync.similarity_k must be positive, got %d", c.Sync.SimilarityK)
	}
	if c.Sync.SimilarityThreshold < 0 || c.Sync.SimilarityThreshold > 1 {
		return fmt.Errorf("sync.similarity_threshold must be within [0,1], got %v", c.Sync.SimilarityThreshold)
	}
	if c.Sync.Workers <= 0 {
		return fmt.Errorf("sync.workers must be positive, got %d", c.Sync.Workers)
	}
	if c.Sync.AdapterTimeout <= 0 {
		return fmt.Errorf("sync.adapter_timeout must be positive")
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	switch c.Embedding.Provider {
	case "hash", "openai":
	default:
		return fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider)
	}
	switch c.Vector.Backend {
	case "memory", "qdrant":
	default:
		return fmt.Errorf("unknown vector.backend %q", c.Vector.Backend)
	}
	return nil
}

// DatabasePath 返回实际使用的数据库路径
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return DataPath("ontosync.db")
}

// NewServerConfig 创建服务器配置
func NewServerConfig(cfg *Config) *ServerConfig {
	return &cfg.Server
}

// NewWatchConfig 创建监听配置
func NewWatchConfig(cfg *Config) *WatchConfig {
	return &cfg.Watch
}

// NewSyncConfig 创建同步配置
func NewSyncConfig(cfg *Config) *SyncConfig {
	return &cfg.Sync
}

// NewEmbeddingConfig 创建向量化配置
func NewEmbeddingConfig(cfg *Config) *EmbeddingConfig {
	return &cfg.Embedding
}

// NewVectorConfig 创建向量索引配置
func NewVectorConfig(cfg *Config) *VectorConfig {
	return &cfg.Vector
}

// NewWebSocketConfig 创建 WebSocket 配置
func NewWebSocketConfig(cfg *Config) *WebSocketConfig {
	return &cfg.WebSocket
}

// NewNATSConfig 创建 NATS 配置
func NewNATSConfig(cfg *Config) *NATSConfig {
	return &cfg.NATS
}

// NewDiscoveryConfig 创建服务广播配置
func NewDiscoveryConfig(cfg *Config) *DiscoveryConfig {
	return &cfg.Discovery
}
