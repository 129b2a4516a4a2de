package log

import (
	"os"
	"strconv"
	"strings"
)

// 日志相关环境变量
const (
	EnvLogLevel     = "ONTOSYNC_LOG_LEVEL"
	EnvLogFormat    = "ONTOSYNC_LOG_FORMAT"
	EnvLogOutput    = "ONTOSYNC_LOG_OUTPUT"
	EnvLogAddSource = "ONTOSYNC_LOG_ADD_SOURCE"
	EnvRuntime      = "ONTOSYNC_ENV"
)

// Config 日志配置
type Config struct {
	// Level 日志级别：debug, info, warn, error
	Level string `mapstructure:"level" yaml:"level"`

	// Format 日志格式：text, json
	Format string `mapstructure:"format" yaml:"format"`

	// Output 输出目标：stdout, stderr, file:/path/to/log
	Output string `mapstructure:"output" yaml:"output"`

	// AddSource 是否添加源文件信息
	AddSource bool `mapstructure:"add_source" yaml:"add_source"`
}

// DefaultConfig 默认日志配置
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "text",
		Output: "stderr",
	}
}

// NewConfigFromEnv 从环境变量创建配置
// 配置文件尚未加载时（例如命令行解析阶段）使用
func NewConfigFromEnv() *Config {
	def := DefaultConfig()
	cfg := &Config{
		Level:     getEnvWithDefault(EnvLogLevel, def.Level),
		Format:    getEnvWithDefault(EnvLogFormat, def.Format),
		Output:    getEnvWithDefault(EnvLogOutput, def.Output),
		AddSource: getEnvBool(EnvLogAddSource, def.AddSource),
	}

	if cfg.isDevelopment() {
		cfg.Level = "debug"
		cfg.AddSource = true
	}

	return cfg
}

// isDevelopment 检查是否为开发环境
func (c *Config) isDevelopment() bool {
	return strings.ToLower(getEnvWithDefault(EnvRuntime, "production")) == "development"
}

// getEnvWithDefault 获取环境变量，带默认值
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool 获取布尔型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}
