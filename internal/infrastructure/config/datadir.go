package config

import (
	"os"
	"path/filepath"
	"sync"
)

const (
	// EnvDataDir 数据目录环境变量名
	EnvDataDir = "ONTOSYNC_DATA_DIR"
	// DefaultDataDirName 默认数据目录名
	DefaultDataDirName = ".ontosync"
)

var (
	dataDirOnce sync.Once
	dataDirPath string
)

// GetDataDir 获取数据根目录
// 优先读取 ONTOSYNC_DATA_DIR 环境变量，默认 ~/.ontosync/
// 数据库、锁文件和默认配置文件都位于此目录
func GetDataDir() string {
	dataDirOnce.Do(func() {
		if dir := os.Getenv(EnvDataDir); dir != "" {
			dataDirPath = dir
			return
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// 回退到当前目录
			dataDirPath = DefaultDataDirName
			return
		}
		dataDirPath = filepath.Join(homeDir, DefaultDataDirName)
	})
	return dataDirPath
}

// DataPath 返回数据目录下的文件路径
func DataPath(name string) string {
	return filepath.Join(GetDataDir(), name)
}

// ResetDataDir 重置数据目录缓存（仅用于测试）
func ResetDataDir() {
	dataDirOnce = sync.Once{}
	dataDirPath = ""
}
