// Package discovery 通过 mDNS 在局域网内广播守护进程
package discovery

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"

	"github.com/cocursor/ontosync/internal/infrastructure/config"
	"github.com/cocursor/ontosync/internal/infrastructure/log"
)

const (
	// ServiceType mDNS 服务类型
	ServiceType = "_ontosync._tcp"
	// Domain mDNS 域
	Domain = "local."
)

// ServiceInfo 广播的服务信息
type ServiceInfo struct {
	Instance   string
	Port       int
	TxtRecords map[string]string
}

// Advertiser mDNS 服务广播器
type Advertiser struct {
	mu      sync.Mutex
	server  *zeroconf.Server
	info    *ServiceInfo
	running bool
	logger  *slog.Logger
}

// NewAdvertiser 创建广播器
func NewAdvertiser() *Advertiser {
	return &Advertiser{
		logger: log.NewModuleLogger("discovery", "advertiser"),
	}
}

// Start 开始广播服务
func (a *Advertiser) Start(info ServiceInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return fmt.Errorf("advertiser is already running")
	}

	txt := info.txt()
	server, err := zeroconf.Register(info.Instance, ServiceType, Domain, info.Port, txt, nil)
	if err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	a.server = server
	a.info = &info
	a.running = true

	a.logger.Info("mDNS advertiser started",
		"instance", info.Instance,
		"port", info.Port,
		"txt_records", txt,
	)
	return nil
}

// Stop 停止广播
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return
	}
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
	a.running = false
	a.info = nil

	a.logger.Info("mDNS advertiser stopped")
}

// IsRunning 是否正在广播
func (a *Advertiser) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// txt 按键排序生成 TXT 记录，保证多次广播内容一致
func (info ServiceInfo) txt() []string {
	keys := make([]string, 0, len(info.TxtRecords))
	for k := range info.TxtRecords {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]string, 0, len(keys))
	for _, k := range keys {
		records = append(records, k+"="+info.TxtRecords[k])
	}
	return records
}

// BuildServiceInfo 由配置构建服务信息
func BuildServiceInfo(cfg *config.DiscoveryConfig, httpPort string, version string, roots []string) (ServiceInfo, error) {
	port, err := ParsePort(httpPort)
	if err != nil {
		return ServiceInfo{}, err
	}
	return ServiceInfo{
		Instance: cfg.Instance,
		Port:     port,
		TxtRecords: map[string]string{
			"version": version,
			"api":     "/api/v1",
			"ws":      "/ws",
			"roots":   strconv.Itoa(len(roots)),
		},
	}, nil
}

// ParsePort 解析 ":19970" 或 "host:19970" 形式的端口
func ParsePort(addr string) (int, error) {
	idx := strings.LastIndex(addr, ":")
	port, err := strconv.Atoi(addr[idx+1:])
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port in %q", addr)
	}
	return port, nil
}
