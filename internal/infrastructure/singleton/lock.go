// Package singleton 保证同一数据目录只有一个守护进程实例
package singleton

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
)

const (
	// LockFileName 数据目录下的锁文件名
	LockFileName = "ontosync.lock"
	// HealthCheckTimeout 健康检查超时时间
	HealthCheckTimeout = 2 * time.Second
)

// ErrAlreadyRunning 已有实例持有数据目录锁
var ErrAlreadyRunning = errors.New("another ontosync instance is using this data directory")

// Lock 数据目录锁
type Lock struct {
	fl *flock.Flock
}

// AcquireDataDirLock 对数据目录加排他锁，timeout 内未获得返回 ErrAlreadyRunning
// 进程退出时操作系统会释放文件锁，异常退出不会留下死锁
func AcquireDataDirLock(dataDir string, timeout time.Duration) (*Lock, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	fl := flock.New(filepath.Join(dataDir, LockFileName))
	deadline := time.Now().Add(timeout)
	for {
		locked, err := fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire data directory lock: %w", err)
		}
		if locked {
			return &Lock{fl: fl}, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w (lock: %s)", ErrAlreadyRunning, fl.Path())
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// Path 锁文件路径
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release 释放锁
func (l *Lock) Release() error {
	return l.fl.Unlock()
}

// CheckPort 检查 HTTP 端口是否可用
// 端口被健康实例占用返回 ErrAlreadyRunning；被其他程序占用返回普通错误
func CheckPort(port string) error {
	listener, err := net.Listen("tcp", port)
	if err == nil {
		return listener.Close()
	}

	if !isAddrInUse(err) {
		return fmt.Errorf("failed to listen on %s: %w", port, err)
	}
	if isInstanceRunning(port) {
		return ErrAlreadyRunning
	}
	return fmt.Errorf("port %s is in use by another process", port)
}

// isAddrInUse 检查错误是否是地址已在使用
func isAddrInUse(err error) bool {
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}

	var sysErr *os.SyscallError
	if !errors.As(opErr.Err, &sysErr) {
		return false
	}

	var errno syscall.Errno
	if errors.As(sysErr.Err, &errno) {
		// Windows: WSAEADDRINUSE (10048)
		return errno == 10048 || errno == syscall.EADDRINUSE
	}
	return false
}

// isInstanceRunning 通过 /health 判断端口上是否为本服务
func isInstanceRunning(port string) bool {
	client := &http.Client{Timeout: HealthCheckTimeout}

	host := port
	if len(port) > 0 && port[0] == ':' {
		host = "localhost" + port
	}
	resp, err := client.Get("http://" + host + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
