// Package singleton 通过固定端口实现单实例锁
// 桌面端可能重复拉起守护进程，同一台机器上只允许一个实例持有数据库
package singleton

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"
)

const (
	// DefaultPort 默认监听端口
	DefaultPort = ":19970"
	// probeTimeout 探活请求超时时间
	probeTimeout = 2 * time.Second
	// serviceName 健康检查响应中的服务标识
	serviceName = "discovery-desktop"
)

// CheckAndLock 尝试占用端口作为实例锁
// 端口空闲时返回 listener；已有健康实例运行时返回 (nil, nil)，调用者应直接退出；
// 端口被其他进程占用或实例僵死时返回错误
func CheckAndLock(port string) (net.Listener, error) {
	listener, err := net.Listen("tcp", port)
	if err == nil {
		return listener, nil
	}

	if !isAddrInUse(err) {
		return nil, fmt.Errorf("监听端口失败: %w", err)
	}

	switch probe(port) {
	case probeHealthy:
		return nil, nil
	case probeForeign:
		return nil, fmt.Errorf("端口 %s 被其他服务占用", port)
	default:
		return nil, fmt.Errorf("端口 %s 被占用，但健康检查失败，可能存在僵死进程", port)
	}
}

type probeResult int

const (
	probeDead probeResult = iota
	probeHealthy
	probeForeign
)

// probe 向 /health 发送探活请求并校验服务标识
// 端口可能被无关进程占用，仅当响应中的 service 字段匹配才视为自身实例
func probe(port string) probeResult {
	client := &http.Client{Timeout: probeTimeout}

	resp, err := client.Get(fmt.Sprintf("http://localhost%s/health", port))
	if err != nil {
		return probeDead
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return probeDead
	}

	var body struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return probeForeign
	}
	if body.Service != serviceName {
		return probeForeign
	}
	return probeHealthy
}

// isAddrInUse 判断监听错误是否为地址已被占用
func isAddrInUse(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EADDRINUSE) {
		return true
	}

	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}
	var sysErr *os.SyscallError
	if !errors.As(opErr.Err, &sysErr) {
		return false
	}
	if errno, ok := sysErr.Err.(syscall.Errno); ok {
		// Windows 下 WSAEADDRINUSE (10048)
		return errno == 10048 || errno == syscall.EADDRINUSE
	}
	return sysErr.Err.Error() == "address already in use"
}
