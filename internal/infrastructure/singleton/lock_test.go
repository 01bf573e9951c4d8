package singleton

import (
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveHealth 在随机端口挂起一个 /health 处理器，返回端口字符串
func serveHealth(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()

	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handler)
	server := &http.Server{Handler: mux}
	go server.Serve(listener)
	t.Cleanup(func() { server.Close() })

	time.Sleep(50 * time.Millisecond)

	addr := listener.Addr().(*net.TCPAddr)
	return fmt.Sprintf(":%d", addr.Port)
}

func TestCheckAndLock_PortAvailable(t *testing.T) {
	// 使用随机端口避免冲突
	listener, err := CheckAndLock(":0")
	require.NoError(t, err)
	require.NotNil(t, listener)
	defer listener.Close()

	assert.NotEmpty(t, listener.Addr().String())
}

func TestCheckAndLock_HealthyInstanceRunning(t *testing.T) {
	port := serveHealth(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","service":%q}`, serviceName)
	})

	got, err := CheckAndLock(port)
	assert.NoError(t, err)
	assert.Nil(t, got, "已有健康实例运行时应返回 nil listener")
}

func TestCheckAndLock_ForeignService(t *testing.T) {
	// 端口被其他服务占用，健康检查返回不同的服务标识
	port := serveHealth(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok","service":"something-else"}`)
	})

	got, err := CheckAndLock(port)
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestCheckAndLock_PortOccupiedNoHealth(t *testing.T) {
	// 占用端口但不提供健康检查
	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer listener.Close()

	addr := listener.Addr().(*net.TCPAddr)
	port := fmt.Sprintf(":%d", addr.Port)

	got, err := CheckAndLock(port)
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestIsAddrInUse(t *testing.T) {
	assert.False(t, isAddrInUse(nil))

	_, err := net.Listen("tcp", "256.256.256.256:0")
	assert.False(t, isAddrInUse(err))
}
