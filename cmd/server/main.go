// 文档发现桌面端本地服务入口
// 监听 localhost:19970，同一台机器只允许一个实例运行
package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/CaseMark/discovery-desktop/internal/infrastructure/config"
	applog "github.com/CaseMark/discovery-desktop/internal/infrastructure/log"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/singleton"
	"github.com/CaseMark/discovery-desktop/internal/wire"
)

func main() {
	// 初始化日志系统
	applog.Init(nil)

	// 加载配置获取端口
	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("配置不合法: %v", err)
	}
	port := cfg.Server.HTTPPort

	// 单例锁检查：尝试获取端口锁
	listener, err := singleton.CheckAndLock(port)
	if err != nil {
		log.Fatalf("单例锁检查失败: %v", err)
	}
	if listener == nil {
		// 已有实例运行，直接退出
		log.Println("检测到已有实例在运行，当前进程退出")
		os.Exit(0)
	}
	// 关闭临时 listener，实际监听由 HTTP 服务器负责
	_ = listener.Close()

	// Wire 自动生成的初始化函数
	app, err := wire.InitializeApp()
	if err != nil {
		applog.GetLogger().Error("Failed to initialize application",
			"error", err,
		)
		os.Exit(1)
	}

	// HTTP 服务阻塞运行，放到 goroutine 里等信号
	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		applog.GetLogger().Info("Received signal, shutting down", "signal", sig.String())
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.GetLogger().Error("HTTP server exited unexpectedly",
				"error", err,
			)
			app.Stop()
			os.Exit(1)
		}
	}

	app.Stop()
}
