package http

import (
	"context"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/CaseMark/discovery-desktop/internal/infrastructure/config"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/log"
	"github.com/CaseMark/discovery-desktop/internal/interfaces/http/handler"
	"github.com/CaseMark/discovery-desktop/internal/interfaces/http/middleware"
)

// HTTPServer HTTP 服务器
type HTTPServer struct {
	router   *gin.Engine
	httpPort string
	server   *http.Server
	logger   *slog.Logger
}

// NewServer 创建 HTTP 服务器
func NewServer(
	cfg *config.ServerConfig,
	caseHandler *handler.CaseHandler,
	documentHandler *handler.DocumentHandler,
	searchHandler *handler.SearchHandler,
	analysisHandler *handler.AnalysisHandler,
	wsHandler *handler.WSHandler,
) *HTTPServer {
	if !log.IsDebugMode() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(middleware.EnsureUTF8Body())

	logger := log.NewModuleLogger("http", "server")

	// 注册路由
	api := router.Group("/api/v1")
	{
		// 案件相关路由
		api.POST("/cases", caseHandler.Create)
		api.GET("/cases", caseHandler.List)
		api.GET("/cases/:id", caseHandler.Get)
		api.DELETE("/cases/:id", caseHandler.Delete)

		// 文档摄取相关路由
		api.GET("/cases/:id/documents", documentHandler.List)
		api.POST("/cases/:id/documents", documentHandler.Register)
		api.POST("/cases/:id/documents/batch", documentHandler.RegisterBatch)
		api.POST("/cases/:id/documents/confirm", documentHandler.Confirm)
		api.POST("/cases/:id/documents/retry-stuck", documentHandler.RetryStuck)
		api.POST("/cases/:id/documents/:docId/retry", documentHandler.Retry)
		api.DELETE("/cases/:id/documents/:docId", documentHandler.Delete)
		api.GET("/cases/:id/documents/:docId/text", documentHandler.GetText)

		// 检索相关路由
		api.POST("/cases/:id/searches", searchHandler.Execute)
		api.GET("/cases/:id/searches", searchHandler.List)
		api.GET("/searches/:searchId", searchHandler.Get)
		api.PATCH("/searches/:searchId/threshold", searchHandler.UpdateThreshold)

		// 案件分析
		api.GET("/cases/:id/analysis", analysisHandler.Get)
	}

	// 文档状态推送
	router.GET("/ws/cases/:id", wsHandler.Subscribe)

	// 健康检查（单实例锁依赖此端点探活，service 字段用于识别占用端口的进程）
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "discovery-desktop"})
	})

	httpPort := cfg.HTTPPort

	return &HTTPServer{
		router:   router,
		httpPort: httpPort,
		logger:   logger,
	}
}

// Start 启动服务器
func (s *HTTPServer) Start() error {
	s.server = &http.Server{
		Addr:    s.httpPort,
		Handler: s.router,
	}

	s.logger.Info("HTTP server starting",
		"port", s.httpPort,
	)

	return s.server.ListenAndServe()
}

// Router 暴露路由（测试用）
func (s *HTTPServer) Router() *gin.Engine {
	return s.router
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Stop 停止服务器
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
