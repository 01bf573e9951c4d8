package wire

import (
	"database/sql"
	"log/slog"

	"github.com/CaseMark/discovery-desktop/internal/application/analysis"
	"github.com/CaseMark/discovery-desktop/internal/application/ingest"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/config"
	applog "github.com/CaseMark/discovery-desktop/internal/infrastructure/log"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/websocket"
	httpiface "github.com/CaseMark/discovery-desktop/internal/interfaces/http"
)

// ProvideAnalysisTrigger 把案件分析接到文档完成事件上
// ingest 包只认 AnalyzeFunc，不直接依赖 analysis 包
func ProvideAnalysisTrigger(cfg *config.AnalysisConfig, analyzer *analysis.Analyzer) *ingest.AnalysisTrigger {
	return ingest.NewAnalysisTrigger(cfg.Debounce.Std(), analyzer.Analyze)
}

// App 应用主结构，组合所有服务
type App struct {
	HTTPServer *httpiface.HTTPServer

	wsHub   *websocket.Hub
	trigger *ingest.AnalysisTrigger
	db      *sql.DB
	logger  *slog.Logger
}

// NewApp 创建应用实例
func NewApp(
	httpServer *httpiface.HTTPServer,
	wsHub *websocket.Hub,
	trigger *ingest.AnalysisTrigger,
	db *sql.DB,
) *App {
	return &App{
		HTTPServer: httpServer,
		wsHub:      wsHub,
		trigger:    trigger,
		db:         db,
		logger:     applog.NewModuleLogger("app", "main"),
	}
}

// Start 启动后台组件并开始对外服务
// HTTP 服务阻塞运行，正常关闭时返回 http.ErrServerClosed
func (a *App) Start() error {
	a.wsHub.Start()
	return a.HTTPServer.Start()
}

// Stop 优雅关闭
func (a *App) Stop() {
	if err := a.HTTPServer.Stop(); err != nil {
		a.logger.Error("HTTP server shutdown failed", "error", err)
	}

	// 取消尚未触发的分析调度
	a.trigger.Stop()

	if err := a.db.Close(); err != nil {
		a.logger.Error("Database close failed", "error", err)
	}

	a.logger.Info("Application stopped")
}
