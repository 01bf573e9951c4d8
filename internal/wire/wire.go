//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/google/wire"

	"github.com/CaseMark/discovery-desktop/internal/application"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure"
	httpiface "github.com/CaseMark/discovery-desktop/internal/interfaces/http"
)

// InitializeApp 组装整个应用
func InitializeApp() (*App, error) {
	wire.Build(
		infrastructure.ProviderSet, // 基础设施层
		application.ProviderSet,    // 应用层
		httpiface.ProviderSet,      // 接口层
		ProvideAnalysisTrigger,     // 摄取→分析的跨模块粘合
		NewApp,
	)
	return nil, nil
}
