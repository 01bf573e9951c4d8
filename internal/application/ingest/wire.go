package ingest

import (
	"github.com/google/wire"

	"github.com/CaseMark/discovery-desktop/internal/infrastructure/casemark"
)

// ProviderSet 摄取模块 ProviderSet
// AnalysisTrigger 由上层组装（需要注入下游分析任务，避免包循环依赖）
var ProviderSet = wire.NewSet(
	NewSyncEngine,
	NewUploadService,
	wire.Bind(new(RemoteGateway), new(*casemark.Client)),
)
