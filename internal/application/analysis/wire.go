package analysis

import (
	"github.com/google/wire"

	"github.com/CaseMark/discovery-desktop/internal/infrastructure/casemark"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/llm"
)

// ProviderSet 分析模块 ProviderSet
var ProviderSet = wire.NewSet(
	NewAnalyzer,
	wire.Bind(new(TextSource), new(*casemark.Client)),
	wire.Bind(new(Completer), new(*llm.Client)),
)
