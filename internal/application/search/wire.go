package search

import (
	"github.com/google/wire"

	"github.com/CaseMark/discovery-desktop/internal/infrastructure/casemark"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/llm"
)

// ProviderSet 检索模块 ProviderSet
var ProviderSet = wire.NewSet(
	NewService,
	wire.Bind(new(Searcher), new(*casemark.Client)),
	wire.Bind(new(Completer), new(*llm.Client)),
)
