package cases

import "github.com/google/wire"

// ProviderSet 案件模块 ProviderSet
var ProviderSet = wire.NewSet(
	NewService,
)
