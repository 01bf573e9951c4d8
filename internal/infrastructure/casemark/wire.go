package casemark

import "github.com/google/wire"

// ProviderSet CaseMark 客户端 ProviderSet
var ProviderSet = wire.NewSet(
	NewClient,
)
