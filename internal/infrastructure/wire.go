package infrastructure

import (
	"github.com/google/wire"

	"github.com/CaseMark/discovery-desktop/internal/infrastructure/cache"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/casemark"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/config"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/llm"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/storage"
	"github.com/CaseMark/discovery-desktop/internal/infrastructure/websocket"
)

// ProviderSet Infrastructure 层总 ProviderSet
var ProviderSet = wire.NewSet(
	config.ProviderSet,
	storage.ProviderSet,
	cache.ProviderSet,
	casemark.ProviderSet,
	llm.ProviderSet,
	websocket.ProviderSet,
)
