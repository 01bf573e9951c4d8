package cache

import (
	"github.com/google/wire"

	"github.com/CaseMark/discovery-desktop/internal/infrastructure/config"
	applog "github.com/CaseMark/discovery-desktop/internal/infrastructure/log"
)

// ProviderSet 缓存 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideStore,
)

// ProvideStore 按配置选择缓存后端
// redis 连接失败时回退到内存实现并告警，保证桌面端离线也能启动
func ProvideStore(cfg *config.CacheConfig) Store {
	logger := applog.NewModuleLogger("cache", "provider")

	if cfg.Backend == "redis" {
		store, err := NewRedisStore(cfg.RedisAddr, cfg.RedisPassword)
		if err == nil {
			logger.Info("Using redis cache backend", "addr", cfg.RedisAddr)
			return store
		}
		logger.Warn("Redis unavailable, falling back to in-memory cache",
			"addr", cfg.RedisAddr,
			"error", err,
		)
	}

	return NewMemoryStore()
}
