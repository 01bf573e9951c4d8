package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	CaseMark CaseMarkConfig `yaml:"casemark"`
	Sync     SyncConfig     `yaml:"sync"`
	Upload   UploadConfig   `yaml:"upload"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Cache    CacheConfig    `yaml:"cache"`
	Client   ClientConfig   `yaml:"client"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTPPort 固定端口，用于单例锁
	HTTPPort string `yaml:"http_port"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CaseMarkConfig 远程处理服务配置
type CaseMarkConfig struct {
	BaseURL string   `yaml:"base_url"`
	APIKey  string   `yaml:"api_key"`
	Timeout Duration `yaml:"timeout"`
}

// SyncConfig 状态同步引擎配置
type SyncConfig struct {
	// ActiveWindow 有文档处理中时的去抖窗口
	ActiveWindow Duration `yaml:"active_window"`
	// IdleWindow 无文档处理中时的去抖窗口
	IdleWindow Duration `yaml:"idle_window"`
	// EntryTTL 去抖缓存条目的存活时间
	EntryTTL Duration `yaml:"entry_ttl"`
	// StuckCutoff 超过此时长仍在 processing 的文档视为卡住
	StuckCutoff Duration `yaml:"stuck_cutoff"`
}

// UploadConfig 上传配置
type UploadConfig struct {
	// SubBatchSize 每个子批次的文件数
	SubBatchSize int `yaml:"sub_batch_size"`
	// MaxBatchSize 单次批量请求的文件数上限
	MaxBatchSize int `yaml:"max_batch_size"`
	// AllowedTypes 允许上传的文件扩展名
	AllowedTypes []string `yaml:"allowed_types"`
}

// AnalysisConfig 案件分析配置
type AnalysisConfig struct {
	// Debounce 摄取完成后的尾部去抖时长
	Debounce Duration `yaml:"debounce"`
	// LLMBaseURL Chat API 地址
	LLMBaseURL string `yaml:"llm_base_url"`
	// LLMAPIKey Chat API 密钥
	LLMAPIKey string `yaml:"llm_api_key"`
	// Model 使用的模型
	Model string `yaml:"model"`
	// MaxPromptTokens 提示词 token 预算
	MaxPromptTokens int `yaml:"max_prompt_tokens"`
}

// CacheConfig 去抖缓存配置
type CacheConfig struct {
	// Backend 缓存后端：memory 或 redis
	// 单实例部署用 memory 即可；多实例部署必须用 redis，
	// 否则每个实例各有一份去抖状态，无法限制对远程服务的调用频率
	Backend string `yaml:"backend"`
	// RedisAddr redis 地址（backend=redis 时必填）
	RedisAddr string `yaml:"redis_addr"`
	// RedisPassword redis 密码
	RedisPassword string `yaml:"redis_password"`
}

// ClientConfig 桌面端轮询配置
type ClientConfig struct {
	// PollFloor 轮询间隔下限
	PollFloor Duration `yaml:"poll_floor"`
	// PollCeiling 轮询间隔上限
	PollCeiling Duration `yaml:"poll_ceiling"`
	// PollFactor 无变化时的间隔增长倍率
	PollFactor float64 `yaml:"poll_factor"`
}

// NewConfig 创建配置：默认值 + 可选的 YAML 配置文件覆盖
func NewConfig() *Config {
	cfg := defaultConfig()

	// 配置文件可选，不存在时直接用默认值
	path := configFilePath()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		// 配置文件损坏时退回默认值，由调用方日志提示
		return defaultConfig()
	}

	applyEnvOverrides(cfg)
	return cfg
}

// defaultConfig 默认配置
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: ":19970",
		},
		Database: DatabaseConfig{
			Path: "", // 空表示使用数据目录下的 discovery.db
		},
		CaseMark: CaseMarkConfig{
			BaseURL: "https://api.casemark.ai/v1",
			Timeout: Duration(30 * time.Second),
		},
		Sync: SyncConfig{
			ActiveWindow: Duration(2 * time.Second),
			IdleWindow:   Duration(10 * time.Second),
			EntryTTL:     Duration(60 * time.Second),
			StuckCutoff:  Duration(30 * time.Minute),
		},
		Upload: UploadConfig{
			SubBatchSize: 6,
			MaxBatchSize: 20,
			AllowedTypes: []string{".pdf", ".doc", ".docx", ".txt", ".rtf", ".png", ".jpg", ".jpeg", ".tif", ".tiff"},
		},
		Analysis: AnalysisConfig{
			Debounce:        Duration(5 * time.Second),
			LLMBaseURL:      "https://api.openai.com/v1",
			Model:           "gpt-4o-mini",
			MaxPromptTokens: 12000,
		},
		Cache: CacheConfig{
			Backend: "memory",
		},
		Client: ClientConfig{
			PollFloor:   Duration(2000 * time.Millisecond),
			PollCeiling: Duration(15000 * time.Millisecond),
			PollFactor:  1.5,
		},
	}
}

// applyEnvOverrides 环境变量覆盖（密钥类配置优先从环境读取）
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CASEMARK_API_KEY"); v != "" {
		cfg.CaseMark.APIKey = v
	}
	if v := os.Getenv("CASEMARK_BASE_URL"); v != "" {
		cfg.CaseMark.BaseURL = v
	}
	if v := os.Getenv("DISCOVERY_LLM_API_KEY"); v != "" {
		cfg.Analysis.LLMAPIKey = v
	}
	if v := os.Getenv("DISCOVERY_REDIS_ADDR"); v != "" {
		cfg.Cache.Backend = "redis"
		cfg.Cache.RedisAddr = v
	}
}

// configFilePath 配置文件路径：<数据目录>/config.yaml
func configFilePath() string {
	return filepath.Join(GetDataDir(), "config.yaml")
}

// Validate 检查配置的基本合法性
func (c *Config) Validate() error {
	if c.Upload.SubBatchSize <= 0 {
		return fmt.Errorf("upload.sub_batch_size must be positive, got %d", c.Upload.SubBatchSize)
	}
	if c.Upload.MaxBatchSize < c.Upload.SubBatchSize {
		return fmt.Errorf("upload.max_batch_size %d is smaller than sub_batch_size %d",
			c.Upload.MaxBatchSize, c.Upload.SubBatchSize)
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required when cache.backend is redis")
	}
	if c.Client.PollFactor <= 1 {
		return fmt.Errorf("client.poll_factor must be greater than 1, got %v", c.Client.PollFactor)
	}
	return nil
}

// NewDatabaseConfig 创建数据库配置
func NewDatabaseConfig(cfg *Config) *DatabaseConfig {
	return &cfg.Database
}

// NewServerConfig 创建服务器配置
func NewServerConfig(cfg *Config) *ServerConfig {
	return &cfg.Server
}

// NewCaseMarkConfig 创建远程服务配置
func NewCaseMarkConfig(cfg *Config) *CaseMarkConfig {
	return &cfg.CaseMark
}

// NewSyncConfig 创建同步配置
func NewSyncConfig(cfg *Config) *SyncConfig {
	return &cfg.Sync
}

// NewUploadConfig 创建上传配置
func NewUploadConfig(cfg *Config) *UploadConfig {
	return &cfg.Upload
}

// NewAnalysisConfig 创建分析配置
func NewAnalysisConfig(cfg *Config) *AnalysisConfig {
	return &cfg.Analysis
}

// NewCacheConfig 创建缓存配置
func NewCacheConfig(cfg *Config) *CacheConfig {
	return &cfg.Cache
}
