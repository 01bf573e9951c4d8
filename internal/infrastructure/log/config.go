package log

import (
	"os"
	"strconv"
	"strings"
)

// Config 日志配置
type Config struct {
	// Level 日志级别：debug, info, warn, error
	Level string `json:"level" env:"DISCOVERY_LOG_LEVEL"`

	// Format 日志格式：console, json
	Format string `json:"format" env:"DISCOVERY_LOG_FORMAT"`

	// File 日志文件路径，为空时输出到 stdout
	File string `json:"file" env:"DISCOVERY_LOG_FILE"`

	// AddSource 是否添加源文件信息（开发环境）
	AddSource bool `json:"add_source" env:"DISCOVERY_LOG_ADD_SOURCE"`
}

// NewConfigFromEnv 从环境变量创建配置
func NewConfigFromEnv() *Config {
	cfg := &Config{
		Level:     envString("DISCOVERY_LOG_LEVEL", "info"),
		Format:    envString("DISCOVERY_LOG_FORMAT", "console"),
		File:      envString("DISCOVERY_LOG_FILE", ""),
		AddSource: envBool("DISCOVERY_LOG_ADD_SOURCE", false),
	}

	// 开发环境下打开调试输出
	if isDevelopment() {
		cfg.Level = "debug"
		cfg.Format = "console"
		cfg.AddSource = true
	}

	return cfg
}

// isDevelopment 检查是否为开发环境
func isDevelopment() bool {
	return strings.ToLower(envString("DISCOVERY_ENV", "production")) == "development"
}

func envString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
