// Package config 提供 ragcheck 的统一配置加载.
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("ragcheck.yaml").
//	    WithEnvPrefix("RAGCHECK").
//	    Load()
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是 ragcheck 的完整配置结构.
type Config struct {
	// API 远端接口配置
	API APIConfig `yaml:"api"`
	// Validation 验证流程配置
	Validation ValidationConfig `yaml:"validation"`
	// Retry 重试策略配置
	Retry RetryConfig `yaml:"retry"`
	// Log 日志配置
	Log LogConfig `yaml:"log"`
	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry"`
	// Metrics 指标配置
	Metrics MetricsConfig `yaml:"metrics"`
}

// APIConfig 远端接口配置.
type APIConfig struct {
	// 接口基础地址
	BaseURL string `yaml:"base_url"`
	// API Key
	APIKey string `yaml:"api_key"`
	// 目标聊天机器人
	ChatbotID string `yaml:"chatbot_id"`
	// 单次请求超时
	Timeout time.Duration `yaml:"timeout"`
	// 全局限速（请求/秒），0 不限速
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// ValidationConfig 验证流程配置.
type ValidationConfig struct {
	// 相似度算法: standard, character_ratio
	SimilarityMode string `yaml:"similarity_mode"`
	// 段落命中阈值
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	// 只评估前 K 个片段，0 表示全部
	TopK int `yaml:"top_k"`
	// 并发提问者分组数上限
	Concurrency int `yaml:"concurrency"`
	// 同组相邻两行之间的固定延迟
	RequestDelay time.Duration `yaml:"request_delay"`
	// 预期段落分隔符，空用默认集合
	Separators []string `yaml:"separators"`
	// 会话建立前是否拼接同一提问者的历史问题
	ChainContext bool `yaml:"chain_context"`
	// 可选的检索范围过滤（知识库标识）
	KnowledgeBaseIDs []string `yaml:"knowledge_base_ids"`
}

// RetryConfig 重试策略配置.
type RetryConfig struct {
	// 尝试次数上限（含首次）
	MaxAttempts int `yaml:"max_attempts"`
	// 退避底数，第 n 次失败后等待 base^n 秒
	BackoffBase float64 `yaml:"backoff_base"`
}

// LogConfig 日志配置.
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level"`
	// 输出格式: json, console
	Format string `yaml:"format"`
}

// TelemetryConfig 遥测配置.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	ServiceName  string  `yaml:"service_name"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// MetricsConfig 指标配置.
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

// Loader 配置加载器（Builder 模式）.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader 创建新的配置加载器.
func NewLoader() *Loader {
	return &Loader{envPrefix: "RAGCHECK"}
}

// WithConfigPath 设置配置文件路径.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load 加载配置并校验.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	l.applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv 用环境变量覆盖关键字段.
func (l *Loader) applyEnv(cfg *Config) {
	if v := l.env("API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := l.env("API_KEY"); v != "" {
		cfg.API.APIKey = v
	}
	if v := l.env("CHATBOT_ID"); v != "" {
		cfg.API.ChatbotID = v
	}
	if v := l.env("CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Validation.Concurrency = n
		}
	}
	if v := l.env("SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Validation.SimilarityThreshold = f
		}
	}
	if v := l.env("SIMILARITY_MODE"); v != "" {
		cfg.Validation.SimilarityMode = v
	}
	if v := l.env("MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retry.MaxAttempts = n
		}
	}
	if v := l.env("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := l.env("OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
		cfg.Telemetry.Enabled = true
	}
}

func (l *Loader) env(key string) string {
	return os.Getenv(l.envPrefix + "_" + key)
}

// Validate 校验配置，配置错误在任何派发之前即中止运行.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.APIKey == "" {
		return fmt.Errorf("api.api_key is required")
	}
	if c.API.ChatbotID == "" {
		return fmt.Errorf("api.chatbot_id is required")
	}
	switch c.Validation.SimilarityMode {
	case "standard", "character_ratio":
	default:
		return fmt.Errorf("validation.similarity_mode must be standard or character_ratio, got %q",
			c.Validation.SimilarityMode)
	}
	if c.Validation.SimilarityThreshold < 0 || c.Validation.SimilarityThreshold > 1 {
		return fmt.Errorf("validation.similarity_threshold must be in [0,1], got %v",
			c.Validation.SimilarityThreshold)
	}
	if c.Validation.Concurrency < 1 {
		return fmt.Errorf("validation.concurrency must be >= 1, got %d", c.Validation.Concurrency)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	if !strings.EqualFold(c.Log.Format, "json") && !strings.EqualFold(c.Log.Format, "console") {
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}
