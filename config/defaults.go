package config

import "time"

// DefaultConfig 返回默认配置.
// 阈值与分隔符沿用验证工具的历史默认值.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Timeout:           60 * time.Second,
			RequestsPerSecond: 0,
		},
		Validation: ValidationConfig{
			SimilarityMode:      "standard",
			SimilarityThreshold: 0.3,
			TopK:                0,
			Concurrency:         3,
			RequestDelay:        time.Second,
			Separators:          []string{"---", "|||", "\n\n"},
			ChainContext:        true,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BackoffBase: 2.0,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			ServiceName: "ragcheck",
			SampleRate:  1.0,
		},
		Metrics: MetricsConfig{
			Namespace: "ragcheck",
		},
	}
}
