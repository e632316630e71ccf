// Package ragcheck provides a top-level convenience entry point for building
// a ready-to-run validation engine with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/ragcheck"
//
//	engine, err := ragcheck.New(cfg, ragcheck.WithLogger(logger))
//	report, err := engine.Run(ctx, records)
//
// This is a thin wrapper that wires the HTTP client, retry policy,
// conversation manager and orchestrator from a single [config.Config].
// Use the sub-packages directly when you need finer control.
package ragcheck

import (
	"go.uber.org/zap"

	"github.com/BaSui01/ragcheck/client"
	"github.com/BaSui01/ragcheck/config"
	"github.com/BaSui01/ragcheck/conversation"
	"github.com/BaSui01/ragcheck/internal/metrics"
	"github.com/BaSui01/ragcheck/textmatch"
	"github.com/BaSui01/ragcheck/validator"
)

// Option 调整便捷构造的装配行为.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	collector  *metrics.Collector
	onProgress func(completed, total int, message string)
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithCollector sets a pre-built Prometheus collector.
func WithCollector(c *metrics.Collector) Option {
	return func(o *options) { o.collector = c }
}

// WithProgress registers a per-row progress callback.
func WithProgress(fn func(completed, total int, message string)) Option {
	return func(o *options) { o.onProgress = fn }
}

// New 从完整配置装配一个可直接运行的验证编排器.
// cfg 必须已通过 [config.Config.Validate].
func New(cfg *config.Config, opts ...Option) (*validator.Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	api := client.NewClient(client.Config{
		BaseURL:           cfg.API.BaseURL,
		APIKey:            cfg.API.APIKey,
		Timeout:           cfg.API.Timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
	}, o.collector, o.logger)
	remote := client.NewRetryingClient(api, client.RetryConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BackoffBase: cfg.Retry.BackoffBase,
	}, o.collector, o.logger)
	conv := conversation.NewManager(cfg.Validation.ChainContext, o.logger)

	return validator.New(remote, conv, validator.Options{
		ChatbotID:        cfg.API.ChatbotID,
		KnowledgeBaseIDs: cfg.Validation.KnowledgeBaseIDs,
		Concurrency:      cfg.Validation.Concurrency,
		RequestDelay:     cfg.Validation.RequestDelay,
		MaxAttempts:      cfg.Retry.MaxAttempts,
		Threshold:        cfg.Validation.SimilarityThreshold,
		TopK:             cfg.Validation.TopK,
		Separators:       cfg.Validation.Separators,
		Mode:             textmatch.Mode(cfg.Validation.SimilarityMode),
	}, validator.Hooks{OnProgress: o.onProgress}, o.collector, o.logger), nil
}
