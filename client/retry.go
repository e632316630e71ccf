package client

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/ragcheck/internal/metrics"
	"github.com/BaSui01/ragcheck/types"
)

// RetryConfig 重试包装器配置.
type RetryConfig struct {
	// MaxAttempts 尝试次数上限（含首次）
	MaxAttempts int `json:"max_attempts"`
	// BackoffBase 退避底数，第 n 次失败后等待 base^n 秒
	BackoffBase float64 `json:"backoff_base"`
}

// DefaultRetryConfig 返回默认重试配置.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BackoffBase: 2.0}
}

// RetryingClient 用重试策略包装 Remote 的全部操作：
// 瞬态网络故障按标准退避重试，对端重置把等待时间加倍，
// 终态错误（NOT_FOUND/TERMINAL_STATE）永不重试，
// 次数耗尽后返回携带最后一次失败原因的 RETRY_EXHAUSTED.
type RetryingClient struct {
	inner     Remote
	cfg       RetryConfig
	logger    *zap.Logger
	collector *metrics.Collector
}

// NewRetryingClient 创建重试包装器.
func NewRetryingClient(inner Remote, cfg RetryConfig, collector *metrics.Collector, logger *zap.Logger) *RetryingClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffBase <= 1.0 {
		cfg.BackoffBase = 2.0
	}
	return &RetryingClient{
		inner:     inner,
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "retry_client")),
		collector: collector,
	}
}

var _ Remote = (*RetryingClient)(nil)

// MaxAttempts 返回当前尝试上限.
func (r *RetryingClient) MaxAttempts() int { return r.cfg.MaxAttempts }

// WithMaxAttempts 返回一个尝试上限不同、其余共享的副本.
// 补偿重试轮使用更高的上限.
func (r *RetryingClient) WithMaxAttempts(n int) *RetryingClient {
	cp := *r
	if n < 1 {
		n = 1
	}
	cp.cfg.MaxAttempts = n
	return &cp
}

// SendMessage 实现 Remote.
func (r *RetryingClient) SendMessage(ctx context.Context, req Request) (*Reply, error) {
	var reply *Reply
	err := r.do(ctx, "send_message", func() error {
		var err error
		reply, err = r.inner.SendMessage(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// DownloadFile 实现 Remote.
func (r *RetryingClient) DownloadFile(ctx context.Context, kbID, fileID string) ([]byte, error) {
	var data []byte
	err := r.do(ctx, "download_file", func() error {
		var err error
		data, err = r.inner.DownloadFile(ctx, kbID, fileID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *RetryingClient) do(ctx context.Context, operation string, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				r.logger.Info("重试成功",
					zap.String("operation", operation),
					zap.Int("attempt", attempt))
			}
			return nil
		}

		if types.IsTerminal(lastErr) || !types.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == r.cfg.MaxAttempts {
			break
		}

		wait := time.Duration(math.Pow(r.cfg.BackoffBase, float64(attempt)) * float64(time.Second))
		if types.GetErrorCode(lastErr) == types.ErrPeerReset {
			wait *= 2
		}

		r.logger.Debug("重试中",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.cfg.MaxAttempts),
			zap.Duration("wait", wait),
			zap.Error(lastErr))
		if r.collector != nil {
			r.collector.RecordRetry(operation)
		}

		select {
		case <-ctx.Done():
			return types.NewError(types.ErrTransientNetwork, "retry cancelled").WithCause(ctx.Err())
		case <-time.After(wait):
		}
	}

	r.logger.Warn("重试次数耗尽",
		zap.String("operation", operation),
		zap.Int("attempts", r.cfg.MaxAttempts),
		zap.Error(lastErr))
	return types.NewError(types.ErrRetryExhausted,
		fmt.Sprintf("%s failed after %d attempts", operation, r.cfg.MaxAttempts)).
		WithCause(lastErr)
}
