// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector 验证流程指标收集器
type Collector struct {
	// 行级指标
	rowsTotal    *prometheus.CounterVec
	rowDuration  prometheus.Histogram
	activeGroups prometheus.Gauge

	// 远端请求指标
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retryAttempts   *prometheus.CounterVec

	// 比对指标
	similarityScores prometheus.Histogram

	logger *zap.Logger
}

// NewCollector 创建指标收集器。reg 为 nil 时注册到默认 Registerer.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.rowsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_rows_total",
			Help:      "Total number of validation rows by terminal status",
		},
		[]string{"status"},
	)

	c.rowDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "validation_row_duration_seconds",
			Help:      "Wall time spent processing one validation row",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	c.activeGroups = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "validation_active_groups",
			Help:      "Number of questioner groups currently holding a concurrency slot",
		},
	)

	c.requestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_requests_total",
			Help:      "Total remote requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	c.requestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_request_duration_seconds",
			Help:      "Remote request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"operation"},
	)

	c.retryAttempts = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_retry_attempts_total",
			Help:      "Total retry attempts by operation",
		},
		[]string{"operation"},
	)

	c.similarityScores = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "similarity_score",
			Help:      "Distribution of per-segment best similarity scores",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	return c
}

// RecordRow 记录一行的终态与耗时.
func (c *Collector) RecordRow(status string, duration time.Duration) {
	c.rowsTotal.WithLabelValues(status).Inc()
	c.rowDuration.Observe(duration.Seconds())
}

// GroupStarted / GroupFinished 跟踪占用并发槽的分组数.
func (c *Collector) GroupStarted()  { c.activeGroups.Inc() }
func (c *Collector) GroupFinished() { c.activeGroups.Dec() }

// RecordRequest 记录一次远端请求.
func (c *Collector) RecordRequest(operation, outcome string, duration time.Duration) {
	c.requestsTotal.WithLabelValues(operation, outcome).Inc()
	c.requestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRetry 记录一次重试.
func (c *Collector) RecordRetry(operation string) {
	c.retryAttempts.WithLabelValues(operation).Inc()
}

// ObserveSimilarity 记录一个相似度分数.
func (c *Collector) ObserveSimilarity(score float64) {
	c.similarityScores.Observe(score)
}
