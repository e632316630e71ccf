// Package validator 实现验证编排器：按提问者分组、限并发派发、
// 两阶段补偿重试与聚合统计.
package validator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/BaSui01/ragcheck/client"
	"github.com/BaSui01/ragcheck/conversation"
	"github.com/BaSui01/ragcheck/internal/metrics"
	"github.com/BaSui01/ragcheck/textmatch"
	"github.com/BaSui01/ragcheck/types"
)

// FailureMarkerPrefix 是失败行回复字段的确定性标记前缀.
// 两轮处理之间通过它识别需要补偿重试的行；下游统计据此不会缺数据.
const FailureMarkerPrefix = "错误: "

// maxRetryCeiling 补偿轮重试次数上限的封顶值.
const maxRetryCeiling = 10

// Options 编排器配置，均为普通值，由配置方注入.
type Options struct {
	ChatbotID        string
	KnowledgeBaseIDs []string

	Concurrency  int
	RequestDelay time.Duration
	MaxAttempts  int

	Threshold  float64
	TopK       int
	Separators []string
	Mode       textmatch.Mode
}

// Hooks 显式的运行上下文：进度回调由调用方注入，不依赖任何全局状态.
type Hooks struct {
	// OnProgress 每完成一行调用一次（包括跳过行）
	OnProgress func(completed, total int, message string)
}

// passConfig 一轮派发的执行参数.
// 补偿轮使用更保守的配置：并发减半、延迟加倍、重试上限提高.
type passConfig struct {
	concurrency int
	delay       time.Duration
	maxAttempts int
	retryPass   bool
}

// Orchestrator 顶层验证编排器.
//
// 共享可变状态只有结果表与完成计数，二者在同一互斥段内写入。
// 每条记录的所有权归处理该提问者分组的 worker 独占，记录本身不会被
// 并发修改.
type Orchestrator struct {
	remote    *client.RetryingClient
	conv      *conversation.Manager
	agg       *textmatch.Aggregator
	opts      Options
	hooks     Hooks
	collector *metrics.Collector
	logger    *zap.Logger
	tracer    trace.Tracer

	mu        sync.Mutex
	results   map[string]*types.ValidationRecord
	completed int
	total     int

	stopped atomic.Bool
}

// New 创建编排器.
func New(remote *client.RetryingClient, conv *conversation.Manager, opts Options, hooks Hooks, collector *metrics.Collector, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &Orchestrator{
		remote:    remote,
		conv:      conv,
		agg:       textmatch.NewAggregator(logger),
		opts:      opts,
		hooks:     hooks,
		collector: collector,
		logger:    logger.With(zap.String("component", "orchestrator")),
		tracer:    otel.Tracer("ragcheck/validator"),
	}
}

// Stop 请求协作式停止：已派发的调用允许完成，
// 未处理的行标记为 interrupted 而不是被丢弃.
func (o *Orchestrator) Stop() {
	o.stopped.Store(true)
}

// Run 执行完整验证：过滤 → 分组 → 主轮派发 → 补偿轮 → 终态收尾.
// 输出行数恒等于输入行数，且保持原始输入顺序.
func (o *Orchestrator) Run(ctx context.Context, records []*types.ValidationRecord) (*Report, error) {
	runID := uuid.NewString()
	start := time.Now()

	ctx, span := o.tracer.Start(ctx, "validator.Run",
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.Int("rows", len(records))))
	defer span.End()

	o.stopped.Store(false)
	o.conv.Reset()
	o.mu.Lock()
	o.results = make(map[string]*types.ValidationRecord, len(records))
	o.completed = 0
	o.total = len(records)
	o.mu.Unlock()

	o.logger.Info("validation run started",
		zap.String("run_id", runID),
		zap.Int("rows", len(records)),
		zap.Int("concurrency", o.opts.Concurrency))

	// 1. 过滤：未标记验证的行直接落跳过终态
	active := make([]*types.ValidationRecord, 0, len(records))
	for _, rec := range records {
		if rec.ShouldValidate {
			rec.Status = types.StatusPending
			active = append(active, rec)
			continue
		}
		rec.Status = types.StatusSkipped
		rec.Metrics = types.RagMetrics{}
		rec.FileMatch = types.FileMatchResult{}
		o.store(rec, "跳过 "+rec.ID)
	}

	// 2-5. 主轮：按提问者分组限并发派发
	o.runGroups(ctx, groupByQuestioner(active), passConfig{
		concurrency: o.opts.Concurrency,
		delay:       o.opts.RequestDelay,
		maxAttempts: o.opts.MaxAttempts,
	})

	// 6. 补偿轮：只收集带失败标记或从未写入回复的行
	if !o.stopped.Load() {
		failed := collectFailures(active)
		if len(failed) > 0 {
			halved := o.opts.Concurrency / 2
			if halved < 1 {
				halved = 1
			}
			ceiling := o.opts.MaxAttempts + 2
			if ceiling > maxRetryCeiling {
				ceiling = maxRetryCeiling
			}
			o.logger.Info("starting recovery pass",
				zap.Int("rows", len(failed)),
				zap.Int("concurrency", halved),
				zap.Int("max_attempts", ceiling))
			o.runGroups(ctx, groupByQuestioner(failed), passConfig{
				concurrency: halved,
				delay:       o.opts.RequestDelay * 2,
				maxAttempts: ceiling,
				retryPass:   true,
			})
		}
	}

	// 7. 终态收尾：两轮后仍未解决的行标记为终败
	for _, rec := range records {
		switch rec.Status {
		case types.StatusPending:
			rec.Status = types.StatusInterrupted
			rec.Reply = FailureMarkerPrefix + "运行被中断"
			rec.Metrics = types.RagMetrics{}
		case types.StatusFailed:
			if !strings.HasPrefix(rec.Reply, FailureMarkerPrefix) {
				rec.Reply = FailureMarkerPrefix + "验证失败"
			}
			rec.Metrics = types.RagMetrics{}
		}
	}

	report := buildReport(runID, records, start, time.Now())
	o.logger.Info("validation run finished",
		zap.String("run_id", runID),
		zap.Int("succeeded", report.Stats.SucceededRows),
		zap.Int("retry_succeeded", report.Stats.RetrySucceededRows),
		zap.Int("failed", report.Stats.FailedRows),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// group 同一提问者的行序列，保持输入内顺序.
type group struct {
	questioner string
	rows       []*types.ValidationRecord
}

func groupByQuestioner(records []*types.ValidationRecord) []*group {
	index := make(map[string]*group)
	var groups []*group
	for _, rec := range records {
		g, ok := index[rec.Questioner]
		if !ok {
			g = &group{questioner: rec.Questioner}
			index[rec.Questioner] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, rec)
	}
	return groups
}

// runGroups 以计数信号量限制同时活跃的分组数；分组内严格顺序处理，
// 保证同一提问者的会话次序。任何分组的失败不影响其他分组.
func (o *Orchestrator) runGroups(ctx context.Context, groups []*group, pc passConfig) {
	sem := semaphore.NewWeighted(int64(pc.concurrency))
	remote := o.remote.WithMaxAttempts(pc.maxAttempts)

	var wg sync.WaitGroup
	for _, g := range groups {
		wg.Add(1)
		go func(g *group) {
			defer wg.Done()

			// 分组边界的协作停止检查
			if o.shouldStop(ctx) {
				o.markInterrupted(g.rows)
				return
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				o.markInterrupted(g.rows)
				return
			}
			defer sem.Release(1)
			if o.collector != nil {
				o.collector.GroupStarted()
				defer o.collector.GroupFinished()
			}

			for i, rec := range g.rows {
				if o.shouldStop(ctx) {
					o.markInterrupted(g.rows[i:])
					return
				}
				o.processRow(ctx, remote, rec, pc.retryPass)

				// 行间礼貌性固定延迟，与重试退避无关
				if i < len(g.rows)-1 && pc.delay > 0 {
					select {
					case <-ctx.Done():
					case <-time.After(pc.delay):
					}
				}
			}
		}(g)
	}
	wg.Wait()
}

// processRow 处理单行：构造消息 → 远端调用 → 指标计算 → 聚合写入.
func (o *Orchestrator) processRow(ctx context.Context, remote *client.RetryingClient, rec *types.ValidationRecord, retryPass bool) {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "validator.processRow",
		trace.WithAttributes(
			attribute.String("record_id", rec.ID),
			attribute.String("questioner", rec.Questioner),
			attribute.Bool("retry_pass", retryPass)))
	defer span.End()

	if retryPass {
		// 该行主轮已把自己的问题记入历史，先摘掉再重建消息，避免重复
		o.conv.DropLastQuestion(rec.Questioner, rec.Question)
	}
	message := o.conv.BuildMessage(rec.Questioner, rec.Question)

	reply, err := remote.SendMessage(ctx, client.Request{
		ChatbotID:        o.opts.ChatbotID,
		Message:          message,
		ConversationID:   o.conv.ConversationID(rec.Questioner),
		KnowledgeBaseIDs: o.opts.KnowledgeBaseIDs,
	})
	if err != nil {
		rec.Reply = FailureMarkerPrefix + err.Error()
		rec.Metrics = types.RagMetrics{}
		rec.FileMatch = types.FileMatchResult{}
		rec.CitationHit = false
		rec.FileCorrect = false
		rec.Status = types.StatusFailed
		o.logger.Warn("row failed",
			zap.String("record_id", rec.ID),
			zap.Bool("retry_pass", retryPass),
			zap.Error(err))
		if o.collector != nil {
			o.collector.RecordRow(string(types.StatusFailed), time.Since(start))
		}
		o.store(rec, fmt.Sprintf("失败 %s", rec.ID))
		return
	}

	o.conv.SetConversationID(rec.Questioner, reply.ConversationID)
	rec.Reply = reply.Content
	rec.ConversationID = reply.ConversationID
	rec.Chunks = reply.Chunks
	rec.Citations = reply.Citations

	hit, m := o.agg.Evaluate(rec.Chunks, rec.ExpectedSegments, textmatch.EvalOptions{
		Threshold:  o.opts.Threshold,
		TopK:       o.opts.TopK,
		Separators: o.opts.Separators,
		Mode:       o.opts.Mode,
	})
	rec.CitationHit = hit
	rec.Metrics = m
	if o.collector != nil {
		o.collector.ObserveSimilarity(m.HitRate)
	}

	ok, fm := textmatch.MatchCitationFiles(rec.Citations, rec.ExpectedFiles)
	rec.FileCorrect = ok
	rec.FileMatch = fm

	if retryPass {
		rec.Status = types.StatusRetrySucceeded
	} else {
		rec.Status = types.StatusSucceeded
	}

	o.logger.Debug("row processed",
		zap.String("record_id", rec.ID),
		zap.Bool("citation_hit", hit),
		zap.Bool("file_correct", ok),
		zap.Float64("hit_rate", m.HitRate),
		zap.Duration("duration", time.Since(start)))
	if o.collector != nil {
		o.collector.RecordRow(string(rec.Status), time.Since(start))
	}
	o.store(rec, fmt.Sprintf("完成 %s", rec.ID))
}

// store 在同一互斥段内写入结果表并递增完成计数，随后发布进度通知.
// 互斥段防止的是协作式挂起点交错造成的聚合撕裂写.
func (o *Orchestrator) store(rec *types.ValidationRecord, message string) {
	o.mu.Lock()
	if _, seen := o.results[rec.ID]; !seen {
		o.completed++
	}
	o.results[rec.ID] = rec
	completed, total := o.completed, o.total
	o.mu.Unlock()

	if o.hooks.OnProgress != nil {
		o.hooks.OnProgress(completed, total, message)
	}
}

func (o *Orchestrator) shouldStop(ctx context.Context) bool {
	return o.stopped.Load() || ctx.Err() != nil
}

func (o *Orchestrator) markInterrupted(rows []*types.ValidationRecord) {
	for _, rec := range rows {
		if rec.Resolved() {
			continue
		}
		rec.Status = types.StatusInterrupted
		rec.Reply = FailureMarkerPrefix + "运行被中断"
		rec.Metrics = types.RagMetrics{}
		rec.FileMatch = types.FileMatchResult{}
		if o.collector != nil {
			o.collector.RecordRow(string(types.StatusInterrupted), 0)
		}
		o.store(rec, "中断 "+rec.ID)
	}
}

// collectFailures 找出需要补偿重试的行：回复带失败标记或从未写入.
// 已成功的行绝不会被重新处理.
func collectFailures(records []*types.ValidationRecord) []*types.ValidationRecord {
	var out []*types.ValidationRecord
	for _, rec := range records {
		if rec.Resolved() {
			continue
		}
		if rec.Status == types.StatusInterrupted {
			continue
		}
		if strings.HasPrefix(rec.Reply, FailureMarkerPrefix) || rec.Reply == "" {
			out = append(out, rec)
		}
	}
	return out
}
