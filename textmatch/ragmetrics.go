package textmatch

import (
	"go.uber.org/zap"

	"github.com/BaSui01/ragcheck/types"
)

// EvalOptions 控制一次检索命中评估.
type EvalOptions struct {
	// Threshold 段落命中阈值，分数 ≥ Threshold 视为命中
	Threshold float64 `json:"threshold"`
	// TopK 只取前 K 个片段参与评估；0 表示全部
	TopK int `json:"top_k"`
	// Separators 预期段落分隔符；nil 使用 DefaultSeparators
	Separators []string `json:"separators,omitempty"`
	// Mode 相似度算法
	Mode Mode `json:"mode"`
}

// SegmentMatch 记录一个预期段落的最佳匹配，用于报表与调试日志.
type SegmentMatch struct {
	SegmentIndex int     `json:"segment_index"`
	ChunkIndex   int     `json:"chunk_index"`
	Score        float64 `json:"score"`
}

// Aggregator 将段落级相似度分数聚合为命中率/精确率/召回率/F1 指标.
type Aggregator struct {
	logger *zap.Logger
}

// NewAggregator 创建指标聚合器.
func NewAggregator(logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{logger: logger}
}

// Evaluate 评估检索片段对预期内容的覆盖程度.
//
// 每个预期段落按顺序扫描候选片段，第一个分数达到阈值的片段计入命中并
// 标记该片段 Matched（同一片段可被多个段落标记）；其余达标片段只参与
// 最佳匹配记录，不重复计数。精确率 = 被标记片段数/片段总数，召回率 =
// 命中段落数/段落总数，HitRate 与召回率同值，isHit ⇔ HitRate > 0.
//
// chunks 的 Matched 标记会被就地更新.
func (a *Aggregator) Evaluate(chunks []types.RetrievalChunk, expectedText string, opts EvalOptions) (bool, types.RagMetrics) {
	if len(chunks) == 0 || expectedText == "" {
		return false, types.RagMetrics{Note: "无引用片段或预期内容为空"}
	}

	segments := ParseExpectedSegments(expectedText, opts.Separators)
	if len(segments) == 0 {
		// 解析不出段落时退回整体最佳匹配检查
		return a.evaluateWholeText(chunks, expectedText, opts)
	}

	// 截取前 top_k 个片段，再过滤出有可提取文本的
	limit := len(chunks)
	if opts.TopK > 0 && opts.TopK < limit {
		limit = opts.TopK
	}
	candidates := make([]int, 0, limit)
	for i := 0; i < limit; i++ {
		if chunks[i].Content != "" {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return false, types.RagMetrics{
			TotalExpected: len(segments),
			Note:          "无有效的检索片段",
		}
	}

	scorer := NewScorer(opts.Mode, segments)

	hitCount := 0
	matches := make([]SegmentMatch, 0, len(segments))
	for _, seg := range segments {
		segmentHit := false
		best := SegmentMatch{SegmentIndex: seg.Index, ChunkIndex: -1}

		for _, ci := range candidates {
			score := scorer.Score(chunks[ci].Content, seg.Text)
			if score < opts.Threshold {
				continue
			}
			if !segmentHit {
				// 首个达标片段计入命中并标记
				hitCount++
				segmentHit = true
				chunks[ci].Matched = true
			}
			if score > best.Score || best.ChunkIndex < 0 {
				best.ChunkIndex = chunks[ci].Index
				best.Score = score
			}
		}

		if segmentHit {
			matches = append(matches, best)
		}
	}

	matchedChunks := 0
	for _, ci := range candidates {
		if chunks[ci].Matched {
			matchedChunks++
		}
	}

	precision := float64(matchedChunks) / float64(len(candidates))
	recall := float64(hitCount) / float64(len(segments))
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	metrics := types.RagMetrics{
		Precision:     precision,
		Recall:        recall,
		F1:            f1,
		HitRate:       recall,
		HitCount:      hitCount,
		TotalExpected: len(segments),
		TotalChunks:   len(candidates),
	}

	a.logger.Debug("retrieval evaluated",
		zap.Int("segments", len(segments)),
		zap.Int("chunks", len(candidates)),
		zap.Int("hits", hitCount),
		zap.Float64("precision", precision),
		zap.Float64("recall", recall),
		zap.Any("matches", matches))

	return metrics.HitRate > 0, metrics
}

// evaluateWholeText 不拆段落，直接用原始预期文本对全部片段取最佳分数.
// 命中时各项指标记为 1，未命中记为 0.
func (a *Aggregator) evaluateWholeText(chunks []types.RetrievalChunk, expectedText string, opts EvalOptions) (bool, types.RagMetrics) {
	best := 0.0
	for _, c := range chunks {
		if c.Content == "" {
			continue
		}
		if score := Similarity(c.Content, expectedText); score > best {
			best = score
		}
	}

	// best 为 0 说明没有任何可比内容（空白预期/无公共字符），
	// 即使阈值为 0 也不算命中
	isHit := best > 0 && best >= opts.Threshold
	v := 0.0
	hits := 0
	if isHit {
		v = 1.0
		hits = 1
	}
	return isHit, types.RagMetrics{
		Precision:     v,
		Recall:        v,
		F1:            v,
		HitRate:       v,
		HitCount:      hits,
		TotalExpected: 1,
		TotalChunks:   len(chunks),
		Note:          "整体最佳匹配模式",
	}
}
