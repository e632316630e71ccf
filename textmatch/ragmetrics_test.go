package textmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BaSui01/ragcheck/types"
)

func chunksOf(contents ...string) []types.RetrievalChunk {
	out := make([]types.RetrievalChunk, len(contents))
	for i, c := range contents {
		out[i] = types.RetrievalChunk{Index: i, Content: c}
	}
	return out
}

func TestAggregatorEvaluate(t *testing.T) {
	agg := NewAggregator(nil)

	t.Run("no chunks yields zero metrics with note", func(t *testing.T) {
		hit, m := agg.Evaluate(nil, "预期内容", EvalOptions{Threshold: 0.3})
		assert.False(t, hit)
		assert.Equal(t, 0.0, m.Precision)
		assert.Equal(t, 0.0, m.Recall)
		assert.NotEmpty(t, m.Note)
	})

	t.Run("empty expected text yields zero metrics with note", func(t *testing.T) {
		hit, m := agg.Evaluate(chunksOf("内容"), "", EvalOptions{Threshold: 0.3})
		assert.False(t, hit)
		assert.NotEmpty(t, m.Note)
	})

	t.Run("one of two segments matched by one of two chunks", func(t *testing.T) {
		chunks := chunksOf("第一段参考内容", "毫不相关的东西")
		hit, m := agg.Evaluate(chunks, "第一段参考内容\n\n完全找不到的段落文本",
			EvalOptions{Threshold: 0.9})

		assert.True(t, hit)
		assert.Equal(t, 1, m.HitCount)
		assert.Equal(t, 2, m.TotalExpected)
		assert.Equal(t, 2, m.TotalChunks)
		assert.InDelta(t, 0.5, m.Precision, 1e-9)
		assert.InDelta(t, 0.5, m.Recall, 1e-9)
		assert.InDelta(t, 0.5, m.F1, 1e-9)
		assert.Equal(t, m.Recall, m.HitRate)
		assert.True(t, chunks[0].Matched)
		assert.False(t, chunks[1].Matched)
	})

	t.Run("zero threshold hits every segment", func(t *testing.T) {
		chunks := chunksOf("第一段参考内容", "别的")
		hit, m := agg.Evaluate(chunks, "第一段参考内容\n\n完全找不到的段落文本",
			EvalOptions{Threshold: 0.0})

		assert.True(t, hit)
		assert.Equal(t, 2, m.HitCount)
		assert.Equal(t, 1.0, m.Recall)
	})

	t.Run("first qualifying chunk wins per segment", func(t *testing.T) {
		// 两个片段都完整匹配同一段落，只有第一个被标记
		chunks := chunksOf("目标段落内容", "目标段落内容")
		hit, m := agg.Evaluate(chunks, "目标段落内容", EvalOptions{Threshold: 0.9})

		assert.True(t, hit)
		assert.Equal(t, 1, m.HitCount)
		assert.True(t, chunks[0].Matched)
		assert.False(t, chunks[1].Matched)
		assert.InDelta(t, 0.5, m.Precision, 1e-9)
	})

	t.Run("same chunk can satisfy multiple segments", func(t *testing.T) {
		chunks := chunksOf("共用段落")
		hit, m := agg.Evaluate(chunks, "共用段落---共用段落", EvalOptions{Threshold: 0.9})

		assert.True(t, hit)
		assert.Equal(t, 2, m.HitCount)
		assert.Equal(t, 1.0, m.Recall)
		assert.Equal(t, 1.0, m.Precision)
	})

	t.Run("top_k limits candidate chunks", func(t *testing.T) {
		chunks := chunksOf("不相关", "目标段落内容")
		hit, m := agg.Evaluate(chunks, "目标段落内容",
			EvalOptions{Threshold: 0.9, TopK: 1})

		assert.False(t, hit)
		assert.Equal(t, 0, m.HitCount)
		assert.Equal(t, 1, m.TotalChunks)
	})

	t.Run("empty chunk contents are excluded", func(t *testing.T) {
		chunks := chunksOf("", "目标段落内容")
		hit, m := agg.Evaluate(chunks, "目标段落内容", EvalOptions{Threshold: 0.9})

		assert.True(t, hit)
		assert.Equal(t, 1, m.TotalChunks)
	})

	t.Run("all chunks empty yields note", func(t *testing.T) {
		chunks := chunksOf("", "")
		hit, m := agg.Evaluate(chunks, "目标段落", EvalOptions{Threshold: 0.3})

		assert.False(t, hit)
		assert.Equal(t, 1, m.TotalExpected)
		assert.NotEmpty(t, m.Note)
	})

	t.Run("character_ratio mode rewards partial coverage", func(t *testing.T) {
		// 片段只覆盖两段之一，standard 模式下相对整段分数高，
		// character_ratio 模式按全部预期长度归一化后减半
		chunks := chunksOf("abcde")
		_, m := agg.Evaluate(chunks, "abcde---fghij",
			EvalOptions{Threshold: 0.4, Mode: ModeCharacterRatio})

		assert.Equal(t, 1, m.HitCount)
		assert.Equal(t, 2, m.TotalExpected)
	})

	t.Run("hit rate always equals recall", func(t *testing.T) {
		chunks := chunksOf("第一段", "第二段", "无关")
		_, m := agg.Evaluate(chunks, "第一段---第二段---第三段",
			EvalOptions{Threshold: 0.8})
		assert.Equal(t, m.Recall, m.HitRate)
	})
}

func TestEvaluateWholeText(t *testing.T) {
	agg := NewAggregator(nil)

	t.Run("best chunk above threshold marks hit with unit metrics", func(t *testing.T) {
		hit, m := agg.evaluateWholeText(chunksOf("目标内容", "别的"), "目标内容",
			EvalOptions{Threshold: 0.9})
		assert.True(t, hit)
		assert.Equal(t, 1.0, m.Precision)
		assert.Equal(t, 1.0, m.Recall)
		assert.Equal(t, 1, m.HitCount)
	})

	t.Run("best chunk below threshold marks miss with zero metrics", func(t *testing.T) {
		hit, m := agg.evaluateWholeText(chunksOf("毫不相关"), "目标内容",
			EvalOptions{Threshold: 0.9})
		assert.False(t, hit)
		assert.Equal(t, 0.0, m.HitRate)
		assert.Equal(t, 0, m.HitCount)
	})

	t.Run("whitespace-only expected text never hits even at zero threshold", func(t *testing.T) {
		hit, m := agg.Evaluate(chunksOf("有内容的片段"), "   \t  ",
			EvalOptions{Threshold: 0.0})
		assert.False(t, hit)
		assert.Equal(t, 0.0, m.HitRate)
		assert.Equal(t, 0, m.HitCount)
	})

	t.Run("zero best score never hits at zero threshold", func(t *testing.T) {
		hit, _ := agg.evaluateWholeText(chunksOf("abc"), "xyz",
			EvalOptions{Threshold: 0.0})
		assert.False(t, hit)
	})
}
