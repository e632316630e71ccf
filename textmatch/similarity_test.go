package textmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BaSui01/ragcheck/types"
)

func TestSimilarity(t *testing.T) {
	t.Run("identical strings score 1.0", func(t *testing.T) {
		assert.Equal(t, 1.0, Similarity("hello world", "hello world"))
	})

	t.Run("completely different strings score 0.0", func(t *testing.T) {
		assert.Equal(t, 0.0, Similarity("abc", "xyz"))
	})

	t.Run("empty input scores 0.0", func(t *testing.T) {
		assert.Equal(t, 0.0, Similarity("", "hello"))
		assert.Equal(t, 0.0, Similarity("hello", ""))
		assert.Equal(t, 0.0, Similarity("", ""))
	})

	t.Run("comparison ignores case and surrounding whitespace", func(t *testing.T) {
		assert.Equal(t, 1.0, Similarity("  Hello World  ", "hello world"))
	})

	t.Run("partial overlap scores between 0 and 1", func(t *testing.T) {
		score := Similarity("hello world", "hello there")
		assert.Greater(t, score, 0.0)
		assert.Less(t, score, 1.0)
	})

	t.Run("score is symmetric", func(t *testing.T) {
		a, b := "检索质量验证", "验证检索质量"
		assert.InDelta(t, Similarity(a, b), Similarity(b, a), 1e-12)
	})

	t.Run("matches multibyte text by runes not bytes", func(t *testing.T) {
		// 4 个字符里 3 个连续匹配：2*3/(4+4) = 0.75
		score := Similarity("退货流程", "退货流新")
		assert.InDelta(t, 0.75, score, 1e-9)
	})

	t.Run("non overlapping repeats still accumulate", func(t *testing.T) {
		// 最长公共子串 "ab"，两侧剩余再各匹配出 "ab" 与 "b"
		score := Similarity("abab", "abab")
		assert.Equal(t, 1.0, score)
	})
}

func TestScorerCharacterRatio(t *testing.T) {
	segments := []types.ExpectedSegment{
		{Index: 0, Text: "abcde"},
		{Index: 1, Text: "fghij"},
	}

	t.Run("normalizes by total expected length", func(t *testing.T) {
		scorer := NewScorer(ModeCharacterRatio, segments)
		// 片段完整覆盖第一段 5 字符，分母为 10
		score := scorer.Score("abcde", "abcde")
		assert.InDelta(t, 0.5, score, 1e-9)
	})

	t.Run("clamps ratio at 1.0", func(t *testing.T) {
		scorer := NewScorer(ModeCharacterRatio, segments[:1])
		// 匹配字符数等于分母时恰为 1，不会越界
		score := scorer.Score("abcde", "abcde")
		assert.Equal(t, 1.0, score)
	})

	t.Run("zero denominator scores 0.0", func(t *testing.T) {
		scorer := NewScorer(ModeCharacterRatio, nil)
		assert.Equal(t, 0.0, scorer.Score("abc", "abc"))
	})

	t.Run("empty mode falls back to standard", func(t *testing.T) {
		scorer := NewScorer("", nil)
		assert.Equal(t, ModeStandard, scorer.Mode())
		assert.Equal(t, 1.0, scorer.Score("same", "same"))
	})
}

func TestLongestCommonRun(t *testing.T) {
	t.Run("finds longest run position and size", func(t *testing.T) {
		ai, bi, size := longestCommonRun([]rune("xxhelloyy"), []rune("zhelloz"))
		assert.Equal(t, 2, ai)
		assert.Equal(t, 1, bi)
		assert.Equal(t, 5, size)
	})

	t.Run("ties resolve to earliest occurrence", func(t *testing.T) {
		ai, bi, size := longestCommonRun([]rune("abxcd"), []rune("ab-cd"))
		assert.Equal(t, 0, ai)
		assert.Equal(t, 0, bi)
		assert.Equal(t, 2, size)
	})

	t.Run("no common run returns zero size", func(t *testing.T) {
		_, _, size := longestCommonRun([]rune("abc"), []rune("xyz"))
		assert.Equal(t, 0, size)
	})
}
