package textmatch

import (
	"strings"

	"github.com/BaSui01/ragcheck/types"
)

// Mode 选择相似度算法.
type Mode string

const (
	// ModeStandard 词面相似度比值：2M/(len(a)+len(b))，M 为贪心最长公共
	// 子串递归匹配得到的非重叠匹配字符总数.
	ModeStandard Mode = "standard"
	// ModeCharacterRatio 用同样的匹配字符数 M，但按本次查询全部预期段落
	// 的长度之和归一化，奖励各自覆盖部分段落的片段.
	ModeCharacterRatio Mode = "character_ratio"
)

// Scorer 对一对文本计算相似度分数，分数恒在 [0,1] 区间.
type Scorer struct {
	mode Mode
	// character_ratio 模式的归一化分母：本次查询所有预期段落
	// （小写、去空白后）的字符总数
	totalExpectedRunes int
}

// NewScorer 创建相似度评分器。segments 仅在 character_ratio 模式下参与
// 归一化，standard 模式可传 nil.
func NewScorer(mode Mode, segments []types.ExpectedSegment) *Scorer {
	total := 0
	for _, seg := range segments {
		total += len([]rune(normalize(seg.Text)))
	}
	if mode == "" {
		mode = ModeStandard
	}
	return &Scorer{mode: mode, totalExpectedRunes: total}
}

// Mode 返回评分器使用的算法.
func (s *Scorer) Mode() Mode { return s.mode }

// Score 计算片段与预期段落的相似度.
func (s *Scorer) Score(chunk, segment string) float64 {
	a := []rune(normalize(chunk))
	b := []rune(normalize(segment))
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	switch s.mode {
	case ModeCharacterRatio:
		if s.totalExpectedRunes == 0 {
			return 0.0
		}
		ratio := float64(matchedRunes(a, b)) / float64(s.totalExpectedRunes)
		if ratio > 1.0 {
			ratio = 1.0
		}
		return ratio
	default:
		return 2.0 * float64(matchedRunes(a, b)) / float64(len(a)+len(b))
	}
}

// Similarity 是 standard 模式的便捷入口，等价于
// NewScorer(ModeStandard, nil).Score(a, b).
func Similarity(a, b string) float64 {
	return (&Scorer{mode: ModeStandard}).Score(a, b)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// matchedRunes 统计两段文本的非重叠匹配字符总数：
// 找到最长公共连续子串后，对其左右两侧的剩余部分递归求和.
func matchedRunes(a, b []rune) int {
	ai, bi, size := longestCommonRun(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchedRunes(a[:ai], b[:bi])
	total += matchedRunes(a[ai+size:], b[bi+size:])
	return total
}

// longestCommonRun 返回 a、b 最长公共连续子串的起点与长度.
// 长度相同时取最先出现的一个（先 a 后 b 的顺序）.
func longestCommonRun(a, b []rune) (ai, bi, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 0; i < len(a); i++ {
		for j := 0; j < len(b); j++ {
			if a[i] == b[j] {
				cur[j+1] = prev[j] + 1
				if cur[j+1] > size {
					size = cur[j+1]
					ai = i - size + 1
					bi = j - size + 1
				}
			} else {
				cur[j+1] = 0
			}
		}
		prev, cur = cur, prev
	}
	return ai, bi, size
}
