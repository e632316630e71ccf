package textmatch

import (
	"strings"

	"github.com/BaSui01/ragcheck/types"
)

// DefaultSeparators 是预期段落的默认分隔符集合：
// 三种常见的段落定界方式，可通过配置追加自定义分隔符.
var DefaultSeparators = []string{"---", "|||", "\n\n"}

// ParseExpectedSegments 将预期参考内容拆分为可独立评分的段落.
//
// 从完整文本开始，依次用每个分隔符切分当前所有元素，去除首尾空白并丢弃
// 空串。若全部分隔符处理后仍只有不超过一个元素（没有任何分隔符生效），
// 则回退为只含原始文本（去空白）的单元素列表。空输入返回 nil.
func ParseExpectedSegments(text string, separators []string) []types.ExpectedSegment {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}

	segments := []string{text}
	for _, sep := range separators {
		next := make([]string, 0, len(segments))
		for _, seg := range segments {
			for _, part := range strings.Split(seg, sep) {
				part = strings.TrimSpace(part)
				if part != "" {
					next = append(next, part)
				}
			}
		}
		segments = next
	}

	// 单段与多段的回退语义：没有分隔符生效时返回原始文本本身
	if len(segments) <= 1 {
		segments = []string{trimmed}
	}

	out := make([]types.ExpectedSegment, len(segments))
	for i, s := range segments {
		out[i] = types.ExpectedSegment{Index: i, Text: s}
	}
	return out
}
