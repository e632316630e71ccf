package textmatch

import (
	"strings"

	"github.com/BaSui01/ragcheck/types"
)

// ExtractExpectedFiles 从预期文件文本中提取文件标识列表：
// 先按换行、再按逗号切分，去空白、丢弃空串并按首次出现顺序去重.
func ExtractExpectedFiles(expectedText string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, line := range strings.Split(expectedText, "\n") {
		for _, field := range strings.Split(line, ",") {
			id := strings.TrimSpace(field)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// ContainsKeywords 检查文本是否包含任一关键词.
// keywords 为逗号分隔列表；比较不区分大小写。空关键词列表视为不包含.
func ContainsKeywords(text, keywords string) bool {
	lower := strings.ToLower(text)
	for _, kw := range strings.Split(keywords, ",") {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// MatchCitationFiles 检查引用文件是否覆盖全部预期文件.
//
// 匹配是精确的字符串成员判断（模糊比对只用于文本内容评分，不用于
// 文件标识）。isCorrect 要求每个预期标识都出现在引用集合中；部分覆盖
// 会反映在结果里但不算正确。空引用或空预期 → 不正确、零计数.
func MatchCitationFiles(cited []types.FileCitation, expectedText string) (bool, types.FileMatchResult) {
	expected := ExtractExpectedFiles(expectedText)
	if len(cited) == 0 || len(expected) == 0 {
		return false, types.FileMatchResult{}
	}

	citedSet := make(map[string]struct{}, len(cited))
	for _, c := range cited {
		if c.Filename != "" {
			citedSet[c.Filename] = struct{}{}
		}
	}

	result := types.FileMatchResult{TotalExpected: len(expected)}
	for _, id := range expected {
		if _, ok := citedSet[id]; ok {
			result.Matched = append(result.Matched, id)
		} else {
			result.Unmatched = append(result.Unmatched, id)
		}
	}
	result.TotalMatched = len(result.Matched)
	result.AllMatched = result.TotalMatched == result.TotalExpected

	return result.AllMatched, result
}
