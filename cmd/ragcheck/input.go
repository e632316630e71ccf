package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/BaSui01/ragcheck/types"
)

// 输入 CSV 的列名映射.
// 同时接受英文列名与旧版验证表的中文列名.
var columnAliases = map[string][]string{
	"id":                {"id", "编号", "編號"},
	"questioner":        {"questioner", "提问者", "提問者"},
	"question":          {"question", "问题描述", "問題描述"},
	"expected_answer":   {"expected_answer", "预期答案", "預期答案"},
	"expected_files":    {"expected_files", "应参考的文件", "應參考的文件"},
	"expected_segments": {"expected_segments", "应参考的文件段落", "應參考的文件段落"},
	"validate":          {"validate", "是否验证", "是否驗證"},
}

var requiredColumns = []string{"questioner", "question"}

// loadRecords 从 CSV 读入全部验证行.
// 必要列缺失在任何请求派发之前即返回 INVALID_INPUT.
func loadRecords(path string) ([]*types.ValidationRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidInput,
			fmt.Sprintf("打开输入文件失败: %v", err))
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // 行尾空列不视为错误

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, types.NewError(types.ErrInvalidInput,
			fmt.Sprintf("解析 CSV 失败: %v", err)).WithCause(err)
	}
	if len(rows) == 0 {
		return nil, types.NewError(types.ErrInvalidInput, "输入文件为空")
	}

	index, err := resolveColumns(rows[0])
	if err != nil {
		return nil, err
	}

	records := make([]*types.ValidationRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec := &types.ValidationRecord{
			ID:               cell(row, index["id"]),
			Questioner:       cell(row, index["questioner"]),
			Question:         cell(row, index["question"]),
			ExpectedAnswer:   cell(row, index["expected_answer"]),
			ExpectedFiles:    cell(row, index["expected_files"]),
			ExpectedSegments: cell(row, index["expected_segments"]),
			ShouldValidate:   parseValidateFlag(cell(row, index["validate"])),
			Status:           types.StatusPending,
		}
		if rec.ID == "" {
			rec.ID = fmt.Sprintf("%d", i+1)
		}
		if rec.Questioner == "" || rec.Question == "" {
			return nil, types.NewError(types.ErrInvalidInput,
				fmt.Sprintf("第 %d 行缺少提问者或问题内容", i+2))
		}
		records = append(records, rec)
	}
	return records, nil
}

// resolveColumns 解析表头，返回逻辑列名到列下标的映射.
// 未出现的可选列下标为 -1.
func resolveColumns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(columnAliases))
	for name := range columnAliases {
		index[name] = -1
	}
	for i, raw := range header {
		// 去除 BOM 与空白后按别名匹配
		h := strings.TrimSpace(strings.TrimPrefix(raw, "\uFEFF"))
		for name, aliases := range columnAliases {
			for _, alias := range aliases {
				if strings.EqualFold(h, alias) {
					index[name] = i
				}
			}
		}
	}
	for _, name := range requiredColumns {
		if index[name] < 0 {
			return nil, types.NewError(types.ErrInvalidInput,
				fmt.Sprintf("输入缺少必要列: %s", name))
		}
	}
	return index, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseValidateFlag 解析是否验证标记.
// 列缺失或留空默认验证，明确的否定值才会跳过.
func parseValidateFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "no", "n", "否":
		return false
	}
	return true
}
