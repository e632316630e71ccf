package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/ragcheck/validator"
)

// writeResults 按输入顺序导出全部记录.
// 预期段落拆成独立列，列数取所有行的最大段落数.
func writeResults(path string, report *validator.Report, separators []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	// Excel 识别 UTF-8 需要 BOM
	if _, err := f.WriteString("\uFEFF"); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	maxSegments := 0
	segmentsByRow := make([][]string, len(report.Records))
	for i, rec := range report.Records {
		segs := validator.SplitSegmentsForExport(rec.ExpectedSegments, separators)
		segmentsByRow[i] = segs
		if len(segs) > maxSegments {
			maxSegments = len(segs)
		}
	}

	header := []string{
		"id", "questioner", "question", "status", "reply", "conversation_id",
		"citation_hit", "file_correct",
		"precision", "recall", "f1_score", "hit_rate",
		"hit_count", "total_expected", "total_chunks", "note",
		"expected_files", "matched_files", "unmatched_files",
	}
	for i := 1; i <= maxSegments; i++ {
		header = append(header, fmt.Sprintf("expected_segment_%d", i))
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, rec := range report.Records {
		row := []string{
			rec.ID,
			rec.Questioner,
			rec.Question,
			string(rec.Status),
			rec.Reply,
			rec.ConversationID,
			formatBool(rec.CitationHit),
			formatBool(rec.FileCorrect),
			formatRatio(rec.Metrics.Precision),
			formatRatio(rec.Metrics.Recall),
			formatRatio(rec.Metrics.F1),
			formatRatio(rec.Metrics.HitRate),
			strconv.Itoa(rec.Metrics.HitCount),
			strconv.Itoa(rec.Metrics.TotalExpected),
			strconv.Itoa(rec.Metrics.TotalChunks),
			rec.Metrics.Note,
			rec.ExpectedFiles,
			strings.Join(rec.FileMatch.Matched, "\n"),
			strings.Join(rec.FileMatch.Unmatched, "\n"),
		}
		for j := 0; j < maxSegments; j++ {
			if j < len(segmentsByRow[i]) {
				row = append(row, segmentsByRow[i][j])
			} else {
				row = append(row, "")
			}
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	w.Flush()
	return w.Error()
}

// printSummary 在运行结束后向终端打印聚合统计.
func printSummary(report *validator.Report) {
	s := report.Stats
	fmt.Printf(`
========== 验证结果汇总 ==========
运行 ID:       %s
耗时:          %s
总行数:        %d
跳过:          %d
成功:          %d
补偿成功:      %d
失败:          %d
中断:          %d
引用命中行:    %d
文件全中行:    %d
平均精确率:    %.4f
平均召回率:    %.4f
平均 F1:       %.4f
平均命中率:    %.4f
预期段落总数:  %d
命中段落总数:  %d
检索片段总数:  %d
==================================
`,
		report.RunID,
		report.Duration.Round(time.Millisecond),
		s.TotalRows, s.SkippedRows,
		s.SucceededRows, s.RetrySucceededRows, s.FailedRows, s.InterruptedRows,
		s.CitationHitRows, s.FileMatchRows,
		s.MeanPrecision, s.MeanRecall, s.MeanF1, s.MeanHitRate,
		s.TotalExpectedSegments, s.TotalHitSegments, s.TotalRetrievedChunks,
	)
}

func formatBool(b bool) string {
	if b {
		return "是"
	}
	return "否"
}

func formatRatio(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
