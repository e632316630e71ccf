package validator

import (
	"time"

	"github.com/BaSui01/ragcheck/textmatch"
	"github.com/BaSui01/ragcheck/types"
)

// Statistics 一轮运行的聚合统计.
// 均值按实际派发过的行（成功/补偿成功/失败）计算，跳过与中断行不参与.
type Statistics struct {
	TotalRows          int `json:"total_rows"`
	SkippedRows        int `json:"skipped_rows"`
	SucceededRows      int `json:"succeeded_rows"`
	RetrySucceededRows int `json:"retry_succeeded_rows"`
	FailedRows         int `json:"failed_rows"`
	InterruptedRows    int `json:"interrupted_rows"`

	CitationHitRows int `json:"citation_hit_rows"`
	FileMatchRows   int `json:"file_match_rows"`

	MeanPrecision float64 `json:"mean_precision"`
	MeanRecall    float64 `json:"mean_recall"`
	MeanF1        float64 `json:"mean_f1"`
	MeanHitRate   float64 `json:"mean_hit_rate"`

	// 段落级累计
	TotalExpectedSegments int `json:"total_expected_segments"`
	TotalHitSegments      int `json:"total_hit_segments"`
	TotalRetrievedChunks  int `json:"total_retrieved_chunks"`
}

// Report 验证运行的完整产出：按输入顺序的全部记录与聚合统计.
// 本包不做任何格式化，渲染与导出交给输出方.
type Report struct {
	RunID     string                    `json:"run_id"`
	StartTime time.Time                 `json:"start_time"`
	EndTime   time.Time                 `json:"end_time"`
	Duration  time.Duration             `json:"duration"`
	Records   []*types.ValidationRecord `json:"records"`
	Stats     Statistics                `json:"stats"`
}

func buildReport(runID string, records []*types.ValidationRecord, start, end time.Time) *Report {
	stats := Statistics{TotalRows: len(records)}

	var sumPrecision, sumRecall, sumF1, sumHitRate float64
	processed := 0

	for _, rec := range records {
		switch rec.Status {
		case types.StatusSkipped:
			stats.SkippedRows++
			continue
		case types.StatusInterrupted:
			stats.InterruptedRows++
			continue
		case types.StatusSucceeded:
			stats.SucceededRows++
		case types.StatusRetrySucceeded:
			stats.RetrySucceededRows++
		default:
			stats.FailedRows++
		}

		processed++
		if rec.CitationHit {
			stats.CitationHitRows++
		}
		if rec.FileCorrect {
			stats.FileMatchRows++
		}
		sumPrecision += rec.Metrics.Precision
		sumRecall += rec.Metrics.Recall
		sumF1 += rec.Metrics.F1
		sumHitRate += rec.Metrics.HitRate

		stats.TotalExpectedSegments += rec.Metrics.TotalExpected
		stats.TotalHitSegments += rec.Metrics.HitCount
		stats.TotalRetrievedChunks += rec.Metrics.TotalChunks
	}

	if processed > 0 {
		stats.MeanPrecision = sumPrecision / float64(processed)
		stats.MeanRecall = sumRecall / float64(processed)
		stats.MeanF1 = sumF1 / float64(processed)
		stats.MeanHitRate = sumHitRate / float64(processed)
	}

	return &Report{
		RunID:     runID,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		Records:   records,
		Stats:     stats,
	}
}

// SplitSegmentsForExport 供输出方把原始段落文本拆成独立列使用，
// 与评估时的解析逻辑保持一致.
func SplitSegmentsForExport(text string, separators []string) []string {
	segments := textmatch.ParseExpectedSegments(text, separators)
	out := make([]string, len(segments))
	for i, s := range segments {
		out[i] = s.Text
	}
	return out
}
