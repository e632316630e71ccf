package types

// RecordStatus 表示一条验证记录的终态.
type RecordStatus string

const (
	StatusPending        RecordStatus = "pending"         // 尚未处理
	StatusSkipped        RecordStatus = "skipped"         // 未标记验证，直接跳过
	StatusSucceeded      RecordStatus = "succeeded"       // 主流程成功
	StatusRetrySucceeded RecordStatus = "retry_succeeded" // 补偿重试后成功
	StatusFailed         RecordStatus = "failed"          // 两轮处理后仍然失败
	StatusInterrupted    RecordStatus = "interrupted"     // 运行被取消，未发出请求
)

// RetrievalChunk 是推理服务返回的一个检索文本片段.
// Matched 用于精确率统计：任一预期段落命中该片段时置位.
type RetrievalChunk struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
	Matched bool   `json:"matched"`
}

// ExpectedSegment 是预期参考内容拆分出的一个可独立评分的段落.
type ExpectedSegment struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// FileCitation 是推理服务返回的一个文件级引用.
type FileCitation struct {
	ID       string `json:"id,omitempty"`
	Filename string `json:"filename"`
}

// RagMetrics 汇总一次查询的检索质量指标.
// 不变式：Recall == HitRate；所有比率均在 [0,1] 区间内.
// HitRate 与 Recall 取值相同，作为独立字段保留（报表沿用两个名字）.
type RagMetrics struct {
	Precision     float64 `json:"precision"`
	Recall        float64 `json:"recall"`
	F1            float64 `json:"f1_score"`
	HitRate       float64 `json:"hit_rate"`
	HitCount      int     `json:"hit_count"`
	TotalExpected int     `json:"total_expected"`
	TotalChunks   int     `json:"total_chunks"`
	// Note 在无片段/无预期内容等退化情形下记录原因
	Note string `json:"note,omitempty"`
}

// FileMatchResult 汇总文件级引用的精确匹配结果.
// 不变式：AllMatched ⇔ Unmatched 为空 ⇔ TotalMatched == TotalExpected.
type FileMatchResult struct {
	TotalExpected int      `json:"total_expected"`
	TotalMatched  int      `json:"total_matched"`
	Matched       []string `json:"matched,omitempty"`
	Unmatched     []string `json:"unmatched,omitempty"`
	AllMatched    bool     `json:"all_matched"`
}

// ValidationRecord 是一条待验证的问答记录.
// 加载时创建；运行期间只由持有该提问者分组的 worker 写入，
// 不会被多个 worker 并发修改.
type ValidationRecord struct {
	// 输入字段（由输入方提供）
	ID               string `json:"id"`
	Questioner       string `json:"questioner"`
	Question         string `json:"question"`
	ExpectedAnswer   string `json:"expected_answer,omitempty"`
	ExpectedSegments string `json:"expected_segments,omitempty"` // 原始段落文本，按分隔符拆分
	ExpectedFiles    string `json:"expected_files,omitempty"`    // 换行/逗号分隔的文件标识
	ShouldValidate   bool   `json:"should_validate"`

	// 运行期填充
	Reply          string           `json:"reply,omitempty"`
	ConversationID string           `json:"conversation_id,omitempty"`
	Chunks         []RetrievalChunk `json:"chunks,omitempty"`
	Citations      []FileCitation   `json:"citations,omitempty"`

	// 验证结果
	CitationHit bool            `json:"citation_hit"`
	FileCorrect bool            `json:"file_correct"`
	Metrics     RagMetrics      `json:"metrics"`
	FileMatch   FileMatchResult `json:"file_match"`
	Status      RecordStatus    `json:"status"`
}

// Resolved 报告记录是否已有成功终态（跳过也算已解决）.
func (r *ValidationRecord) Resolved() bool {
	switch r.Status {
	case StatusSucceeded, StatusRetrySucceeded, StatusSkipped:
		return true
	}
	return false
}
