package model

// PipelineMetrics are the whole-run counters reported after every run,
// including cancelled partial runs.
type PipelineMetrics struct {
	RowsTotal         int `json:"rows_total"`
	ProcessedRows     int `json:"processed_rows"`
	EnrichedRows      int `json:"enriched_rows"`
	VerifiedRows      int `json:"verified_rows"`
	IssuesFound       int `json:"issues_found"`
	AdapterFailures   int `json:"adapter_failures"`
	SanityIssues      int `json:"sanity_issues"`
	QualityRejections int `json:"quality_rejections"`
	QualityIssues     int `json:"quality_issues"`
}
