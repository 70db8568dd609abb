package domain

import (
	"encoding/json"
	"time"
)

const (
	StatusProcessed = "processed"
	StatusExcluded  = "excluded"
	StatusFailed    = "failed"
)

const (
	ErrCodeFetchFailed   = "fetch_failed"
	ErrCodeParseFailed   = "parse_failed"
	ErrCodeIOFailed      = "io_failed"
	ErrCodeRunFailed     = "run_failed"
	ErrCodeConfigInvalid = "config_invalid"
)

// RunReport 是对外稳定输出（report.json / stdout JSON）的结构。
type RunReport struct {
	Path    string `json:"path"`
	BaseURL string `json:"base_url"`

	SkipDetails bool `json:"skip_details"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Pages     int `json:"pages"`
	Found     int `json:"found"`
	Processed int `json:"processed"`
	Excluded  int `json:"excluded"`
	Failed    int `json:"failed"`
	Events    int `json:"events"`
}

// ItemResult 对应一部影片的处理结果。
// Title=="" 的条目是合成条目（run 级失败 / 空结果），不对应具体影片。
type ItemResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Countries  []string `json:"countries"`
	Showtimes  int      `json:"showtimes"`
	EventStart string   `json:"event_start"` // RFC3339；未生成事件时为空
}

// Finalize 做两件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) summary 的状态计数由 items 计算得出（Pages/Found/Events 由执行层填写）
//
// items 保持发现顺序（即跨页首见顺序），不做排序：该顺序本身就是确定的，
// 且与产物 calendar.ics 中事件的顺序一致，更易对照。
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	s := r.Summary
	s.Processed, s.Excluded, s.Failed = 0, 0, 0
	for _, it := range r.Items {
		switch it.Status {
		case StatusProcessed:
			s.Processed++
		case StatusExcluded:
			s.Excluded++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// RunFailed 判断是否存在 run 级失败（合成条目；区别于单部影片的失败）。
// main 据此决定退出码：单条失败不影响退出码，run 级失败必须非零退出。
func (r *RunReport) RunFailed() bool {
	for _, it := range r.Items {
		if it.Title == "" && it.Status == StatusFailed {
			return true
		}
	}
	return false
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
