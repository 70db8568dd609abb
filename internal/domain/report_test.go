package domain

import (
	"testing"
	"time"
)

func TestFinalizeRecountsAndUTC(t *testing.T) {
	loc := time.FixedZone("MSK", 3*3600)
	rr := RunReport{
		StartedAt:  time.Date(2025, 3, 10, 15, 0, 0, 0, loc),
		FinishedAt: time.Date(2025, 3, 10, 15, 5, 0, 0, loc),
		Summary:    ReportSummary{Processed: 99}, // 必须被重算覆盖
		Items: []ItemResult{
			{Title: "a", Status: StatusProcessed},
			{Title: "b", Status: StatusExcluded},
			{Title: "c", Status: StatusProcessed},
			{Status: StatusFailed, ErrorCode: ErrCodeRunFailed},
		},
	}
	rr.Finalize()

	s := rr.Summary
	if s.Processed != 2 || s.Excluded != 1 || s.Failed != 1 {
		t.Fatalf("状态计数错误：%+v", s)
	}
	if rr.StartedAt.Location() != time.UTC || rr.StartedAt.Hour() != 12 {
		t.Fatalf("时间未转为 UTC：%v", rr.StartedAt)
	}
	// items 保持原有顺序。
	if rr.Items[0].Title != "a" || rr.Items[2].Title != "c" {
		t.Fatalf("条目顺序被改动：%+v", rr.Items)
	}
}

func TestRunFailed(t *testing.T) {
	rr := RunReport{Items: []ItemResult{
		{Title: "фильм", Status: StatusFailed, ErrorCode: ErrCodeFetchFailed},
	}}
	// 单部影片失败不是 run 级失败。
	if rr.RunFailed() {
		t.Fatal("普通条目失败不应判为 run 级失败")
	}

	rr.Items = append(rr.Items, ItemResult{Status: StatusFailed, ErrorCode: ErrCodeIOFailed})
	if !rr.RunFailed() {
		t.Fatal("合成失败条目应判为 run 级失败")
	}
}
