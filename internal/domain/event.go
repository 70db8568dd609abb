package domain

import "time"

// CalendarEvent 是输出单元：一部合格影片对应一个日历事件。
//
// 约束：
// - End 恒等于 Start + 2 小时（由物化阶段保证）
// - Description 为多行文本（由固定顺序的片段拼接）
type CalendarEvent struct {
	Name        string
	Start       time.Time
	End         time.Time
	Description string
	URL         string // 详情页 URL；可能为空
}
