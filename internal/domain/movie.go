package domain

import (
	"strings"
	"time"
)

// MovieSummary 是从排片列表页提取出的单部影片记录（最小可用集）。
//
// 约束：
// - Title 是唯一身份键（提取阶段已过滤掉长度 ≤3 的噪音文本）
// - Times 内的时间均为规范化的 "HH:MM"（零填充、去重）
// - Countries / NearestShowDate 在详情富化前保持空值
type MovieSummary struct {
	Title     string
	DetailURL string // 详情页绝对 URL；可能为空

	Times     []string
	Countries []string

	// NearestShowDate 为零值表示“排片日历未给出可用日期”。
	// 只有日期部分有意义（时间恒为 00:00）。
	NearestShowDate time.Time
}

// HasShowDate 判断排片日历是否给出了可用日期。
func (m *MovieSummary) HasShowDate() bool { return !m.NearestShowDate.IsZero() }

// Collection 是跨页累计的影片集合。
//
// 不变量：
// - Title 唯一：同名影片后出现者被丢弃（首见数据优先）
// - 顺序 = 跨页首见顺序（不排序，保证可复现）
type Collection struct {
	items   []*MovieSummary
	byTitle map[string]struct{}
}

func NewCollection() *Collection {
	return &Collection{byTitle: make(map[string]struct{}, 64)}
}

// Add 把 m 并入集合；若 Title 为空或已存在则丢弃并返回 false。
// 返回 true 表示这是一个新标题。
func (c *Collection) Add(m *MovieSummary) bool {
	if m == nil {
		return false
	}
	title := strings.TrimSpace(m.Title)
	if title == "" {
		return false
	}
	if _, ok := c.byTitle[title]; ok {
		return false
	}
	c.byTitle[title] = struct{}{}
	c.items = append(c.items, m)
	return true
}

func (c *Collection) Len() int { return len(c.items) }

// Items 返回首见顺序的内部切片；元素是指针，富化阶段原地修改。
func (c *Collection) Items() []*MovieSummary { return c.items }

// Truncate 把集合截断到最多 max 条（保留最早发现的）。
// max <= 0 表示不限制。
func (c *Collection) Truncate(max int) {
	if max <= 0 || len(c.items) <= max {
		return
	}
	for _, m := range c.items[max:] {
		delete(c.byTitle, strings.TrimSpace(m.Title))
	}
	c.items = c.items[:max]
}
