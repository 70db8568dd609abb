package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/John-Robertt/kinocal/internal/domain"
)

const (
	// defaultEventHour/Minute：没有任何场次时间时的默认开场时刻。
	defaultEventHour   = 19
	defaultEventMinute = 0

	// eventDuration 是固定的事件时长（站点不提供片长）。
	eventDuration = 2 * time.Hour
)

// 描述里最多列出的国家数 / 场次数（完整列表对日历阅读是噪音）。
const (
	descMaxCountries = 3
	descMaxTimes     = 5
)

// Materialize 把富化后的影片摘要转成日历事件。
//
// 规则：
// - 任一国家命中排除列表（区分大小写的精确匹配）则返回 nil
// - 日期：排片日历给出的最近日期，缺失时为明天
// - 时刻：第一个场次时间，缺失或不可解析时为 19:00
// - 结束 = 开始 + 2 小时
// - 描述各行的存在与顺序固定（见实现），时区按本地时间
func Materialize(m *domain.MovieSummary, exclude []string, now time.Time) *domain.CalendarEvent {
	for _, c := range m.Countries {
		for _, x := range exclude {
			if c == x {
				return nil
			}
		}
	}

	date := m.NearestShowDate
	if !m.HasShowDate() {
		date = now.AddDate(0, 0, 1)
	}

	hour, minute := defaultEventHour, defaultEventMinute
	if len(m.Times) > 0 {
		if t, err := time.Parse("15:04", m.Times[0]); err == nil {
			hour, minute = t.Hour(), t.Minute()
		}
	}

	start := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.Local)
	end := start.Add(eventDuration)

	lines := []string{"Фильм: " + m.Title}
	if len(m.Countries) > 0 {
		lines = append(lines, "Страна: "+strings.Join(headN(m.Countries, descMaxCountries), ", "))
	}
	if len(m.Times) > 0 {
		lines = append(lines, "Сеансы: "+strings.Join(headN(m.Times, descMaxTimes), ", "))
	}
	if m.HasShowDate() {
		lines = append(lines, "Ближайший показ: "+m.NearestShowDate.Format("02.01.2006"))
	}
	lines = append(lines, fmt.Sprintf("Дата события: %s", start.Format("02.01.2006 15:04")))
	if m.DetailURL != "" {
		lines = append(lines, "Источник: "+m.DetailURL)
	}

	return &domain.CalendarEvent{
		Name:        m.Title,
		Start:       start,
		End:         end,
		Description: strings.Join(lines, "\n"),
		URL:         m.DetailURL,
	}
}

func headN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
