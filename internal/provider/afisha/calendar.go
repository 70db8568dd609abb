package afisha

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// parseScheduleCalendar 从详情页的排片日历挂件解析最近的场次日期。
//
// 规则：
// - 挂件选择器 first-match-wins；没有挂件返回零值
// - 只看可点击的日期链接（a.pdT6c）；禁用日期是 button，天然排除
// - “几号”取链接内的日号元素，月份从链接的 aria-label 里识别俄语月份词
// - 挂件只展示近期日期，不带年份：落在今天之前的日期视为跨年，滚动到下一年
// - 无法识别月份词时按当前月处理（挂件默认定位在当月视图）
// - 多个候选取最早的一个
func parseScheduleCalendar(doc *goquery.Document, now time.Time) time.Time {
	var widget *goquery.Selection
	for _, sel := range calendarWidgetSelectors {
		if w := doc.Find(sel).First(); w.Length() > 0 {
			widget = w
			break
		}
	}
	if widget == nil {
		return time.Time{}
	}

	var dates []time.Time
	widget.Find(activeDateSelector).Each(func(_ int, link *goquery.Selection) {
		day, err := strconv.Atoi(strings.TrimSpace(link.Find(dayNumberSelector).First().Text()))
		if err != nil || day < 1 || day > 31 {
			return
		}
		if d, ok := resolveCalendarDate(day, link.AttrOr("aria-label", ""), now); ok {
			dates = append(dates, d)
		}
	})
	if len(dates) == 0 {
		return time.Time{}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates[0]
}

// resolveCalendarDate 把（日号, aria-label, 当前时刻）组装成具体日期。
func resolveCalendarDate(day int, ariaLabel string, now time.Time) (time.Time, bool) {
	month, hasMonth := monthFromLabel(ariaLabel)
	if !hasMonth {
		month = now.Month()
	}

	d := time.Date(now.Year(), month, day, 0, 0, 0, 0, time.Local)
	// time.Date 会把 2 月 31 日这类溢出日期归一化到下个月，检测并丢弃。
	if d.Day() != day || d.Month() != month {
		return time.Time{}, false
	}

	if hasMonth {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
		if d.Before(today) {
			d = d.AddDate(1, 0, 0)
		}
	}
	return d, true
}

// monthFromLabel 在 aria-label 里查找俄语月份词（属格，如 "15 марта, суббота"）。
func monthFromLabel(label string) (time.Month, bool) {
	low := strings.ToLower(label)
	for token, month := range monthTokens {
		if strings.Contains(low, token) {
			return month, true
		}
	}
	return 0, false
}
