package afisha

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// 场次时间 token 的候选正则（按顺序全部扫描，结果合并去重）。
// 站点在不同版式下分别使用 "18:30" 与 "18.30" 两种写法。
var timePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{1,2}[:.]\d{2})\b`),
	regexp.MustCompile(`\b(\d{1,2}:\d{2})\b`),
	regexp.MustCompile(`\b(\d{1,2}\.\d{2})\b`),
}

// normalizeShowtime 把 "9.30"/"9:30" 这类 token 规范化为零填充的 "09:30"。
// 规范化后字典序等于时间序，调用方可以直接 sort.Strings。
// 非法时刻（"25:61"）返回 ok=false。
func normalizeShowtime(raw string) (string, bool) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ".", ":")
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return "", false
	}
	return t.Format("15:04"), true
}

// extractTimes 扫描整段文本，返回规范化去重后的场次时间（保持发现顺序）。
//
// minHour/maxHour 是小时合理性区间（闭区间）；全文扫描容易把
// 日期片段（"12.04.2025" 的 "12.04"）误认成时间，详情页全文回退时
// 用 [6,23] 收紧。传 0,23 表示不过滤。
func extractTimes(text string, minHour, maxHour int) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, re := range timePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			t, ok := normalizeShowtime(m[1])
			if !ok {
				continue
			}
			hour := int(t[0]-'0')*10 + int(t[1]-'0')
			if hour < minHour || hour > maxHour {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// MergeTimes 合并列表页与详情页两处提取的场次时间：并集、去重、升序。
// 输入假定已规范化（零填充），因此字符串排序即时间排序。
func MergeTimes(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, t := range a {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, t := range b {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
