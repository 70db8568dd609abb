package afisha

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// 超过该 rune 数的文本不可能是国家名（整段简介误中时直接丢弃）。
const maxCountryRunes = 50

// 详情页全文回退扫描的小时合理性区间（排除把日期当时间的误匹配）。
const (
	detailScanMinHour = 6
	detailScanMaxHour = 23
)

// ParseDetail 从详情页文档提取富化数据。
//
// 返回值语义（与“富化失败 = 全空富化”的契约配套）：
// - countries：国家名并集（所有选择器合并、去重、保持发现顺序）
// - nearest：排片日历里最近的未来场次日期；解析不到为零值
// - times：补充场次时间（时间元素选择器优先，落空时全文回退扫描）
func ParseDetail(doc *goquery.Document, now time.Time) (countries []string, nearest time.Time, times []string) {
	countries = parseCountries(doc)
	nearest = parseScheduleCalendar(doc, now)
	times = parseDetailTimes(doc)
	return countries, nearest, times
}

// parseCountries 对所有国家选择器取并集；
// 文本过长或命中元数据标签词（жанр/режиссер/……）的候选丢弃。
func parseCountries(doc *goquery.Document) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, sel := range countrySelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			txt := normSpace(s.Text())
			if txt == "" || utf8.RuneCountInString(txt) >= maxCountryRunes {
				return
			}
			if isMetaLabel(txt) {
				return
			}
			if _, dup := seen[txt]; dup {
				return
			}
			seen[txt] = struct{}{}
			out = append(out, txt)
		})
	}
	return out
}

func isMetaLabel(txt string) bool {
	low := strings.ToLower(txt)
	for _, word := range countryLabelDenylist {
		if strings.Contains(low, word) {
			return true
		}
	}
	return false
}

// parseDetailTimes 先按时间元素选择器逐个取元素文本的首个时间 token；
// 一个都没有时退化为全文扫描（带小时区间过滤）。
func parseDetailTimes(doc *goquery.Document) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, sel := range timeElementSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			token := firstTimeToken(s.Text())
			if token == "" {
				return
			}
			if _, dup := seen[token]; dup {
				return
			}
			seen[token] = struct{}{}
			out = append(out, token)
		})
	}
	if len(out) == 0 {
		out = extractTimes(doc.Text(), detailScanMinHour, detailScanMaxHour)
	}
	return out
}

// firstTimeToken 取文本里第一个合法时间 token（规范化后返回）。
func firstTimeToken(text string) string {
	for _, re := range timePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if t, ok := normalizeShowtime(m[1]); ok {
			return t
		}
	}
	return ""
}
