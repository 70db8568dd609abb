// Package afisha 实现对影院排片站点页面的纯解析：
// 列表页 → 影片摘要，详情页 → 国家/最近场次日期/补充场次。
//
// 所有 Parse* 函数都不访问网络、不持有状态；选择器表集中在 selectors.go。
package afisha

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/kinocal/internal/domain"
)

// 标题必须超过该 rune 数才算有效（过滤 "ещё"、图标文本之类的噪声）。
const minTitleRunes = 3

// ParseListing 从一张列表页文档提取影片摘要。
//
// 规则：
// - 容器选择器 first-match-wins：第一个有命中的选择器决定全部容器
// - 标题取容器内第一个“非空且长度 > 3”的候选文本
// - 场次时间从容器全文正则扫描（不做小时过滤，容器文本足够局部）
// - 详情链接取容器内第一个 <a href>，相对路径按 baseURL 解析为绝对
// - 所有容器选择器都落空时，回退为全页链接扫描（href 含 movie/film）
//
// 同名去重不在这里做：由 domain.Collection 跨页统一负责。
func ParseListing(doc *goquery.Document, baseURL string) []*domain.MovieSummary {
	var containers *goquery.Selection
	for _, sel := range listingContainerSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			containers = found
			break
		}
	}
	if containers == nil {
		return parseListingLinks(doc, baseURL)
	}

	var out []*domain.MovieSummary
	containers.Each(func(_ int, el *goquery.Selection) {
		title := firstTitle(el)
		if title == "" {
			return
		}
		m := &domain.MovieSummary{
			Title: title,
			Times: extractTimes(el.Text(), 0, 23),
		}
		if href, ok := el.Find("a[href]").First().Attr("href"); ok {
			m.DetailURL = resolveURL(baseURL, href)
		}
		out = append(out, m)
	})
	return out
}

// firstTitle 按 titleSelectors 顺序探测容器内的标题文本。
func firstTitle(el *goquery.Selection) string {
	for _, sel := range titleSelectors {
		txt := normSpace(el.Find(sel).First().Text())
		if utf8.RuneCountInString(txt) > minTitleRunes {
			return txt
		}
	}
	return ""
}

// parseListingLinks 是列表页的兜底提取：按链接路径里的 movie/film 标识词收集。
// 这些摘要没有场次时间，只有标题与详情链接。
func parseListingLinks(doc *goquery.Document, baseURL string) []*domain.MovieSummary {
	var out []*domain.MovieSummary
	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		low := strings.ToLower(href)
		matched := false
		for _, token := range linkFallbackTokens {
			if strings.Contains(low, token) {
				matched = true
				break
			}
		}
		if !matched {
			return
		}
		title := normSpace(link.Text())
		if utf8.RuneCountInString(title) <= minTitleRunes {
			return
		}
		out = append(out, &domain.MovieSummary{
			Title:     title,
			DetailURL: resolveURL(baseURL, href),
		})
	})
	return out
}

// HasListingContent 判断文档里是否还存在“内容块”。分页控制器用它
// 探测下一页：命中任意一个通用结构选择器即认为还有数据。
func HasListingContent(doc *goquery.Document) bool {
	for _, sel := range probeContentSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

// resolveURL 把 href 解析为以 base 为基准的绝对 URL；解析失败原样返回。
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}

// normSpace 压缩文本里的连续空白为单个空格并去掉首尾空白。
func normSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
