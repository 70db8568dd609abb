// Package app 实现抓取管线的编排原语：分页收集与事件物化。
// run 子包负责把它们串成完整的一次运行。
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/kinocal/internal/domain"
	"github.com/John-Robertt/kinocal/internal/infra/httpx"
	"github.com/John-Robertt/kinocal/internal/provider/afisha"
)

// Collector 驱动列表页的分页循环，把各页的影片摘要累入同一集合。
//
// 停止条件（命中任意一个即止，都不算运行失败）：
// - 某页抓取失败（含 404）：视为“数据到头”
// - 某页解析出 0 部影片
// - 集合达到 MaxMovies 上限（截断后停止）
// - 下一页探测为负
// - 已到 MaxPages
type Collector struct {
	Fetcher   *httpx.Fetcher
	BaseURL   string
	MaxPages  int
	MaxMovies int // 0 表示不限制

	Log zerolog.Logger
}

// Collect 执行分页循环，返回集合与成功解析的页数。
func (c *Collector) Collect(ctx context.Context) (*domain.Collection, int) {
	coll := domain.NewCollection()
	pages := 0

	for page := 1; page <= c.MaxPages; page++ {
		pageURL := c.pageURL(page)

		doc, err := c.Fetcher.Fetch(ctx, pageURL, httpx.CategoryPage)
		if err != nil {
			if ctx.Err() != nil {
				c.Log.Warn().Int("page", page).Msg("运行被取消，停止分页")
				break
			}
			// 末页之后的 404 与重试耗尽同样按“数据到头”处理。
			if errors.Is(err, httpx.ErrNotFound) {
				c.Log.Info().Int("page", page).Msg("页面不存在，分页结束")
			} else {
				c.Log.Warn().Int("page", page).Err(err).Msg("列表页抓取失败，分页结束")
			}
			break
		}

		movies := afisha.ParseListing(doc.Document, c.BaseURL)
		if len(movies) == 0 {
			c.Log.Info().Int("page", page).Msg("本页没有解析出影片，分页结束")
			break
		}

		added := 0
		for _, m := range movies {
			if coll.Add(m) {
				added++
			}
		}
		pages = page
		c.Log.Info().
			Int("page", page).
			Int("parsed", len(movies)).
			Int("new", added).
			Int("total", coll.Len()).
			Msg("列表页解析完成")

		if c.MaxMovies > 0 && coll.Len() >= c.MaxMovies {
			coll.Truncate(c.MaxMovies)
			c.Log.Info().Int("max", c.MaxMovies).Msg("达到影片数量上限，分页结束")
			break
		}

		if page >= c.MaxPages {
			break
		}
		if !c.nextPageExists(ctx, page+1) {
			c.Log.Info().Int("page", page).Msg("下一页探测为负，分页结束")
			break
		}

		// 翻页前的礼貌停顿（独立于 fetch 内部的成功后延迟）。
		c.Fetcher.Pause(ctx, httpx.CategoryPage)
		if ctx.Err() != nil {
			break
		}
	}
	return coll, pages
}

// pageURL 构造第 n 页的 URL：首页即 BaseURL，其后为 BaseURL + "pageN/"。
func (c *Collector) pageURL(n int) string {
	if n <= 1 {
		return c.BaseURL
	}
	base := c.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return fmt.Sprintf("%spage%d/", base, n)
}

// nextPageExists 用收紧的尝试预算（1 次，不重试）探测第 n 页是否有内容。
// 探测结果只用于判定，文档即弃；正式抓取在下一轮循环以完整预算进行。
func (c *Collector) nextPageExists(ctx context.Context, n int) bool {
	doc, err := c.Fetcher.FetchAttempts(ctx, c.pageURL(n), httpx.CategoryPage, 1)
	if err != nil {
		return false
	}
	return afisha.HasListingContent(doc.Document)
}
