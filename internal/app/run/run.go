// Package run 把收集、富化、物化、编码、落盘串成一次完整运行，
// 并产出对外稳定的 RunReport。
package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/kinocal/internal/app"
	"github.com/John-Robertt/kinocal/internal/config"
	"github.com/John-Robertt/kinocal/internal/domain"
	"github.com/John-Robertt/kinocal/internal/ics"
	"github.com/John-Robertt/kinocal/internal/infra/cache"
	"github.com/John-Robertt/kinocal/internal/infra/fsx"
	"github.com/John-Robertt/kinocal/internal/infra/httpx"
	"github.com/John-Robertt/kinocal/internal/provider/afisha"
)

// ArtifactName 是日历产物的固定文件名（写入 eff.Path 下）。
const ArtifactName = "calendar.ics"

// Execute 等价于 ExecuteWithObserver(ctx, eff, log, nil)。
func Execute(ctx context.Context, eff config.EffectiveConfig, log zerolog.Logger) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, log, nil)
}

// ExecuteWithObserver 执行一次完整运行。
//
// 产物契约：无论结果如何都要写出 calendar.ics——
// - 正常：每部未被排除的影片一个事件
// - 一部影片都没找到：单个占位事件「Фильмы не найдены」（明天，2 小时）
// - run 级意外失败：单个占位事件「Ошибка парсинга」，并在 report 里
//   留下合成失败条目（调用方据此非零退出）
//
// 单部影片的失败（富化失败、物化 panic）只影响该条目，不中断运行。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, log zerolog.Logger, obs Observer) (rr domain.RunReport) {
	started := time.Now()
	now := started

	rr = domain.RunReport{
		Path:        eff.Path,
		BaseURL:     eff.BaseURL,
		SkipDetails: eff.SkipDetails,
		StartedAt:   started,
		Items:       make([]domain.ItemResult, 0, 64),
	}

	if obs != nil {
		obs.OnStart(eff)
	}

	// run 级兜底：collect/enrich 阶段的意外 panic 不允许裸奔出去——
	// 仍要写出占位产物，并把失败固化进 report。
	defer func() {
		if p := recover(); p != nil {
			msg := fmt.Sprintf("%v", p)
			log.Error().Str("panic", msg).Msg("运行意外失败")
			rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeRunFailed, "运行意外失败："+msg))
			ev := placeholderEvent("Ошибка парсинга", "Произошла ошибка при парсинге расписания: "+msg, now)
			b := ics.Encode([]domain.CalendarEvent{ev}, now)
			if err := fsx.WriteFileAtomicReplace(eff.Path, ArtifactName, b); err != nil {
				log.Error().Err(err).Msg("占位产物写入失败")
			}
			rr.Summary.Events = 1
			rr.FinishedAt = time.Now()
			rr.Finalize()
		}
	}()

	// jitter 区间 [1s, RandomDelay]；RandomDelay 更小时整体收缩。
	jitterMin := time.Second
	if eff.RandomDelay < jitterMin {
		jitterMin = eff.RandomDelay
	}
	fetcher := httpx.New(httpx.Options{
		Delays: httpx.DelayTable{
			Base:      eff.BaseDelay,
			Page:      eff.PageDelay,
			Detail:    eff.DetailDelay,
			JitterMin: jitterMin,
			JitterMax: eff.RandomDelay,
		},
		Retries: eff.Retries,
		Backoff: eff.BackoffFactor,
		Log:     log,
	})
	store := cache.New(eff.Path, eff.NoCache)

	phaseStart := time.Now()
	collector := &app.Collector{
		Fetcher:   fetcher,
		BaseURL:   eff.BaseURL,
		MaxPages:  eff.MaxPages,
		MaxMovies: eff.MaxMovies,
		Log:       log,
	}
	coll, pages := collector.Collect(ctx)
	rr.Summary.Pages = pages
	rr.Summary.Found = coll.Len()
	if obs != nil {
		obs.OnPhaseDone("collect", map[string]any{"pages": pages, "movies": coll.Len()}, time.Since(phaseStart))
	}

	var events []domain.CalendarEvent
	if coll.Len() == 0 {
		log.Error().Int("pages", pages).Msg("所有页面都没有找到影片，写出占位事件")
		events = []domain.CalendarEvent{placeholderEvent(
			"Фильмы не найдены",
			"Не удалось найти фильмы в расписании кинотеатров",
			now,
		)}
	} else {
		phaseStart = time.Now()
		items := coll.Items()
		for idx, m := range items {
			itemStart := time.Now()
			res, ev := processOne(ctx, eff, m, fetcher, store, log, now)
			rr.Items = append(rr.Items, res)
			if ev != nil {
				events = append(events, *ev)
			}
			if obs != nil {
				obs.OnItemDone(idx+1, len(items), m.Title, res, time.Since(itemStart))
			}
			if ctx.Err() != nil {
				log.Warn().Int("done", idx+1).Int("total", len(items)).Msg("运行被取消，带已有结果落盘")
				break
			}
			// 条目间的礼貌停顿（最后一条之后不停）。
			if idx < len(items)-1 {
				fetcher.Pause(ctx, httpx.CategoryDefault)
			}
		}
		if obs != nil {
			obs.OnPhaseDone("enrich", map[string]any{"movies": len(rr.Items), "events": len(events)}, time.Since(phaseStart))
		}
	}

	rr.Summary.Events = len(events)
	b := ics.Encode(events, now)
	if err := fsx.WriteFileAtomicReplace(eff.Path, ArtifactName, b); err != nil {
		log.Error().Err(err).Str("file", ArtifactName).Msg("产物写入失败")
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeIOFailed, "写入 "+ArtifactName+" 失败："+err.Error()))
	} else {
		log.Info().Str("file", ArtifactName).Int("events", len(events)).Msg("产物写入完成")
	}

	rr.FinishedAt = time.Now()
	rr.Finalize()
	return rr
}

// processOne 处理单部影片：可选的详情富化 → 物化为事件。
// 富化失败等价于“全空富化”，不把条目标记为失败；
// 条目内的意外 panic 被就地吸收为该条目的失败。
func processOne(
	ctx context.Context,
	eff config.EffectiveConfig,
	m *domain.MovieSummary,
	fetcher *httpx.Fetcher,
	store cache.Store,
	log zerolog.Logger,
	now time.Time,
) (res domain.ItemResult, ev *domain.CalendarEvent) {
	res = domain.ItemResult{
		Title:  m.Title,
		URL:    m.DetailURL,
		Status: domain.StatusProcessed,
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error().Str("title", m.Title).Str("panic", fmt.Sprintf("%v", p)).Msg("影片处理失败")
			res.Status = domain.StatusFailed
			res.ErrorCode = domain.ErrCodeParseFailed
			res.ErrorMsg = fmt.Sprintf("%v", p)
			ev = nil
		}
	}()

	if !eff.SkipDetails && m.DetailURL != "" {
		if err := enrich(ctx, m, fetcher, store, log, now); err != nil {
			// 富化失败 = 全空富化：条目照常物化，错误码只做标注。
			res.ErrorCode = domain.ErrCodeFetchFailed
			res.ErrorMsg = err.Error()
		}
	}

	res.Countries = append([]string(nil), m.Countries...)
	res.Showtimes = len(m.Times)

	ev = app.Materialize(m, eff.ExcludeCountries, now)
	if ev == nil {
		res.Status = domain.StatusExcluded
		return res, nil
	}
	res.EventStart = ev.Start.Format(time.RFC3339)
	return res, ev
}

// enrich 抓取（或读缓存）详情页并把结果原地写回摘要。
// 失败时摘要保持原状（等价于全空富化），错误交由调用方标注到条目上。
func enrich(ctx context.Context, m *domain.MovieSummary, fetcher *httpx.Fetcher, store cache.Store, log zerolog.Logger, now time.Time) error {
	var doc *httpx.Document

	if b, ok, err := store.ReadPage(m.DetailURL); err != nil {
		log.Debug().Str("url", m.DetailURL).Err(err).Msg("缓存读取失败")
	} else if ok {
		d, err := httpx.Parse(m.DetailURL, b)
		if err != nil {
			log.Debug().Str("url", m.DetailURL).Err(err).Msg("缓存内容解析失败，回退网络抓取")
		} else {
			log.Debug().Str("url", m.DetailURL).Msg("详情页缓存命中")
			doc = d
		}
	}

	if doc == nil {
		d, err := fetcher.Fetch(ctx, m.DetailURL, httpx.CategoryDetail)
		if err != nil {
			// 404 与重试耗尽同样处理：该影片按“无详情数据”继续。
			if errors.Is(err, httpx.ErrNotFound) {
				log.Warn().Str("title", m.Title).Str("url", m.DetailURL).Msg("详情页不存在")
			} else {
				log.Warn().Str("title", m.Title).Str("url", m.DetailURL).Err(err).Msg("详情页抓取失败")
			}
			return err
		}
		doc = d
		if err := store.WritePage(m.DetailURL, d.Body); err != nil {
			log.Debug().Str("url", m.DetailURL).Err(err).Msg("缓存写入失败")
		}
	}

	countries, nearest, extra := afisha.ParseDetail(doc.Document, now)
	m.Countries = countries
	m.NearestShowDate = nearest
	if len(extra) > 0 {
		m.Times = afisha.MergeTimes(m.Times, extra)
	}
	return nil
}

// placeholderEvent 构造占位事件：明天同一时刻开始，时长 2 小时。
func placeholderEvent(name, desc string, now time.Time) domain.CalendarEvent {
	start := now.AddDate(0, 0, 1)
	return domain.CalendarEvent{
		Name:        name,
		Start:       start,
		End:         start.Add(2 * time.Hour),
		Description: desc,
	}
}

// syntheticFailed 构造 run 级合成失败条目（Title 为空以区别于具体影片）。
func syntheticFailed(code, msg string) domain.ItemResult {
	return domain.ItemResult{
		Status:    domain.StatusFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
	}
}
