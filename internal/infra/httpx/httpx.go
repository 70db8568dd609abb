package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout = 45 * time.Second
	defaultRetries = 3
	defaultBackoff = 3.0
)

// Category 标识请求类别；每个类别有自己的基础延迟。
// detail/page 的延迟刻意比 default 更大：逐条详情页与逐页列表
// 是上游最容易限流的端点。
type Category string

const (
	CategoryDefault Category = "default"
	CategoryPage    Category = "page"
	CategoryDetail  Category = "detail"
	// CategoryRetry 只用于“重试前的预延迟”，不对应任何外部端点。
	CategoryRetry Category = "retry"
)

// DelayTable 是固定的类别→基础延迟配置表。
// Jitter 区间对所有类别相同（一个小的正随机量，打散请求节奏）。
type DelayTable struct {
	Base   time.Duration
	Page   time.Duration
	Detail time.Duration

	JitterMin time.Duration
	JitterMax time.Duration
}

// For 返回类别的基础延迟（不含 jitter）。retry = Base*2。
func (t DelayTable) For(c Category) time.Duration {
	switch c {
	case CategoryPage:
		return t.Page
	case CategoryDetail:
		return t.Detail
	case CategoryRetry:
		return t.Base * 2
	default:
		return t.Base
	}
}

// Document 是一次成功抓取的结果：解析后的文档 + 原始字节（供缓存落盘）。
type Document struct {
	*goquery.Document
	URL  string
	Body []byte
}

// Parse 把已有的 HTML 字节解析为 Document（缓存命中时走这里，不打网络）。
func Parse(rawURL string, body []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return &Document{Document: doc, URL: rawURL, Body: body}, nil
}

// ErrNotFound 表示上游明确返回了 404：终态，调用方不得自行重试。
var ErrNotFound = errors.New("httpx: 页面不存在（HTTP 404）")

// HTTPStatusError 表示站点返回了非 2xx 且未被专门处理的状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d（%s）", e.StatusCode, e.URL)
}

// ExhaustedError 表示重试预算用尽：Fetch 的“失败”终态（区别于 404）。
type ExhaustedError struct {
	URL      string
	Attempts int
	Err      error // 最后一次失败原因
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("重试 %d 次后放弃：%s：%v", e.Attempts, e.URL, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Fetcher 把“限速 + 分类延迟 + 按状态码分路的重试退避”固化为统一策略。
//
// 设计目标：提取层只负责“定位元素 + 解析文本”，不关心网络策略细节。
// 重试状态机刻意写成一个带 attempt 计数与可变 delay 的显式循环，
// 每个状态码分支的契约都能单独审计（见 FetchAttempts）。
type Fetcher struct {
	Client  *http.Client
	Delays  DelayTable
	Retries int     // 总尝试次数上限（含首次）
	Backoff float64 // 退避倍率

	Log zerolog.Logger

	// Sleep/Jitter 可注入：测试用假时钟替换真实等待。
	Sleep  func(context.Context, time.Duration) error
	Jitter func() time.Duration

	ua *uaPool
}

// Options 是 New 的构造参数；零值字段取内置默认。
type Options struct {
	Client  *http.Client
	Delays  DelayTable
	Retries int
	Backoff float64
	Log     zerolog.Logger
}

func New(opts Options) *Fetcher {
	c := opts.Client
	if c == nil {
		c = NewClient()
	}
	retries := opts.Retries
	if retries < 1 {
		retries = defaultRetries
	}
	backoff := opts.Backoff
	if backoff <= 1 {
		backoff = defaultBackoff
	}

	f := &Fetcher{
		Client:  c,
		Delays:  opts.Delays,
		Retries: retries,
		Backoff: backoff,
		Log:     opts.Log,
		ua:      globalUA,
	}
	f.Sleep = sleepCtx
	f.Jitter = f.randomJitter
	return f
}

// NewClient 构造用于页面抓取的 HTTP client（总超时 + 保守的握手/响应头超时）。
func NewClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		},
		Timeout: defaultTimeout,
	}
}

// Fetch 抓取 rawURL 并返回解析后的文档；使用 Fetcher 的完整重试预算。
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, cat Category) (*Document, error) {
	return f.FetchAttempts(ctx, rawURL, cat, f.Retries)
}

// FetchAttempts 与 Fetch 相同，但允许收紧尝试预算（分页探测只给 1 次）。
//
// 状态机契约（delay 在每次独立调用开始时重置为 Delays.Base）：
// - 429：等待 delay*backoff，delay 乘以 backoff，重试（占用同一尝试预算；
//   没有成功，不施加类别的“成功后延迟”）
// - 404：立即返回 ErrNotFound（终态，不重试）
// - 403：等待 delay*2，delay 翻倍，重试（与普通重试共享预算）
// - 传输错误/超时/其他非 2xx：等待 delay，delay 乘以 backoff，重试；
//   预算耗尽返回 ExhaustedError
// - 2xx：施加类别的成功后延迟（base + jitter），返回文档
// - 第 2 次及以后的每次尝试前，先施加一次 retry 类别预延迟
//
// 取消：所有等待都随 ctx 取消立即中止；取消后返回 ctx 错误，
// 唯一例外是“成功后延迟”——文档已经到手，取消只是缩短等待。
func (f *Fetcher) FetchAttempts(ctx context.Context, rawURL string, cat Category, retries int) (*Document, error) {
	if retries < 1 {
		retries = 1
	}

	delay := f.Delays.Base
	var lastErr error

	for attempt := 1; attempt <= retries; attempt++ {
		if attempt > 1 {
			if err := f.pause(ctx, CategoryRetry); err != nil {
				return nil, err
			}
		}

		f.Log.Debug().Str("url", rawURL).Int("attempt", attempt).Int("retries", retries).Msg("请求")

		status, body, err := f.get(ctx, rawURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.Log.Warn().Str("url", rawURL).Int("attempt", attempt).Err(err).Msg("传输失败")
			lastErr = err
			if attempt < retries {
				if e := f.Sleep(ctx, delay); e != nil {
					return nil, e
				}
				delay = scale(delay, f.Backoff)
			}
			continue
		}

		switch {
		case status == http.StatusTooManyRequests:
			wait := scale(delay, f.Backoff)
			f.Log.Warn().Str("url", rawURL).Int("attempt", attempt).Dur("wait", wait).Msg("HTTP 429，限流退避")
			lastErr = &HTTPStatusError{URL: rawURL, StatusCode: status}
			if e := f.Sleep(ctx, wait); e != nil {
				return nil, e
			}
			delay = wait
			continue

		case status == http.StatusNotFound:
			f.Log.Warn().Str("url", rawURL).Msg("HTTP 404，页面不存在")
			return nil, ErrNotFound

		case status == http.StatusForbidden:
			f.Log.Warn().Str("url", rawURL).Int("attempt", attempt).Msg("HTTP 403，访问被拒")
			lastErr = &HTTPStatusError{URL: rawURL, StatusCode: status}
			if e := f.Sleep(ctx, delay*2); e != nil {
				return nil, e
			}
			delay *= 2
			continue

		case status < 200 || status >= 300:
			f.Log.Warn().Str("url", rawURL).Int("status", status).Int("attempt", attempt).Msg("非预期状态码")
			lastErr = &HTTPStatusError{URL: rawURL, StatusCode: status}
			if attempt < retries {
				if e := f.Sleep(ctx, delay); e != nil {
					return nil, e
				}
				delay = scale(delay, f.Backoff)
			}
			continue
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}

		// 成功后的类别延迟：文档已到手，取消只缩短等待、不丢结果。
		_ = f.pause(ctx, cat)
		return &Document{Document: doc, URL: rawURL, Body: body}, nil
	}

	return nil, &ExhaustedError{URL: rawURL, Attempts: retries, Err: lastErr}
}

// Pause 施加一次类别延迟（base + jitter）。供编排层做页间/条目间停顿。
// 取消时立即返回（best-effort，不报错）。
func (f *Fetcher) Pause(ctx context.Context, cat Category) {
	_ = f.pause(ctx, cat)
}

func (f *Fetcher) pause(ctx context.Context, cat Category) error {
	return f.Sleep(ctx, f.Delays.For(cat)+f.Jitter())
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("User-Agent", f.ua.random())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, b, nil
}

func (f *Fetcher) randomJitter() time.Duration {
	min, max := f.Delays.JitterMin, f.Delays.JitterMax
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

func scale(d time.Duration, factor float64) time.Duration {
	return time.Duration(float64(d) * factor)
}

// sleepCtx 是可被 ctx 立即中止的 time.Sleep。
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = newUAPool()

func newUAPool() *uaPool {
	// 尽量保持 UA 列表短小但多样；未来可扩充（不对外暴露配置）。
	uas := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}
