package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// DefaultBaseURL 是排片列表的最终默认入口（当 CLI 与配置文件都未指定时）。
	DefaultBaseURL = "https://www.afisha.ru/prm/schedule_cinema/"

	// DefaultMaxPages 是分页上限的内置默认值。
	DefaultMaxPages = 10
	// DefaultRetries 是单次 fetch 的总尝试次数上限。
	DefaultRetries = 3
	// DefaultBackoffFactor 是重试退避的倍率。
	DefaultBackoffFactor = 3.0
)

// 各请求类别的基础延迟（秒）。detail/page 比 default 更大：
// 逐条详情页与逐页列表是上游最敏感的端点，必须更克制。
const (
	DefaultBaseDelaySec   = 5
	DefaultRandomDelaySec = 3
	DefaultPageDelaySec   = 8
	DefaultDetailDelaySec = 12
)

// DefaultExcludeCountries 是默认排除的国家列表（可被 CLI/配置整体替换）。
var DefaultExcludeCountries = []string{"Россия"}

// CLIArgs 只包含 CLI 暴露的入口，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --skip-details=false 必须能覆盖
// 配置文件中的 skip_details=true。
type CLIArgs struct {
	Path string

	BaseURL    string
	BaseURLSet bool

	MaxPages    int
	MaxPagesSet bool

	MaxMovies    int
	MaxMoviesSet bool

	DelaySec    int
	DelaySecSet bool

	ExcludeCountries []string // 非空时整体替换（默认/配置均不再生效）

	SkipDetails    bool
	SkipDetailsSet bool

	NoCache    bool
	NoCacheSet bool

	Verbose    bool
	VerboseSet bool
}

// FileConfig 对应 kinocal.json 的解析结构。
type FileConfig struct {
	Path    string `json:"path"`
	BaseURL string `json:"base_url"`

	MaxPages  int `json:"max_pages"`
	MaxMovies int `json:"max_movies"`

	DelaySec int `json:"delay"`

	ExcludeCountries []string `json:"exclude_countries"`

	SkipDetails *bool `json:"skip_details"`
	NoCache     *bool `json:"no_cache"`
	Verbose     *bool `json:"verbose"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置。
// 实现层直接按值消费，不再做二次默认/优先级判断，也绝不读取环境态。
type EffectiveConfig struct {
	Path    string // 工作目录：calendar.ics / cache/ / kinocal.log 都落在这里
	BaseURL string

	MaxPages  int
	MaxMovies int // 0 表示不限制

	Retries       int
	BackoffFactor float64

	BaseDelay   time.Duration
	RandomDelay time.Duration
	PageDelay   time.Duration
	DetailDelay time.Duration

	ExcludeCountries []string

	SkipDetails bool
	NoCache     bool
	Verbose     bool
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s：配置无效（%q）：%v", e.Code, e.Path, e.Err)
	}
	return fmt.Sprintf("%s：配置无效（%q）", e.Code, e.Path)
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 path：尝试读取 <path>/kinocal.json（可选）
// 2) CLI 未提供 path：path 取 cwd，尝试读取 <cwd>/kinocal.json（可选）
//
// 覆盖优先级（固定）：CLI > 配置文件 > 内置默认值。
// exclude_countries 是整体替换而非合并：CLI 给了就只用 CLI 的。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	root := cwdAbs
	if strings.TrimSpace(cli.Path) != "" {
		root = absCleanFrom(cwdAbs, cli.Path)
	}

	cfgPath := filepath.Join(root, "kinocal.json")
	fc, _, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	// 配置文件可以再改一次 path（仅当 CLI 未给 path 时生效）。
	if strings.TrimSpace(cli.Path) == "" && strings.TrimSpace(fc.Path) != "" {
		root = absCleanFrom(cwdAbs, fc.Path)
	}

	return merge(root, cli, fc, cfgPath)
}

func merge(root string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	baseURL := DefaultBaseURL
	if cli.BaseURLSet {
		baseURL = cli.BaseURL
	} else if strings.TrimSpace(fc.BaseURL) != "" {
		baseURL = fc.BaseURL
	}
	baseURL = strings.TrimSpace(baseURL)
	if err := validateBaseURL(baseURL); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	maxPages := DefaultMaxPages
	if cli.MaxPagesSet {
		maxPages = cli.MaxPages
	} else if fc.MaxPages != 0 {
		maxPages = fc.MaxPages
	}
	if maxPages < 1 {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("max_pages 必须 ≥1，实际是 %d", maxPages)}
	}

	maxMovies := 0
	if cli.MaxMoviesSet {
		maxMovies = cli.MaxMovies
	} else if fc.MaxMovies != 0 {
		maxMovies = fc.MaxMovies
	}
	if maxMovies < 0 {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("max_movies 不能为负，实际是 %d", maxMovies)}
	}

	delaySec := DefaultBaseDelaySec
	if cli.DelaySecSet {
		delaySec = cli.DelaySec
	} else if fc.DelaySec != 0 {
		delaySec = fc.DelaySec
	}
	if delaySec < 1 {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("delay 必须 ≥1 秒，实际是 %d", delaySec)}
	}

	exclude := append([]string(nil), DefaultExcludeCountries...)
	if len(cli.ExcludeCountries) > 0 {
		exclude = append([]string(nil), cli.ExcludeCountries...)
	} else if fc.ExcludeCountries != nil {
		exclude = append([]string(nil), fc.ExcludeCountries...)
	}

	skipDetails := false
	if cli.SkipDetailsSet {
		skipDetails = cli.SkipDetails
	} else if fc.SkipDetails != nil {
		skipDetails = *fc.SkipDetails
	}

	noCache := false
	if cli.NoCacheSet {
		noCache = cli.NoCache
	} else if fc.NoCache != nil {
		noCache = *fc.NoCache
	}

	verbose := false
	if cli.VerboseSet {
		verbose = cli.Verbose
	} else if fc.Verbose != nil {
		verbose = *fc.Verbose
	}

	base := time.Duration(delaySec) * time.Second
	eff := EffectiveConfig{
		Path:    root,
		BaseURL: baseURL,

		MaxPages:  maxPages,
		MaxMovies: maxMovies,

		Retries:       DefaultRetries,
		BackoffFactor: DefaultBackoffFactor,

		BaseDelay:   base,
		RandomDelay: time.Duration(DefaultRandomDelaySec) * time.Second,
		PageDelay:   time.Duration(DefaultPageDelaySec) * time.Second,
		DetailDelay: time.Duration(DefaultDetailDelaySec) * time.Second,

		ExcludeCountries: exclude,

		SkipDetails: skipDetails,
		NoCache:     noCache,
		Verbose:     verbose,
	}

	// --delay 调大基础延迟后，page/detail 仍须保持“不低于基础延迟”的关系。
	if base > eff.PageDelay {
		eff.PageDelay = base
	}
	if base > eff.DetailDelay {
		eff.DetailDelay = base
	}
	return eff, nil
}

func validateBaseURL(s string) error {
	if s == "" {
		return fmt.Errorf("base_url 不能为空")
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url 无效：%q", s)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url 必须是 http/https：%q", s)
	}
	return nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" || p == "." {
		return base
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
