package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/John-Robertt/kinocal/internal/app/run"
	"github.com/John-Robertt/kinocal/internal/config"
	"github.com/John-Robertt/kinocal/internal/domain"
	"github.com/John-Robertt/kinocal/internal/infra/fsx"
	"github.com/John-Robertt/kinocal/internal/logx"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	switch args[0] {
	case "run":
		if code := runCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func runCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printRunUsage()
			return 0
		}
	}

	ra, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printRunUsage()
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}
	cwdAbs, _ := filepath.Abs(cwd)

	eff, err := config.LoadEffective(cwd, ra.toCLIArgs())
	if err != nil {
		rr := reportForConfigError(cwdAbs, err)
		emitReport(rr)
		return 1
	}

	progressW, interactive := pickProgressWriter()
	var obs run.Observer
	if interactive {
		obs = newProgressUI(progressW)
	}

	log, closeLog := logx.New(eff.Path, eff.Verbose, interactive)
	defer closeLog()

	// Ctrl-C / SIGTERM：中止一切等待，带着已有结果落盘后退出。
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rr := run.ExecuteWithObserver(ctx, eff, log, obs)

	if err := writeReportFile(eff.Path, rr); err != nil {
		fmt.Fprintf(os.Stderr, "写入 report.json 失败：%v\n", err)
		emitReport(rr)
		return 1
	}

	emitReport(rr)
	if interactive {
		emitLocations(progressW, eff)
	}
	if rr.RunFailed() {
		return 1
	}
	return 0
}

type runArgs struct {
	Path string

	BaseURL    string
	BaseURLSet bool

	MaxPages    int
	MaxPagesSet bool

	MaxMovies    int
	MaxMoviesSet bool

	DelaySec    int
	DelaySecSet bool

	ExcludeCountries []string

	SkipDetails    bool
	SkipDetailsSet bool

	NoCache    bool
	NoCacheSet bool

	Verbose    bool
	VerboseSet bool
}

func (ra runArgs) toCLIArgs() config.CLIArgs {
	return config.CLIArgs{
		Path:             ra.Path,
		BaseURL:          ra.BaseURL,
		BaseURLSet:       ra.BaseURLSet,
		MaxPages:         ra.MaxPages,
		MaxPagesSet:      ra.MaxPagesSet,
		MaxMovies:        ra.MaxMovies,
		MaxMoviesSet:     ra.MaxMoviesSet,
		DelaySec:         ra.DelaySec,
		DelaySecSet:      ra.DelaySecSet,
		ExcludeCountries: ra.ExcludeCountries,
		SkipDetails:      ra.SkipDetails,
		SkipDetailsSet:   ra.SkipDetailsSet,
		NoCache:          ra.NoCache,
		NoCacheSet:       ra.NoCacheSet,
		Verbose:          ra.Verbose,
		VerboseSet:       ra.VerboseSet,
	}
}

func parseRunArgs(args []string) (runArgs, error) {
	ra := runArgs{}

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--base-url" || strings.HasPrefix(a, "--base-url="):
			v, adv, err := stringValue(args, i, a, "--base-url")
			if err != nil {
				return runArgs{}, err
			}
			i += adv
			ra.BaseURL = v
			ra.BaseURLSet = true

		case a == "--max-pages" || strings.HasPrefix(a, "--max-pages="):
			v, adv, err := intValue(args, i, a, "--max-pages")
			if err != nil {
				return runArgs{}, err
			}
			i += adv
			ra.MaxPages = v
			ra.MaxPagesSet = true

		case a == "--max-movies" || strings.HasPrefix(a, "--max-movies="):
			v, adv, err := intValue(args, i, a, "--max-movies")
			if err != nil {
				return runArgs{}, err
			}
			i += adv
			ra.MaxMovies = v
			ra.MaxMoviesSet = true

		case a == "--delay" || strings.HasPrefix(a, "--delay="):
			v, adv, err := intValue(args, i, a, "--delay")
			if err != nil {
				return runArgs{}, err
			}
			i += adv
			ra.DelaySec = v
			ra.DelaySecSet = true

		case a == "--exclude-country" || strings.HasPrefix(a, "--exclude-country="):
			v, adv, err := stringValue(args, i, a, "--exclude-country")
			if err != nil {
				return runArgs{}, err
			}
			i += adv
			if strings.TrimSpace(v) == "" {
				return runArgs{}, fmt.Errorf("--exclude-country 不能为空")
			}
			ra.ExcludeCountries = append(ra.ExcludeCountries, v)

		case a == "--skip-details" || strings.HasPrefix(a, "--skip-details="):
			v, err := boolValue(a, "--skip-details")
			if err != nil {
				return runArgs{}, err
			}
			ra.SkipDetails = v
			ra.SkipDetailsSet = true

		case a == "--no-cache" || strings.HasPrefix(a, "--no-cache="):
			v, err := boolValue(a, "--no-cache")
			if err != nil {
				return runArgs{}, err
			}
			ra.NoCache = v
			ra.NoCacheSet = true

		case a == "--verbose" || strings.HasPrefix(a, "--verbose="):
			v, err := boolValue(a, "--verbose")
			if err != nil {
				return runArgs{}, err
			}
			ra.Verbose = v
			ra.VerboseSet = true

		case strings.HasPrefix(a, "-"):
			return runArgs{}, fmt.Errorf("未知参数 %q", a)

		default:
			if ra.Path != "" {
				return runArgs{}, fmt.Errorf("重复的 path：%q 与 %q", ra.Path, a)
			}
			ra.Path = a
		}
	}

	return ra, nil
}

// stringValue 解析 "--flag value" 或 "--flag=value"；adv 是额外消费的参数数。
func stringValue(args []string, i int, a, flag string) (string, int, error) {
	if strings.HasPrefix(a, flag+"=") {
		return strings.TrimPrefix(a, flag+"="), 0, nil
	}
	if i+1 >= len(args) {
		return "", 0, fmt.Errorf("%s 需要一个值", flag)
	}
	return args[i+1], 1, nil
}

func intValue(args []string, i int, a, flag string) (int, int, error) {
	s, adv, err := stringValue(args, i, a, flag)
	if err != nil {
		return 0, 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("%s 需要整数，实际是 %q", flag, s)
	}
	return v, adv, nil
}

// boolValue：裸 flag 等于 true；"--flag=false" 可显式关闭（覆盖配置文件）。
func boolValue(a, flag string) (bool, error) {
	if a == flag {
		return true, nil
	}
	switch v := strings.TrimPrefix(a, flag+"="); v {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("%s 只能是 true 或 false，实际是 %q", flag, v)
	}
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  kinocal run [path] [选项]

命令：
  run    抓取排片并生成 calendar.ics

使用 "kinocal run --help" 查看详细说明。
`)
}

func printRunUsage() {
	fmt.Fprint(os.Stdout, `用法：
  kinocal run [path] [选项]

参数：
  path               工作目录（calendar.ics / cache/ / kinocal.log 的落点；默认当前目录）
  --base-url URL     排片列表入口 URL
  --max-pages N      最多抓取的列表页数（默认 10）
  --max-movies N     影片数量上限（0 表示不限制）
  --delay N          基础请求延迟（秒，≥1；默认 5）
  --exclude-country C  排除国家（可重复；指定后整体替换默认的 Россия）
  --skip-details     跳过详情页富化（只用列表页数据）
  --no-cache         禁用详情页 HTML 缓存
  --verbose          日志级别调到 debug
  -h, --help         显示帮助
`)
}

func emitReport(rr domain.RunReport) {
	if isTTY(os.Stdout) {
		fmt.Fprintf(os.Stdout, "完成：pages=%d found=%d processed=%d excluded=%d failed=%d events=%d\n",
			rr.Summary.Pages, rr.Summary.Found,
			rr.Summary.Processed, rr.Summary.Excluded, rr.Summary.Failed, rr.Summary.Events,
		)
		if rr.Summary.Failed > 0 {
			for _, it := range rr.Items {
				if it.Status != domain.StatusFailed {
					continue
				}
				key := it.Title
				if key == "" {
					key = "<run>"
				}
				fmt.Fprintf(os.Stderr, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
			}
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	fmt.Fprintf(os.Stderr, "完成：pages=%d found=%d processed=%d excluded=%d failed=%d events=%d\n",
		rr.Summary.Pages, rr.Summary.Found,
		rr.Summary.Processed, rr.Summary.Excluded, rr.Summary.Failed, rr.Summary.Events,
	)
}

func reportForConfigError(cwdAbs string, err error) domain.RunReport {
	now := time.Now().UTC()
	code := config.Code(err)
	if code == "" {
		code = domain.ErrCodeConfigInvalid
	}
	rr := domain.RunReport{
		Path:       cwdAbs,
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Status:    domain.StatusFailed,
			ErrorCode: code,
			ErrorMsg:  err.Error(),
			Countries: []string{},
		}},
	}
	rr.Finalize()
	return rr
}

func writeReportFile(root string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(filepath.Join(root, "cache"), "report.json", b)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}

func emitLocations(w io.Writer, eff config.EffectiveConfig) {
	// 这几行用于降低“完成后不知道产物在哪”的摩擦，且不影响 stdout JSON 契约。
	if w == nil {
		return
	}
	fmt.Fprintf(w, "calendar: %s\n", filepath.Join(eff.Path, run.ArtifactName))
	fmt.Fprintf(w, "report: %s\n", filepath.Join(eff.Path, "cache", "report.json"))
	fmt.Fprintf(w, "log: %s\n", filepath.Join(eff.Path, "kinocal.log"))
}
