// Package logx 统一构造运行日志：JSON 行写入 <path>/kinocal.log，
// 交互终端下额外输出到 stderr 的 ConsoleWriter。
package logx

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// New 打开（追加）<root>/kinocal.log 并返回 logger 与关闭函数。
//
// 规则：
// - verbose=false 时级别为 Info，否则 Debug
// - console=true 时同时输出人类可读格式到 stderr（进度 UI 之外的告警）
// - 日志文件打不开不阻塞运行：退化为仅 console / 丢弃
func New(root string, verbose, console bool) (zerolog.Logger, func()) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	var writers []io.Writer
	closeFn := func() {}

	f, err := os.OpenFile(filepath.Join(root, "kinocal.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err == nil {
		writers = append(writers, f)
		closeFn = func() { _ = f.Close() }
	}
	if console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
	}

	var out io.Writer = io.Discard
	switch len(writers) {
	case 1:
		out = writers[0]
	case 2:
		out = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Str("app", "kinocal").Logger()
	return logger, closeFn
}
