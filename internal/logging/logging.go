package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config 描述日志输出方式。
type Config struct {
	// Level: trace|debug|info|warn|error|disabled
	Level string
	// Format: auto|console|json；auto 在终端上用 console，否则用 json
	Format string
	// Out 为 nil 时写 stderr。stdout 保留给 --json 报告。
	Out io.Writer
	// NoColor 关闭 console 模式的颜色
	NoColor bool
}

// Options 是 CLI 层关心的日志开关。
type Options struct {
	LogLevel string
	Verbose  bool
	Quiet    bool
}

// ResolveLevel 按优先级决定日志级别：
//  1. --log-level
//  2. -q/--quiet（与 -v 同时给出时 quiet 优先）
//  3. -v/--verbose
//  4. LOG_LEVEL 环境变量
//  5. info
func ResolveLevel(o Options) string {
	if l := strings.TrimSpace(o.LogLevel); l != "" {
		return l
	}
	if o.Quiet {
		return "warn"
	}
	if o.Verbose {
		return "debug"
	}
	if l := os.Getenv("LOG_LEVEL"); l != "" {
		return l
	}
	return "info"
}

// New 按配置创建 logger。
func New(cfg Config) zerolog.Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	level := ParseLevel(cfg.Level)

	return zerolog.New(writer(out, cfg)).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func writer(out io.Writer, cfg Config) io.Writer {
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" || format == "auto" {
		format = "json"
		if isTerminal(out) {
			format = "console"
		}
	}

	switch format {
	case "console", "pretty":
		return zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
			NoColor:    cfg.NoColor || os.Getenv("NO_COLOR") != "",
		}
	default:
		return out
	}
}

// ParseLevel 解析级别字符串，无法识别时回退到 info。
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "warning":
		return zerolog.WarnLevel
	case "none", "off":
		return zerolog.Disabled
	}
	l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return l
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
