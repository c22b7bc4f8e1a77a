// Package logging 构造 zerolog 日志器。
//
// 命令行程序的 stdout 只用于输出结果 JSON，日志一律写 stderr。
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config 日志配置
type Config struct {
	Level  string // trace / debug / info / warn / error，缺省 info
	Format string // json / console，缺省 json
	Output io.Writer
}

// New 创建日志器
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel 解析日志级别，无法识别时返回 info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithRequest 为一次命令调用生成 request_id，并把带该字段的日志器挂到 ctx 上
func WithRequest(ctx context.Context, logger zerolog.Logger, command string) (context.Context, string) {
	id := uuid.NewString()
	l := logger.With().Str("request_id", id).Str("command", command).Logger()
	return l.WithContext(ctx), id
}
