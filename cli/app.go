// Package cli 是两个命令行程序的边界层。
//
// 约定：
//   - 结果 JSON 只写 stdout：成功 {"success": true, ...}，失败 {"success": false, "error": "..."}
//   - 成功退出码 0，失败 1
//   - 日志只写 stderr
//   - 任何错误和 panic 都在这里转换为失败 JSON
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/rushteam/marketrec/config"
	"github.com/rushteam/marketrec/core"
	"github.com/rushteam/marketrec/pkg/logging"
	"github.com/rushteam/marketrec/store"
)

// Fields 成功时合并进输出 JSON 的字段
type Fields map[string]any

// Command 一个子命令
type Command struct {
	Usage   string
	MinArgs int
	MaxArgs int
	Run     func(ctx context.Context, inv *Invocation) (Fields, error)
}

// Invocation 一次调用的上下文
type Invocation struct {
	Args   []string
	Config *config.Config
	Cache  *store.ResultCache

	// 仅 recommend-engine 使用
	Filter string
	Weight string

	// 仅 visual-search 使用
	Metric string
}

// App 一个命令行程序
type App struct {
	Name     string
	Commands map[string]*Command

	Stdout io.Writer
	Stderr io.Writer

	// UsesCache 为 true 时按配置打开结果缓存
	UsesCache bool

	flags func(fs *flag.FlagSet, inv *Invocation)
}

// Main 运行程序并以相应退出码退出
func (a *App) Main() {
	os.Exit(a.Run(context.Background(), os.Args[1:]))
}

// Run 解析参数并执行子命令，返回退出码
func (a *App) Run(ctx context.Context, argv []string) (code int) {
	stdout, stderr := a.Stdout, a.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := logging.New(logging.Config{Output: stderr})

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("command panicked")
			code = writeFailure(stdout, fmt.Errorf("internal error: %v", r))
		}
	}()

	inv := &Invocation{}
	fs := flag.NewFlagSet(a.Name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "path to a YAML config file")
	if a.flags != nil {
		a.flags(fs, inv)
	}
	if err := fs.Parse(argv); err != nil {
		return writeFailure(stdout, core.Validationf(core.ModuleConfig, "%v", err))
	}

	args := fs.Args()
	if len(args) == 0 {
		return writeFailure(stdout, errors.New("no command provided"))
	}
	name := args[0]
	cmd, ok := a.Commands[name]
	if !ok {
		return writeFailure(stdout, fmt.Errorf("unknown command: %s (available: %s)", name, strings.Join(a.commandNames(), ", ")))
	}
	inv.Args = args[1:]
	if len(inv.Args) < cmd.MinArgs || (cmd.MaxArgs >= 0 && len(inv.Args) > cmd.MaxArgs) {
		return writeFailure(stdout, core.Validationf(core.ModuleConfig, "usage: %s %s %s", a.Name, name, cmd.Usage))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return writeFailure(stdout, err)
	}
	inv.Config = cfg
	logger = logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: stderr})

	ctx, requestID := logging.WithRequest(ctx, logger, name)
	ctx, cancel := context.WithTimeout(ctx, cfg.CommandTimeout)
	defer cancel()

	if a.UsesCache {
		inv.Cache = openCache(ctx, cfg.Cache)
		if inv.Cache != nil {
			defer inv.Cache.Store.Close()
		}
	}

	fields, err := cmd.Run(ctx, inv)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = core.WrapDomainError(core.ModuleConfig, core.ErrorCodeUnavailable,
			fmt.Sprintf("command timed out after %s", cfg.CommandTimeout), err)
	}
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("request_id", requestID).Msg("command failed")
		return writeFailure(stdout, err)
	}
	zerolog.Ctx(ctx).Debug().Msg("command succeeded")
	return writeSuccess(stdout, fields)
}

func (a *App) commandNames() []string {
	names := make([]string, 0, len(a.Commands))
	for n := range a.Commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// openCache 打开结果缓存；失败时记录日志并关闭缓存
func openCache(ctx context.Context, cfg config.CacheConfig) *store.ResultCache {
	var s core.Store
	switch cfg.Backend {
	case "memory":
		s = store.NewMemoryStore()
	case "redis":
		rs, err := store.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("result cache disabled")
			return nil
		}
		s = rs
	default:
		return nil
	}
	return store.NewResultCache(s, cfg.TTL.TTLs())
}

func writeSuccess(w io.Writer, fields Fields) int {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["success"] = true
	data, err := json.Marshal(out)
	if err != nil {
		return writeFailure(w, fmt.Errorf("encode result: %w", err))
	}
	fmt.Fprintln(w, string(data))
	return 0
}

func writeFailure(w io.Writer, err error) int {
	data, _ := json.Marshal(map[string]any{
		"success": false,
		"error":   err.Error(),
	})
	fmt.Fprintln(w, string(data))
	return 1
}
