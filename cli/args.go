package cli

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/rushteam/marketrec/core"
)

// decodeArg 解析 JSON 参数
func decodeArg[T any](raw, what string) (T, error) {
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		if core.IsDomainError(err) {
			return v, err
		}
		return v, core.WrapDomainError(core.ModuleConfig, core.ErrorCodeValidation, "invalid "+what+" JSON", err)
	}
	return v, nil
}

// optionalInt 读取第 i 个可选整数参数，缺省返回 def
func optionalInt(args []string, i int, def int, what string) (int, error) {
	if i >= len(args) {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(args[i]))
	if err != nil {
		return 0, core.Validationf(core.ModuleConfig, "%s must be an integer, got %q", what, args[i])
	}
	return n, nil
}

func parseWeight(raw string, def float64) (float64, error) {
	if raw == "" {
		return def, nil
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, core.Validationf(core.ModuleConfig, "weight must be a number, got %q", raw)
	}
	return w, nil
}
