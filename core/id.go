package core

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ID 是用户/商品的统一标识。
//
// 调用方（marketplace 后端）既会传数字 ID 也会传字符串 ID：
//   - JSON 整数（或整数值的浮点数，如 5.0）规范化为十进制字符串，输出时仍写回 JSON 数字
//   - JSON 字符串原样保留，输出时写回字符串
//
// 排序规则（用于交互矩阵的行列顺序）：整数 ID 按数值升序排在前面，其余按字典序排在后面。
type ID string

func (id ID) String() string { return string(id) }

// IsInteger 判断 ID 是否为规范的十进制整数字面量
func (id ID) IsInteger() bool {
	_, ok := id.integer()
	return ok
}

func (id ID) integer() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, false
	}
	if strconv.FormatInt(n, 10) != string(id) {
		return 0, false
	}
	return n, true
}

// CompareIDs 返回 a 与 b 的全序比较结果（-1 / 0 / 1）
func CompareIDs(a, b ID) int {
	an, aInt := a.integer()
	bn, bInt := b.integer()
	switch {
	case aInt && bInt:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case aInt:
		return -1
	case bInt:
		return 1
	}
	return strings.Compare(string(a), string(b))
}

// ParseID 解析命令行参数中的 ID
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", Validationf(ModuleRecommend, "identifier is empty")
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !strings.ContainsAny(s, "xXpP_") {
		return idFromFloat(f, s)
	}
	return ID(s), nil
}

func idFromFloat(f float64, raw string) (ID, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return "", Validationf(ModuleRecommend, "identifier %s is not an integer", raw)
	}
	return ID(strconv.FormatInt(int64(f), 10)), nil
}

// UnmarshalJSON 支持 JSON 数字与字符串两种形式
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Validationf(ModuleRecommend, "identifier is null")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return WrapDomainError(ModuleRecommend, ErrorCodeValidation, "invalid identifier", err)
		}
		if strings.TrimSpace(s) == "" {
			return Validationf(ModuleRecommend, "identifier is empty")
		}
		*id = ID(s)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return Validationf(ModuleRecommend, "invalid identifier %s", string(data))
	}
	parsed, err := idFromFloat(f, string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalJSON 整数 ID 输出为 JSON 数字，其余输出为字符串
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsInteger() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}
