package core

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Interaction 是一条用户-商品交互记录，Score 为隐式反馈强度
//
// JSON 同时接受 userId/productId 与 user_id/product_id 两种写法。
type Interaction struct {
	UserID    ID      `json:"userId"`
	ProductID ID      `json:"productId"`
	Score     float64 `json:"score"`
}

type rawInteraction struct {
	UserID       *ID             `json:"userId"`
	UserIDAlt    *ID             `json:"user_id"`
	ProductID    *ID             `json:"productId"`
	ProductIDAlt *ID             `json:"product_id"`
	Score        json.RawMessage `json:"score"`
}

func (in *Interaction) UnmarshalJSON(data []byte) error {
	var raw rawInteraction
	if err := json.Unmarshal(data, &raw); err != nil {
		return asValidation(ModuleFeature, "invalid interaction", err)
	}
	user := firstID(raw.UserID, raw.UserIDAlt)
	if user == nil {
		return Validationf(ModuleFeature, "interaction is missing userId")
	}
	product := firstID(raw.ProductID, raw.ProductIDAlt)
	if product == nil {
		return Validationf(ModuleFeature, "interaction is missing productId")
	}
	score, err := parseNumber(raw.Score, "score")
	if err != nil {
		return err
	}
	if score == nil {
		return Validationf(ModuleFeature, "interaction is missing score")
	}
	*in = Interaction{UserID: *user, ProductID: *product, Score: *score}
	return in.Validate()
}

// Validate 校验分数：必须是有限且非负的数
func (in Interaction) Validate() error {
	if in.UserID == "" || in.ProductID == "" {
		return Validationf(ModuleFeature, "interaction identifiers must not be empty")
	}
	if math.IsNaN(in.Score) || math.IsInf(in.Score, 0) {
		return Validationf(ModuleFeature, "interaction (%s, %s) has non-finite score", in.UserID, in.ProductID)
	}
	if in.Score < 0 {
		return Validationf(ModuleFeature, "interaction (%s, %s) has negative score %v", in.UserID, in.ProductID, in.Score)
	}
	return nil
}

// Condition 商品成色
type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionLikeNew Condition = "like-new"
	ConditionGood    Condition = "good"
	ConditionFair    Condition = "fair"
	ConditionPoor    Condition = "poor"
)

// DefaultCategory 缺省品类
const DefaultCategory = "unknown"

// Product 是商品元数据；可选字段为 nil 时使用默认值
type Product struct {
	ID        ID         `json:"id"`
	Category  *string    `json:"category,omitempty"`
	Condition *Condition `json:"condition,omitempty"`
	Price     *float64   `json:"price,omitempty"`
}

type rawProduct struct {
	ID        *ID             `json:"id"`
	Category  *string         `json:"category"`
	Condition *Condition      `json:"condition"`
	Price     json.RawMessage `json:"price"`
}

// UnmarshalJSON 价格同时接受数字与数字字符串（数据库 decimal 列常以字符串返回）
func (p *Product) UnmarshalJSON(data []byte) error {
	var raw rawProduct
	if err := json.Unmarshal(data, &raw); err != nil {
		return asValidation(ModuleFeature, "invalid product", err)
	}
	if raw.ID == nil {
		return Validationf(ModuleFeature, "product is missing id")
	}
	price, err := parseNumber(raw.Price, "price")
	if err != nil {
		return err
	}
	*p = Product{ID: *raw.ID, Category: raw.Category, Condition: raw.Condition, Price: price}
	return p.Validate()
}

// Validate 校验价格：必须是有限且非负的数
func (p Product) Validate() error {
	if p.ID == "" {
		return Validationf(ModuleFeature, "product id must not be empty")
	}
	if p.Price != nil {
		if math.IsNaN(*p.Price) || math.IsInf(*p.Price, 0) || *p.Price < 0 {
			return Validationf(ModuleFeature, "product %s has invalid price %v", p.ID, *p.Price)
		}
	}
	return nil
}

// CategoryOrDefault 返回品类，缺省为 "unknown"
func (p Product) CategoryOrDefault() string {
	if p.Category == nil {
		return DefaultCategory
	}
	return *p.Category
}

// ConditionOrDefault 返回成色，缺省为 good
func (p Product) ConditionOrDefault() Condition {
	if p.Condition == nil {
		return ConditionGood
	}
	return *p.Condition
}

// PriceOrDefault 返回价格，缺省为 0
func (p Product) PriceOrDefault() float64 {
	if p.Price == nil {
		return 0
	}
	return *p.Price
}

// MarshalJSON 输出为 [id, score]
func (s ScoredID) MarshalJSON() ([]byte, error) {
	id, err := s.ID.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	buf.Write(id)
	buf.WriteByte(',')
	buf.WriteString(strconv.FormatFloat(s.Score, 'g', -1, 64))
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON 解析 [id, score]
func (s *ScoredID) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return asValidation(ModuleRecommend, "invalid scored pair", err)
	}
	if len(pair) != 2 {
		return Validationf(ModuleRecommend, "scored pair must have 2 elements, got %d", len(pair))
	}
	var id ID
	if err := id.UnmarshalJSON(pair[0]); err != nil {
		return err
	}
	score, err := parseNumber(pair[1], "score")
	if err != nil {
		return err
	}
	if score == nil {
		return Validationf(ModuleRecommend, "scored pair is missing score")
	}
	*s = ScoredID{ID: id, Score: *score}
	return nil
}

func firstID(ids ...*ID) *ID {
	for _, id := range ids {
		if id != nil {
			return id
		}
	}
	return nil
}

// parseNumber 解析 JSON 数字或数字字符串；字段缺失或为 null 时返回 nil
func parseNumber(raw json.RawMessage, field string) (*float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, asValidation(ModuleFeature, "invalid "+field, err)
		}
		text = strings.TrimSpace(s)
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, Validationf(ModuleFeature, "%s %s is not numeric", field, string(raw))
	}
	return &f, nil
}

func asValidation(module, message string, err error) error {
	if IsDomainError(err) {
		return err
	}
	return WrapDomainError(module, ErrorCodeValidation, message, err)
}
