package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 核心组件只返回此类型（或包裹它的错误）
//   - 提供错误代码（Code）、模块（Module）和消息（Message）
//   - 支持 errors.Is / errors.As（通过 Unwrap 暴露底层错误）
//
// 错误分类：
//   - VALIDATION：输入格式错误、缺少必填字段、非法分数等
//   - CONFIGURATION：分解参数不合法（用户/物品不足、组件数非法）
//   - COMPUTATION：数值计算失败（零范数、维度不一致）
//   - NOT_FOUND：未知用户/商品。注意：核心不会把它作为错误返回，
//     未知用户走热门兜底，未知商品返回空列表
//   - UNAVAILABLE：外部编码服务不可用
type DomainError struct {
	Code    string // 错误代码（如 "VALIDATION", "COMPUTATION"）
	Message string // 错误消息
	Module  string // 模块名称（如 "feature", "model", "vector"）
	Err     error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链上的 DomainError，如果不存在则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// WrapDomainError 创建包裹底层错误的领域错误
func WrapDomainError(module, code, message string, err error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// 错误代码常量
const (
	ErrorCodeValidation    = "VALIDATION"     // 输入无效
	ErrorCodeConfiguration = "CONFIGURATION"  // 配置/参数无效
	ErrorCodeComputation   = "COMPUTATION"    // 数值计算失败
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore     = "store"     // 存储模块
	ModuleFeature   = "feature"   // 特征构建
	ModuleModel     = "model"     // 隐因子模型
	ModuleRecommend = "recommend" // 推荐编排
	ModuleVector    = "vector"    // 向量检索
	ModuleEncoder   = "encoder"   // 外部编码服务
	ModuleConfig    = "config"    // 配置
)

// Validationf 构造 VALIDATION 错误
func Validationf(module, format string, args ...any) *DomainError {
	return NewDomainError(module, ErrorCodeValidation, fmt.Sprintf(format, args...))
}

// Configurationf 构造 CONFIGURATION 错误
func Configurationf(module, format string, args ...any) *DomainError {
	return NewDomainError(module, ErrorCodeConfiguration, fmt.Sprintf(format, args...))
}

// Computationf 构造 COMPUTATION 错误
func Computationf(module, format string, args ...any) *DomainError {
	return NewDomainError(module, ErrorCodeComputation, fmt.Sprintf(format, args...))
}

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsValidation 检查错误是否为 VALIDATION
func IsValidation(err error) bool { return hasCode(err, ErrorCodeValidation) }

// IsConfiguration 检查错误是否为 CONFIGURATION
func IsConfiguration(err error) bool { return hasCode(err, ErrorCodeConfiguration) }

// IsComputation 检查错误是否为 COMPUTATION
func IsComputation(err error) bool { return hasCode(err, ErrorCodeComputation) }

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool { return hasCode(err, ErrorCodeNotSupported) }

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool { return hasCode(err, ErrorCodeUnavailable) }
