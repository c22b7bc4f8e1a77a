package encoder

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/rushteam/marketrec/core"
)

// HTTPEncoder 是编码推理服务的 HTTP 客户端。
//
// REST API 格式：
//   - 推理端点：POST {endpoint}/predictions/{model}
//   - 请求体：{"type": "image", "inputs": ["<base64>", ...]} 或 {"type": "text", "inputs": ["..."]}
//   - 响应：{"embeddings": [[...], ...]}，也接受直接返回的二维数组
//
// 网络错误、5xx 与 429 按指数退避重试；连续失败后熔断，熔断期间直接返回 UNAVAILABLE。
type HTTPEncoder struct {
	// Endpoint 服务端点，例如 "http://localhost:8080"
	Endpoint string

	// ModelName 模型名称
	ModelName string

	// Timeout 单次 HTTP 请求超时
	Timeout time.Duration

	// MaxRetries 最大重试次数（不含首次请求）
	MaxRetries int

	// Auth 认证信息（可选）
	Auth *AuthConfig

	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[][]float64]
}

// AuthConfig 认证信息
type AuthConfig struct {
	Type   string // "bearer" / "api_key"
	Token  string
	APIKey string
}

// NewHTTPEncoder 创建编码服务客户端
func NewHTTPEncoder(endpoint, modelName string, opts ...HTTPEncoderOption) *HTTPEncoder {
	c := &HTTPEncoder{
		Endpoint:   strings.TrimRight(endpoint, "/"),
		ModelName:  modelName,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.Timeout}
	}
	c.breaker = gobreaker.NewCircuitBreaker[[][]float64](gobreaker.Settings{
		Name:        "encoder:" + c.ModelName,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 请求本身不合法不算服务故障
		IsSuccessful: func(err error) bool {
			return err == nil || core.IsValidation(err)
		},
	})
	return c
}

// HTTPEncoderOption 编码客户端配置选项
type HTTPEncoderOption func(*HTTPEncoder)

// WithTimeout 设置单次请求超时
func WithTimeout(timeout time.Duration) HTTPEncoderOption {
	return func(c *HTTPEncoder) {
		c.Timeout = timeout
		if c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithMaxRetries 设置最大重试次数
func WithMaxRetries(n int) HTTPEncoderOption {
	return func(c *HTTPEncoder) { c.MaxRetries = n }
}

// WithAuth 设置认证信息
func WithAuth(auth *AuthConfig) HTTPEncoderOption {
	return func(c *HTTPEncoder) { c.Auth = auth }
}

// WithHTTPClient 设置自定义 HTTP 客户端
func WithHTTPClient(httpClient *http.Client) HTTPEncoderOption {
	return func(c *HTTPEncoder) { c.httpClient = httpClient }
}

type encodeRequest struct {
	Type   string   `json:"type"`
	Inputs []string `json:"inputs"`
}

type encodeResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// EncodeImages 实现 Encoder 接口
func (c *HTTPEncoder) EncodeImages(ctx context.Context, images [][]byte) ([][]float64, error) {
	if len(images) == 0 {
		return [][]float64{}, nil
	}
	inputs := make([]string, len(images))
	for i, img := range images {
		inputs[i] = base64.StdEncoding.EncodeToString(img)
	}
	return c.encode(ctx, &encodeRequest{Type: "image", Inputs: inputs})
}

// EncodeText 实现 Encoder 接口
func (c *HTTPEncoder) EncodeText(ctx context.Context, text string) ([]float64, error) {
	out, err := c.encode(ctx, &encodeRequest{Type: "text", Inputs: []string{text}})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (c *HTTPEncoder) encode(ctx context.Context, req *encodeRequest) ([][]float64, error) {
	out, err := c.breaker.Execute(func() ([][]float64, error) {
		return c.encodeWithRetry(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, core.WrapDomainError(core.ModuleEncoder, core.ErrorCodeUnavailable, "encoder service unavailable", err)
	}
	if err != nil {
		return nil, err
	}
	if len(out) != len(req.Inputs) {
		return nil, core.Computationf(core.ModuleEncoder, "encoder returned %d embeddings for %d inputs", len(out), len(req.Inputs))
	}
	return out, nil
}

func (c *HTTPEncoder) encodeWithRetry(ctx context.Context, req *encodeRequest) ([][]float64, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	var policy backoff.BackOff = b
	if c.MaxRetries >= 0 {
		policy = backoff.WithMaxRetries(b, uint64(c.MaxRetries))
	}

	logger := zerolog.Ctx(ctx)
	var out [][]float64
	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		result, err := c.post(ctx, body)
		if err != nil {
			logger.Debug().Err(err).Int("attempt", attempt).Str("model", c.ModelName).Msg("encoder request failed")
			return err
		}
		out = result
		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		var statusErr *statusError
		if errors.As(err, &statusErr) && !statusErr.retryable() {
			return nil, core.WrapDomainError(core.ModuleEncoder, core.ErrorCodeValidation, "encoder rejected request", err)
		}
		return nil, core.WrapDomainError(core.ModuleEncoder, core.ErrorCodeUnavailable, "encoder request failed", err)
	}
	return out, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("encoder error: status=%d, body=%s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code >= 500 || e.code == http.StatusTooManyRequests
}

func (c *HTTPEncoder) post(ctx context.Context, body []byte) ([][]float64, error) {
	url := fmt.Sprintf("%s/predictions/%s", c.Endpoint, c.ModelName)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.addAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("encoder request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		se := &statusError{code: resp.StatusCode, body: string(data)}
		if !se.retryable() {
			return nil, backoff.Permanent(se)
		}
		return nil, se
	}

	var wrapped encodeResponse
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Embeddings != nil {
		return wrapped.Embeddings, nil
	}
	var bare [][]float64
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("parse response: %w", err))
	}
	return bare, nil
}

func (c *HTTPEncoder) addAuth(req *http.Request) {
	if c.Auth == nil {
		return
	}
	switch c.Auth.Type {
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+c.Auth.Token)
	case "api_key":
		req.Header.Set("X-API-Key", c.Auth.APIKey)
	}
}

// Health 健康检查：GET {endpoint}/ping
func (c *HTTPEncoder) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+"/ping", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.addAuth(httpReq)
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return core.WrapDomainError(core.ModuleEncoder, core.ErrorCodeUnavailable, "encoder health check failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return core.NewDomainError(core.ModuleEncoder, core.ErrorCodeUnavailable, fmt.Sprintf("encoder unhealthy: status=%d", resp.StatusCode))
	}
	return nil
}
