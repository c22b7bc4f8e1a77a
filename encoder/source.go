package encoder

import (
	"context"
	"encoding/base64"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/rushteam/marketrec/core"
)

// DefaultMaxImageBytes 单张图片大小上限
const DefaultMaxImageBytes = 20 << 20

// ObjectSource 对象存储读取接口（s3://bucket/key）
type ObjectSource interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// ImageLoader 把图片来源解析为原始字节。
//
// 支持的来源：
//   - data URI：data:image/png;base64,....
//   - 对象存储：s3://bucket/key（需要配置 Objects）
//   - 本地文件路径
//
// 读取结果必须是可识别的图片格式，否则返回 VALIDATION 错误。
type ImageLoader struct {
	Objects  ObjectSource
	MaxBytes int
}

// Load 读取图片
func (l *ImageLoader) Load(ctx context.Context, source string) ([]byte, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, core.Validationf(core.ModuleEncoder, "image source is empty")
	}

	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(source, "data:"):
		data, err = decodeDataURI(source)
	case strings.HasPrefix(source, "s3://"):
		data, err = l.loadObject(ctx, source)
	default:
		data, err = l.loadFile(source)
	}
	if err != nil {
		return nil, err
	}

	if len(data) > l.maxBytes() {
		return nil, core.Validationf(core.ModuleEncoder, "image exceeds %d bytes", l.maxBytes())
	}
	if ct := http.DetectContentType(data); !strings.HasPrefix(ct, "image/") {
		return nil, core.Validationf(core.ModuleEncoder, "source is not an image (%s)", ct)
	}
	return data, nil
}

func (l *ImageLoader) maxBytes() int {
	if l.MaxBytes > 0 {
		return l.MaxBytes
	}
	return DefaultMaxImageBytes
}

// decodeDataURI 解析 data:image/...;base64,<payload>
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return nil, core.Validationf(core.ModuleEncoder, "malformed data URI")
	}
	if !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return nil, core.Validationf(core.ModuleEncoder, "data URI must be a base64 encoded image")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleEncoder, core.ErrorCodeValidation, "invalid base64 image payload", err)
	}
	return data, nil
}

func (l *ImageLoader) loadObject(ctx context.Context, uri string) ([]byte, error) {
	if l.Objects == nil {
		return nil, core.Configurationf(core.ModuleEncoder, "object storage is not configured for %s", uri)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(uri, "s3://"), "/")
	if !ok || bucket == "" || key == "" {
		return nil, core.Validationf(core.ModuleEncoder, "malformed object uri %s", uri)
	}
	return l.Objects.GetObject(ctx, bucket, key)
}

func (l *ImageLoader) loadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, core.Validationf(core.ModuleEncoder, "image not found: %s", path)
	}
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleEncoder, core.ErrorCodeValidation, "cannot read image "+path, err)
	}
	if info.IsDir() {
		return nil, core.Validationf(core.ModuleEncoder, "image path is a directory: %s", path)
	}
	if info.Size() > int64(l.maxBytes()) {
		return nil, core.Validationf(core.ModuleEncoder, "image exceeds %d bytes", l.maxBytes())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleEncoder, core.ErrorCodeValidation, "cannot read image "+path, err)
	}
	return data, nil
}
