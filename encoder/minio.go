package encoder

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/rushteam/marketrec/core"
)

// MinioSource 从 S3 兼容的对象存储读取图片（商品图通常由后端上传到这里）
type MinioSource struct {
	client   *minio.Client
	maxBytes int64
}

var _ ObjectSource = (*MinioSource)(nil)

// NewMinioSource 创建对象存储读取器
func NewMinioSource(endpoint, accessKey, secretKey string, useSSL bool) (*MinioSource, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleEncoder, core.ErrorCodeConfiguration, "create object storage client", err)
	}
	return &MinioSource{client: client, maxBytes: DefaultMaxImageBytes}, nil
}

// GetObject 读取对象；对象不存在返回 VALIDATION 错误
func (s *MinioSource) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleEncoder, core.ErrorCodeUnavailable, "object storage request failed", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(io.LimitReader(obj, s.maxBytes+1))
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, core.Validationf(core.ModuleEncoder, "image not found: s3://%s/%s", bucket, key)
		}
		return nil, core.WrapDomainError(core.ModuleEncoder, core.ErrorCodeUnavailable, "read object", err)
	}
	return data, nil
}
