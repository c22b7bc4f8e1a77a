// Package encoder 对接外部的图像/文本编码能力（CLIP 一类模型），
// 把图片或文字映射为定长向量，供 vector 包检索使用。
//
// 模型本身不在本进程内：Encoder 接口由 HTTPEncoder 对接推理服务，
// Session 负责归一化、维度校验、结果缓存与批量加载图片。
package encoder

import "context"

// DefaultDimensions CLIP ViT-B/32 输出维度
const DefaultDimensions = 512

// Encoder 是外部编码能力的抽象
type Encoder interface {
	// EncodeImages 批量编码图片（原始字节），返回与输入等长的向量
	EncodeImages(ctx context.Context, images [][]byte) ([][]float64, error)

	// EncodeText 编码一段文本
	EncodeText(ctx context.Context, text string) ([]float64, error)
}
