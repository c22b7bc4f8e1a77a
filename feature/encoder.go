package feature

import (
	"hash/fnv"
	"math"

	"github.com/rushteam/marketrec/core"
)

// Encoder 把商品的一个属性编码为定长的数值列。
// 多个 Encoder 顺序拼接得到商品的内容特征向量。
type Encoder interface {
	// Width 返回编码输出的列数
	Width() int
	// Encode 把 p 的编码结果写入 dst，len(dst) == Width()
	Encode(dst []float64, p core.Product)
}

// HashBucketEncoder 哈希分桶编码：品类经 FNV-1a 32 位哈希后取模，落入的桶置 1。
// 哈希函数固定，同一品类在任何进程中都落入同一个桶。
type HashBucketEncoder struct {
	NumBuckets int
}

// NewHashBucketEncoder 创建哈希分桶编码器
func NewHashBucketEncoder(numBuckets int) *HashBucketEncoder {
	return &HashBucketEncoder{NumBuckets: numBuckets}
}

func (e *HashBucketEncoder) Width() int { return e.NumBuckets }

func (e *HashBucketEncoder) Encode(dst []float64, p core.Product) {
	dst[e.Bucket(p.CategoryOrDefault())] = 1.0
}

// Bucket 返回值所在的桶
func (e *HashBucketEncoder) Bucket(value string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(value))
	return int(h.Sum32() % uint32(e.NumBuckets))
}

// conditionOrdinals 成色序数：new=5 ... poor=1
var conditionOrdinals = map[core.Condition]float64{
	core.ConditionNew:     5,
	core.ConditionLikeNew: 4,
	core.ConditionGood:    3,
	core.ConditionFair:    2,
	core.ConditionPoor:    1,
}

// ConditionEncoder 成色序数编码，输出 ordinal / 5；未知成色按 good 处理
type ConditionEncoder struct{}

func (ConditionEncoder) Width() int { return 1 }

func (ConditionEncoder) Encode(dst []float64, p core.Product) {
	ord, ok := conditionOrdinals[p.ConditionOrDefault()]
	if !ok {
		ord = conditionOrdinals[core.ConditionGood]
	}
	dst[0] = ord / 5.0
}

// PriceScaler 价格缩放：price / Scale，截断到 [0, 1]
type PriceScaler struct {
	Scale float64
}

func (e PriceScaler) Width() int { return 1 }

func (e PriceScaler) Encode(dst []float64, p core.Product) {
	dst[0] = math.Max(0, math.Min(1, p.PriceOrDefault()/e.Scale))
}
