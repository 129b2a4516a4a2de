package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/zeebo/xxh3"
	"golang.org/x/text/cases"

	"github.com/cocursor/ontosync/internal/domain/ontology"
)

// 确保 HashEmbedder 实现了 ontology.EmbeddingProvider 接口
var _ ontology.EmbeddingProvider = (*HashEmbedder)(nil)

// HashEmbedder 本地特征哈希向量化，不依赖外部服务
// 词项经大小写折叠后哈希到固定维度，结果做 L2 归一化
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder 创建哈希向量化器
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &HashEmbedder{dimension: dimension}
}

// ModelID 模型标识
func (h *HashEmbedder) ModelID() string {
	return fmt.Sprintf("xxh3-hash-%d", h.dimension)
}

// Dim 向量维度
func (h *HashEmbedder) Dim() int {
	return h.dimension
}

// Embed 空文本返回零向量
func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, h.dimension)
	// cases.Caser 有内部状态，不能并发复用
	folded := cases.Fold().String(text)
	for _, term := range Tokenize(folded) {
		hv := xxh3.HashString(term)
		idx := int(hv % uint64(h.dimension))
		// 用高位决定符号，降低碰撞带来的偏差
		if hv>>63 == 1 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}
	return normalize(vec), nil
}

// Tokenize 按非字母数字字符切分，保留下划线
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}
