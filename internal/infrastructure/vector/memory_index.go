package vector

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/cocursor/ontosync/internal/domain/ontology"
)

// ErrVectorLengthMismatch 向量维度不一致
var ErrVectorLengthMismatch = errors.New("vector length mismatch")

// 确保 MemoryIndex 实现了 ontology.VectorIndex 接口
var _ ontology.VectorIndex = (*MemoryIndex)(nil)

type memoryEntry struct {
	vector  []float32
	payload map[string]any
}

// MemoryIndex 进程内暴力检索的余弦向量索引
// 适用于单机和测试场景，数据不落盘
type MemoryIndex struct {
	mu       sync.RWMutex
	entries  map[string]memoryEntry
	embedder ontology.EmbeddingProvider
}

// NewMemoryIndex 创建内存向量索引
func NewMemoryIndex(embedder ontology.EmbeddingProvider) *MemoryIndex {
	return &MemoryIndex{
		entries:  make(map[string]memoryEntry),
		embedder: embedder,
	}
}

// Upsert 替换 id 对应的向量与载荷
func (m *MemoryIndex) Upsert(ctx context.Context, id string, vec []float32, metadata map[string]any, excerpt string) error {
	payload := FlattenPayload(metadata)
	payload[payloadPath] = id
	payload[payloadExcerpt] = excerpt

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = memoryEntry{
		vector:  append([]float32(nil), vec...),
		payload: payload,
	}
	return nil
}

// Delete 删除向量，不存在的 id 忽略
func (m *MemoryIndex) Delete(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.entries, id)
	}
	return nil
}

// QueryByVector 返回余弦相似度最高的 k 个结果
func (m *MemoryIndex) QueryByVector(ctx context.Context, vec []float32, k int) ([]ontology.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	hits := make([]ontology.VectorHit, 0, len(m.entries))
	for id, e := range m.entries {
		score, err := Cosine(vec, e.vector)
		if err != nil {
			continue
		}
		hits = append(hits, ontology.VectorHit{ID: id, Score: score, Payload: e.payload})
	}
	m.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// QueryByText 先向量化文本再检索
func (m *MemoryIndex) QueryByText(ctx context.Context, text string, k int) ([]ontology.VectorHit, error) {
	vec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return m.QueryByVector(ctx, vec, k)
}

// Len 当前向量数量
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Cosine 计算两个等长向量的余弦相似度，任一为零向量时返回 0
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrVectorLengthMismatch
	}
	var dot, na, nb float64
	for i := 0; i < len(a); i++ {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	den := math.Sqrt(na) * math.Sqrt(nb)
	if den == 0 {
		return 0, nil
	}
	return dot / den, nil
}
