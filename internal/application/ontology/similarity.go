package ontology

import (
	"context"

	domainOntology "github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
	"github.com/cocursor/ontosync/internal/infrastructure/vector"
)

// SimilarityEngine 基于向量索引查找相似对象
type SimilarityEngine struct {
	index     domainOntology.VectorIndex
	k         int
	threshold float64
}

// NewSimilarityEngine 创建相似度引擎
func NewSimilarityEngine(index domainOntology.VectorIndex, cfg *config.SyncConfig) *SimilarityEngine {
	k := cfg.SimilarityK
	if k <= 0 {
		k = 5
	}
	return &SimilarityEngine{
		index:     index,
		k:         k,
		threshold: cfg.SimilarityThreshold,
	}
}

// FindSimilar 返回最多 k 个分数严格高于阈值的对象，不包含 path 自身
// 空向量或零向量直接返回空结果
func (e *SimilarityEngine) FindSimilar(ctx context.Context, path string, embedding []float32) ([]domainOntology.SimilarObject, error) {
	if len(embedding) == 0 || vector.IsZeroVector(embedding) {
		return nil, nil
	}

	// 多取一个，自身通常排在第一位
	hits, err := e.index.QueryByVector(ctx, embedding, e.k+1)
	if err != nil {
		return nil, err
	}

	similar := make([]domainOntology.SimilarObject, 0, e.k)
	for _, hit := range hits {
		if hit.ID == path {
			continue
		}
		score := domainOntology.ClampScore(hit.Score)
		if score <= e.threshold {
			continue
		}
		similar = append(similar, domainOntology.SimilarObject{Path: hit.ID, Score: score})
		if len(similar) == e.k {
			break
		}
	}
	return similar, nil
}
