package vector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
	"github.com/cocursor/ontosync/internal/infrastructure/log"
)

// 确保 QdrantIndex 实现了 ontology.VectorIndex 接口
var _ ontology.VectorIndex = (*QdrantIndex)(nil)

// QdrantIndex 基于 Qdrant 的向量索引
// Qdrant 点 ID 必须是 UUID 或整数，对象路径经 UUIDv5 映射，原始路径保存在载荷中
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dimension  uint64
	embedder   ontology.EmbeddingProvider
	logger     *slog.Logger
}

// NewQdrantIndex 连接 Qdrant 并确保集合存在
func NewQdrantIndex(ctx context.Context, cfg *config.VectorConfig, embedder ontology.EmbeddingProvider) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	idx := &QdrantIndex{
		client:     client,
		collection: cfg.Collection,
		dimension:  uint64(embedder.Dim()),
		embedder:   embedder,
		logger:     log.NewModuleLogger("vector", "qdrant"),
	}

	if err := idx.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return idx, nil
}

// ensureCollection 集合不存在时按嵌入维度创建
func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", q.collection, err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", q.collection, err)
	}

	q.logger.Info("Qdrant collection created",
		"collection", q.collection,
		"dimension", q.dimension,
	)
	return nil
}

// PointID 将对象路径映射为稳定的 Qdrant 点 ID
func PointID(path string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(path)).String()
}

// Upsert 先删后插
// Qdrant 余弦距离不接受零向量，此时只删除旧点
func (q *QdrantIndex) Upsert(ctx context.Context, id string, vec []float32, metadata map[string]any, excerpt string) error {
	if err := q.Delete(ctx, []string{id}); err != nil {
		return err
	}
	if IsZeroVector(vec) {
		q.logger.Debug("Skipping zero vector", "path", id)
		return nil
	}

	payload := FlattenPayload(metadata)
	payload[payloadPath] = id
	payload[payloadExcerpt] = excerpt

	values, err := qdrant.TryValueMap(payload)
	if err != nil {
		return fmt.Errorf("failed to convert payload: %w", err)
	}

	_, err = q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(PointID(id)),
				Vectors: qdrant.NewVectorsDense(vec),
				Payload: values,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}
	return nil
}

// Delete 按对象路径删除点
func (q *QdrantIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewIDUUID(PointID(id)))
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	return nil
}

// QueryByVector 检索最相近的 k 个点
func (q *QdrantIndex) QueryByVector(ctx context.Context, vec []float32, k int) ([]ontology.VectorHit, error) {
	if k <= 0 || IsZeroVector(vec) {
		return nil, nil
	}

	limit := uint64(k)
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query qdrant: %w", err)
	}

	hits := make([]ontology.VectorHit, 0, len(points))
	for _, p := range points {
		payload := payloadToMap(p.GetPayload())
		path, _ := payload[payloadPath].(string)
		if path == "" {
			continue
		}
		hits = append(hits, ontology.VectorHit{
			ID:      path,
			Score:   float64(p.GetScore()),
			Payload: payload,
		})
	}
	return hits, nil
}

// QueryByText 先向量化文本再检索
func (q *QdrantIndex) QueryByText(ctx context.Context, text string, k int) ([]ontology.VectorHit, error) {
	vec, err := q.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return q.QueryByVector(ctx, vec, k)
}

// Count 返回集合中的点数量
func (q *QdrantIndex) Count(ctx context.Context) (uint64, error) {
	return q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Exact:          qdrant.PtrOf(true),
	})
}

// Close 关闭连接
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

// payloadToMap 将 Qdrant 载荷转换为普通 map，嵌套结构被忽略
func payloadToMap(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		switch kind := v.GetKind().(type) {
		case *qdrant.Value_StringValue:
			out[k] = kind.StringValue
		case *qdrant.Value_IntegerValue:
			out[k] = kind.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[k] = kind.DoubleValue
		case *qdrant.Value_BoolValue:
			out[k] = kind.BoolValue
		}
	}
	return out
}
