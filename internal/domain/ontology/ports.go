package ontology

import "context"

// EmbeddingProvider 文本向量化服务
// 同一向量索引生命周期内维度必须保持不变
type EmbeddingProvider interface {
	// ModelID 模型标识
	ModelID() string
	// Dim 向量维度
	Dim() int
	// Embed 将文本映射为定长向量
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GraphStore 属性图存储
// 所有写操作按键合并，重复执行不会产生重复节点或边
type GraphStore interface {
	// UpsertObject 写入对象节点，返回是否为新建节点
	UpsertObject(ctx context.Context, obj *Object) (created bool, err error)
	// EnsurePlaceholder 确保路径存在节点，不存在时创建占位节点
	EnsurePlaceholder(ctx context.Context, path string) (created bool, err error)
	UpsertImportEdge(ctx context.Context, src, dst string) error
	UpsertSimilarityEdge(ctx context.Context, src, dst string, score float64) error
	// LinkVersion 将对象指向当前版本的变更日志条目
	LinkVersion(ctx context.Context, path string, version int64) error
	// ClearOutgoingEdges 删除路径的全部出向 IMPORTS 和 SIMILAR_TO 边
	ClearOutgoingEdges(ctx context.Context, path string) error
	// DeleteObject 删除节点及所有相连的边
	DeleteObject(ctx context.Context, path string) error
	// GetObject 读取对象，不存在时返回 nil, nil
	GetObject(ctx context.Context, path string) (*Object, error)
	// Neighbors 一次遍历取出多个对象的直接邻居
	Neighbors(ctx context.Context, paths []string) (map[string][]Neighbor, error)
	// ListRelations 列出指定类型的所有边
	ListRelations(ctx context.Context, relation RelationType) ([]Relationship, error)
	// ListPaths 列出所有对象节点路径
	ListPaths(ctx context.Context) ([]string, error)
	CountNodes(ctx context.Context) (int, error)
	// CountRelations 统计对象之间的边（IMPORTS 与 SIMILAR_TO）
	CountRelations(ctx context.Context) (int, error)
}

// VectorHit 向量检索命中
type VectorHit struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// VectorIndex 向量索引
type VectorIndex interface {
	// Upsert 以先删后插方式写入，元数据必须已展平为标量或 JSON 字符串
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]any, excerpt string) error
	// Delete 删除向量，不存在的 ID 不视为错误
	Delete(ctx context.Context, ids []string) error
	QueryByVector(ctx context.Context, vector []float32, k int) ([]VectorHit, error)
	QueryByText(ctx context.Context, text string, k int) ([]VectorHit, error)
}

// ChangelogStore 变更日志持久化
type ChangelogStore interface {
	Append(ctx context.Context, entry *ChangelogEntry) error
	// Since 返回版本号大于 version 的条目，按版本升序
	Since(ctx context.Context, version int64, limit int) ([]*ChangelogEntry, error)
	MaxVersion(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int, error)
}

// Broadcaster 向订阅者广播变更日志
type Broadcaster interface {
	BroadcastChangelog(entry *ChangelogEntry)
}

// ObjectExtractor 从原始内容中提取对象
// 总是返回可用的对象；降级时同时返回 ErrExtractionDegraded
type ObjectExtractor interface {
	Extract(ctx context.Context, path string, content []byte) (*Object, error)
}
