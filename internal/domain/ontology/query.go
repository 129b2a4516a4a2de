package ontology

import "time"

// SearchResult 语义检索结果
type SearchResult struct {
	Path     string         `json:"path"`
	Score    float64        `json:"score"`
	Type     ObjectType     `json:"type"`
	Metadata ObjectMetadata `json:"metadata"`
	Excerpt  string         `json:"excerpt"`
	Version  int64          `json:"version"`
}

// OntologyResult GraphRAG 查询结果：候选对象及其关系上下文
type OntologyResult struct {
	Object        SearchResult `json:"object"`
	Relationships []Neighbor   `json:"relationships"`
}

// MetricsSnapshot 进程级指标快照
type MetricsSnapshot struct {
	NodesCreated        int64     `json:"nodes_created"`
	RelationsCreated    int64     `json:"relations_created"`
	StreamEvents        int64     `json:"stream_events"`
	IngestFailures      int64     `json:"ingest_failures"`
	VectorWriteFailures int64     `json:"vector_write_failures"`
	EmbeddingFailures   int64     `json:"embedding_failures"`
	SyncLatencySamples  []float64 `json:"sync_latency_samples"`
	AvgSyncLatencyMs    float64   `json:"avg_sync_latency_ms"`
	LastSyncTimestamp   time.Time `json:"last_sync_timestamp"`
}

// Stats 本体统计
type Stats struct {
	NodeCount       int             `json:"node_count"`
	RelationCount   int             `json:"relation_count"`
	CachedCount     int             `json:"cached_count"`
	ChangelogLength int             `json:"changelog_length"`
	Metrics         MetricsSnapshot `json:"metrics"`
}

// ValidationReport 一致性检查结果
type ValidationReport struct {
	// Cycles 导入环，每个环按路径排序
	Cycles [][]string `json:"cycles"`
	// Orphans 没有任何对象间关系的节点
	Orphans []string `json:"orphans"`
	Checked int      `json:"checked"`
}

// BuildReport 冷启动全量加载结果
type BuildReport struct {
	Roots    []string      `json:"roots"`
	Files    int           `json:"files"`
	Skipped  int           `json:"skipped"`
	Live     int           `json:"live"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}
