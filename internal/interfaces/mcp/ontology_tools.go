package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	domainOntology "github.com/cocursor/ontosync/internal/domain/ontology"
)

// 查询状态
const (
	statusOK    = "ok"
	statusError = "error"
)

// SearchInput 语义检索工具输入
type SearchInput struct {
	Query string `json:"query" jsonschema:"Natural language query (required)"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of results, defaults to 10, max 100"`
}

// ObjectHit 检索命中的对象
type ObjectHit struct {
	Path     string         `json:"path" jsonschema:"Absolute file path"`
	Type     string         `json:"type" jsonschema:"Tagged type, e.g. Code:go or Document:Markdown"`
	Score    float64        `json:"score" jsonschema:"Similarity score in [0,1]"`
	Excerpt  string         `json:"excerpt,omitempty" jsonschema:"Leading content excerpt"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"Type specific metadata"`
	Version  int64          `json:"version" jsonschema:"Changelog version of the last write"`
}

// SearchOutput 语义检索工具输出
type SearchOutput struct {
	Results []ObjectHit `json:"results" jsonschema:"Ranked results"`
	Count   int         `json:"count" jsonschema:"Number of results"`
	Status  string      `json:"status" jsonschema:"ok or error"`
	Error   string      `json:"error,omitempty" jsonschema:"Failure reason when status is error"`
}

// RelationHit 对象的一条直接关系
type RelationHit struct {
	Relation  string  `json:"relation" jsonschema:"IMPORTS, SIMILAR_TO or HAS_VERSION"`
	Target    string  `json:"target" jsonschema:"Path or changelog node on the other end"`
	Direction string  `json:"direction" jsonschema:"out or in"`
	Score     float64 `json:"score,omitempty" jsonschema:"Similarity score for SIMILAR_TO"`
}

// OntologyHit 对象及其关系
type OntologyHit struct {
	Object        ObjectHit     `json:"object"`
	Relationships []RelationHit `json:"relationships"`
}

// QueryOutput GraphRAG 查询工具输出
type QueryOutput struct {
	Results []OntologyHit `json:"results"`
	Count   int           `json:"count"`
	Status  string        `json:"status" jsonschema:"ok or error"`
	Error   string        `json:"error,omitempty"`
}

// GetObjectInput 读取对象工具输入
type GetObjectInput struct {
	Path string `json:"path" jsonschema:"Absolute file path (required)"`
}

// GetObjectOutput 读取对象工具输出
type GetObjectOutput struct {
	Found        bool           `json:"found"`
	Path         string         `json:"path"`
	Type         string         `json:"type,omitempty"`
	Excerpt      string         `json:"excerpt,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Size         int64          `json:"size,omitempty"`
	LineCount    int            `json:"line_count,omitempty"`
	TokenCount   int            `json:"token_count,omitempty"`
	ContentHash  string         `json:"content_hash,omitempty"`
	Version      int64          `json:"version,omitempty"`
	LastModified string         `json:"last_modified,omitempty" jsonschema:"RFC3339 timestamp"`
}

// EmptyInput 无参数工具输入
type EmptyInput struct{}

// StatsOutput 统计工具输出
type StatsOutput struct {
	NodeCount           int     `json:"node_count"`
	RelationCount       int     `json:"relation_count"`
	CachedCount         int     `json:"cached_count"`
	ChangelogLength     int     `json:"changelog_length"`
	NodesCreated        int64   `json:"nodes_created"`
	RelationsCreated    int64   `json:"relations_created"`
	StreamEvents        int64   `json:"stream_events"`
	IngestFailures      int64   `json:"ingest_failures"`
	VectorWriteFailures int64   `json:"vector_write_failures"`
	EmbeddingFailures   int64   `json:"embedding_failures"`
	AvgSyncLatencyMs    float64 `json:"avg_sync_latency_ms"`
	LastSyncTimestamp   string  `json:"last_sync_timestamp,omitempty" jsonschema:"RFC3339 timestamp"`
}

// ValidateOutput 一致性检查工具输出
type ValidateOutput struct {
	Cycles  [][]string `json:"cycles" jsonschema:"Import cycles, each sorted by path"`
	Orphans []string   `json:"orphans" jsonschema:"Nodes without any object relationship"`
	Checked int        `json:"checked"`
}

// ChangelogInput 变更日志工具输入
type ChangelogInput struct {
	Since int64 `json:"since,omitempty" jsonschema:"Return entries with version greater than this, defaults to 0"`
}

// ChangelogItem 变更日志条目
type ChangelogItem struct {
	Version   int64  `json:"version"`
	ID        string `json:"id"`
	Event     string `json:"event" jsonschema:"add, change or remove"`
	Path      string `json:"path"`
	Timestamp string `json:"timestamp" jsonschema:"RFC3339 timestamp"`
}

// ChangelogOutput 变更日志工具输出
type ChangelogOutput struct {
	Entries []ChangelogItem `json:"entries"`
	Latest  int64           `json:"latest" jsonschema:"Highest version in entries, or since when empty"`
}

func (s *MCPServer) semanticSearchTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	output := SearchOutput{Results: []ObjectHit{}, Status: statusOK}
	if input.Query == "" {
		return nil, output, fmt.Errorf("query is required")
	}

	results, err := s.service.SemanticSearch(ctx, input.Query, input.Limit)
	if err != nil {
		// 查询失败以状态返回，不作为工具错误
		s.logger.Warn("semantic_search failed", "error", err)
		output.Status = statusError
		output.Error = err.Error()
		return nil, output, nil
	}

	for _, r := range results {
		output.Results = append(output.Results, toObjectHit(r))
	}
	output.Count = len(output.Results)
	return nil, output, nil
}

func (s *MCPServer) queryOntologyTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	output := QueryOutput{Results: []OntologyHit{}, Status: statusOK}
	if input.Query == "" {
		return nil, output, fmt.Errorf("query is required")
	}

	results, err := s.service.QueryOntology(ctx, input.Query, input.Limit)
	if err != nil {
		s.logger.Warn("query_ontology failed", "error", err)
		output.Status = statusError
		output.Error = err.Error()
		return nil, output, nil
	}

	for _, r := range results {
		hit := OntologyHit{
			Object:        toObjectHit(r.Object),
			Relationships: make([]RelationHit, 0, len(r.Relationships)),
		}
		for _, n := range r.Relationships {
			hit.Relationships = append(hit.Relationships, RelationHit{
				Relation:  string(n.Relation),
				Target:    n.Target,
				Direction: string(n.Direction),
				Score:     n.Score,
			})
		}
		output.Results = append(output.Results, hit)
	}
	output.Count = len(output.Results)
	return nil, output, nil
}

func (s *MCPServer) getObjectTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetObjectInput,
) (*mcp.CallToolResult, GetObjectOutput, error) {
	output := GetObjectOutput{Path: input.Path}
	if input.Path == "" {
		return nil, output, fmt.Errorf("path is required")
	}

	obj, err := s.service.GetObject(ctx, input.Path)
	if err != nil {
		if errors.Is(err, domainOntology.ErrNotFound) {
			return nil, output, nil
		}
		return nil, output, fmt.Errorf("failed to load object: %w", err)
	}

	output.Found = true
	output.Type = obj.Type.String()
	output.Excerpt = obj.ContentExcerpt
	output.Metadata = metadataMap(obj.Metadata)
	output.Size = obj.Size
	output.LineCount = obj.LineCount
	output.TokenCount = obj.TokenCount
	output.ContentHash = obj.ContentHash
	output.Version = obj.Version
	output.LastModified = formatTime(obj.LastModified)
	return nil, output, nil
}

func (s *MCPServer) getStatsTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input EmptyInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	stats, err := s.service.GetStats(ctx)
	if err != nil {
		return nil, StatsOutput{}, fmt.Errorf("failed to load stats: %w", err)
	}

	m := stats.Metrics
	return nil, StatsOutput{
		NodeCount:           stats.NodeCount,
		RelationCount:       stats.RelationCount,
		CachedCount:         stats.CachedCount,
		ChangelogLength:     stats.ChangelogLength,
		NodesCreated:        m.NodesCreated,
		RelationsCreated:    m.RelationsCreated,
		StreamEvents:        m.StreamEvents,
		IngestFailures:      m.IngestFailures,
		VectorWriteFailures: m.VectorWriteFailures,
		EmbeddingFailures:   m.EmbeddingFailures,
		AvgSyncLatencyMs:    m.AvgSyncLatencyMs,
		LastSyncTimestamp:   formatTime(m.LastSyncTimestamp),
	}, nil
}

func (s *MCPServer) validateOntologyTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input EmptyInput,
) (*mcp.CallToolResult, ValidateOutput, error) {
	report, err := s.service.ValidateOntology(ctx)
	if err != nil {
		return nil, ValidateOutput{}, fmt.Errorf("validation failed: %w", err)
	}

	output := ValidateOutput{
		Cycles:  report.Cycles,
		Orphans: report.Orphans,
		Checked: report.Checked,
	}
	if output.Cycles == nil {
		output.Cycles = [][]string{}
	}
	if output.Orphans == nil {
		output.Orphans = []string{}
	}
	return nil, output, nil
}

func (s *MCPServer) getChangelogTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ChangelogInput,
) (*mcp.CallToolResult, ChangelogOutput, error) {
	output := ChangelogOutput{Entries: []ChangelogItem{}, Latest: input.Since}
	if input.Since < 0 {
		return nil, output, fmt.Errorf("since must be non-negative")
	}

	entries, err := s.service.Tail(ctx, input.Since)
	if err != nil {
		return nil, output, fmt.Errorf("failed to read changelog: %w", err)
	}
	for _, e := range entries {
		output.Entries = append(output.Entries, ChangelogItem{
			Version:   e.Version,
			ID:        e.ID,
			Event:     string(e.Event),
			Path:      e.Path,
			Timestamp: formatTime(e.Timestamp),
		})
		if e.Version > output.Latest {
			output.Latest = e.Version
		}
	}
	return nil, output, nil
}

func toObjectHit(r domainOntology.SearchResult) ObjectHit {
	return ObjectHit{
		Path:     r.Path,
		Type:     r.Type.String(),
		Score:    r.Score,
		Excerpt:  r.Excerpt,
		Metadata: metadataMap(r.Metadata),
		Version:  r.Version,
	}
}

// metadataMap 将类型化元数据转换为通用 JSON 对象
func metadataMap(md domainOntology.ObjectMetadata) map[string]any {
	if md == nil {
		return nil
	}
	data, err := json.Marshal(md)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
