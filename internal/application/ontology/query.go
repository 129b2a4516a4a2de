package ontology

import (
	"context"
	"fmt"

	domainOntology "github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/vector"
)

// DefaultSearchLimit 未指定 limit 时返回的结果数
const DefaultSearchLimit = 10

// MaxSearchLimit 单次查询的结果上限
const MaxSearchLimit = 100

// queryErr 包装查询错误
func queryErr(op string, err error) error {
	return domainOntology.NewSyncError(domainOntology.ErrQueryFailed, "", 0, fmt.Errorf("%s: %w", op, err))
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultSearchLimit
	case limit > MaxSearchLimit:
		return MaxSearchLimit
	default:
		return limit
	}
}

// SemanticSearch 语义检索
// 查询失败时返回空结果和 ErrQueryFailed；分数不高于 min_score 或已不存在的对象被过滤
func (o *Orchestrator) SemanticSearch(ctx context.Context, text string, limit int) ([]domainOntology.SearchResult, error) {
	limit = normalizeLimit(limit)
	results := []domainOntology.SearchResult{}

	actx, cancel := o.adapterCtx(ctx)
	vec, err := o.embedder.Embed(actx, text)
	cancel()
	if err != nil {
		return results, queryErr("embed query", err)
	}
	if vector.IsZeroVector(vec) {
		return results, nil
	}

	// 多取一些，被过滤掉的删除中对象不会挤占名额
	actx, cancel = o.adapterCtx(ctx)
	hits, err := o.vectors.QueryByVector(actx, vec, limit*2)
	cancel()
	if err != nil {
		return results, queryErr("vector query", err)
	}

	for _, hit := range hits {
		if hit.Score <= o.cfg.MinScore {
			continue
		}
		if state := o.states.get(hit.ID); state == domainOntology.StateRemoving {
			continue
		}

		obj, err := o.hydrate(ctx, hit.ID)
		if err != nil {
			return []domainOntology.SearchResult{}, queryErr("hydrate "+hit.ID, err)
		}
		if obj == nil {
			continue
		}

		results = append(results, domainOntology.SearchResult{
			Path:     obj.Path,
			Score:    domainOntology.ClampScore(hit.Score),
			Type:     obj.Type,
			Metadata: obj.Metadata,
			Excerpt:  obj.ContentExcerpt,
			Version:  obj.Version,
		})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

// hydrate 先查缓存再查图存储，占位节点视为不存在
func (o *Orchestrator) hydrate(ctx context.Context, path string) (*domainOntology.Object, error) {
	if obj := o.cache.Get(path); obj != nil {
		return obj, nil
	}

	actx, cancel := o.adapterCtx(ctx)
	defer cancel()
	obj, err := o.graph.GetObject(actx, path)
	if err != nil {
		return nil, err
	}
	if obj == nil || obj.Placeholder {
		return nil, nil
	}
	return obj, nil
}

// QueryOntology GraphRAG 查询：语义检索后一次遍历取出直接邻居
func (o *Orchestrator) QueryOntology(ctx context.Context, text string, limit int) ([]domainOntology.OntologyResult, error) {
	out := []domainOntology.OntologyResult{}

	hits, err := o.SemanticSearch(ctx, text, limit)
	if err != nil {
		return out, err
	}
	if len(hits) == 0 {
		return out, nil
	}

	paths := make([]string, len(hits))
	for i, h := range hits {
		paths[i] = h.Path
	}

	actx, cancel := o.adapterCtx(ctx)
	neighbors, err := o.graph.Neighbors(actx, paths)
	cancel()
	if err != nil {
		return out, queryErr("graph traversal", err)
	}

	for _, h := range hits {
		rels := neighbors[h.Path]
		if rels == nil {
			rels = []domainOntology.Neighbor{}
		}
		out = append(out, domainOntology.OntologyResult{Object: h, Relationships: rels})
	}
	return out, nil
}

// GetObject 读取对象
func (o *Orchestrator) GetObject(ctx context.Context, path string) (*domainOntology.Object, error) {
	obj, err := o.hydrate(ctx, path)
	if err != nil {
		return nil, queryErr("get object", err)
	}
	if obj == nil {
		return nil, domainOntology.ErrNotFound
	}
	return obj, nil
}

// GetStats 本体统计
func (o *Orchestrator) GetStats(ctx context.Context) (*domainOntology.Stats, error) {
	actx, cancel := o.adapterCtx(ctx)
	defer cancel()

	nodes, err := o.graph.CountNodes(actx)
	if err != nil {
		return nil, queryErr("count nodes", err)
	}
	relations, err := o.graph.CountRelations(actx)
	if err != nil {
		return nil, queryErr("count relations", err)
	}

	return &domainOntology.Stats{
		NodeCount:       nodes,
		RelationCount:   relations,
		CachedCount:     o.cache.Len(),
		ChangelogLength: o.changelog.Len(),
		Metrics:         o.metrics.Snapshot(),
	}, nil
}

// Tail 返回版本号大于 since 的变更日志
func (o *Orchestrator) Tail(ctx context.Context, since int64) ([]*domainOntology.ChangelogEntry, error) {
	entries, err := o.changelog.Tail(ctx, since)
	if err != nil {
		return nil, queryErr("tail changelog", err)
	}
	return entries, nil
}

// CurrentVersion 最新的变更日志版本号
func (o *Orchestrator) CurrentVersion() int64 {
	return o.changelog.CurrentVersion()
}
