// Package ontology 实现本体同步管线和查询接口
package ontology

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/cocursor/ontosync/internal/domain/events"
	domainOntology "github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
	"github.com/cocursor/ontosync/internal/infrastructure/log"
	"github.com/cocursor/ontosync/internal/infrastructure/vector"
	"github.com/cocursor/ontosync/internal/infrastructure/watcher"
)

// 确保 Orchestrator 可以直接接收文件监听事件
var _ watcher.Sink = (*Orchestrator)(nil)

// Orchestrator 本体同步编排器
// 将文件事件依次送入 提取 → 向量化 → 图/向量写入 → 关系计算 → 缓存 → 广播
type Orchestrator struct {
	extractor   domainOntology.ObjectExtractor
	embedder    domainOntology.EmbeddingProvider
	graph       domainOntology.GraphStore
	vectors     domainOntology.VectorIndex
	similarity  *SimilarityEngine
	changelog   *Changelog
	cache       *ObjectCache
	states      *stateTable
	metrics     *Metrics
	broadcaster domainOntology.Broadcaster
	bus         events.EventBus
	queue       *PathQueue
	matcher     *watcher.IgnoreMatcher

	cfg         *config.SyncConfig
	roots       []string
	maxFileSize int64
	logger      *slog.Logger
}

// NewOrchestrator 创建编排器
func NewOrchestrator(
	extractor domainOntology.ObjectExtractor,
	embedder domainOntology.EmbeddingProvider,
	graph domainOntology.GraphStore,
	vectors domainOntology.VectorIndex,
	changelog *Changelog,
	broadcaster domainOntology.Broadcaster,
	bus events.EventBus,
	matcher *watcher.IgnoreMatcher,
	syncCfg *config.SyncConfig,
	watchCfg *config.WatchConfig,
) *Orchestrator {
	logger := log.NewModuleLogger("ontology", "orchestrator")
	o := &Orchestrator{
		extractor:   extractor,
		embedder:    embedder,
		graph:       graph,
		vectors:     vectors,
		similarity:  NewSimilarityEngine(vectors, syncCfg),
		changelog:   changelog,
		cache:       NewObjectCache(),
		states:      newStateTable(logger),
		metrics:     NewMetrics(),
		broadcaster: broadcaster,
		bus:         bus,
		matcher:     matcher,
		cfg:         syncCfg,
		roots:       watchCfg.Roots,
		maxFileSize: watchCfg.MaxFileSize,
		logger:      logger,
	}
	o.queue = NewPathQueue(syncCfg.Workers, o.process)
	return o
}

// Submit 提交文件事件，立即返回
func (o *Orchestrator) Submit(event domainOntology.FileEvent) {
	o.queue.Enqueue(event)
}

// SubmitAndWait 提交事件并等待处理完成
func (o *Orchestrator) SubmitAndWait(ctx context.Context, event domainOntology.FileEvent) error {
	done := o.queue.Enqueue(event)
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State 返回路径当前状态
func (o *Orchestrator) State(path string) domainOntology.PathState {
	return o.states.get(path)
}

// Metrics 返回指标快照
func (o *Orchestrator) Metrics() domainOntology.MetricsSnapshot {
	return o.metrics.Snapshot()
}

// Pending 队列中尚未处理完的事件数
func (o *Orchestrator) Pending() int {
	return o.queue.Pending()
}

// Roots 配置的同步根目录
func (o *Orchestrator) Roots() []string {
	return o.roots
}

// Stop 停止处理，丢弃尚未开始的事件
func (o *Orchestrator) Stop() {
	o.queue.Close()
	o.logger.Info("Orchestrator stopped")
}

// process 处理单个事件，由 PathQueue 保证同一路径串行
func (o *Orchestrator) process(ctx context.Context, event domainOntology.FileEvent) {
	defer func() {
		if r := recover(); r != nil {
			o.metrics.ingestFailures.Add(1)
			o.logger.Error("Panic while processing event",
				"path", event.Path,
				"event", event.Event,
				"panic", r,
			)
		}
	}()

	switch event.Event {
	case domainOntology.EventAdd, domainOntology.EventChange:
		o.ingest(ctx, event)
	case domainOntology.EventRemove:
		o.remove(ctx, event.Path)
	default:
		o.logger.Warn("Ignoring unknown event", "path", event.Path, "event", event.Event)
	}
}

// adapterCtx 为单次外部调用设置超时
func (o *Orchestrator) adapterCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.cfg.AdapterTimeout)
}

// ingest 处理 add/change
func (o *Orchestrator) ingest(ctx context.Context, event domainOntology.FileEvent) {
	start := time.Now()
	path := event.Path

	content, info, readErr := o.readFile(path)
	if errors.Is(readErr, fs.ErrNotExist) {
		// 文件在事件处理前已被删除，按 remove 记录
		o.logger.Debug("File vanished before ingestion, removing", "path", path)
		o.remove(ctx, path)
		return
	}

	o.states.transition(path, domainOntology.StateIngesting)

	// 1. 追加变更日志，读取失败同样占用版本号
	entry := o.changelog.Append(ctx, event.Event, path)
	ctx = log.WithVersion(log.WithPath(ctx, path), entry.Version)
	logger := log.FromContext(ctx, o.logger)

	if readErr != nil {
		o.fail(entry, &domainOntology.Object{Path: path}, start, fmt.Errorf("failed to read file: %w", readErr), logger)
		return
	}

	// 2. 提取
	obj := o.extract(ctx, path, content, logger)
	obj.Version = entry.Version
	obj.Size = info.Size()
	obj.LastModified = info.ModTime()

	// 3. 向量化，失败时使用零向量
	obj.Embedding = o.embed(ctx, obj, logger)

	// 4. 写入图存储
	created, relations, err := o.writeGraph(ctx, obj)
	if err != nil {
		o.fail(entry, obj, start, err, logger)
		return
	}

	// 7. 更新缓存
	o.cache.Put(obj)
	o.states.transition(path, domainOntology.StateLive)

	if created {
		o.metrics.nodesCreated.Add(1)
	}
	o.metrics.relationsCreated.Add(int64(relations))

	// 8. 广播
	o.publish(entry, obj.Type, created, relations, start)
	logger.Debug("Object ingested",
		"type", obj.Type.String(),
		"created", created,
		"relations", relations,
		"latency_ms", time.Since(start).Milliseconds(),
	)
}

// readFile 读取文件内容，超过大小上限只读取前缀
func (o *Orchestrator) readFile(path string) ([]byte, os.FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir() {
		return nil, nil, fmt.Errorf("%s is a directory", path)
	}

	var r io.Reader = f
	if o.maxFileSize > 0 && info.Size() > o.maxFileSize {
		r = io.LimitReader(f, o.maxFileSize)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	return content, info, nil
}

// extract 提取对象，降级不视为失败
func (o *Orchestrator) extract(ctx context.Context, path string, content []byte, logger *slog.Logger) *domainOntology.Object {
	actx, cancel := o.adapterCtx(ctx)
	defer cancel()

	obj, err := o.extractor.Extract(actx, path, content)
	if err != nil {
		logger.Debug("Extraction degraded", "error", err)
	}
	if obj == nil {
		obj = &domainOntology.Object{
			Path:     path,
			Type:     domainOntology.UnknownType,
			Metadata: &domainOntology.UnknownMetadata{},
		}
	}
	if obj.Metadata == nil {
		obj.Metadata = &domainOntology.UnknownMetadata{}
	}
	return obj
}

// embed 计算对象向量
// 内容哈希未变时复用缓存中的向量；失败时返回零向量并计数
func (o *Orchestrator) embed(ctx context.Context, obj *domainOntology.Object, logger *slog.Logger) []float32 {
	dim := o.embedder.Dim()

	if cached := o.cache.Get(obj.Path); cached != nil &&
		cached.ContentHash == obj.ContentHash &&
		len(cached.Embedding) == dim &&
		!vector.IsZeroVector(cached.Embedding) {
		return cached.Embedding
	}

	text := embeddingText(obj)
	if text == "" {
		return make([]float32, dim)
	}

	actx, cancel := o.adapterCtx(ctx)
	defer cancel()

	vec, err := o.embedder.Embed(actx, text)
	if err == nil && len(vec) != dim {
		err = fmt.Errorf("expected %d dimensions, got %d", dim, len(vec))
	}
	if err != nil {
		o.metrics.embeddingFailures.Add(1)
		logger.Warn("Embedding unavailable, using zero vector",
			"error", domainOntology.NewSyncError(domainOntology.ErrEmbeddingUnavailable, obj.Path, obj.Version, err),
		)
		return make([]float32, dim)
	}
	return vec
}

// writeGraph 写入节点、向量和关系，返回是否新建节点和写入的关系数
// 图存储失败终止本次摄取；向量和相似度查询失败只记录
func (o *Orchestrator) writeGraph(ctx context.Context, obj *domainOntology.Object) (bool, int, error) {
	graphErr := func(err error) error {
		return domainOntology.NewSyncError(domainOntology.ErrGraphWriteFailed, obj.Path, obj.Version, err)
	}

	actx, cancel := o.adapterCtx(ctx)
	created, err := o.graph.UpsertObject(actx, obj)
	cancel()
	if err != nil {
		return false, 0, graphErr(err)
	}

	// 5. 向量索引，失败不影响图数据
	actx, cancel = o.adapterCtx(ctx)
	err = o.vectors.Upsert(actx, obj.Path, obj.Embedding, vectorMetadata(obj), obj.ContentExcerpt)
	cancel()
	if err != nil {
		o.metrics.vectorWriteFailures.Add(1)
		o.logger.Warn("Vector index write failed",
			"path", obj.Path,
			"version", obj.Version,
			"error", domainOntology.NewSyncError(domainOntology.ErrVectorWriteFailed, obj.Path, obj.Version, err),
		)
	}

	// 6. 替换出边
	actx, cancel = o.adapterCtx(ctx)
	err = o.graph.ClearOutgoingEdges(actx, obj.Path)
	cancel()
	if err != nil {
		return created, 0, graphErr(err)
	}

	relations := 0

	actx, cancel = o.adapterCtx(ctx)
	similar, err := o.similarity.FindSimilar(actx, obj.Path, obj.Embedding)
	cancel()
	if err != nil {
		o.logger.Warn("Similarity query failed", "path", obj.Path, "version", obj.Version, "error", err)
	}
	for _, s := range similar {
		actx, cancel = o.adapterCtx(ctx)
		err = o.graph.UpsertSimilarityEdge(actx, obj.Path, s.Path, s.Score)
		cancel()
		if err != nil {
			return created, relations, graphErr(err)
		}
		relations++
	}

	for _, target := range resolveImports(obj, o.cache.Has) {
		actx, cancel = o.adapterCtx(ctx)
		_, err = o.graph.EnsurePlaceholder(actx, target)
		if err == nil {
			err = o.graph.UpsertImportEdge(actx, obj.Path, target)
		}
		cancel()
		if err != nil {
			return created, relations, graphErr(err)
		}
		relations++
	}

	actx, cancel = o.adapterCtx(ctx)
	err = o.graph.LinkVersion(actx, obj.Path, obj.Version)
	cancel()
	if err != nil {
		return created, relations, graphErr(err)
	}

	return created, relations, nil
}

// fail 图写入失败：状态置为 Failed，缓存保持旧值，不广播
func (o *Orchestrator) fail(entry *domainOntology.ChangelogEntry, obj *domainOntology.Object, start time.Time, err error, logger *slog.Logger) {
	o.states.transition(entry.Path, domainOntology.StateFailed)
	o.metrics.ingestFailures.Add(1)
	logger.Error("Ingestion failed", "error", err)

	if o.bus != nil {
		o.bus.Publish(&events.SyncEvent{
			EventType:  events.IngestFailed,
			Entry:      *entry,
			ObjectType: obj.Type,
			Latency:    time.Since(start),
			Err:        err,
			EventTime:  time.Now(),
		})
	}
}

// remove 处理 remove：删除图节点和向量，清除缓存
func (o *Orchestrator) remove(ctx context.Context, path string) {
	start := time.Now()
	o.states.transition(path, domainOntology.StateRemoving)

	entry := o.changelog.Append(ctx, domainOntology.EventRemove, path)
	ctx = log.WithVersion(log.WithPath(ctx, path), entry.Version)
	logger := log.FromContext(ctx, o.logger)

	actx, cancel := o.adapterCtx(ctx)
	err := o.graph.DeleteObject(actx, path)
	cancel()
	if err != nil {
		syncErr := domainOntology.NewSyncError(domainOntology.ErrGraphWriteFailed, path, entry.Version, err)
		o.states.transition(path, domainOntology.StateFailed)
		o.metrics.ingestFailures.Add(1)
		logger.Error("Failed to delete object", "error", syncErr)
		if o.bus != nil {
			o.bus.Publish(&events.SyncEvent{
				EventType: events.IngestFailed,
				Entry:     *entry,
				Latency:   time.Since(start),
				Err:       syncErr,
				EventTime: time.Now(),
			})
		}
		return
	}

	actx, cancel = o.adapterCtx(ctx)
	err = o.vectors.Delete(actx, []string{path})
	cancel()
	if err != nil {
		o.metrics.vectorWriteFailures.Add(1)
		logger.Warn("Vector index delete failed",
			"error", domainOntology.NewSyncError(domainOntology.ErrVectorWriteFailed, path, entry.Version, err),
		)
	}

	o.cache.Delete(path)
	o.publish(entry, domainOntology.ObjectType{}, false, 0, start)
	o.states.transition(path, domainOntology.StateUnknown)
	logger.Debug("Object removed")
}

// publish 广播变更日志并发布领域事件
func (o *Orchestrator) publish(entry *domainOntology.ChangelogEntry, objType domainOntology.ObjectType, created bool, relations int, start time.Time) {
	latency := time.Since(start)
	now := time.Now()
	o.metrics.RecordSync(latency, now)

	if o.broadcaster != nil {
		o.broadcaster.BroadcastChangelog(entry)
	}
	o.metrics.streamEvents.Add(1)

	if o.bus == nil {
		return
	}
	eventType := events.ObjectIngested
	if entry.Event == domainOntology.EventRemove {
		eventType = events.ObjectRemoved
	}
	o.bus.Publish(&events.SyncEvent{
		EventType:   eventType,
		Entry:       *entry,
		ObjectType:  objType,
		NodeCreated: created,
		Relations:   relations,
		Latency:     latency,
		EventTime:   now,
	})
}

// embeddingText 向量化输入，HTML 已转换为 Markdown 摘录
func embeddingText(obj *domainOntology.Object) string {
	return obj.ContentExcerpt
}

// vectorMetadata 向量载荷，嵌套结构会被展平为 JSON 字符串
func vectorMetadata(obj *domainOntology.Object) map[string]any {
	md := map[string]any{
		"type":       obj.Type.String(),
		"kind":       string(obj.Type.Kind),
		"size":       obj.Size,
		"line_count": obj.LineCount,
		"version":    obj.Version,
		"hash":       obj.ContentHash,
	}
	switch m := obj.Metadata.(type) {
	case *domainOntology.CodeMetadata:
		md["language"] = m.Language
		md["functions"] = m.Functions
		md["classes"] = m.Classes
		md["imports"] = m.Imports
	case *domainOntology.DocumentMetadata:
		md["title"] = m.Title
		md["links"] = m.Links
		md["code_languages"] = m.CodeLanguages()
	case *domainOntology.ConfigMetadata:
		md["keys"] = m.Keys
	}
	return vector.FlattenPayload(md)
}
