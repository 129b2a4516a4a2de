package ontology

import (
	"context"
	"time"

	"github.com/google/wire"

	"github.com/cocursor/ontosync/internal/domain/events"
	domainOntology "github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
	"github.com/cocursor/ontosync/internal/infrastructure/watcher"
)

// ProviderSet 本体同步应用层 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideChangelog,
	ProvideOrchestrator,
	wire.Bind(new(watcher.Sink), new(*Orchestrator)),
)

// ProvideChangelog 创建变更日志并从持久化存储恢复版本号
func ProvideChangelog(store domainOntology.ChangelogStore, cfg *config.SyncConfig) (*Changelog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	changelog := NewChangelog(store, cfg)
	if err := changelog.Load(ctx); err != nil {
		return nil, err
	}
	return changelog, nil
}

// ProvideOrchestrator 创建编排器，cleanup 时停止事件处理
func ProvideOrchestrator(
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
) (*Orchestrator, func()) {
	o := NewOrchestrator(extractor, embedder, graph, vectors, changelog, broadcaster, bus, matcher, syncCfg, watchCfg)
	return o, o.Stop
}
