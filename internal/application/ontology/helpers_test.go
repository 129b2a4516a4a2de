package ontology

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainOntology "github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
	"github.com/cocursor/ontosync/internal/infrastructure/embedding"
	"github.com/cocursor/ontosync/internal/infrastructure/extractor"
	"github.com/cocursor/ontosync/internal/infrastructure/storage"
	"github.com/cocursor/ontosync/internal/infrastructure/vector"
	"github.com/cocursor/ontosync/internal/infrastructure/watcher"
)

const testDim = 256

// recordingBroadcaster 记录广播的变更日志
type recordingBroadcaster struct {
	mu      sync.Mutex
	entries []*domainOntology.ChangelogEntry
}

func (b *recordingBroadcaster) BroadcastChangelog(entry *domainOntology.ChangelogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, entry)
}

func (b *recordingBroadcaster) all() []*domainOntology.ChangelogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*domainOntology.ChangelogEntry(nil), b.entries...)
}

// MockEmbedder 模拟 EmbeddingProvider
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) ModelID() string { return "mock" }

func (m *MockEmbedder) Dim() int { return testDim }

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockGraphStore 模拟 GraphStore
type MockGraphStore struct {
	mock.Mock
}

func (m *MockGraphStore) UpsertObject(ctx context.Context, obj *domainOntology.Object) (bool, error) {
	args := m.Called(ctx, obj)
	return args.Bool(0), args.Error(1)
}

func (m *MockGraphStore) EnsurePlaceholder(ctx context.Context, path string) (bool, error) {
	args := m.Called(ctx, path)
	return args.Bool(0), args.Error(1)
}

func (m *MockGraphStore) UpsertImportEdge(ctx context.Context, src, dst string) error {
	return m.Called(ctx, src, dst).Error(0)
}

func (m *MockGraphStore) UpsertSimilarityEdge(ctx context.Context, src, dst string, score float64) error {
	return m.Called(ctx, src, dst, score).Error(0)
}

func (m *MockGraphStore) LinkVersion(ctx context.Context, path string, version int64) error {
	return m.Called(ctx, path, version).Error(0)
}

func (m *MockGraphStore) ClearOutgoingEdges(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *MockGraphStore) DeleteObject(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *MockGraphStore) GetObject(ctx context.Context, path string) (*domainOntology.Object, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainOntology.Object), args.Error(1)
}

func (m *MockGraphStore) Neighbors(ctx context.Context, paths []string) (map[string][]domainOntology.Neighbor, error) {
	args := m.Called(ctx, paths)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]domainOntology.Neighbor), args.Error(1)
}

func (m *MockGraphStore) ListRelations(ctx context.Context, relation domainOntology.RelationType) ([]domainOntology.Relationship, error) {
	args := m.Called(ctx, relation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domainOntology.Relationship), args.Error(1)
}

func (m *MockGraphStore) ListPaths(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockGraphStore) CountNodes(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockGraphStore) CountRelations(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// testEnv 基于临时 sqlite 和内存向量索引的完整管线
type testEnv struct {
	dir         string
	graph       domainOntology.GraphStore
	vectors     *vector.MemoryIndex
	changelog   *Changelog
	broadcaster *recordingBroadcaster
	orch        *Orchestrator
}

func testSyncConfig() *config.SyncConfig {
	cfg := config.NewConfig().Sync
	cfg.AdapterTimeout = 5 * time.Second
	cfg.Workers = 4
	return &cfg
}

func testWatchConfig(root string) *config.WatchConfig {
	cfg := config.NewConfig().Watch
	cfg.Roots = []string{root}
	return &cfg
}

type envOption func(*envOptions)

type envOptions struct {
	embedder domainOntology.EmbeddingProvider
	graph    domainOntology.GraphStore
}

func withEmbedder(e domainOntology.EmbeddingProvider) envOption {
	return func(o *envOptions) { o.embedder = e }
}

func withGraph(g domainOntology.GraphStore) envOption {
	return func(o *envOptions) { o.graph = g }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	dir := t.TempDir()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	o := &envOptions{
		embedder: embedding.NewHashEmbedder(testDim),
		graph:    storage.NewGraphRepository(db),
	}
	for _, opt := range opts {
		opt(o)
	}

	syncCfg := testSyncConfig()
	watchCfg := testWatchConfig(dir)

	changelog := NewChangelog(storage.NewChangelogRepository(db), syncCfg)
	require.NoError(t, changelog.Load(context.Background()))

	env := &testEnv{
		dir:         dir,
		graph:       o.graph,
		vectors:     vector.NewMemoryIndex(o.embedder),
		changelog:   changelog,
		broadcaster: &recordingBroadcaster{},
	}
	env.orch = NewOrchestrator(
		extractor.NewExtractor(syncCfg),
		o.embedder,
		env.graph,
		env.vectors,
		changelog,
		env.broadcaster,
		nil,
		watcher.NewIgnoreMatcher(watchCfg.Ignore),
		syncCfg,
		watchCfg,
	)
	t.Cleanup(env.orch.Stop)
	return env
}

// write 写入文件并返回绝对路径
func (e *testEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (e *testEnv) submit(t *testing.T, kind domainOntology.EventKind, path string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, e.orch.SubmitAndWait(ctx, domainOntology.FileEvent{Event: kind, Path: path}))
}

func (e *testEnv) relations(t *testing.T, relation domainOntology.RelationType) []domainOntology.Relationship {
	t.Helper()
	rels, err := e.graph.ListRelations(context.Background(), relation)
	require.NoError(t, err)
	return rels
}
