package ontology

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainOntology "github.com/cocursor/ontosync/internal/domain/ontology"
)

func TestSemanticSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	golang := env.write(t, "go.md", "# Concurrency\n\ngoroutines and channels coordinate concurrent work\n")
	fruit := env.write(t, "fruit.md", "# Smoothie\n\nbanana mango yogurt blend\n")
	env.submit(t, domainOntology.EventAdd, golang)
	env.submit(t, domainOntology.EventAdd, fruit)

	results, err := env.orch.SemanticSearch(ctx, "goroutines channels", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, golang, results[0].Path)
	assert.Greater(t, results[0].Score, 0.0)
	assert.LessOrEqual(t, results[0].Score, 1.0)
	assert.Equal(t, domainOntology.DocumentType("Markdown"), results[0].Type)
	assert.Contains(t, results[0].Excerpt, "goroutines")
	assert.Equal(t, int64(1), results[0].Version)

	for _, r := range results {
		assert.Greater(t, r.Score, env.orch.cfg.MinScore)
	}

	limited, err := env.orch.SemanticSearch(ctx, "goroutines channels banana", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSemanticSearch_SkipsVanishedObjects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	path := env.write(t, "kept.md", "# Kept\n\nsearchable words here\n")
	env.submit(t, domainOntology.EventAdd, path)

	// 向量残留但图中已无对应节点
	vec, err := env.orch.embedder.Embed(ctx, "searchable words here")
	require.NoError(t, err)
	require.NoError(t, env.vectors.Upsert(ctx, env.dir+"/ghost.md", vec, map[string]any{}, "ghost"))

	results, err := env.orch.SemanticSearch(ctx, "searchable words", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, path, results[0].Path)
}

func TestSemanticSearch_EmptyIndex(t *testing.T) {
	env := newTestEnv(t)

	results, err := env.orch.SemanticSearch(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestQueryOntology_TraversalFailure(t *testing.T) {
	graph := new(MockGraphStore)
	obj := &domainOntology.Object{
		Path:           "/w/a.md",
		Type:           domainOntology.DocumentType("Markdown"),
		ContentExcerpt: "hello world",
		Metadata:       &domainOntology.DocumentMetadata{},
		Version:        4,
	}
	graph.On("GetObject", mock.Anything, "/w/a.md").Return(obj, nil)
	graph.On("Neighbors", mock.Anything, []string{"/w/a.md"}).Return(nil, errors.New("timeout"))

	env := newTestEnv(t, withGraph(graph))
	ctx := context.Background()

	vec, err := env.orch.embedder.Embed(ctx, "hello world")
	require.NoError(t, err)
	require.NoError(t, env.vectors.Upsert(ctx, "/w/a.md", vec, map[string]any{}, "hello world"))

	results, err := env.orch.QueryOntology(ctx, "hello world", 5)
	assert.ErrorIs(t, err, domainOntology.ErrQueryFailed)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	graph.AssertExpectations(t)
}

func TestQueryOntology_HydratesFromGraph(t *testing.T) {
	graph := new(MockGraphStore)
	obj := &domainOntology.Object{
		Path:           "/w/a.md",
		Type:           domainOntology.DocumentType("Markdown"),
		ContentExcerpt: "hello world",
		Metadata:       &domainOntology.DocumentMetadata{},
		Version:        4,
	}
	neighbors := map[string][]domainOntology.Neighbor{
		"/w/a.md": {{Relation: domainOntology.RelImports, Target: "/w/b.md", Direction: domainOntology.DirectionOut}},
	}
	graph.On("GetObject", mock.Anything, "/w/a.md").Return(obj, nil)
	graph.On("Neighbors", mock.Anything, []string{"/w/a.md"}).Return(neighbors, nil)

	env := newTestEnv(t, withGraph(graph))
	ctx := context.Background()

	vec, err := env.orch.embedder.Embed(ctx, "hello world")
	require.NoError(t, err)
	require.NoError(t, env.vectors.Upsert(ctx, "/w/a.md", vec, map[string]any{}, "hello world"))

	results, err := env.orch.QueryOntology(ctx, "hello world", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(4), results[0].Object.Version)
	assert.InDelta(t, 1.0, results[0].Object.Score, 1e-6)
	assert.Equal(t, neighbors["/w/a.md"], results[0].Relationships)
}

func TestGetStats_GraphFailure(t *testing.T) {
	graph := new(MockGraphStore)
	graph.On("CountNodes", mock.Anything).Return(0, errors.New("closed"))

	env := newTestEnv(t, withGraph(graph))

	stats, err := env.orch.GetStats(context.Background())
	assert.Nil(t, stats)
	assert.ErrorIs(t, err, domainOntology.ErrQueryFailed)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultSearchLimit, normalizeLimit(0))
	assert.Equal(t, DefaultSearchLimit, normalizeLimit(-3))
	assert.Equal(t, 7, normalizeLimit(7))
	assert.Equal(t, MaxSearchLimit, normalizeLimit(MaxSearchLimit+1))
}
