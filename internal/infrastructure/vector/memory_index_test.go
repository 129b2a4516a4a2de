package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
)

// staticEmbedder 按文本查表返回固定向量
type staticEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (e *staticEmbedder) ModelID() string { return "static" }
func (e *staticEmbedder) Dim() int        { return 3 }
func (e *staticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return make([]float32, 3), nil
}

func TestMemoryIndex_QueryByVector(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(&staticEmbedder{})

	require.NoError(t, idx.Upsert(ctx, "/a", []float32{1, 0, 0}, map[string]any{"type": "Code:go"}, "a"))
	require.NoError(t, idx.Upsert(ctx, "/b", []float32{0.9, 0.1, 0}, nil, "b"))
	require.NoError(t, idx.Upsert(ctx, "/c", []float32{0, 1, 0}, nil, "c"))
	require.NoError(t, idx.Upsert(ctx, "/z", []float32{0, 0, 0}, nil, "z"))

	hits, err := idx.QueryByVector(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "/a", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "/b", hits[1].ID)
	assert.Equal(t, "Code:go", hits[0].Payload["type"])
	assert.Equal(t, "a", hits[0].Payload["excerpt"])

	// 零向量得分为 0
	all, err := idx.QueryByVector(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for _, h := range all {
		if h.ID == "/z" {
			assert.Equal(t, 0.0, h.Score)
		}
	}

	hits, err = idx.QueryByVector(ctx, []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestMemoryIndex_UpsertReplacesAndDelete(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex(&staticEmbedder{})

	require.NoError(t, idx.Upsert(ctx, "/a", []float32{1, 0, 0}, nil, ""))
	require.NoError(t, idx.Upsert(ctx, "/a", []float32{0, 1, 0}, nil, ""))
	assert.Equal(t, 1, idx.Len())

	hits, err := idx.QueryByVector(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)

	require.NoError(t, idx.Delete(ctx, []string{"/a", "/missing"}))
	assert.Equal(t, 0, idx.Len())
}

func TestMemoryIndex_QueryByText(t *testing.T) {
	ctx := context.Background()
	embedder := &staticEmbedder{vectors: map[string][]float32{"hello": {0, 0, 1}}}
	idx := NewMemoryIndex(embedder)

	require.NoError(t, idx.Upsert(ctx, "/h", []float32{0, 0, 1}, nil, ""))
	hits, err := idx.QueryByText(ctx, "hello", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "/h", hits[0].ID)

	embedder.err = errors.New("offline")
	_, err = idx.QueryByText(ctx, "hello", 5)
	assert.Error(t, err)
}

func TestCosine(t *testing.T) {
	score, err := Cosine([]float32{1, 2}, []float32{2, 4})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)

	score, err = Cosine([]float32{0, 0}, []float32{1, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)

	_, err = Cosine([]float32{1}, []float32{1, 2})
	assert.ErrorIs(t, err, ErrVectorLengthMismatch)
}

func TestFlattenPayload(t *testing.T) {
	out := FlattenPayload(map[string]any{
		"type":      ontology.CodeType("go"),
		"functions": []string{"main", "run"},
		"size":      int64(42),
		"valid":     true,
		"skip":      nil,
	})

	assert.Equal(t, "Code:go", out["type"])
	assert.Equal(t, `["main","run"]`, out["functions"])
	assert.Equal(t, int64(42), out["size"])
	assert.Equal(t, true, out["valid"])
	assert.NotContains(t, out, "skip")
}

func TestPointID_Stable(t *testing.T) {
	assert.Equal(t, PointID("/w/a.go"), PointID("/w/a.go"))
	assert.NotEqual(t, PointID("/w/a.go"), PointID("/w/b.go"))
	assert.Len(t, PointID("/w/a.go"), 36)
}

func TestProvideVectorIndex(t *testing.T) {
	idx, cleanup, err := ProvideVectorIndex(&config.VectorConfig{Backend: BackendMemory}, &staticEmbedder{})
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &MemoryIndex{}, idx)

	_, _, err = ProvideVectorIndex(&config.VectorConfig{Backend: "faiss"}, &staticEmbedder{})
	assert.Error(t, err)
}
