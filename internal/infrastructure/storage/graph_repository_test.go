package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocursor/ontosync/internal/domain/ontology"
)

// setupTestDB 创建临时测试数据库
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "ontosync_test_*")
	require.NoError(t, err)

	db, err := OpenDB(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}
	return db, cleanup
}

func newCodeObject(path string, imports ...string) *ontology.Object {
	return &ontology.Object{
		Path:           path,
		Type:           ontology.CodeType("javascript"),
		ContentExcerpt: "export function f() {}",
		Metadata: &ontology.CodeMetadata{
			Language:  "javascript",
			Functions: []string{"f"},
			Imports:   imports,
		},
		Size:         22,
		LineCount:    1,
		ContentHash:  "abc",
		Version:      1,
		LastModified: time.Now(),
	}
}

func TestGraphRepository_UpsertObject(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewGraphRepository(db)

	created, err := repo.UpsertObject(ctx, newCodeObject("/w/a.js"))
	require.NoError(t, err)
	assert.True(t, created, "首次写入应新建节点")

	// 重复写入不产生新节点
	created, err = repo.UpsertObject(ctx, newCodeObject("/w/a.js"))
	require.NoError(t, err)
	assert.False(t, created)

	count, err := repo.CountNodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	obj, err := repo.GetObject(ctx, "/w/a.js")
	require.NoError(t, err)
	require.NotNil(t, obj)
	assert.Equal(t, ontology.CodeType("javascript"), obj.Type)
	assert.False(t, obj.Placeholder)

	code, ok := obj.Metadata.(*ontology.CodeMetadata)
	require.True(t, ok)
	assert.Equal(t, []string{"f"}, code.Functions)
}

func TestGraphRepository_GetObjectMissing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	obj, err := NewGraphRepository(db).GetObject(context.Background(), "/nope")
	require.NoError(t, err)
	assert.Nil(t, obj)
}

func TestGraphRepository_PlaceholderUpgrade(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewGraphRepository(db)

	created, err := repo.EnsurePlaceholder(ctx, "/w/b.js")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.EnsurePlaceholder(ctx, "/w/b.js")
	require.NoError(t, err)
	assert.False(t, created, "占位节点已存在")

	obj, err := repo.GetObject(ctx, "/w/b.js")
	require.NoError(t, err)
	require.NotNil(t, obj)
	assert.True(t, obj.Placeholder)
	assert.True(t, obj.Type.IsUnknown())

	// 正式摄取后占位标记被清除，且不算新建
	created, err = repo.UpsertObject(ctx, newCodeObject("/w/b.js"))
	require.NoError(t, err)
	assert.False(t, created)

	obj, err = repo.GetObject(ctx, "/w/b.js")
	require.NoError(t, err)
	assert.False(t, obj.Placeholder)
}

func TestGraphRepository_EdgesAndNeighbors(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewGraphRepository(db)

	_, err := repo.UpsertObject(ctx, newCodeObject("/w/a.js", "/w/b.js"))
	require.NoError(t, err)
	_, err = repo.EnsurePlaceholder(ctx, "/w/b.js")
	require.NoError(t, err)

	require.NoError(t, repo.UpsertImportEdge(ctx, "/w/a.js", "/w/b.js"))
	require.NoError(t, repo.UpsertImportEdge(ctx, "/w/a.js", "/w/b.js"))
	require.NoError(t, repo.UpsertSimilarityEdge(ctx, "/w/a.js", "/w/b.js", 0.8))
	require.NoError(t, repo.UpsertSimilarityEdge(ctx, "/w/a.js", "/w/b.js", 0.9))
	require.NoError(t, repo.UpsertSimilarityEdge(ctx, "/w/a.js", "/w/a.js", 1.0))
	require.NoError(t, repo.LinkVersion(ctx, "/w/a.js", 3))

	count, err := repo.CountRelations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "重复写入与自相似边都不计入")

	neighbors, err := repo.Neighbors(ctx, []string{"/w/a.js", "/w/b.js"})
	require.NoError(t, err)
	require.Len(t, neighbors["/w/a.js"], 2)
	require.Len(t, neighbors["/w/b.js"], 2)

	for _, n := range neighbors["/w/a.js"] {
		assert.Equal(t, ontology.DirectionOut, n.Direction)
		assert.Equal(t, "/w/b.js", n.Target)
		if n.Relation == ontology.RelSimilarTo {
			assert.InDelta(t, 0.9, n.Score, 1e-9)
		}
	}
	for _, n := range neighbors["/w/b.js"] {
		assert.Equal(t, ontology.DirectionIn, n.Direction)
		assert.Equal(t, "/w/a.js", n.Target)
	}

	obj, err := repo.GetObject(ctx, "/w/a.js")
	require.NoError(t, err)
	assert.Equal(t, int64(3), obj.Version)

	versions, err := repo.ListRelations(ctx, ontology.RelHasVersion)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, ontology.VersionNodeKey(3), versions[0].Target)

	// 新版本替换旧的 HAS_VERSION 边
	require.NoError(t, repo.LinkVersion(ctx, "/w/a.js", 4))
	versions, err = repo.ListRelations(ctx, ontology.RelHasVersion)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, ontology.VersionNodeKey(4), versions[0].Target)
}

func TestGraphRepository_ClearOutgoingEdges(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewGraphRepository(db)

	_, err := repo.UpsertObject(ctx, newCodeObject("/w/a.js"))
	require.NoError(t, err)
	_, err = repo.UpsertObject(ctx, newCodeObject("/w/c.js"))
	require.NoError(t, err)

	require.NoError(t, repo.UpsertImportEdge(ctx, "/w/a.js", "/w/b.js"))
	require.NoError(t, repo.UpsertSimilarityEdge(ctx, "/w/c.js", "/w/a.js", 0.8))
	require.NoError(t, repo.LinkVersion(ctx, "/w/a.js", 1))

	require.NoError(t, repo.ClearOutgoingEdges(ctx, "/w/a.js"))

	imports, err := repo.ListRelations(ctx, ontology.RelImports)
	require.NoError(t, err)
	assert.Empty(t, imports)

	// 入边和版本边保留
	similar, err := repo.ListRelations(ctx, ontology.RelSimilarTo)
	require.NoError(t, err)
	assert.Len(t, similar, 1)

	versions, err := repo.ListRelations(ctx, ontology.RelHasVersion)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestGraphRepository_DeleteObject(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewGraphRepository(db)

	_, err := repo.UpsertObject(ctx, newCodeObject("/w/a.js"))
	require.NoError(t, err)
	_, err = repo.UpsertObject(ctx, newCodeObject("/w/b.js"))
	require.NoError(t, err)
	require.NoError(t, repo.UpsertImportEdge(ctx, "/w/a.js", "/w/b.js"))
	require.NoError(t, repo.UpsertSimilarityEdge(ctx, "/w/b.js", "/w/a.js", 0.75))
	require.NoError(t, repo.LinkVersion(ctx, "/w/a.js", 1))

	require.NoError(t, repo.DeleteObject(ctx, "/w/a.js"))

	obj, err := repo.GetObject(ctx, "/w/a.js")
	require.NoError(t, err)
	assert.Nil(t, obj)

	count, err := repo.CountRelations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "两个方向的边都应删除")

	paths, err := repo.ListPaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/w/b.js"}, paths)

	// 删除不存在的对象不报错
	require.NoError(t, repo.DeleteObject(ctx, "/w/a.js"))
}
