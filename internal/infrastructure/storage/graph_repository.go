package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cocursor/ontosync/internal/domain/ontology"
)

// 确保 GraphRepositoryImpl 实现了 ontology.GraphStore 接口
var _ ontology.GraphStore = (*GraphRepositoryImpl)(nil)

// GraphRepositoryImpl 基于 sqlite 的属性图存储
// 节点存放在 objects 表，边存放在 relations 表
type GraphRepositoryImpl struct {
	db *sql.DB
}

// NewGraphRepository 创建图存储实例
func NewGraphRepository(db *sql.DB) ontology.GraphStore {
	return &GraphRepositoryImpl{db: db}
}

// UpsertObject 按路径合并写入对象节点，占位节点在此被升级为正式节点
func (r *GraphRepositoryImpl) UpsertObject(ctx context.Context, obj *ontology.Object) (bool, error) {
	metadata, err := ontology.EncodeMetadata(obj.Metadata)
	if err != nil {
		return false, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM objects WHERE path = ?`, obj.Path).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check object: %w", err)
	}

	query := `
		INSERT INTO objects (
			path, type, excerpt, metadata, size, line_count, token_count,
			content_hash, version, last_modified, placeholder, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT(path) DO UPDATE SET
			type = excluded.type,
			excerpt = excluded.excerpt,
			metadata = excluded.metadata,
			size = excluded.size,
			line_count = excluded.line_count,
			token_count = excluded.token_count,
			content_hash = excluded.content_hash,
			version = excluded.version,
			last_modified = excluded.last_modified,
			placeholder = 0,
			updated_at = excluded.updated_at`

	_, err = tx.ExecContext(ctx, query,
		obj.Path,
		obj.Type.String(),
		obj.ContentExcerpt,
		metadata,
		obj.Size,
		obj.LineCount,
		obj.TokenCount,
		obj.ContentHash,
		obj.Version,
		obj.LastModified.UnixMilli(),
		time.Now().UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert object: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit object: %w", err)
	}
	return exists == 0, nil
}

// EnsurePlaceholder 路径不存在时创建占位节点
func (r *GraphRepositoryImpl) EnsurePlaceholder(ctx context.Context, path string) (bool, error) {
	query := `
		INSERT INTO objects (path, type, metadata, placeholder, updated_at)
		VALUES (?, ?, '{}', 1, ?)
		ON CONFLICT(path) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query, path, ontology.UnknownType.String(), time.Now().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to ensure placeholder: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// UpsertImportEdge 写入 IMPORTS 边
func (r *GraphRepositoryImpl) UpsertImportEdge(ctx context.Context, src, dst string) error {
	return r.upsertEdge(ctx, src, dst, ontology.RelImports, 0)
}

// UpsertSimilarityEdge 写入 SIMILAR_TO 边，重复写入时更新分数
func (r *GraphRepositoryImpl) UpsertSimilarityEdge(ctx context.Context, src, dst string, score float64) error {
	if src == dst {
		return nil
	}
	return r.upsertEdge(ctx, src, dst, ontology.RelSimilarTo, ontology.ClampScore(score))
}

// upsertEdge 按 (source, target, relation) 合并写入边
func (r *GraphRepositoryImpl) upsertEdge(ctx context.Context, src, dst string, relation ontology.RelationType, score float64) error {
	query := `
		INSERT INTO relations (source, target, relation, score, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source, target, relation) DO UPDATE SET
			score = excluded.score`

	_, err := r.db.ExecContext(ctx, query, src, dst, string(relation), score, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert %s edge: %w", relation, err)
	}
	return nil
}

// LinkVersion 替换对象的 HAS_VERSION 边并同步节点版本号
func (r *GraphRepositoryImpl) LinkVersion(ctx context.Context, path string, version int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM relations WHERE source = ? AND relation = ?`,
		path, string(ontology.RelHasVersion),
	); err != nil {
		return fmt.Errorf("failed to clear version link: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO relations (source, target, relation, score, created_at) VALUES (?, ?, ?, 0, ?)`,
		path, ontology.VersionNodeKey(version), string(ontology.RelHasVersion), time.Now().UnixMilli(),
	); err != nil {
		return fmt.Errorf("failed to link version: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE objects SET version = ? WHERE path = ?`, version, path,
	); err != nil {
		return fmt.Errorf("failed to update object version: %w", err)
	}

	return tx.Commit()
}

// ClearOutgoingEdges 删除出向 IMPORTS 和 SIMILAR_TO 边
func (r *GraphRepositoryImpl) ClearOutgoingEdges(ctx context.Context, path string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM relations WHERE source = ? AND relation IN (?, ?)`,
		path, string(ontology.RelImports), string(ontology.RelSimilarTo),
	)
	if err != nil {
		return fmt.Errorf("failed to clear outgoing edges: %w", err)
	}
	return nil
}

// DeleteObject 删除节点及所有相连的边
func (r *GraphRepositoryImpl) DeleteObject(ctx context.Context, path string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM relations WHERE source = ? OR target = ?`, path, path,
	); err != nil {
		return fmt.Errorf("failed to delete edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM objects WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return tx.Commit()
}

// GetObject 读取对象，不存在时返回 nil, nil
func (r *GraphRepositoryImpl) GetObject(ctx context.Context, path string) (*ontology.Object, error) {
	query := `
		SELECT path, type, excerpt, metadata, size, line_count, token_count,
		       content_hash, version, last_modified, placeholder
		FROM objects
		WHERE path = ?`

	var (
		obj          ontology.Object
		typeStr      string
		metadata     string
		lastModified int64
		placeholder  int
	)
	err := r.db.QueryRowContext(ctx, query, path).Scan(
		&obj.Path,
		&typeStr,
		&obj.ContentExcerpt,
		&metadata,
		&obj.Size,
		&obj.LineCount,
		&obj.TokenCount,
		&obj.ContentHash,
		&obj.Version,
		&lastModified,
		&placeholder,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	obj.Type = ontology.ParseObjectType(typeStr)
	obj.Placeholder = placeholder == 1
	if lastModified > 0 {
		obj.LastModified = time.UnixMilli(lastModified)
	}
	obj.Metadata, err = ontology.DecodeMetadata(obj.Type.Kind, metadata)
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

// Neighbors 单次查询取出一组对象的直接邻居（双向，不含 HAS_VERSION）
func (r *GraphRepositoryImpl) Neighbors(ctx context.Context, paths []string) (map[string][]ontology.Neighbor, error) {
	result := make(map[string][]ontology.Neighbor, len(paths))
	if len(paths) == 0 {
		return result, nil
	}

	wanted := make(map[string]bool, len(paths))
	args := make([]any, 0, len(paths)*2+1)
	args = append(args, string(ontology.RelHasVersion))
	for _, p := range paths {
		wanted[p] = true
		args = append(args, p)
	}
	for _, p := range paths {
		args = append(args, p)
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(paths)), ",")

	query := fmt.Sprintf(`
		SELECT source, target, relation, score
		FROM relations
		WHERE relation != ? AND (source IN (%s) OR target IN (%s))
		ORDER BY relation, score DESC, source, target`, marks, marks)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query neighbors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rel ontology.Relationship
		var relation string
		if err := rows.Scan(&rel.Source, &rel.Target, &relation, &rel.Score); err != nil {
			return nil, err
		}
		rel.Relation = ontology.RelationType(relation)

		if wanted[rel.Source] {
			result[rel.Source] = append(result[rel.Source], ontology.Neighbor{
				Relation:  rel.Relation,
				Target:    rel.Target,
				Direction: ontology.DirectionOut,
				Score:     rel.Score,
			})
		}
		if wanted[rel.Target] && rel.Target != rel.Source {
			result[rel.Target] = append(result[rel.Target], ontology.Neighbor{
				Relation:  rel.Relation,
				Target:    rel.Source,
				Direction: ontology.DirectionIn,
				Score:     rel.Score,
			})
		}
	}
	return result, rows.Err()
}

// ListRelations 列出指定类型的所有边
func (r *GraphRepositoryImpl) ListRelations(ctx context.Context, relation ontology.RelationType) ([]ontology.Relationship, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT source, target, score FROM relations WHERE relation = ? ORDER BY source, target`,
		string(relation),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list relations: %w", err)
	}
	defer rows.Close()

	var rels []ontology.Relationship
	for rows.Next() {
		rel := ontology.Relationship{Relation: relation}
		if err := rows.Scan(&rel.Source, &rel.Target, &rel.Score); err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	return rels, rows.Err()
}

// ListPaths 列出所有对象节点路径
func (r *GraphRepositoryImpl) ListPaths(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT path FROM objects ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// CountNodes 统计对象节点数
func (r *GraphRepositoryImpl) CountNodes(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM objects`).Scan(&count)
	return count, err
}

// CountRelations 统计对象之间的边数
func (r *GraphRepositoryImpl) CountRelations(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM relations WHERE relation IN (?, ?)`,
		string(ontology.RelImports), string(ontology.RelSimilarTo),
	).Scan(&count)
	return count, err
}
