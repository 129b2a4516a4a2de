package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cocursor/ontosync/internal/domain/ontology"
)

// 确保 ChangelogRepositoryImpl 实现了 ontology.ChangelogStore 接口
var _ ontology.ChangelogStore = (*ChangelogRepositoryImpl)(nil)

// ChangelogRepositoryImpl 变更日志持久化实现
type ChangelogRepositoryImpl struct {
	db *sql.DB
}

// NewChangelogRepository 创建变更日志仓库实例
func NewChangelogRepository(db *sql.DB) ontology.ChangelogStore {
	return &ChangelogRepositoryImpl{db: db}
}

// Append 追加条目，版本号冲突视为错误
func (r *ChangelogRepositoryImpl) Append(ctx context.Context, entry *ontology.ChangelogEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO changelog (version, id, event, path, timestamp) VALUES (?, ?, ?, ?, ?)`,
		entry.Version,
		entry.ID,
		string(entry.Event),
		entry.Path,
		entry.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to append changelog entry %d: %w", entry.Version, err)
	}
	return nil
}

// Since 返回版本号大于 version 的条目
func (r *ChangelogRepositoryImpl) Since(ctx context.Context, version int64, limit int) ([]*ontology.ChangelogEntry, error) {
	if limit <= 0 {
		limit = 1000
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT version, id, event, path, timestamp
		 FROM changelog
		 WHERE version > ?
		 ORDER BY version ASC
		 LIMIT ?`,
		version, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query changelog: %w", err)
	}
	defer rows.Close()

	var entries []*ontology.ChangelogEntry
	for rows.Next() {
		var (
			entry ontology.ChangelogEntry
			event string
			ts    int64
		)
		if err := rows.Scan(&entry.Version, &entry.ID, &event, &entry.Path, &ts); err != nil {
			return nil, err
		}
		entry.Event = ontology.EventKind(event)
		entry.Timestamp = time.Unix(0, ts)
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// MaxVersion 返回已持久化的最大版本号，空表返回 0
func (r *ChangelogRepositoryImpl) MaxVersion(ctx context.Context) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM changelog`).Scan(&version)
	return version, err
}

// Count 返回条目总数
func (r *ChangelogRepositoryImpl) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM changelog`).Scan(&count)
	return count, err
}
