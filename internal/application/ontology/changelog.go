package ontology

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/zeebo/xxh3"

	domainOntology "github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
	"github.com/cocursor/ontosync/internal/infrastructure/log"
)

// defaultChangelogWindow 内存中保留的条目数
const defaultChangelogWindow = 10000

// Changelog 追加式变更日志
// 版本号分配是整个系统唯一的全局临界区；内存窗口是权威数据，持久化为尽力而为
type Changelog struct {
	mu      sync.Mutex
	window  []*domainOntology.ChangelogEntry
	limit   int
	version int64
	total   int

	store  domainOntology.ChangelogStore
	logger *slog.Logger
}

// NewChangelog 创建变更日志，store 为 nil 时只保存在内存
func NewChangelog(store domainOntology.ChangelogStore, cfg *config.SyncConfig) *Changelog {
	limit := cfg.ChangelogWindow
	if limit <= 0 {
		limit = defaultChangelogWindow
	}
	return &Changelog{
		limit:  limit,
		store:  store,
		logger: log.NewModuleLogger("ontology", "changelog"),
	}
}

// Load 从持久化存储恢复版本号和最近的窗口
// 必须在第一次 Append 之前调用
func (c *Changelog) Load(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	maxVersion, err := c.store.MaxVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to load changelog version: %w", err)
	}
	count, err := c.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count changelog: %w", err)
	}

	since := maxVersion - int64(c.limit)
	if since < 0 {
		since = 0
	}
	recent, err := c.store.Since(ctx, since, c.limit)
	if err != nil {
		return fmt.Errorf("failed to load changelog window: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.version = maxVersion
	c.total = count
	c.window = recent

	c.logger.Info("Changelog restored", "version", maxVersion, "entries", count, "window", len(recent))
	return nil
}

// Append 分配下一个版本号并追加条目
func (c *Changelog) Append(ctx context.Context, event domainOntology.EventKind, path string) *domainOntology.ChangelogEntry {
	now := time.Now()

	c.mu.Lock()
	c.version++
	entry := &domainOntology.ChangelogEntry{
		ID:        EntryID(path, now),
		Event:     event,
		Path:      path,
		Timestamp: now,
		Version:   c.version,
	}
	c.window = append(c.window, entry)
	if len(c.window) > c.limit {
		// 复制而非重切片，避免底层数组无限增长
		trimmed := make([]*domainOntology.ChangelogEntry, c.limit)
		copy(trimmed, c.window[len(c.window)-c.limit:])
		c.window = trimmed
	}
	c.total++
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Append(ctx, entry); err != nil {
			c.logger.Warn("Failed to persist changelog entry",
				"version", entry.Version,
				"path", path,
				"error", err,
			)
		}
	}
	return entry
}

// Tail 返回版本号大于 since 的条目，按版本升序
// 窗口之外的旧条目从持久化存储读取
func (c *Changelog) Tail(ctx context.Context, since int64) ([]*domainOntology.ChangelogEntry, error) {
	c.mu.Lock()
	window := make([]*domainOntology.ChangelogEntry, len(c.window))
	copy(window, c.window)
	c.mu.Unlock()

	var out []*domainOntology.ChangelogEntry
	if c.store != nil && len(window) > 0 && window[0].Version > since+1 {
		older, err := c.store.Since(ctx, since, int(window[0].Version-since-1))
		if err != nil {
			return nil, fmt.Errorf("failed to read changelog history: %w", err)
		}
		for _, e := range older {
			if e.Version < window[0].Version {
				out = append(out, e)
			}
		}
	}

	for _, e := range window {
		if e.Version > since {
			out = append(out, e)
		}
	}
	return out, nil
}

// Len 已追加的条目总数（含重启前持久化的条目）
func (c *Changelog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// CurrentVersion 最近分配的版本号
func (c *Changelog) CurrentVersion() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// EntryID 由路径和到达时间计算条目 ID
func EntryID(path string, at time.Time) string {
	return fmt.Sprintf("%016x", xxh3.HashString(path+"|"+strconv.FormatInt(at.UnixNano(), 10)))
}
