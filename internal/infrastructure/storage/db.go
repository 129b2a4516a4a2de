package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/cocursor/ontosync/internal/infrastructure/config"
	"github.com/cocursor/ontosync/internal/infrastructure/log"
)

// schemaStatements 图存储与变更日志表结构
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS objects (
		path TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		excerpt TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '{}',
		size INTEGER NOT NULL DEFAULT 0,
		line_count INTEGER NOT NULL DEFAULT 0,
		token_count INTEGER NOT NULL DEFAULT 0,
		content_hash TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 0,
		last_modified INTEGER NOT NULL DEFAULT 0,
		placeholder INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS relations (
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		relation TEXT NOT NULL,
		score REAL NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (source, target, relation)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_relations_target ON relations(target);`,
	`CREATE INDEX IF NOT EXISTS idx_relations_relation ON relations(relation);`,
	`CREATE TABLE IF NOT EXISTS changelog (
		version INTEGER PRIMARY KEY,
		id TEXT NOT NULL,
		event TEXT NOT NULL,
		path TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_changelog_path ON changelog(path);`,
}

// OpenDB 打开数据库连接并初始化表结构
func OpenDB(dbPath string) (*sql.DB, error) {
	// 确保目录存在
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite 单写者，串行化连接避免 SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// InitSchema 创建表结构（幂等）
func InitSchema(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

// ProvideDB 按配置打开数据库，返回的 cleanup 负责关闭连接
func ProvideDB(cfg *config.Config) (*sql.DB, func(), error) {
	dbPath := cfg.DatabasePath()
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, nil, err
	}

	logger := log.NewModuleLogger("storage", "db")
	logger.Info("Database opened", "path", dbPath)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}
	return db, cleanup, nil
}
