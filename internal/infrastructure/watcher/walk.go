package watcher

import (
	"context"
	"io/fs"
	"path/filepath"
)

// WalkStats 遍历统计
type WalkStats struct {
	Files   int
	Skipped int
}

// WalkFiles 递归遍历 root 下未被忽略的普通文件
// 无法访问的目录记为跳过，不中断遍历
func WalkFiles(ctx context.Context, root string, matcher *IgnoreMatcher, fn func(path string) error) (WalkStats, error) {
	var stats WalkStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			stats.Skipped++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path != root && matcher.Match(root, path) {
			stats.Skipped++
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		stats.Files++
		return fn(path)
	})
	return stats, err
}
