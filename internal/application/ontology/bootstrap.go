package ontology

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	domainOntology "github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/watcher"
)

// BuildInitialOntology 冷启动全量加载
// 遍历根目录下未被忽略的文件，逐个以 add 事件送入管线并等待完成；
// 图中残留但磁盘上已不存在的对象以 remove 事件清理
func (o *Orchestrator) BuildInitialOntology(ctx context.Context, roots []string) (*domainOntology.BuildReport, error) {
	start := time.Now()
	if len(roots) == 0 {
		roots = o.roots
	}

	report := &domainOntology.BuildReport{Roots: make([]string, 0, len(roots))}
	visited := make(map[string]bool)
	var waits []<-chan struct{}

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
		}
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			o.logger.Warn("Skipping root that is not a directory", "root", abs, "error", err)
			report.Skipped++
			continue
		}
		report.Roots = append(report.Roots, abs)

		stats, err := watcher.WalkFiles(ctx, abs, o.matcher, func(path string) error {
			if visited[path] {
				return nil
			}
			visited[path] = true
			waits = append(waits, o.queue.Enqueue(domainOntology.FileEvent{Event: domainOntology.EventAdd, Path: path}))
			return nil
		})
		report.Files += stats.Files
		report.Skipped += stats.Skipped
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", abs, err)
		}
	}

	if err := waitAll(ctx, waits); err != nil {
		return nil, err
	}

	pruned, err := o.pruneStale(ctx, report.Roots, visited)
	if err != nil {
		// 清理失败不影响本次加载结果
		o.logger.Warn("Failed to prune stale objects", "error", err)
	}

	for path := range visited {
		switch o.states.get(path) {
		case domainOntology.StateLive:
			report.Live++
		case domainOntology.StateFailed:
			report.Failed++
		}
	}
	report.Duration = time.Since(start)

	o.logger.Info("Initial ontology built",
		"roots", len(report.Roots),
		"files", report.Files,
		"skipped", report.Skipped,
		"live", report.Live,
		"failed", report.Failed,
		"pruned", pruned,
		"duration", report.Duration,
	)
	return report, nil
}

// pruneStale 清理根目录下未被遍历到的非占位对象
// 遍历结束后才出现的文件由监听器负责，仍存在且未被忽略时保留；
// 磁盘上已不存在的以 change 事件入队，摄取时再次检查磁盘后按删除处理
func (o *Orchestrator) pruneStale(ctx context.Context, roots []string, visited map[string]bool) (int, error) {
	actx, cancel := o.adapterCtx(ctx)
	paths, err := o.graph.ListPaths(actx)
	cancel()
	if err != nil {
		return 0, err
	}

	var waits []<-chan struct{}
	for _, path := range paths {
		if visited[path] {
			continue
		}
		root := rootOf(path, roots)
		if root == "" {
			continue
		}
		actx, cancel := o.adapterCtx(ctx)
		obj, err := o.graph.GetObject(actx, path)
		cancel()
		if err != nil {
			return 0, err
		}
		if obj == nil || obj.Placeholder {
			continue
		}

		ignored := o.matcher.Match(root, path)
		info, statErr := os.Stat(path)
		switch {
		case statErr == nil && info.Mode().IsRegular() && !ignored:
			continue
		case statErr == nil:
			waits = append(waits, o.queue.Enqueue(domainOntology.FileEvent{Event: domainOntology.EventRemove, Path: path}))
		default:
			waits = append(waits, o.queue.Enqueue(domainOntology.FileEvent{Event: domainOntology.EventChange, Path: path}))
		}
	}

	if err := waitAll(ctx, waits); err != nil {
		return 0, err
	}
	return len(waits), nil
}

// Resync 重新摄取单个路径，文件已不存在时按删除处理
func (o *Orchestrator) Resync(ctx context.Context, path string) (domainOntology.PathState, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return domainOntology.StateUnknown, err
	}
	if err := o.SubmitAndWait(ctx, domainOntology.FileEvent{Event: domainOntology.EventChange, Path: abs}); err != nil {
		return domainOntology.StateUnknown, err
	}
	return o.states.get(abs), nil
}

func waitAll(ctx context.Context, waits []<-chan struct{}) error {
	for _, done := range waits {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// rootOf 返回包含 path 的根目录，不在任何根目录下时返回空串
func rootOf(path string, roots []string) string {
	for _, root := range roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return root
		}
	}
	return ""
}
