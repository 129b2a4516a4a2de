package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
	"github.com/cocursor/ontosync/internal/infrastructure/log"
)

// Sink 接收去抖后的文件事件
type Sink interface {
	Submit(event ontology.FileEvent)
}

// pendingEvent 防抖窗口内合并后的事件
type pendingEvent struct {
	kind  ontology.EventKind
	timer *time.Timer
}

// FileWatcher 递归监听根目录，将文件系统通知转换为 add/change/remove 事件
type FileWatcher struct {
	roots    []string
	matcher  *IgnoreMatcher
	debounce time.Duration
	sink     Sink
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	mu          sync.Mutex
	pending     map[string]*pendingEvent
	watchedDirs map[string]bool
	// tracked 已知存在的文件，用于目录删除时展开为逐个文件的 remove
	tracked map[string]bool

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewFileWatcher 创建文件监听器
func NewFileWatcher(cfg *config.WatchConfig, sink Sink) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	roots := make([]string, 0, len(cfg.Roots))
	for _, r := range cfg.Roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("invalid watch root %q: %w", r, err)
		}
		roots = append(roots, filepath.Clean(abs))
	}

	return &FileWatcher{
		roots:       roots,
		matcher:     NewIgnoreMatcher(cfg.Ignore),
		debounce:    cfg.DebounceDelay,
		sink:        sink,
		watcher:     w,
		logger:      log.NewModuleLogger("watcher", "file_watcher"),
		pending:     make(map[string]*pendingEvent),
		watchedDirs: make(map[string]bool),
		tracked:     make(map[string]bool),
		stopCh:      make(chan struct{}),
	}, nil
}

// Matcher 返回忽略规则
func (fw *FileWatcher) Matcher() *IgnoreMatcher {
	return fw.matcher
}

// Start 注册所有目录监听并启动事件循环
func (fw *FileWatcher) Start() error {
	fw.logger.Info("Starting file watcher",
		"roots", fw.roots,
		"debounce", fw.debounce,
		"ignore", fw.matcher.Patterns(),
	)

	for _, root := range fw.roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			fw.logger.Warn("Watch root is not a directory, skipping", "root", root, "error", err)
			continue
		}
		fw.addDirRecursive(root, root, false)
	}

	fw.wg.Add(1)
	go fw.watchLoop()
	return nil
}

// Stop 停止文件监听，未到期的防抖事件被丢弃
func (fw *FileWatcher) Stop() {
	fw.stopOnce.Do(func() {
		fw.logger.Info("Stopping file watcher")

		close(fw.stopCh)
		fw.watcher.Close()
		fw.wg.Wait()

		fw.mu.Lock()
		for path, p := range fw.pending {
			p.timer.Stop()
			delete(fw.pending, path)
		}
		fw.mu.Unlock()

		fw.logger.Info("File watcher stopped")
	})
}

// addDirRecursive 递归添加目录监听并登记已有文件
// emit 为 true 时为目录中的文件发出 add 事件（新建目录的场景），登记推迟到 flush
func (fw *FileWatcher) addDirRecursive(root, dir string, emit bool) {
	// 先注册监听再遍历文件，避免两步之间新建的文件被漏掉
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && fw.matcher.Match(root, path) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			fw.logger.Debug("Failed to add directory to watch", "path", path, "error", err)
			return nil
		}
		fw.mu.Lock()
		fw.watchedDirs[path] = true
		fw.mu.Unlock()
		return nil
	})

	_, _ = WalkFiles(context.Background(), dir, fw.matcher, func(path string) error {
		if emit {
			fw.schedule(path, ontology.EventAdd)
			return nil
		}
		fw.mu.Lock()
		fw.tracked[path] = true
		fw.mu.Unlock()
		return nil
	})
}

// watchLoop 事件监听循环
func (fw *FileWatcher) watchLoop() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.stopCh:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("Watcher error", "error", err)
		}
	}
}

// rootOf 返回路径所属的根目录
func (fw *FileWatcher) rootOf(path string) string {
	for _, root := range fw.roots {
		if path == root || strings.HasPrefix(path, root+string(os.PathSeparator)) {
			return root
		}
	}
	return ""
}

// handleFsEvent 处理文件系统事件
func (fw *FileWatcher) handleFsEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	root := fw.rootOf(path)
	if root == "" || path == root || fw.matcher.Match(root, path) {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			// 新目录需要添加监听，目录内已写入的文件不会再收到 Create
			fw.addDirRecursive(root, path, true)
			return
		}
		if info.Mode().IsRegular() {
			fw.schedule(path, ontology.EventAdd)
		}

	case event.Has(fsnotify.Write):
		fw.schedule(path, ontology.EventChange)

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		fw.mu.Lock()
		isDir := fw.watchedDirs[path]
		fw.mu.Unlock()
		if isDir {
			fw.removeDir(path)
			return
		}
		fw.schedule(path, ontology.EventRemove)
	}
}

// removeDir 目录被删除时为其中已知文件发出 remove
func (fw *FileWatcher) removeDir(dir string) {
	prefix := dir + string(os.PathSeparator)

	fw.mu.Lock()
	var files []string
	for path := range fw.tracked {
		if strings.HasPrefix(path, prefix) {
			files = append(files, path)
		}
	}
	for path := range fw.watchedDirs {
		if path == dir || strings.HasPrefix(path, prefix) {
			delete(fw.watchedDirs, path)
		}
	}
	fw.mu.Unlock()

	for _, path := range files {
		fw.schedule(path, ontology.EventRemove)
	}
}

// schedule 合并同一路径在防抖窗口内的事件
func (fw *FileWatcher) schedule(path string, kind ontology.EventKind) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	select {
	case <-fw.stopCh:
		return
	default:
	}

	if p, exists := fw.pending[path]; exists {
		p.timer.Stop()
		p.kind = mergeKinds(p.kind, kind)
		p.timer = time.AfterFunc(fw.debounce, func() { fw.flush(path) })
		return
	}

	fw.pending[path] = &pendingEvent{
		kind:  kind,
		timer: time.AfterFunc(fw.debounce, func() { fw.flush(path) }),
	}
}

// mergeKinds 合并规则：删除后重建视为变更，新建后写入仍为新建
func mergeKinds(prev, next ontology.EventKind) ontology.EventKind {
	switch {
	case prev == ontology.EventAdd && next == ontology.EventChange:
		return ontology.EventAdd
	case prev == ontology.EventRemove && next != ontology.EventRemove:
		return ontology.EventChange
	case prev == ontology.EventChange && next == ontology.EventAdd:
		return ontology.EventChange
	default:
		return next
	}
}

// flush 防抖到期，投递事件
func (fw *FileWatcher) flush(path string) {
	fw.mu.Lock()
	p, ok := fw.pending[path]
	if !ok {
		fw.mu.Unlock()
		return
	}
	delete(fw.pending, path)

	kind := p.kind
	switch kind {
	case ontology.EventAdd:
		// 原子保存（先删后建）会以 Create 出现，已知文件视为变更
		if fw.tracked[path] {
			kind = ontology.EventChange
		}
		fw.tracked[path] = true
	case ontology.EventChange:
		fw.tracked[path] = true
	case ontology.EventRemove:
		delete(fw.tracked, path)
	}
	fw.mu.Unlock()

	fw.logger.Debug("File event emitted", "event", kind, "path", path)
	fw.sink.Submit(ontology.FileEvent{Event: kind, Path: path})
}
