package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocursor/ontosync/internal/domain/ontology"
	"github.com/cocursor/ontosync/internal/infrastructure/config"
)

// recordingSink 记录收到的事件
type recordingSink struct {
	mu     sync.Mutex
	events []ontology.FileEvent
}

func (s *recordingSink) Submit(event ontology.FileEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) snapshot() []ontology.FileEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ontology.FileEvent(nil), s.events...)
}

func (s *recordingSink) find(path string) (ontology.FileEvent, bool) {
	for _, e := range s.snapshot() {
		if e.Path == path {
			return e, true
		}
	}
	return ontology.FileEvent{}, false
}

func startWatcher(t *testing.T, root string) (*FileWatcher, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	fw, err := NewFileWatcher(&config.WatchConfig{
		Roots:         []string{root},
		Ignore:        []string{"node_modules"},
		DebounceDelay: 50 * time.Millisecond,
	}, sink)
	require.NoError(t, err)
	require.NoError(t, fw.Start())
	t.Cleanup(fw.Stop)
	return fw, sink
}

func TestMergeKinds(t *testing.T) {
	assert.Equal(t, ontology.EventAdd, mergeKinds(ontology.EventAdd, ontology.EventChange))
	assert.Equal(t, ontology.EventRemove, mergeKinds(ontology.EventAdd, ontology.EventRemove))
	assert.Equal(t, ontology.EventChange, mergeKinds(ontology.EventRemove, ontology.EventAdd))
	assert.Equal(t, ontology.EventChange, mergeKinds(ontology.EventChange, ontology.EventAdd))
	assert.Equal(t, ontology.EventRemove, mergeKinds(ontology.EventChange, ontology.EventRemove))
}

func TestFileWatcher_CreateDebounced(t *testing.T) {
	root := t.TempDir()
	_, sink := startWatcher(t, root)

	path := filepath.Join(root, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("package a\n\nfunc A() {}"), 0644))

	require.Eventually(t, func() bool {
		_, ok := sink.find(path)
		return ok
	}, 2*time.Second, 20*time.Millisecond)

	// 防抖窗口内的新建与写入合并为一次 add
	time.Sleep(150 * time.Millisecond)
	events := sink.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, ontology.EventAdd, events[0].Event)
}

func TestFileWatcher_ChangeAndRemove(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("# v1"), 0644))

	_, sink := startWatcher(t, root)

	require.NoError(t, os.WriteFile(path, []byte("# v2"), 0644))
	require.Eventually(t, func() bool {
		e, ok := sink.find(path)
		return ok && e.Event == ontology.EventChange
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		events := sink.snapshot()
		return len(events) >= 2 && events[len(events)-1].Event == ontology.EventRemove
	}, 2*time.Second, 20*time.Millisecond)
}

func TestFileWatcher_NewDirectoryAndIgnore(t *testing.T) {
	root := t.TempDir()
	_, sink := startWatcher(t, root)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "x.js"), []byte("x"), 0644))

	dir := filepath.Join(root, "pkg")
	require.NoError(t, os.MkdirAll(dir, 0755))
	nested := filepath.Join(dir, "b.py")
	require.NoError(t, os.WriteFile(nested, []byte("import os"), 0644))

	require.Eventually(t, func() bool {
		_, ok := sink.find(nested)
		return ok
	}, 2*time.Second, 20*time.Millisecond)

	_, ignored := sink.find(filepath.Join(root, "node_modules", "x.js"))
	assert.False(t, ignored)
}
