package ontology

import (
	"log/slog"
	"sync"

	domainOntology "github.com/cocursor/ontosync/internal/domain/ontology"
)

// stateTable 每个路径的摄取状态，Unknown 不占用条目
type stateTable struct {
	mu     sync.RWMutex
	states map[string]domainOntology.PathState
	logger *slog.Logger
}

func newStateTable(logger *slog.Logger) *stateTable {
	return &stateTable{
		states: make(map[string]domainOntology.PathState),
		logger: logger,
	}
}

// get 返回当前状态
func (t *stateTable) get(path string) domainOntology.PathState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.states[path]; ok {
		return s
	}
	return domainOntology.StateUnknown
}

// transition 迁移状态并返回旧状态
// 同一路径由队列串行处理，非法迁移只记录告警，不阻断处理
func (t *stateTable) transition(path string, next domainOntology.PathState) domainOntology.PathState {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.states[path]
	if !ok {
		prev = domainOntology.StateUnknown
	}
	if !prev.CanTransition(next) {
		t.logger.Warn("Unexpected path state transition",
			"path", path,
			"from", prev,
			"to", next,
		)
	}

	if next == domainOntology.StateUnknown {
		delete(t.states, path)
	} else {
		t.states[path] = next
	}
	return prev
}

// count 统计处于指定状态的路径数
func (t *stateTable) count(state domainOntology.PathState) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, s := range t.states {
		if s == state {
			n++
		}
	}
	return n
}

// pathsIn 返回处于指定状态的路径
func (t *stateTable) pathsIn(state domainOntology.PathState) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var paths []string
	for p, s := range t.states {
		if s == state {
			paths = append(paths, p)
		}
	}
	return paths
}
