package ontology

// PathState 单个路径的摄取状态
type PathState string

const (
	// StateUnknown 未跟踪或已删除
	StateUnknown PathState = "unknown"
	// StateIngesting 正在摄取
	StateIngesting PathState = "ingesting"
	// StateLive 已同步到图存储
	StateLive PathState = "live"
	// StateFailed 图写入失败，等待下次事件或重新同步
	StateFailed PathState = "failed"
	// StateRemoving 正在删除
	StateRemoving PathState = "removing"
)

// pathTransitions 允许的状态迁移
// Unknown/Failed 也允许进入 Removing：重启后图中可能残留上次进程写入的节点
var pathTransitions = map[PathState][]PathState{
	StateUnknown:   {StateIngesting, StateRemoving},
	StateIngesting: {StateLive, StateFailed, StateRemoving},
	StateLive:      {StateIngesting, StateRemoving},
	StateFailed:    {StateIngesting, StateRemoving},
	StateRemoving:  {StateUnknown},
}

// CanTransition 判断是否允许从当前状态迁移到 next
func (s PathState) CanTransition(next PathState) bool {
	for _, allowed := range pathTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
