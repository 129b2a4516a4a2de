package watcher

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreMatcher 判断路径是否应跳过
// 隐藏文件和目录总是跳过；模式按路径片段或相对根目录的路径匹配
type IgnoreMatcher struct {
	patterns []string
}

// NewIgnoreMatcher 创建忽略规则，非法模式会被丢弃
func NewIgnoreMatcher(patterns []string) *IgnoreMatcher {
	valid := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(filepath.ToSlash(p))
		if p == "" || !doublestar.ValidatePattern(p) {
			continue
		}
		valid = append(valid, strings.TrimSuffix(p, "/"))
	}
	return &IgnoreMatcher{patterns: valid}
}

// Patterns 返回生效的模式
func (m *IgnoreMatcher) Patterns() []string {
	return m.patterns
}

// Match 判断 path 是否被忽略，root 为其所属的监听根目录
func (m *IgnoreMatcher) Match(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)

	segments := strings.Split(rel, "/")
	for _, seg := range segments {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}

	for _, pattern := range m.patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		for _, seg := range segments {
			if ok, _ := doublestar.Match(pattern, seg); ok {
				return true
			}
		}
	}
	return false
}
