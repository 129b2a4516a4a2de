package ontology

import (
	"sort"
	"sync"

	domainOntology "github.com/cocursor/ontosync/internal/domain/ontology"
)

// ObjectCache 路径到最近一次成功摄取的对象快照
// 读写都做拷贝，调用方拿到的对象可以自由修改
type ObjectCache struct {
	mu      sync.RWMutex
	objects map[string]*domainOntology.Object
}

// NewObjectCache 创建对象缓存
func NewObjectCache() *ObjectCache {
	return &ObjectCache{objects: make(map[string]*domainOntology.Object)}
}

// Get 读取对象，不存在返回 nil
func (c *ObjectCache) Get(path string) *domainOntology.Object {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.objects[path].Clone()
}

// Has 是否缓存了该路径
func (c *ObjectCache) Has(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.objects[path]
	return ok
}

// Put 整体替换对象
func (c *ObjectCache) Put(obj *domainOntology.Object) {
	cp := obj.Clone()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[cp.Path] = cp
}

// Delete 移除对象
func (c *ObjectCache) Delete(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, path)
}

// Len 缓存对象数
func (c *ObjectCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}

// Paths 已缓存路径，按字典序
func (c *ObjectCache) Paths() []string {
	c.mu.RLock()
	paths := make([]string, 0, len(c.objects))
	for p := range c.objects {
		paths = append(paths, p)
	}
	c.mu.RUnlock()

	sort.Strings(paths)
	return paths
}
