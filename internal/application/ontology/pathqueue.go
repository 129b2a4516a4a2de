package ontology

import (
	"context"
	"sync"

	domainOntology "github.com/cocursor/ontosync/internal/domain/ontology"
)

// queuedEvent 等待处理的事件，done 在处理完成或被丢弃时关闭
type queuedEvent struct {
	event domainOntology.FileEvent
	done  chan struct{}
}

// PathQueue 按路径串行、跨路径并发的事件队列
// 同一路径的事件按提交顺序处理，总并发数受 workers 限制
type PathQueue struct {
	mu      sync.Mutex
	pending map[string][]*queuedEvent
	closed  bool

	sem    chan struct{}
	handle func(ctx context.Context, event domainOntology.FileEvent)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPathQueue 创建队列
func NewPathQueue(workers int, handle func(ctx context.Context, event domainOntology.FileEvent)) *PathQueue {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PathQueue{
		pending: make(map[string][]*queuedEvent),
		sem:     make(chan struct{}, workers),
		handle:  handle,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Enqueue 提交事件，返回的 channel 在事件处理完成后关闭
// 队列关闭后提交的事件直接视为完成
func (q *PathQueue) Enqueue(event domainOntology.FileEvent) <-chan struct{} {
	item := &queuedEvent{event: event, done: make(chan struct{})}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		close(item.done)
		return item.done
	}

	queue, running := q.pending[event.Path]
	q.pending[event.Path] = append(queue, item)
	if !running {
		q.wg.Add(1)
		go q.run(event.Path)
	}
	q.mu.Unlock()

	return item.done
}

// run 依次处理一个路径上的事件，队列清空后退出
func (q *PathQueue) run(path string) {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		queue := q.pending[path]
		if len(queue) == 0 {
			delete(q.pending, path)
			q.mu.Unlock()
			return
		}
		item := queue[0]
		q.mu.Unlock()

		select {
		case q.sem <- struct{}{}:
		case <-q.ctx.Done():
			q.drain(path)
			return
		}

		q.handle(q.ctx, item.event)
		<-q.sem

		q.mu.Lock()
		q.pending[path] = q.pending[path][1:]
		q.mu.Unlock()
		close(item.done)
	}
}

// drain 关闭时丢弃路径上剩余的事件
func (q *PathQueue) drain(path string) {
	q.mu.Lock()
	queue := q.pending[path]
	delete(q.pending, path)
	q.mu.Unlock()

	for _, item := range queue {
		close(item.done)
	}
}

// Pending 等待或正在处理的事件数
func (q *PathQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, queue := range q.pending {
		n += len(queue)
	}
	return n
}

// Close 停止接收事件，取消进行中的处理并等待退出
func (q *PathQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
}
