package websocket

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

// errClientClosed 连接已关闭
var errClientClosed = errors.New("client closed")

// Client 单个订阅者连接
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	mu sync.RWMutex
	// objects 订阅的路径，为空表示接收全部
	objects map[string]bool

	closeOnce sync.Once
}

func newClient(id string, conn *websocket.Conn, buffer int) *Client {
	if buffer <= 0 {
		buffer = 256
	}
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// ID 连接标识
func (c *Client) ID() string {
	return c.id
}

// subscribe 替换订阅集合
func (c *Client) subscribe(paths []string) {
	objects := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p != "" {
			objects[p] = true
		}
	}

	c.mu.Lock()
	c.objects = objects
	c.mu.Unlock()
}

// wants 判断是否应推送该路径的变更
func (c *Client) wants(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects) == 0 || c.objects[path]
}

// enqueue 非阻塞写入发送队列，连接已关闭或队列满时返回 false
func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// enqueueWait 阻塞写入发送队列，直到写入成功、连接关闭或 ctx 结束
func (c *Client) enqueueWait(ctx context.Context, data []byte) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return errClientClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close 关闭连接，返回是否为首次关闭
func (c *Client) close() bool {
	first := false
	c.closeOnce.Do(func() {
		first = true
		close(c.done)
		_ = c.conn.Close()
	})
	return first
}
