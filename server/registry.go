package server

import (
	"sync"
)

// registry 记录监听器启动的连接。接受 goroutine 写入，Stop 从其他 goroutine 读取，故加锁。
type registry struct {
	mu    sync.Mutex
	conns []*connection
}

// add 追加新连接并清理已结束的连接
func (r *registry) add(c *connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	live := r.conns[:0]
	for _, old := range r.conns {
		if !old.finished() {
			live = append(live, old)
		}
	}
	for i := len(live); i < len(r.conns); i++ {
		r.conns[i] = nil
	}
	r.conns = append(live, c)
}

// alive 返回仍在运行的连接快照
func (r *registry) alive() []*connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*connection, 0, len(r.conns))
	for _, c := range r.conns {
		if !c.finished() {
			out = append(out, c)
		}
	}
	return out
}

// size 包含尚未清理的已结束连接
func (r *registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
