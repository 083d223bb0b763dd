// 包 notify：同步的变更广播。每次成功变更后按变更顺序恰好投递一次
package notify

import (
	"sort"
	"sync"
)

// Hub：监听器集合
// 约束：Publish 在调用方 goroutine 内同步执行；监听器按注册顺序被调用
type Hub[T any] struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(T)
}

func NewHub[T any]() *Hub[T] { return &Hub[T]{subs: make(map[int]func(T))} }

// Subscribe：注册监听器，返回幂等的取消函数
func (h *Hub[T]) Subscribe(fn func(T)) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = fn
	h.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish：向当前全部监听器投递事件
func (h *Hub[T]) Publish(ev T) {
	h.mu.RLock()
	ids := make([]int, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.subs[id])
	}
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Len：监听器数量
func (h *Hub[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
