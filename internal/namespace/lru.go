package namespace

import (
	"container/list"
	"sync"
)

// 文档注释：有界 LRU 备忘表（字符串键值）
// 背景：字段键在渲染期被高频重复计算，缓存推导结果；容量有界，避免长会话中无限增长。
// 约束：无 TTL，失效完全由 Delete/DeleteFunc/Purge 显式驱动。
type lru struct {
	mu   sync.Mutex
	cap  int
	lst  *list.List
	dict map[string]*list.Element
}

type kv struct {
	k string
	v string
}

func newLRU(capacity int) *lru {
	if capacity <= 0 {
		capacity = 1
	}
	return &lru{cap: capacity, lst: list.New(), dict: make(map[string]*list.Element)}
}

func (c *lru) Get(k string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		c.lst.MoveToFront(e)
		return e.Value.(kv).v, true
	}
	return "", false
}

func (c *lru) Set(k, v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		e.Value = kv{k: k, v: v}
		c.lst.MoveToFront(e)
		return
	}
	e := c.lst.PushFront(kv{k: k, v: v})
	c.dict[k] = e
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		if back != nil {
			it := back.Value.(kv)
			delete(c.dict, it.k)
			c.lst.Remove(back)
		}
	}
}

func (c *lru) Delete(k string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		c.lst.Remove(e)
		delete(c.dict, k)
	}
}

// DeleteFunc：删除所有满足条件的键，返回删除数量
func (c *lru) DeleteFunc(match func(k string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.dict {
		if match(k) {
			c.lst.Remove(e)
			delete(c.dict, k)
			n++
		}
	}
	return n
}

func (c *lru) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lst.Init()
	c.dict = make(map[string]*list.Element)
}

func (c *lru) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}
