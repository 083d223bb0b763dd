// 包 store：持久化网关。核心只依赖最小键值契约，具体后端（内存/Redis/SQL）由宿主选择
package store

import (
	"context"
	"fmt"
)

// Gateway：最小键值持久化契约
// 约束：GetItem 在键不存在时返回 ok=false 且 err=nil；Clear 只清理本网关命名空间内的键
type Gateway interface {
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// WriteError：网关写失败（StorageWriteError），由核心记录并吞掉，不向调用方传播
type WriteError struct {
	Op  string
	Key string
	Err error
}

func (e *WriteError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
