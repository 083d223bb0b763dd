package store

import (
	"context"
	"encoding/json"
	"log/slog"

	"lbs-core/internal/logger"
	"lbs-core/internal/metrics"
)

// Writer：尽力而为的持久化写入
// 背景：内存状态是权威来源；网关失败只记录日志与计数，不回滚内存变更
// WARNING: 写失败后内存与持久化内容会分叉，重新加载会丢失本次变更
type Writer struct {
	g   Gateway
	log *slog.Logger
}

func NewWriter(g Gateway) *Writer {
	return &Writer{g: g, log: logger.With("store")}
}

func (w *Writer) Gateway() Gateway { return w.g }

// SetJSON：序列化后写入；返回的错误仅供测试观察，业务调用方忽略
func (w *Writer) SetJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return w.fail("marshal", key, err)
	}
	if err := w.g.SetItem(ctx, key, string(b)); err != nil {
		return w.fail("set", key, err)
	}
	return nil
}

func (w *Writer) Remove(ctx context.Context, key string) error {
	if err := w.g.RemoveItem(ctx, key); err != nil {
		return w.fail("remove", key, err)
	}
	return nil
}

// GetJSON：读取并反序列化；键不存在时 ok=false
func (w *Writer) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	s, ok, err := w.g.GetItem(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dst); err != nil {
		return false, err
	}
	return true, nil
}

func (w *Writer) fail(op, key string, err error) error {
	werr := &WriteError{Op: op, Key: key, Err: err}
	w.log.Error("storage_write_error", "op", op, "key", key, "err", err)
	metrics.StorageWriteErrorsTotal.WithLabelValues(op).Inc()
	return werr
}
