package store

import (
	"context"
	"errors"
	"strings"

	"lbs-core/internal/logger"

	"github.com/redis/go-redis/v9"
)

// Redis：基于 go-redis 的键值网关
// 背景：多进程/多机共享同一份研究状态时使用；键统一加前缀 "<prefix>:" 以便与其他业务共存
// 约束：Clear 通过 SCAN 前缀匹配逐批删除，不使用 FLUSHDB；无前缀时拒绝 Clear
type Redis struct {
	rc     *redis.Client
	prefix string
}

func NewRedis(rc *redis.Client, prefix string) *Redis {
	return &Redis{rc: rc, prefix: prefix}
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *Redis) GetItem(ctx context.Context, key string) (string, bool, error) {
	s, err := r.rc.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

func (r *Redis) SetItem(ctx context.Context, key, value string) error {
	return r.rc.Set(ctx, r.key(key), value, 0).Err()
}

func (r *Redis) RemoveItem(ctx context.Context, key string) error {
	return r.rc.Del(ctx, r.key(key)).Err()
}

// ErrUnscopedClear：无前缀的 Redis 网关无法界定自己的命名空间
var ErrUnscopedClear = errors.New("redis: refusing to clear without a key prefix")

func (r *Redis) Clear(ctx context.Context) error {
	if r.prefix == "" {
		return ErrUnscopedClear
	}
	match := redisGlobEscape(r.prefix) + ":*"
	var cursor uint64
	total := 0
	for {
		keys, next, err := r.rc.Scan(ctx, cursor, match, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.rc.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			total += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	logger.L().Debug("redis_clear_done", "match", match, "deleted", total)
	return nil
}

// redisGlobEscape：转义 SCAN MATCH 的通配字符，前缀按字面匹配
func redisGlobEscape(s string) string {
	var b strings.Builder
	for _, ch := range s {
		switch ch {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// Close：关闭底层客户端
func (r *Redis) Close() error { return r.rc.Close() }
