package utils

import (
	"context"
	"net"

	"lbs-core/internal/logger"

	"github.com/redis/go-redis/v9"
)

// RedisOptionsFromEnv：REDIS_HOST/PORT/PASS/DB；REDIS_DB 非法时回退到 0
func RedisOptionsFromEnv() *redis.Options {
	return &redis.Options{
		Addr:     net.JoinHostPort(envOr("REDIS_HOST", "127.0.0.1"), envOr("REDIS_PORT", "6379")),
		Password: envOr("REDIS_PASS", ""),
		DB:       envInt("REDIS_DB", 0),
	}
}

// OpenRedisFromEnv：打开客户端并 Ping，失败时关闭客户端并返回错误
func OpenRedisFromEnv(ctx context.Context) (*redis.Client, error) {
	opts := RedisOptionsFromEnv()
	rc := redis.NewClient(opts)
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, err
	}
	logger.L().Debug("redis_open_ok", "addr", opts.Addr, "db", opts.DB)
	return rc, nil
}
