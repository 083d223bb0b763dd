// 包 config：读取 .env 与环境变量，并按配置打开持久化网关
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"lbs-core/internal/logger"
	"lbs-core/internal/migrate"
	"lbs-core/internal/namespace"
	"lbs-core/internal/store"
	"lbs-core/internal/utils"

	"github.com/joho/godotenv"
)

// 后端名称
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// ErrRedisPrefixRequired：redis 后端必须配置 STORE_KEY_PREFIX
var ErrRedisPrefixRequired = errors.New("config: redis backend requires a non-empty STORE_KEY_PREFIX")

// Config：运行配置；连接参数（REDIS_*、PG_*）由 utils 直接从环境读取
type Config struct {
	Backend             string
	SQLitePath          string
	KeyPrefix           string
	FieldPrefixStrategy string
	FieldKeyCacheSize   int
}

// Default：未设置任何环境变量时的配置
func Default() Config {
	return Config{
		Backend:             BackendSQLite,
		SQLitePath:          filepath.Join("data", "lbs.db"),
		KeyPrefix:           "lbs",
		FieldPrefixStrategy: "family",
		FieldKeyCacheSize:   namespace.DefaultCacheSize,
	}
}

// Load：加载 .env 与 data/env/.env（文件缺失时忽略），再读取环境变量
func Load() (Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	return FromEnv()
}

// FromEnv：只读取进程环境
// 约束：未知后端或策略名直接报错，避免静默落到错误的存储
func FromEnv() (Config, error) {
	c := Default()
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND"))); v != "" {
		c.Backend = v
	}
	switch c.Backend {
	case BackendMemory, BackendSQLite, BackendRedis, BackendPostgres:
	default:
		return Config{}, fmt.Errorf("config: unknown STORE_BACKEND %q", c.Backend)
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.SQLitePath = v
	}
	if v, ok := os.LookupEnv("STORE_KEY_PREFIX"); ok {
		c.KeyPrefix = strings.TrimSpace(v)
	}
	if v := os.Getenv("FIELD_PREFIX_STRATEGY"); v != "" {
		if _, err := namespace.StrategyByName(v); err != nil {
			return Config{}, fmt.Errorf("config: FIELD_PREFIX_STRATEGY: %w", err)
		}
		c.FieldPrefixStrategy = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("FIELD_KEY_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("config: FIELD_KEY_CACHE_SIZE must be a positive integer, got %q", v)
		}
		c.FieldKeyCacheSize = n
	}
	logger.L().Debug("config_loaded", "backend", c.Backend, "prefix", c.KeyPrefix, "strategy", c.FieldPrefixStrategy)
	return c, nil
}

// OpenGateway：按后端打开网关；SQL 后端会先执行 migrate.EnsureSchema
// 约束：返回的网关若实现 io.Closer，由调用方（通常是 workspace.Dispose）负责关闭
func OpenGateway(ctx context.Context, c Config) (store.Gateway, error) {
	l := logger.L()
	switch c.Backend {
	case BackendMemory:
		l.Info("store_backend", "backend", c.Backend)
		return store.NewMemory(), nil
	case BackendSQLite:
		db, err := utils.OpenSQLite(c.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", c.SQLitePath, err)
		}
		if err := migrate.EnsureSchema(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite schema: %w", err)
		}
		l.Info("store_backend", "backend", c.Backend, "path", c.SQLitePath)
		return store.AttachDB(db, store.SQLite, c.KeyPrefix), nil
	case BackendPostgres:
		db, err := utils.OpenPostgresFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := migrate.EnsureSchema(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		l.Info("store_backend", "backend", c.Backend)
		return store.AttachDB(db, store.Postgres, c.KeyPrefix), nil
	case BackendRedis:
		// 约束：共享的 Redis 库里只能按前缀界定本研究的键
		if c.KeyPrefix == "" {
			return nil, ErrRedisPrefixRequired
		}
		rc, err := utils.OpenRedisFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		l.Info("store_backend", "backend", c.Backend, "prefix", c.KeyPrefix)
		return store.NewRedis(rc, c.KeyPrefix), nil
	}
	return nil, fmt.Errorf("config: unknown backend %q", c.Backend)
}

// Strategy：配置对应的字段命名策略
func (c Config) Strategy() namespace.Strategy {
	s, err := namespace.StrategyByName(c.FieldPrefixStrategy)
	if err != nil {
		return namespace.FamilyStrategy{}
	}
	return s
}
