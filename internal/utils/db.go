package utils

import (
	"context"
	"database/sql"
	"net"
	"net/url"
	"os"
	"path/filepath"

	"lbs-core/internal/logger"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// PoolConfig：连接池上限
type PoolConfig struct {
	MaxOpen int
	MaxIdle int
}

// PoolConfigFromEnv：PG_MAX_OPEN_CONNS / PG_MAX_IDLE_CONNS，默认 10/5
func PoolConfigFromEnv() PoolConfig {
	return PoolConfig{
		MaxOpen: envInt("PG_MAX_OPEN_CONNS", 10),
		MaxIdle: envInt("PG_MAX_IDLE_CONNS", 5),
	}
}

func (p PoolConfig) apply(db *sql.DB) {
	db.SetMaxOpenConns(p.MaxOpen)
	db.SetMaxIdleConns(p.MaxIdle)
}

// BuildPostgresDSNFromEnv：由 PG_* 变量拼出 DSN；用户名与密码按 URL 规则转义
func BuildPostgresDSNFromEnv() string {
	user := envOr("PG_USER", "postgres")
	u := url.URL{
		Scheme:   "postgres",
		User:     url.User(user),
		Host:     net.JoinHostPort(envOr("PG_HOST", "localhost"), envOr("PG_PORT", "5432")),
		Path:     "/" + envOr("PG_DB", "lbs"),
		RawQuery: "sslmode=" + url.QueryEscape(envOr("PG_SSLMODE", "disable")),
	}
	if pass := os.Getenv("PG_PASSWORD"); pass != "" {
		u.User = url.UserPassword(user, pass)
	}
	return u.String()
}

// OpenPostgres：打开连接、设置连接池并 Ping；任一步失败都会关闭连接
func OpenPostgres(ctx context.Context, dsn string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	pool.apply(db)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.L().Debug("pg_open_ok", "max_open", pool.MaxOpen, "max_idle", pool.MaxIdle)
	return db, nil
}

// OpenPostgresFromEnv：按 PG_* 环境变量打开 PostgreSQL
func OpenPostgresFromEnv(ctx context.Context) (*sql.DB, error) {
	return OpenPostgres(ctx, BuildPostgresDSNFromEnv(), PoolConfigFromEnv())
}

// OpenSQLite：打开嵌入式 SQLite 文件库（纯 Go 驱动，无 cgo）
// 约束：父目录不存在时自动创建；单连接避免 SQLITE_BUSY
func OpenSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	PoolConfig{MaxOpen: 1, MaxIdle: 1}.apply(db)
	return db, nil
}
