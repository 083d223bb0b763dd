package store

import (
	"context"
	"database/sql"
	"errors"
	"lbs-core/internal/logger"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Dialect：SQL 方言，仅影响占位符写法
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// SQL：基于 database/sql 的键值网关，表结构由 migrate.EnsureSchema 创建
// 背景：PostgreSQL 用于集中部署；SQLite 作为命令行工具默认的本地文件库
type SQL struct {
	db      *sql.DB
	dialect Dialect
	prefix  string
}

// AttachDB：复用已打开的连接；调用方负责事先执行 migrate.EnsureSchema
func AttachDB(db *sql.DB, d Dialect, prefix string) *SQL {
	return &SQL{db: db, dialect: d, prefix: prefix}
}

func (s *SQL) DB() *sql.DB { return s.db }

// Close：关闭数据库连接
func (s *SQL) Close() error { return s.db.Close() }

func (s *SQL) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

// bind：将 $n 占位符改写为当前方言
func (s *SQL) bind(q string) string {
	if s.dialect == Postgres {
		return q
	}
	for i := 9; i >= 1; i-- {
		q = strings.ReplaceAll(q, "$"+strconv.Itoa(i), "?")
	}
	return q
}

func (s *SQL) GetItem(ctx context.Context, key string) (string, bool, error) {
	row := s.db.QueryRowContext(ctx, s.bind("SELECT item_value FROM _lbs_kv WHERE item_key=$1"), s.key(key))
	var v string
	if err := row.Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

func (s *SQL) SetItem(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.bind(`INSERT INTO _lbs_kv(item_key, item_value, updated_at)
        VALUES($1, $2, CURRENT_TIMESTAMP)
        ON CONFLICT (item_key) DO UPDATE SET item_value=EXCLUDED.item_value, updated_at=CURRENT_TIMESTAMP`),
		s.key(key), value)
	if err == nil {
		logger.L().Debug("sql_set_ok", "key", key, "bytes", len(value))
	}
	return err
}

func (s *SQL) RemoveItem(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.bind("DELETE FROM _lbs_kv WHERE item_key=$1"), s.key(key))
	return err
}

// Clear：仅删除本前缀下的键；无前缀时清空整表
// 约束：按字符前缀精确比较而不用 LIKE，前缀中的 _ 与 % 不得被当作通配符
func (s *SQL) Clear(ctx context.Context) error {
	var err error
	if s.prefix == "" {
		_, err = s.db.ExecContext(ctx, "DELETE FROM _lbs_kv")
	} else {
		p := s.prefix + ":"
		_, err = s.db.ExecContext(ctx, s.bind("DELETE FROM _lbs_kv WHERE substr(item_key, 1, $1) = $2"),
			utf8.RuneCountInString(p), p)
	}
	return err
}
