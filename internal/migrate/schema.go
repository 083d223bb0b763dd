package migrate

import (
	"database/sql"
	"lbs-core/internal/logger"
)

// 背景：首次运行自动创建键值表，保障持久化网关可直接读写
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；语句需同时兼容 PostgreSQL 与 SQLite
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _lbs_kv (
            item_key TEXT PRIMARY KEY,
            item_value TEXT NOT NULL,
            updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
