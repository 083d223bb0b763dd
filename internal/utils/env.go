// 包 utils：Redis/PostgreSQL/SQLite 连接工具，统一环境变量读取
package utils

import (
	"os"
	"strconv"
	"strings"
)

// envOr：读取环境变量，空值回退到默认值
func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envInt：读取非负整数；缺失或解析失败时回退到默认值
func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
