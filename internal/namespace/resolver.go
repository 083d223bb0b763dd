// 包 namespace：字段命名空间解析。多个组实例复用同一章节模板时，为共享的扁平键值状态生成不冲突的键
package namespace

import (
	"strings"

	"lbs-core/internal/logger"
	"lbs-core/internal/metrics"
)

// Resolver：字段键解析契约，推导策略可替换
type Resolver interface {
	Prefix(sectionID string) string
	FieldKey(sectionID, baseKey string) string
	Invalidate(sectionID string)
	InvalidateAll()
}

// DefaultCacheSize：备忘表默认容量
const DefaultCacheSize = 4096

const sep = "\x00"

// Memo：带备忘的解析器
// 约束：章节标识与后缀的映射可能变化（如重新编号）后，必须调用 Invalidate/InvalidateAll，否则会返回过期键
type Memo struct {
	strategy Strategy
	prefixes *lru
	keys     *lru
}

var _ Resolver = (*Memo)(nil)

func New(s Strategy, cacheSize int) *Memo {
	if s == nil {
		s = FamilyStrategy{}
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Memo{strategy: s, prefixes: newLRU(cacheSize), keys: newLRU(cacheSize)}
}

// Strategy：当前推导策略
func (m *Memo) Strategy() Strategy { return m.strategy }

// Prefix：按章节标识推导后缀（备忘）
func (m *Memo) Prefix(sectionID string) string {
	if p, ok := m.prefixes.Get(sectionID); ok {
		return p
	}
	p := m.strategy.Prefix(sectionID)
	m.prefixes.Set(sectionID, p)
	return p
}

// FieldKey：baseKey + 后缀；baseKey 已以该后缀结尾时原样返回，保证幂等
func (m *Memo) FieldKey(sectionID, baseKey string) string {
	ck := sectionID + sep + baseKey
	if k, ok := m.keys.Get(ck); ok {
		metrics.FieldKeyCacheTotal.WithLabelValues("hit").Inc()
		return k
	}
	metrics.FieldKeyCacheTotal.WithLabelValues("miss").Inc()
	p := m.Prefix(sectionID)
	k := baseKey
	if p != "" && !strings.HasSuffix(baseKey, p) {
		k = baseKey + p
	}
	m.keys.Set(ck, k)
	return k
}

// Invalidate：丢弃某章节的后缀及由其推导的全部字段键
func (m *Memo) Invalidate(sectionID string) {
	m.prefixes.Delete(sectionID)
	n := m.keys.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, sectionID+sep) })
	logger.L().Debug("namespace_invalidate", "section", sectionID, "keys", n)
}

// InvalidateAll：清空全部备忘
func (m *Memo) InvalidateAll() {
	m.prefixes.Purge()
	m.keys.Purge()
	logger.L().Debug("namespace_invalidate_all")
}

// Len：备忘的字段键数量
func (m *Memo) Len() int { return m.keys.Len() }
