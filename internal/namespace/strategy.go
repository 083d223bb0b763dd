package namespace

import (
	"fmt"
	"strings"
)

// Strategy：由章节标识推导字段后缀
type Strategy interface {
	Name() string
	Prefix(sectionID string) string
}

// FamilyStrategy：按组族标记（A/B）生成后缀，例如 3.1.4.A.2.7 -> _A
// NOTE: 同族的多个组实例会得到相同后缀，需要由其他机制隔离实例数据
type FamilyStrategy struct{}

func (FamilyStrategy) Name() string { return "family" }

func (FamilyStrategy) Prefix(sectionID string) string {
	marker, _ := parseSectionID(sectionID)
	if marker == "" {
		return ""
	}
	return "_" + marker
}

// OrderStrategy：按组族标记加组序号生成后缀，例如 3.1.4.A.2.7 -> _A2，保证每个组实例独立
type OrderStrategy struct{}

func (OrderStrategy) Name() string { return "order" }

func (OrderStrategy) Prefix(sectionID string) string {
	marker, order := parseSectionID(sectionID)
	if marker == "" {
		return ""
	}
	return "_" + marker + order
}

// StrategyByName：按配置名选择策略
func StrategyByName(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "family":
		return FamilyStrategy{}, nil
	case "order":
		return OrderStrategy{}, nil
	}
	return nil, fmt.Errorf("unknown field prefix strategy %q", name)
}

// parseSectionID：定位第一个 A/B 段作为族标记，其后的纯数字段作为组序号
func parseSectionID(id string) (marker, order string) {
	segs := strings.Split(strings.TrimSpace(id), ".")
	for i, s := range segs {
		if s != "A" && s != "B" {
			continue
		}
		if i+1 < len(segs) && isDigits(segs[i+1]) {
			return s, segs[i+1]
		}
		return s, ""
	}
	return "", ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
