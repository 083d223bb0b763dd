// 包 model：核心实体（人口中心、影响组）及其 JSON 表达
package model

import (
	"strings"
	"time"
)

// Kind：影响组类别
type Kind string

const (
	// AISD：直接社会影响区，按社区建模
	AISD Kind = "AISD"
	// AISI：间接社会影响区，按行政区建模
	AISI Kind = "AISI"
)

// Kinds：固定遍历顺序
var Kinds = []Kind{AISD, AISI}

// Letter：章节编号中的族标记，AISD 为 A，AISI 为 B
func (k Kind) Letter() string {
	if k == AISI {
		return "B"
	}
	return "A"
}

func (k Kind) Valid() bool { return k == AISD || k == AISI }

// ParseKind：大小写不敏感解析
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToUpper(strings.TrimSpace(s))) {
	case AISD:
		return AISD, true
	case AISI:
		return AISI, true
	}
	return "", false
}

// StorageKey：该类别影响组集合的持久化键
func (k Kind) StorageKey() string { return "grupos" + string(k) }

// PopulationCenter：人口中心（CCPP），导入后不可变；标识为 (Ubigeo, Codigo)
type PopulationCenter struct {
	Item         int     `json:"item"`
	Ubigeo       string  `json:"ubigeo"`
	Codigo       string  `json:"codigo"`
	Nombre       string  `json:"ccpp"`
	Categoria    string  `json:"categoria"`
	Poblacion    int     `json:"poblacion"`
	Departamento string  `json:"dpto"`
	Provincia    string  `json:"prov"`
	Distrito     string  `json:"dist"`
	Este         float64 `json:"este"`
	Norte        float64 `json:"norte"`
	Altitud      float64 `json:"altitud"`
}

// Identity：(ubigeo, codigo) 组合键
func (p PopulationCenter) Identity() string { return p.Ubigeo + "/" + p.Codigo }

// Group：影响组。同一类别内 Orden 始终构成 1..N 的连续排列
type Group struct {
	ID              string             `json:"id"`
	Nombre          string             `json:"nombre"`
	Tipo            Kind               `json:"tipo"`
	Orden           int                `json:"orden"`
	CentrosPoblados []PopulationCenter `json:"centrosPoblados"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// Clone：复制组及其人口中心切片，避免调用方改写内部状态
func (g Group) Clone() Group {
	g.CentrosPoblados = CloneCenters(g.CentrosPoblados)
	return g
}

// CloneCenters：浅拷贝切片；nil 归一为空切片以保证 JSON 输出为 []
func CloneCenters(in []PopulationCenter) []PopulationCenter {
	out := make([]PopulationCenter, len(in))
	copy(out, in)
	return out
}

// TotalPoblacion：组内人口合计
func (g Group) TotalPoblacion() int {
	n := 0
	for _, c := range g.CentrosPoblados {
		n += c.Poblacion
	}
	return n
}
