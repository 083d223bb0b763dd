// 包 sections：编译期固定的报告子章节模板目录（按影响组类别分列）
package sections

import (
	_ "embed"
	"fmt"

	"lbs-core/internal/model"

	"gopkg.in/yaml.v3"
)

//go:embed secciones.yaml
var rawCatalog []byte

// Template：子章节模板
type Template struct {
	Numero     int    `yaml:"numero" json:"numero"`
	Subseccion int    `yaml:"subseccion" json:"subseccion"`
	Titulo     string `yaml:"titulo" json:"titulo"`
}

var catalog map[model.Kind][]Template

func init() {
	c, err := parse(rawCatalog)
	if err != nil {
		panic("sections: embedded catalog: " + err.Error())
	}
	catalog = c
}

// parse：解析并校验目录
// 约束：每个类别的 numero 连续递增，subseccion 为 1..N
func parse(b []byte) (map[model.Kind][]Template, error) {
	var raw map[string][]Template
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	out := make(map[model.Kind][]Template, len(model.Kinds))
	for _, k := range model.Kinds {
		list := raw[string(k)]
		if len(list) == 0 {
			return nil, fmt.Errorf("kind %s: no templates", k)
		}
		for i, t := range list {
			if t.Subseccion != i+1 {
				return nil, fmt.Errorf("kind %s: entry %d has subseccion %d", k, i, t.Subseccion)
			}
			if i > 0 && t.Numero != list[i-1].Numero+1 {
				return nil, fmt.Errorf("kind %s: numero %d does not follow %d", k, t.Numero, list[i-1].Numero)
			}
			if t.Titulo == "" {
				return nil, fmt.Errorf("kind %s: numero %d has empty titulo", k, t.Numero)
			}
		}
		out[k] = list
	}
	return out, nil
}

// Templates：按子章节顺序返回该类别的模板副本
func Templates(k model.Kind) []Template {
	list := catalog[k]
	out := make([]Template, len(list))
	copy(out, list)
	return out
}

// Lookup：按全局章节号线性查找（列表最多 17 项）
func Lookup(k model.Kind, numero int) (Template, bool) {
	for _, t := range catalog[k] {
		if t.Numero == numero {
			return t, true
		}
	}
	return Template{}, false
}

// ByIndex：按类别内子章节序号查找
func ByIndex(k model.Kind, subseccion int) (Template, bool) {
	list := catalog[k]
	if subseccion < 1 || subseccion > len(list) {
		return Template{}, false
	}
	return list[subseccion-1], true
}
