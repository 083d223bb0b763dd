// 包 sectionctx：把影响组与子章节模板组合为渲染上下文（章节编号、标题、人口中心快照）
package sectionctx

import (
	"fmt"

	"lbs-core/internal/model"
	"lbs-core/internal/sections"
)

// SectionRoot：影响组子章节在报告中的固定上级编号
const SectionRoot = "3.1.4"

// Context：单个组 × 单个子章节的派生上下文，不持久化
type Context struct {
	Kind            model.Kind               `json:"tipo"`
	GroupID         string                   `json:"grupoId"`
	GroupNombre     string                   `json:"grupoNombre"`
	GroupOrden      int                      `json:"grupoOrden"`
	Numero          int                      `json:"numero"`
	Subseccion      int                      `json:"subseccion"`
	SeccionNumero   string                   `json:"seccionNumero"`
	Titulo          string                   `json:"titulo"`
	SectionID       string                   `json:"sectionId"`
	CentrosPoblados []model.PopulationCenter `json:"centrosPoblados"`
}

// GroupSource：生成器所需的只读组查询（*registry.Registry 满足该接口）
type GroupSource interface {
	GetByID(kind model.Kind, id string) (model.Group, bool)
	GetAll(kind model.Kind) []model.Group
}

type Generator struct {
	groups GroupSource
}

func New(groups GroupSource) *Generator { return &Generator{groups: groups} }

// SeccionNumero："<A|B>.<orden>.<subseccion>"
func SeccionNumero(kind model.Kind, orden, subseccion int) string {
	return fmt.Sprintf("%s.%d.%d", kind.Letter(), orden, subseccion)
}

// SectionID：字段命名空间使用的层级标识 "3.1.4.<A|B>.<orden>.<subseccion>"
func SectionID(kind model.Kind, orden, subseccion int) string {
	return SectionRoot + "." + SeccionNumero(kind, orden, subseccion)
}

// GenerateForSection：组或模板不存在时返回 false（不是错误）
func (g *Generator) GenerateForSection(kind model.Kind, groupID string, numero int) (Context, bool) {
	grp, ok := g.groups.GetByID(kind, groupID)
	if !ok {
		return Context{}, false
	}
	t, ok := sections.Lookup(kind, numero)
	if !ok {
		return Context{}, false
	}
	return build(kind, grp, t), true
}

// GenerateAllForGroup：按子章节顺序生成该组的全部上下文
func (g *Generator) GenerateAllForGroup(kind model.Kind, groupID string) []Context {
	var out []Context
	for _, t := range sections.Templates(kind) {
		if c, ok := g.GenerateForSection(kind, groupID, t.Numero); ok {
			out = append(out, c)
		}
	}
	return out
}

// GenerateAll：该类别所有组的上下文，按组 id 索引
func (g *Generator) GenerateAll(kind model.Kind) map[string][]Context {
	groups := g.groups.GetAll(kind)
	templates := sections.Templates(kind)
	out := make(map[string][]Context, len(groups))
	for _, grp := range groups {
		list := make([]Context, 0, len(templates))
		for _, t := range templates {
			list = append(list, build(kind, grp, t))
		}
		out[grp.ID] = list
	}
	return out
}

func build(kind model.Kind, grp model.Group, t sections.Template) Context {
	return Context{
		Kind:            kind,
		GroupID:         grp.ID,
		GroupNombre:     grp.Nombre,
		GroupOrden:      grp.Orden,
		Numero:          t.Numero,
		Subseccion:      t.Subseccion,
		SeccionNumero:   SeccionNumero(kind, grp.Orden, t.Subseccion),
		Titulo:          t.Titulo,
		SectionID:       SectionID(kind, grp.Orden, t.Subseccion),
		CentrosPoblados: model.CloneCenters(grp.CentrosPoblados),
	}
}
