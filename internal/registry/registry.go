// 包 registry：影响组注册表。维护 AISD/AISI 两个有序集合，保证每个类别内 orden 始终为 1..N 的连续排列
package registry

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"lbs-core/internal/catalog"
	"lbs-core/internal/logger"
	"lbs-core/internal/metrics"
	"lbs-core/internal/model"
	"lbs-core/internal/notify"
	"lbs-core/internal/store"
	"lbs-core/internal/validate"

	"github.com/google/uuid"
)

// ErrValidation：快照导入等校验失败，等同于 validate.ErrValidation
var ErrValidation = validate.ErrValidation

// Op：变更类型
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
	OpMove   Op = "move"
	OpImport Op = "import"
	OpClear  Op = "clear"
	OpLoad   Op = "load"
)

// Renumbers：该变更是否可能改变组序号（字段命名空间需随之失效）
func (o Op) Renumbers() bool {
	switch o {
	case OpRemove, OpMove, OpImport, OpClear, OpLoad:
		return true
	}
	return false
}

// Event：变更通知，携带变更后两个类别的完整快照
// 约束：Kind 为空表示同时影响两个类别
type Event struct {
	Op   Op
	Kind model.Kind
	AISD []model.Group
	AISI []model.Group
}

// Groups：按类别取快照
func (e Event) Groups(k model.Kind) []model.Group {
	if k == model.AISI {
		return e.AISI
	}
	return e.AISD
}

// Patch：可合并的字段；nil 表示不修改。orden/tipo/id 不可修改，避免破坏序号不变式
type Patch struct {
	Nombre          *string
	CentrosPoblados *[]model.PopulationCenter
}

// Registry：影响组注册表
// 背景：wmu 串行化整个变更（状态、持久化、通知），保证通知按变更顺序恰好投递一次；
// mu 只保护内存状态，读方永远看不到删除后、重新编号前的中间态。
// 约束：监听器在 mu 释放后同步执行，可以读取注册表，但不得在回调内发起变更（wmu 不可重入）
type Registry struct {
	wmu    sync.Mutex
	mu     sync.RWMutex
	groups map[model.Kind][]model.Group
	w      *store.Writer
	cat    *catalog.Catalog
	hub    *notify.Hub[Event]
	now    func() time.Time
	newID  func() string
	log    *slog.Logger
}

// Option：构造选项
type Option func(*Registry)

// WithClock：注入时钟（测试用）
func WithClock(now func() time.Time) Option { return func(r *Registry) { r.now = now } }

// WithIDGenerator：注入 id 生成器（测试用）
func WithIDGenerator(fn func() string) Option { return func(r *Registry) { r.newID = fn } }

func New(w *store.Writer, cat *catalog.Catalog, opts ...Option) *Registry {
	r := &Registry{
		groups: map[model.Kind][]model.Group{model.AISD: {}, model.AISI: {}},
		w:      w,
		cat:    cat,
		hub:    notify.NewHub[Event](),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		log:    logger.With("registry"),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Subscribe：注册变更监听器，返回取消函数
func (r *Registry) Subscribe(fn func(Event)) func() { return r.hub.Subscribe(fn) }

// Catalog：注册表引用的人口中心目录
func (r *Registry) Catalog() *catalog.Catalog { return r.cat }

// Create：新建组并追加到末尾（orden = 当前数量 + 1）
func (r *Registry) Create(ctx context.Context, kind model.Kind, name string, centers []model.PopulationCenter) (model.Group, error) {
	if !kind.Valid() {
		return model.Group{}, validate.Newf("tipo", "unknown group kind %q", kind)
	}
	r.wmu.Lock()
	defer r.wmu.Unlock()

	r.mu.Lock()
	ts := r.now()
	g := model.Group{
		ID:              r.newID(),
		Nombre:          strings.TrimSpace(name),
		Tipo:            kind,
		Orden:           len(r.groups[kind]) + 1,
		CentrosPoblados: model.CloneCenters(centers),
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	r.groups[kind] = append(r.groups[kind], g)
	r.mu.Unlock()

	r.log.Info("registry_group_created", "kind", kind, "id", g.ID, "orden", g.Orden, "centros", len(centers))
	r.commit(ctx, OpCreate, kind)
	return g.Clone(), nil
}

// Update：合并修改并刷新 updatedAt；id 不存在时为空操作
func (r *Registry) Update(ctx context.Context, kind model.Kind, id string, p Patch) (model.Group, bool) {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	r.mu.Lock()
	i := r.indexOf(kind, id)
	if i < 0 {
		r.mu.Unlock()
		r.log.Debug("registry_update_miss", "kind", kind, "id", id)
		return model.Group{}, false
	}
	g := &r.groups[kind][i]
	if p.Nombre != nil {
		g.Nombre = strings.TrimSpace(*p.Nombre)
	}
	if p.CentrosPoblados != nil {
		g.CentrosPoblados = model.CloneCenters(*p.CentrosPoblados)
	}
	g.UpdatedAt = r.now()
	out := g.Clone()
	r.mu.Unlock()

	r.log.Info("registry_group_updated", "kind", kind, "id", id)
	r.commit(ctx, OpUpdate, kind)
	return out, true
}

// Remove：删除组并立即为同类别剩余组重新编号
// 约束：删除与重新编号在同一把写锁内完成，对外是原子的
func (r *Registry) Remove(ctx context.Context, kind model.Kind, id string) bool {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	r.mu.Lock()
	i := r.indexOf(kind, id)
	if i < 0 {
		r.mu.Unlock()
		r.log.Debug("registry_remove_miss", "kind", kind, "id", id)
		return false
	}
	list := r.groups[kind]
	survivors := make([]model.Group, 0, len(list)-1)
	survivors = append(survivors, list[:i]...)
	survivors = append(survivors, list[i+1:]...)
	renumber(survivors)
	r.groups[kind] = survivors
	r.mu.Unlock()

	r.log.Info("registry_group_removed", "kind", kind, "id", id, "remaining", len(survivors))
	r.commit(ctx, OpRemove, kind)
	return true
}

// Move：将组移动到 newOrder（越界时截断到 1..N），其余组顺延
func (r *Registry) Move(ctx context.Context, kind model.Kind, id string, newOrder int) bool {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	r.mu.Lock()
	i := r.indexOf(kind, id)
	if i < 0 {
		r.mu.Unlock()
		return false
	}
	list := r.groups[kind]
	if newOrder < 1 {
		newOrder = 1
	}
	if newOrder > len(list) {
		newOrder = len(list)
	}
	g := list[i]
	rest := make([]model.Group, 0, len(list))
	rest = append(rest, list[:i]...)
	rest = append(rest, list[i+1:]...)
	moved := make([]model.Group, 0, len(list))
	moved = append(moved, rest[:newOrder-1]...)
	moved = append(moved, g)
	moved = append(moved, rest[newOrder-1:]...)
	for j := range moved {
		moved[j].Orden = j + 1
	}
	moved[newOrder-1].UpdatedAt = r.now()
	r.groups[kind] = moved
	r.mu.Unlock()

	r.log.Info("registry_group_moved", "kind", kind, "id", id, "orden", newOrder)
	r.commit(ctx, OpMove, kind)
	return true
}

// GetAll：按 orden 排序的组副本
func (r *Registry) GetAll(kind model.Kind) []model.Group {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneGroups(r.groups[kind])
}

// GetByID：按 id 查找；未找到返回 false（视为“不适用”，不是错误）
func (r *Registry) GetByID(kind model.Kind, id string) (model.Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexOf(kind, id)
	if i < 0 {
		return model.Group{}, false
	}
	return r.groups[kind][i].Clone(), true
}

// Count：该类别组数量
func (r *Registry) Count(kind model.Kind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[kind])
}

// Load：从持久化网关恢复两个类别的组；不回写
// 约束：某类别内容损坏时记录错误并保留该类别为空，继续加载另一类别
func (r *Registry) Load(ctx context.Context) error {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	loaded := map[model.Kind][]model.Group{}
	var firstErr error
	for _, k := range model.Kinds {
		var list []model.Group
		ok, err := r.w.GetJSON(ctx, k.StorageKey(), &list)
		if err != nil {
			r.log.Error("registry_load_error", "kind", k, "err", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !ok {
			continue
		}
		loaded[k] = normalizeGroups(k, list)
	}
	r.mu.Lock()
	for _, k := range model.Kinds {
		r.groups[k] = loaded[k]
		if r.groups[k] == nil {
			r.groups[k] = []model.Group{}
		}
	}
	r.mu.Unlock()

	r.log.Info("registry_load_done", "aisd", len(loaded[model.AISD]), "aisi", len(loaded[model.AISI]))
	r.publish(OpLoad, "")
	return firstErr
}

// ClearAll：清空目录与两个组集合，并删除其持久化副本
func (r *Registry) ClearAll(ctx context.Context) {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	r.mu.Lock()
	for _, k := range model.Kinds {
		r.groups[k] = []model.Group{}
	}
	r.mu.Unlock()

	for _, k := range model.Kinds {
		_ = r.w.Remove(ctx, k.StorageKey())
	}
	if r.cat != nil {
		r.cat.Clear(ctx)
	}
	r.log.Info("registry_cleared")
	metrics.GroupMutationsTotal.WithLabelValues(string(OpClear), "").Inc()
	r.publish(OpClear, "")
}

// commit：持久化该类别并广播；调用方须持有 wmu
func (r *Registry) commit(ctx context.Context, op Op, kind model.Kind) {
	r.mu.RLock()
	list := cloneGroups(r.groups[kind])
	r.mu.RUnlock()
	_ = r.w.SetJSON(ctx, kind.StorageKey(), list)
	metrics.GroupMutationsTotal.WithLabelValues(string(op), string(kind)).Inc()
	r.publish(op, kind)
}

func (r *Registry) publish(op Op, kind model.Kind) {
	r.mu.RLock()
	ev := Event{
		Op:   op,
		Kind: kind,
		AISD: cloneGroups(r.groups[model.AISD]),
		AISI: cloneGroups(r.groups[model.AISI]),
	}
	r.mu.RUnlock()
	r.hub.Publish(ev)
}

// indexOf：调用方须持有 mu
func (r *Registry) indexOf(kind model.Kind, id string) int {
	for i, g := range r.groups[kind] {
		if g.ID == id {
			return i
		}
	}
	return -1
}

// renumber：按原 orden 稳定排序后重新赋值为 1..N
func renumber(list []model.Group) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Orden < list[j].Orden })
	for i := range list {
		list[i].Orden = i + 1
	}
}

// normalizeGroups：外部来源（存储、快照）的组统一类别、补空切片并重新编号
func normalizeGroups(kind model.Kind, in []model.Group) []model.Group {
	out := make([]model.Group, len(in))
	for i, g := range in {
		g.Tipo = kind
		g.CentrosPoblados = model.CloneCenters(g.CentrosPoblados)
		out[i] = g
	}
	renumber(out)
	return out
}

func cloneGroups(in []model.Group) []model.Group {
	out := make([]model.Group, len(in))
	for i, g := range in {
		out[i] = g.Clone()
	}
	return out
}
