// 包 catalog：人口中心（CCPP）目录。每次导入整体替换，不做逐字段合并
package catalog

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"lbs-core/internal/logger"
	"lbs-core/internal/metrics"
	"lbs-core/internal/model"
	"lbs-core/internal/notify"
	"lbs-core/internal/store"
	"lbs-core/internal/validate"
)

// StorageKey：目录在持久化网关中的键
const StorageKey = "centrosPoblados"

// ErrValidation：导入结构错误，等同于 validate.ErrValidation
var ErrValidation = validate.ErrValidation

func clog() *slog.Logger { return logger.With("catalog") }

// Event：目录变更通知，携带变更后的完整目录
type Event struct {
	Op      string
	Centers []model.PopulationCenter
}

// ImportResult：一次导入的统计
type ImportResult struct {
	Accepted int
	Rejected int
}

// Catalog：人口中心目录
// 背景：读多写少，读路径通过 atomic.Pointer 无锁取得当前快照；写路径串行化以保证通知顺序
type Catalog struct {
	cur atomic.Pointer[[]model.PopulationCenter]
	wmu sync.Mutex
	w   *store.Writer
	hub *notify.Hub[Event]
}

func New(w *store.Writer) *Catalog {
	c := &Catalog{w: w, hub: notify.NewHub[Event]()}
	empty := []model.PopulationCenter{}
	c.cur.Store(&empty)
	return c
}

// Subscribe：注册变更监听器
func (c *Catalog) Subscribe(fn func(Event)) func() { return c.hub.Subscribe(fn) }

// LoadFromImport：解析导入文件并整体替换目录
// 约束：顶层结构错误返回 ValidationError 且目录保持不变；非法行静默丢弃（计入 Rejected 与指标）
func (c *Catalog) LoadFromImport(ctx context.Context, raw []byte) (ImportResult, error) {
	centers, rejected, err := parseImport(raw)
	if err != nil {
		clog().Warn("catalog_import_invalid", "err", err)
		return ImportResult{}, err
	}
	metrics.CatalogRowsTotal.WithLabelValues("accepted").Add(float64(len(centers)))
	metrics.CatalogRowsTotal.WithLabelValues("rejected").Add(float64(rejected))
	c.replace(ctx, "import", centers, true)
	clog().Info("catalog_import_done", "accepted", len(centers), "rejected", rejected)
	return ImportResult{Accepted: len(centers), Rejected: rejected}, nil
}

// Replace：以给定列表整体替换目录（配置恢复路径）
func (c *Catalog) Replace(ctx context.Context, centers []model.PopulationCenter) {
	c.replace(ctx, "replace", centers, true)
}

// Load：从持久化网关恢复目录；不回写
// 约束：存储内容损坏时记录错误并保持空目录，返回错误供宿主判定
func (c *Catalog) Load(ctx context.Context) error {
	var centers []model.PopulationCenter
	ok, err := c.w.GetJSON(ctx, StorageKey, &centers)
	if err != nil {
		clog().Error("catalog_load_error", "err", err)
		return err
	}
	if !ok {
		clog().Debug("catalog_load_empty")
		return nil
	}
	c.replace(ctx, "load", centers, false)
	clog().Info("catalog_load_done", "count", len(centers))
	return nil
}

// Clear：清空目录并删除持久化副本
func (c *Catalog) Clear(ctx context.Context) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	empty := []model.PopulationCenter{}
	c.cur.Store(&empty)
	_ = c.w.Remove(ctx, StorageKey)
	c.hub.Publish(Event{Op: "clear", Centers: []model.PopulationCenter{}})
}

func (c *Catalog) replace(ctx context.Context, op string, centers []model.PopulationCenter, persist bool) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	next := model.CloneCenters(centers)
	c.cur.Store(&next)
	if persist {
		_ = c.w.SetJSON(ctx, StorageKey, next)
	}
	c.hub.Publish(Event{Op: op, Centers: model.CloneCenters(next)})
}

// GetAll：当前目录的只读副本
func (c *Catalog) GetAll() []model.PopulationCenter {
	return model.CloneCenters(*c.cur.Load())
}

// Len：当前条目数
func (c *Catalog) Len() int { return len(*c.cur.Load()) }

// Criteria：过滤条件；nil 字段视为通配
type Criteria struct {
	Item         *int
	Ubigeo       *string
	Codigo       *string
	Nombre       *string
	Categoria    *string
	Poblacion    *int
	Departamento *string
	Provincia    *string
	Distrito     *string
}

// Match：所有显式给出的字段均精确相等
func (q Criteria) Match(p model.PopulationCenter) bool {
	if q.Item != nil && *q.Item != p.Item {
		return false
	}
	if q.Ubigeo != nil && *q.Ubigeo != p.Ubigeo {
		return false
	}
	if q.Codigo != nil && *q.Codigo != p.Codigo {
		return false
	}
	if q.Nombre != nil && *q.Nombre != p.Nombre {
		return false
	}
	if q.Categoria != nil && *q.Categoria != p.Categoria {
		return false
	}
	if q.Poblacion != nil && *q.Poblacion != p.Poblacion {
		return false
	}
	if q.Departamento != nil && *q.Departamento != p.Departamento {
		return false
	}
	if q.Provincia != nil && *q.Provincia != p.Provincia {
		return false
	}
	if q.Distrito != nil && *q.Distrito != p.Distrito {
		return false
	}
	return true
}

// Filter：返回满足条件的条目（保持目录顺序）
func (c *Catalog) Filter(q Criteria) []model.PopulationCenter {
	out := []model.PopulationCenter{}
	for _, p := range *c.cur.Load() {
		if q.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// FindByUbigeo：同一 UBIGEO（行政区）下的全部人口中心
func (c *Catalog) FindByUbigeo(ubigeo string) []model.PopulationCenter {
	return c.Filter(Criteria{Ubigeo: &ubigeo})
}
