package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"lbs-core/internal/metrics"
	"lbs-core/internal/model"
	"lbs-core/internal/validate"
)

// Snapshot：配置导出格式
type Snapshot struct {
	CentrosPoblados []model.PopulationCenter `json:"centrosPoblados"`
	GruposAISD      []model.Group            `json:"gruposAISD"`
	GruposAISI      []model.Group            `json:"gruposAISI"`
	ExportDate      time.Time                `json:"exportDate"`
}

// ExportSnapshot：导出目录与两个组集合的当前副本
func (r *Registry) ExportSnapshot() Snapshot {
	s := Snapshot{ExportDate: r.now()}
	if r.cat != nil {
		s.CentrosPoblados = r.cat.GetAll()
	} else {
		s.CentrosPoblados = []model.PopulationCenter{}
	}
	r.mu.RLock()
	s.GruposAISD = cloneGroups(r.groups[model.AISD])
	s.GruposAISI = cloneGroups(r.groups[model.AISI])
	r.mu.RUnlock()
	return s
}

// ExportJSON：导出快照的 JSON 文本
func (r *Registry) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(r.ExportSnapshot(), "", "  ")
}

// rawSnapshot：延迟解码各字段，便于先整体校验再应用
type rawSnapshot struct {
	CentrosPoblados json.RawMessage `json:"centrosPoblados"`
	GruposAISD      json.RawMessage `json:"gruposAISD"`
	GruposAISI      json.RawMessage `json:"gruposAISI"`
}

// decodedSnapshot：校验通过的字段；nil 表示快照中未出现该字段
type decodedSnapshot struct {
	centers []model.PopulationCenter
	groups  map[model.Kind][]model.Group
}

// ImportSnapshot：恢复快照
// 约束：先校验所有出现的字段，全部合法才整体应用；任一字段非法则不修改任何集合。
// 未出现（或为 null）的字段保持原状。
func (r *Registry) ImportSnapshot(ctx context.Context, raw []byte) error {
	d, err := decodeSnapshot(raw)
	if err != nil {
		metrics.SnapshotImportsTotal.WithLabelValues("invalid").Inc()
		r.log.Warn("snapshot_import_invalid", "err", err)
		return err
	}

	r.wmu.Lock()
	defer r.wmu.Unlock()

	if d.centers != nil && r.cat != nil {
		r.cat.Replace(ctx, d.centers)
	}
	r.mu.Lock()
	for k, list := range d.groups {
		r.groups[k] = list
	}
	r.mu.Unlock()
	for _, k := range model.Kinds {
		if list, ok := d.groups[k]; ok {
			_ = r.w.SetJSON(ctx, k.StorageKey(), list)
		}
	}
	metrics.SnapshotImportsTotal.WithLabelValues("ok").Inc()
	metrics.GroupMutationsTotal.WithLabelValues(string(OpImport), "").Inc()
	r.log.Info("snapshot_import_done",
		"centros", len(d.centers), "aisd", len(d.groups[model.AISD]), "aisi", len(d.groups[model.AISI]))
	r.publish(OpImport, "")
	return nil
}

func decodeSnapshot(raw []byte) (decodedSnapshot, error) {
	var rs rawSnapshot
	if err := json.Unmarshal(raw, &rs); err != nil {
		return decodedSnapshot{}, validate.New("", "snapshot is not a JSON object", err)
	}
	d := decodedSnapshot{groups: map[model.Kind][]model.Group{}}
	if present(rs.CentrosPoblados) {
		var centers []model.PopulationCenter
		if err := json.Unmarshal(rs.CentrosPoblados, &centers); err != nil {
			return decodedSnapshot{}, validate.New("centrosPoblados", "must be an array of population centers", err)
		}
		for i, c := range centers {
			if c.Nombre == "" || c.Ubigeo == "" {
				return decodedSnapshot{}, validate.Newf("centrosPoblados", "item %d: missing ccpp or ubigeo", i)
			}
		}
		d.centers = model.CloneCenters(centers)
	}
	seen := map[string]model.Kind{}
	for _, k := range model.Kinds {
		field := k.StorageKey()
		src := rs.GruposAISD
		if k == model.AISI {
			src = rs.GruposAISI
		}
		if !present(src) {
			continue
		}
		var list []model.Group
		if err := json.Unmarshal(src, &list); err != nil {
			return decodedSnapshot{}, validate.New(field, "must be an array of groups", err)
		}
		for i, g := range list {
			if g.ID == "" {
				return decodedSnapshot{}, validate.Newf(field, "item %d: empty id", i)
			}
			if g.Tipo != "" && g.Tipo != k {
				return decodedSnapshot{}, validate.Newf(field, "item %d: tipo %q does not match %s", i, g.Tipo, k)
			}
			if prev, dup := seen[g.ID]; dup {
				return decodedSnapshot{}, validate.Newf(field, "item %d: duplicate id %q (also in %s)", i, g.ID, prev)
			}
			seen[g.ID] = k
		}
		d.groups[k] = normalizeGroups(k, list)
	}
	return d, nil
}

// present：字段出现且不为 null
func present(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && !bytes.Equal(b, []byte("null"))
}
