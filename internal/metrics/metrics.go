// 包 metrics：核心组件的 Prometheus 计数器；不暴露 HTTP 端点，由宿主程序自行挂载 Registry()
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	GroupMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lbs_group_mutations_total",
		Help: "Total number of successful group registry mutations",
	}, []string{"op", "kind"})
	CatalogRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lbs_catalog_rows_total",
		Help: "Population-center import rows by result (accepted/rejected)",
	}, []string{"result"})
	StorageWriteErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lbs_storage_write_errors_total",
		Help: "Persistence gateway failures swallowed by the core",
	}, []string{"op"})
	SnapshotImportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lbs_snapshot_imports_total",
		Help: "Snapshot imports by result (ok/invalid)",
	}, []string{"result"})
	FieldKeyCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lbs_field_key_cache_total",
		Help: "Field namespace memo lookups by result (hit/miss)",
	}, []string{"result"})
)

var reg = prometheus.NewRegistry()

func init() {
	reg.MustRegister(GroupMutationsTotal)
	reg.MustRegister(CatalogRowsTotal)
	reg.MustRegister(StorageWriteErrorsTotal)
	reg.MustRegister(SnapshotImportsTotal)
	reg.MustRegister(FieldKeyCacheTotal)
}

// 文档注释：返回核心指标注册表
// 背景：宿主进程可将其合并到自己的 Gatherer 中；测试通过 testutil 直接读取计数。
func Registry() *prometheus.Registry { return reg }
