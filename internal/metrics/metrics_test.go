package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGathersAllFamilies(t *testing.T) {
	GroupMutationsTotal.WithLabelValues("create", "AISD").Inc()
	CatalogRowsTotal.WithLabelValues("accepted").Inc()
	StorageWriteErrorsTotal.WithLabelValues("set").Inc()
	SnapshotImportsTotal.WithLabelValues("ok").Inc()
	FieldKeyCacheTotal.WithLabelValues("hit").Inc()

	mfs, err := Registry().Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, n := range []string{
		"lbs_group_mutations_total",
		"lbs_catalog_rows_total",
		"lbs_storage_write_errors_total",
		"lbs_snapshot_imports_total",
		"lbs_field_key_cache_total",
	} {
		assert.True(t, names[n], "missing %s", n)
	}
}

func TestCounterIncrements(t *testing.T) {
	c := StorageWriteErrorsTotal.WithLabelValues("remove")
	before := testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
