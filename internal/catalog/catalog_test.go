package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"lbs-core/internal/model"
	"lbs-core/internal/store"
	"lbs-core/internal/validate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) (*Catalog, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	return New(store.NewWriter(m)), m
}

const sampleImport = `{
  "Comunidad Campesina Huancabamba": [
    {"ITEM": 1, "UBIGEO": 50101, "CODIGO": 501010001, "CCPP": "Huancabamba", "CATEGORIA": "Pueblo",
     "POBLACION": 1204, "DPTO": "Ayacucho", "PROV": "Huamanga", "DIST": "Ayacucho",
     "ESTE": 584213.5, "NORTE": 8545870, "ALTITUD": 2761},
    {"ITEM": "2", "UBIGEO": "050101", "CODIGO": "0501010002", "CCPP": "Llacctahuaman",
     "POBLACION": "85", "DPTO": "Ayacucho", "PROV": "Huamanga", "DIST": "Ayacucho"}
  ],
  "Distrito Tambillo": [
    {"ITEM": 3, "UBIGEO": "050115", "CCPP": "Tambillo", "DIST": "Tambillo"},
    {"CCPP": "Sin ubigeo"},
    {"UBIGEO": "050115", "CCPP": "   "},
    "not a record"
  ]
}`

func TestLoadFromImportScenario(t *testing.T) {
	c, _ := newCatalog(t)
	res, err := c.LoadFromImport(context.Background(), []byte(`{"G1":[{"CCPP":"Foo","UBIGEO":"010101"},{"CCPP":"Bad"}]}`))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Accepted: 1, Rejected: 1}, res)

	all := c.GetAll()
	require.Len(t, all, 1)
	assert.Equal(t, "Foo", all[0].Nombre)
	assert.Equal(t, "010101", all[0].Ubigeo)
	assert.Equal(t, 0, all[0].Poblacion)
	assert.Equal(t, "", all[0].Categoria)
}

func TestLoadFromImportNormalizes(t *testing.T) {
	c, _ := newCatalog(t)
	res, err := c.LoadFromImport(context.Background(), []byte(sampleImport))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Accepted)
	assert.Equal(t, 3, res.Rejected)

	all := c.GetAll()
	require.Len(t, all, 3)
	assert.Equal(t, model.PopulationCenter{
		Item: 1, Ubigeo: "050101", Codigo: "501010001", Nombre: "Huancabamba", Categoria: "Pueblo",
		Poblacion: 1204, Departamento: "Ayacucho", Provincia: "Huamanga", Distrito: "Ayacucho",
		Este: 584213.5, Norte: 8545870, Altitud: 2761,
	}, all[0])
	assert.Equal(t, 2, all[1].Item)
	assert.Equal(t, 85, all[1].Poblacion)
	assert.Equal(t, "0501010002", all[1].Codigo)
	// file order is preserved across groups
	assert.Equal(t, "Tambillo", all[2].Nombre)
}

func TestLoadFromImportRejectsBadShape(t *testing.T) {
	cases := map[string]string{
		"array top level":  `[{"CCPP":"Foo","UBIGEO":"010101"}]`,
		"value not array":  `{"G1": {"CCPP":"Foo"}}`,
		"null value":       `{"G1": null}`,
		"not json":         `{"G1": [`,
		"scalar":           `42`,
		"trailing content": `{"G1": []} {}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := newCatalog(t)
			_, err := c.LoadFromImport(context.Background(), []byte(`{"G":[{"CCPP":"Keep","UBIGEO":"010101"}]}`))
			require.NoError(t, err)

			_, err = c.LoadFromImport(context.Background(), []byte(in))
			require.Error(t, err)
			assert.True(t, errors.Is(err, validate.ErrValidation))
			assert.ErrorIs(t, err, ErrValidation)
			require.Len(t, c.GetAll(), 1, "catalog must be untouched on failure")
			assert.Equal(t, "Keep", c.GetAll()[0].Nombre)
		})
	}
}

func TestImportReplacesWholesale(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()
	_, err := c.LoadFromImport(ctx, []byte(sampleImport))
	require.NoError(t, err)
	_, err = c.LoadFromImport(ctx, []byte(`{"X":[{"CCPP":"Nuevo","UBIGEO":"150101"}]}`))
	require.NoError(t, err)
	all := c.GetAll()
	require.Len(t, all, 1)
	assert.Equal(t, "Nuevo", all[0].Nombre)
}

func TestImportPersistsAndLoadRestores(t *testing.T) {
	c, m := newCatalog(t)
	ctx := context.Background()
	_, err := c.LoadFromImport(ctx, []byte(sampleImport))
	require.NoError(t, err)

	_, ok, err := m.GetItem(ctx, StorageKey)
	require.NoError(t, err)
	require.True(t, ok)

	fresh := New(store.NewWriter(m))
	require.NoError(t, fresh.Load(ctx))
	assert.Equal(t, c.GetAll(), fresh.GetAll())
}

func TestNonFiniteNumbersDefaultToZero(t *testing.T) {
	c, m := newCatalog(t)
	ctx := context.Background()
	res, err := c.LoadFromImport(ctx, []byte(`{"G":[
		{"CCPP":"Foo","UBIGEO":"010101","ESTE":"NaN","NORTE":1e999,"ALTITUD":"-Infinity",
		 "POBLACION":1e300,"ITEM":"9e18"}
	]}`))
	require.NoError(t, err)
	require.Equal(t, 1, res.Accepted)

	p := c.GetAll()[0]
	assert.Zero(t, p.Este)
	assert.Zero(t, p.Norte)
	assert.Zero(t, p.Altitud)
	assert.Zero(t, p.Poblacion)
	assert.Zero(t, p.Item)

	// the row must still be persistable and exportable as JSON
	stored, ok, err := m.GetItem(ctx, StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	var back []model.PopulationCenter
	require.NoError(t, json.Unmarshal([]byte(stored), &back))
	assert.Equal(t, c.GetAll(), back)
	_, err = json.Marshal(c.GetAll())
	assert.NoError(t, err)
}

func TestToFloat(t *testing.T) {
	cases := []struct {
		in   any
		want float64
	}{
		{json.Number("12.5"), 12.5},
		{json.Number("1e999"), 0},
		{json.Number("-1e999"), 0},
		{" 42 ", 42},
		{"NaN", 0},
		{"Inf", 0},
		{"abc", 0},
		{3, 3},
		{nil, 0},
		{true, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, toFloat(tc.in), "%#v", tc.in)
	}
	assert.Equal(t, 120, toInt(json.Number("120.9")))
	assert.Equal(t, 0, toInt(json.Number("1e300")))
}

func TestDuplicateIdentityKeepsFirst(t *testing.T) {
	c, _ := newCatalog(t)
	res, err := c.LoadFromImport(context.Background(), []byte(`{
		"A":[{"CCPP":"Primero","UBIGEO":"010101","CODIGO":"0001"},
		     {"CCPP":"Sin codigo","UBIGEO":"010101"}],
		"B":[{"CCPP":"Repetido","UBIGEO":"10101","CODIGO":"0001"},
		     {"CCPP":"Otro sin codigo","UBIGEO":"010101"},
		     {"CCPP":"Segundo","UBIGEO":"010101","CODIGO":"0002"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Accepted: 4, Rejected: 1}, res)

	var names []string
	for _, p := range c.GetAll() {
		names = append(names, p.Nombre)
	}
	assert.Equal(t, []string{"Primero", "Sin codigo", "Otro sin codigo", "Segundo"}, names)
}

func TestLoadCorruptStorage(t *testing.T) {
	m := store.NewMemory()
	require.NoError(t, m.SetItem(context.Background(), StorageKey, "{oops"))
	c := New(store.NewWriter(m))
	assert.Error(t, c.Load(context.Background()))
	assert.Equal(t, 0, c.Len())
}

func TestFilter(t *testing.T) {
	c, _ := newCatalog(t)
	_, err := c.LoadFromImport(context.Background(), []byte(sampleImport))
	require.NoError(t, err)

	dist := "Ayacucho"
	assert.Len(t, c.Filter(Criteria{Distrito: &dist}), 2)

	name := "Huancabamba"
	got := c.Filter(Criteria{Distrito: &dist, Nombre: &name})
	require.Len(t, got, 1)
	assert.Equal(t, 1204, got[0].Poblacion)

	pop := 85
	assert.Len(t, c.Filter(Criteria{Poblacion: &pop}), 1)

	none := "Lima"
	assert.Empty(t, c.Filter(Criteria{Departamento: &none}))
	assert.Len(t, c.Filter(Criteria{}), 3, "empty criteria matches all")

	assert.Len(t, c.FindByUbigeo("050115"), 1)
}

func TestGetAllIsSnapshot(t *testing.T) {
	c, _ := newCatalog(t)
	_, err := c.LoadFromImport(context.Background(), []byte(sampleImport))
	require.NoError(t, err)
	all := c.GetAll()
	all[0].Nombre = "mutated"
	assert.Equal(t, "Huancabamba", c.GetAll()[0].Nombre)
}

func TestClearAndNotifications(t *testing.T) {
	c, m := newCatalog(t)
	ctx := context.Background()
	var ops []string
	var sizes []int
	cancel := c.Subscribe(func(ev Event) {
		ops = append(ops, ev.Op)
		sizes = append(sizes, len(ev.Centers))
	})
	defer cancel()

	_, err := c.LoadFromImport(ctx, []byte(sampleImport))
	require.NoError(t, err)
	_, err = c.LoadFromImport(ctx, []byte(`[]`))
	require.Error(t, err)
	c.Clear(ctx)

	assert.Equal(t, []string{"import", "clear"}, ops)
	assert.Equal(t, []int{3, 0}, sizes)
	assert.Equal(t, 0, c.Len())
	_, ok, _ := m.GetItem(ctx, StorageKey)
	assert.False(t, ok)
}

func TestNormalizeUbigeo(t *testing.T) {
	assert.Equal(t, "010101", normalizeUbigeo("10101"))
	assert.Equal(t, "150101", normalizeUbigeo(150101.0))
	assert.Equal(t, "", normalizeUbigeo(nil))
	assert.Equal(t, "AB12", normalizeUbigeo("AB12"))
}
