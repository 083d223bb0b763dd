package migrate

import (
	"path/filepath"
	"testing"

	"lbs-core/internal/utils"

	"github.com/stretchr/testify/require"
)

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	db, err := utils.OpenSQLite(filepath.Join(t.TempDir(), "schema.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, EnsureSchema(db))
	require.NoError(t, EnsureSchema(db))

	_, err = db.Exec(`INSERT INTO _lbs_kv(item_key, item_value) VALUES('k', 'v')`)
	require.NoError(t, err)
	var v string
	require.NoError(t, db.QueryRow(`SELECT item_value FROM _lbs_kv WHERE item_key='k'`).Scan(&v))
	require.Equal(t, "v", v)
}
