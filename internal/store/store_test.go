package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lbs-core/internal/migrate"
	"lbs-core/internal/utils"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runGatewayContract exercises the behaviour every Gateway must share.
func runGatewayContract(t *testing.T, g Gateway) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := g.GetItem(ctx, "gruposAISD")
	require.NoError(t, err)
	assert.False(t, ok, "missing key must report ok=false")

	require.NoError(t, g.SetItem(ctx, "gruposAISD", `[{"id":"a"}]`))
	v, ok, err := g.GetItem(ctx, "gruposAISD")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"a"}]`, v)

	// overwrite
	require.NoError(t, g.SetItem(ctx, "gruposAISD", `[]`))
	v, _, err = g.GetItem(ctx, "gruposAISD")
	require.NoError(t, err)
	assert.Equal(t, `[]`, v)

	require.NoError(t, g.SetItem(ctx, "gruposAISI", `[]`))
	require.NoError(t, g.RemoveItem(ctx, "gruposAISD"))
	_, ok, err = g.GetItem(ctx, "gruposAISD")
	require.NoError(t, err)
	assert.False(t, ok)

	// removing an absent key is not an error
	require.NoError(t, g.RemoveItem(ctx, "nope"))

	require.NoError(t, g.SetItem(ctx, "centrosPoblados", `[]`))
	require.NoError(t, g.Clear(ctx))
	for _, k := range []string{"gruposAISD", "gruposAISI", "centrosPoblados"} {
		_, ok, err := g.GetItem(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok, "key %s survived Clear", k)
	}
}

func TestMemoryGateway(t *testing.T) {
	m := NewMemory()
	runGatewayContract(t, m)
	assert.Equal(t, 0, m.Len())
}

func openSQLiteGateway(t *testing.T, prefix string) *SQL {
	t.Helper()
	db, err := utils.OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrate.EnsureSchema(db))
	return AttachDB(db, SQLite, prefix)
}

func TestSQLiteGateway(t *testing.T) {
	runGatewayContract(t, openSQLiteGateway(t, "lbs"))
}

func TestSQLiteGatewayWithoutPrefix(t *testing.T) {
	runGatewayContract(t, openSQLiteGateway(t, ""))
}

func TestSQLiteClearKeepsOtherPrefixes(t *testing.T) {
	ctx := context.Background()
	a := openSQLiteGateway(t, "estudioA")
	b := AttachDB(a.DB(), SQLite, "estudioB")

	require.NoError(t, a.SetItem(ctx, "gruposAISD", "a"))
	require.NoError(t, b.SetItem(ctx, "gruposAISD", "b"))
	require.NoError(t, a.Clear(ctx))

	_, ok, err := a.GetItem(ctx, "gruposAISD")
	require.NoError(t, err)
	assert.False(t, ok)
	v, ok, err := b.GetItem(ctx, "gruposAISD")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestSQLiteClearTreatsPrefixLiterally(t *testing.T) {
	ctx := context.Background()
	cases := []struct{ mine, sibling string }{
		{"estudio_1", "estudioX1"},
		{"estudio%", "estudio-otro"},
	}
	for _, tc := range cases {
		t.Run(tc.mine, func(t *testing.T) {
			mine := openSQLiteGateway(t, tc.mine)
			sibling := AttachDB(mine.DB(), SQLite, tc.sibling)
			bare := AttachDB(mine.DB(), SQLite, "")

			require.NoError(t, mine.SetItem(ctx, "gruposAISD", "mine"))
			require.NoError(t, sibling.SetItem(ctx, "gruposAISD", "sibling"))
			require.NoError(t, bare.SetItem(ctx, "gruposAISD", "bare"))
			require.NoError(t, mine.Clear(ctx))

			_, ok, err := mine.GetItem(ctx, "gruposAISD")
			require.NoError(t, err)
			assert.False(t, ok)
			for g, want := range map[*SQL]string{sibling: "sibling", bare: "bare"} {
				v, ok, err := g.GetItem(ctx, "gruposAISD")
				require.NoError(t, err)
				assert.True(t, ok, "%s entry removed by Clear of %s", want, tc.mine)
				assert.Equal(t, want, v)
			}
		})
	}
}

func TestBindRewritesPlaceholders(t *testing.T) {
	s := &SQL{dialect: SQLite}
	assert.Equal(t, "SELECT a FROM t WHERE x=? AND y=?", s.bind("SELECT a FROM t WHERE x=$1 AND y=$2"))
	p := &SQL{dialect: Postgres}
	assert.Equal(t, "SELECT a FROM t WHERE x=$1", p.bind("SELECT a FROM t WHERE x=$1"))
}

func TestPostgresGateway(t *testing.T) {
	dsn := os.Getenv("PG_TEST_DSN")
	if dsn == "" {
		t.Skip("PG_TEST_DSN not set")
	}
	db, err := utils.OpenPostgres(context.Background(), dsn, utils.PoolConfig{MaxOpen: 2, MaxIdle: 1})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, migrate.EnsureSchema(db))
	runGatewayContract(t, AttachDB(db, Postgres, "lbs_test"))
}

func TestRedisGateway(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	r := NewRedis(redis.NewClient(&redis.Options{Addr: addr}), "lbs_test")
	defer r.Close()
	runGatewayContract(t, r)
}

func TestRedisGatewayUnreachable(t *testing.T) {
	rc := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	r := NewRedis(rc, "lbs")
	defer r.Close()

	err := r.SetItem(context.Background(), "gruposAISD", "[]")
	require.Error(t, err)

	werr := &WriteError{Op: "set", Key: "gruposAISD", Err: err}
	assert.True(t, errors.Is(werr, err))
	assert.Contains(t, werr.Error(), `storage set "gruposAISD"`)
}

func TestRedisClearRequiresPrefix(t *testing.T) {
	rc := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	r := NewRedis(rc, "")
	defer r.Close()
	assert.ErrorIs(t, r.Clear(context.Background()), ErrUnscopedClear)
}

func TestRedisGlobEscape(t *testing.T) {
	assert.Equal(t, "lbs", redisGlobEscape("lbs"))
	assert.Equal(t, `a\*b\?c\[d\]\\e`, redisGlobEscape(`a*b?c[d]\e`))
}
