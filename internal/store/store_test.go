package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesSchema(t *testing.T) {
	st := createTestStore(t)

	for _, table := range []string{"rounds", "player_comprehensive_stats", "lua_round_teams", "lua_spawn_stats"} {
		var name string
		err := st.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	st := createTestStore(t)

	var journal string
	require.NoError(t, st.DB().QueryRow("PRAGMA journal_mode").Scan(&journal))
	assert.Equal(t, "wal", journal)

	var fk int
	require.NoError(t, st.DB().QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpen_SetsSchemaVersion(t *testing.T) {
	st := createTestStore(t)

	v, err := st.schemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, v)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	st1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st1.InsertRound(context.Background(), Round{ID: 7, MapName: "goldrush"}))
	require.NoError(t, st1.Close())

	st2, err := Open(path)
	require.NoError(t, err)
	defer st2.Close()

	meta, err := st2.RoundMeta(context.Background(), []int64{7})
	require.NoError(t, err)
	assert.Equal(t, "goldrush", meta[7].MapName)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	assert.Error(t, err)
}

func TestClose_NilDB(t *testing.T) {
	st := &Store{}
	assert.NoError(t, st.Close())
}
