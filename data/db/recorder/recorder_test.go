package recorder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	core "gorel/data/db"
	"gorel/data/db/basic"
)

func TestRecorder_RecordsAndDelegates(t *testing.T) {
	db, err := basic.New(core.DBConfig{Driver: "sqlite", Database: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	rec := New(db)
	ctx := context.Background()
	_, err = rec.Exec(ctx, "CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)
	_, err = rec.Exec(ctx, "INSERT INTO items (name) VALUES (?)", "a")
	require.NoError(t, err)

	rows, err := rec.Query(ctx, "SELECT name FROM items")
	require.NoError(t, err)
	require.True(t, rows.Next())
	var name string
	require.NoError(t, rows.Scan(&name))
	require.NoError(t, rows.Close())
	assert.Equal(t, "a", name)

	assert.Equal(t, 3, rec.Count())
	assert.Len(t, rec.Matching("insert"), 1)
	assert.Equal(t, []any{"a"}, rec.Matching("INSERT")[0].Args)
	assert.Equal(t, "sqlite", rec.GetDialectName())

	rec.Reset()
	assert.Zero(t, rec.Count())
}

func TestRecorder_TransactionSharesLog(t *testing.T) {
	db, err := basic.New(core.DBConfig{Driver: "sqlite", Database: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	rec := New(db)
	ctx := context.Background()
	_, err = rec.Exec(ctx, "CREATE TABLE items (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	tx, err := rec.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, "INSERT INTO items (id) VALUES (1)")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	stmts := rec.Statements()
	require.Len(t, stmts, 2)
	assert.Equal(t, KindExec, stmts[1].Kind)
	assert.Equal(t, "INSERT", stmts[1].Verb())
}
