package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	ms := GetMigrations()
	require.NotEmpty(t, ms)
	for i := 1; i < len(ms); i++ {
		assert.Less(t, ms[i-1].Version, ms[i].Version)
	}
	assert.Equal(t, "000001_init_schema", ms[0].String())
	assert.Contains(t, GetMigrationByVersion(2).UpScript, "WHERE status = 'pending'")
	assert.Nil(t, GetMigrationByVersion(999))
}

func TestLoadMigrations_RequiresDownFile(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/000001_a.up.sql": {Data: []byte("SELECT 1;")},
	}
	_, err := LoadMigrations(fsys)
	assert.Error(t, err)
}

func TestLoadMigrations_RejectsDuplicateVersions(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/000001_a.up.sql":   {Data: []byte("SELECT 1;")},
		"migrations/000001_a.down.sql": {Data: []byte("SELECT 1;")},
		"migrations/1_b.up.sql":        {Data: []byte("SELECT 1;")},
		"migrations/1_b.down.sql":      {Data: []byte("SELECT 1;")},
	}
	_, err := LoadMigrations(fsys)
	assert.Error(t, err)
}

func TestPlan(t *testing.T) {
	registered := []Migration{
		{Version: 1, Name: "a", UpScript: "SELECT 1;"},
		{Version: 2, Name: "b", UpScript: "SELECT 2;"},
		{Version: 3, Name: "c", UpScript: "SELECT 3;"},
	}
	applied := []AppliedMigration{
		{Version: 1, Checksum: registered[0].Checksum()},
		{Version: 3, Checksum: registered[2].Checksum()},
	}

	pending, err := plan(applied, registered)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)

	_, err = plan([]AppliedMigration{{Version: 7, Name: "gone"}}, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000007_gone")

	_, err = plan([]AppliedMigration{{Version: 2, Checksum: "stale"}}, registered)
	assert.ErrorIs(t, err, ErrMigrationDrift)
}

func TestMigrator_UpAndDown(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	ctx := context.Background()

	m := newMigratorWith(db, []Migration{
		{Version: 1, Name: "widgets", UpScript: "CREATE TABLE widgets (id INTEGER PRIMARY KEY);", DownScript: "DROP TABLE widgets;"},
		{Version: 2, Name: "gadgets", UpScript: "CREATE TABLE gadgets (id INTEGER PRIMARY KEY);", DownScript: "DROP TABLE gadgets;"},
	})

	n, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, db.Migrator().HasTable("gadgets"))

	n, err = m.Up(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, m.Down(ctx, 2))
	assert.False(t, db.Migrator().HasTable("gadgets"))
	applied, err := m.Applied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "widgets", applied[0].Name)

	assert.Error(t, m.Down(ctx, 2), "already rolled back")
	assert.Error(t, m.Down(ctx, 9), "unknown version")
}

func TestMigrator_FailedScriptRecordsNothing(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	ctx := context.Background()

	m := newMigratorWith(db, []Migration{
		{Version: 1, Name: "ok", UpScript: "CREATE TABLE ok_table (id INTEGER);"},
		{Version: 2, Name: "broken", UpScript: "CREATE TABLE oops (;"},
	})
	n, err := m.Up(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, n)

	applied, err := m.Applied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, 1, applied[0].Version)
}
