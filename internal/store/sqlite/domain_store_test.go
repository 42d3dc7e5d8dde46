package sqlite

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chebykinn/browser-code/internal/vfs"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE vfs_domains (
		domain     TEXT PRIMARY KEY,
		record     TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`)
	require.NoError(t, err)
	return db
}

func TestDomainStoreGetMissingReturnsNil(t *testing.T) {
	store := New(newTestDB(t))
	rec, err := store.GetDomain(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestDomainStorePutThenGetRoundTrips(t *testing.T) {
	store := New(newTestDB(t))
	ctx := context.Background()

	rec := &vfs.DomainRecord{Paths: map[string]*vfs.PathRecord{
		"/": {
			Scripts: map[string]*vfs.File{"greet.js": {Content: "console.log(1)", Enabled: true}},
			Styles:  map[string]*vfs.File{},
		},
	}}
	require.NoError(t, store.PutDomain(ctx, "example.com", rec))

	got, err := store.GetDomain(ctx, "example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "console.log(1)", got.Paths["/"].Scripts["greet.js"].Content)
}

func TestDomainStorePutUpdatesExisting(t *testing.T) {
	store := New(newTestDB(t))
	ctx := context.Background()

	first := &vfs.DomainRecord{Paths: map[string]*vfs.PathRecord{"/": {Scripts: map[string]*vfs.File{}, Styles: map[string]*vfs.File{}}}}
	require.NoError(t, store.PutDomain(ctx, "example.com", first))

	second := &vfs.DomainRecord{Paths: map[string]*vfs.PathRecord{"/about": {Scripts: map[string]*vfs.File{}, Styles: map[string]*vfs.File{}}}}
	require.NoError(t, store.PutDomain(ctx, "example.com", second))

	got, err := store.GetDomain(ctx, "example.com")
	require.NoError(t, err)
	_, hasRoot := got.Paths["/"]
	_, hasAbout := got.Paths["/about"]
	assert.False(t, hasRoot)
	assert.True(t, hasAbout)
}

func TestDomainStoreDeleteRemovesRowAndCache(t *testing.T) {
	store := New(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.PutDomain(ctx, "example.com", &vfs.DomainRecord{Paths: map[string]*vfs.PathRecord{}}))
	require.NoError(t, store.DeleteDomain(ctx, "example.com"))

	got, err := store.GetDomain(ctx, "example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDomainStoreListDomainsSorted(t *testing.T) {
	store := New(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.PutDomain(ctx, "zeta.com", &vfs.DomainRecord{Paths: map[string]*vfs.PathRecord{}}))
	require.NoError(t, store.PutDomain(ctx, "alpha.com", &vfs.DomainRecord{Paths: map[string]*vfs.PathRecord{}}))

	domains, err := store.ListDomains(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha.com", "zeta.com"}, domains)
}

func TestDomainStoreCacheServesWithoutQuery(t *testing.T) {
	store := New(newTestDB(t))
	ctx := context.Background()

	rec := &vfs.DomainRecord{Paths: map[string]*vfs.PathRecord{}}
	require.NoError(t, store.PutDomain(ctx, "example.com", rec))

	store.db.Close() // any further real query now fails
	got, err := store.GetDomain(ctx, "example.com")
	require.NoError(t, err)
	assert.Same(t, rec, got)
}
