package pg

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chebykinn/browser-code/internal/vfs"
)

func newMockStore(t *testing.T) (*DomainStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestDomainStoreGetMissingReturnsNil(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT record FROM vfs_domains WHERE domain = \$1`).
		WithArgs("example.com").
		WillReturnError(sql.ErrNoRows)

	rec, err := store.GetDomain(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDomainStoreGetDecodesJSONB(t *testing.T) {
	store, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"record"}).AddRow(`{"paths":{"/":{"scripts":{},"styles":{}}}}`)
	mock.ExpectQuery(`SELECT record FROM vfs_domains WHERE domain = \$1`).
		WithArgs("example.com").
		WillReturnRows(rows)

	rec, err := store.GetDomain(context.Background(), "example.com")
	require.NoError(t, err)
	require.NotNil(t, rec)
	_, ok := rec.Paths["/"]
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDomainStorePutUpsertsAndCaches(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO vfs_domains`).
		WithArgs("example.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SELECT pg_notify\('vfs_changed', \$1\)`).
		WithArgs("example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := &vfs.DomainRecord{Paths: map[string]*vfs.PathRecord{}}
	require.NoError(t, store.PutDomain(context.Background(), "example.com", rec))

	// Cached now, so a second Get must not hit the db at all.
	got, err := store.GetDomain(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Same(t, rec, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDomainStoreDeleteEvictsCache(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`INSERT INTO vfs_domains`).
		WithArgs("example.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SELECT pg_notify\('vfs_changed', \$1\)`).
		WithArgs("example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.PutDomain(context.Background(), "example.com", &vfs.DomainRecord{Paths: map[string]*vfs.PathRecord{}}))

	mock.ExpectExec(`DELETE FROM vfs_domains WHERE domain = \$1`).
		WithArgs("example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SELECT pg_notify\('vfs_changed', \$1\)`).
		WithArgs("example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.DeleteDomain(context.Background(), "example.com"))

	mock.ExpectQuery(`SELECT record FROM vfs_domains WHERE domain = \$1`).
		WithArgs("example.com").
		WillReturnError(sql.ErrNoRows)
	got, err := store.GetDomain(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDomainStoreListDomains(t *testing.T) {
	store, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"domain"}).AddRow("alpha.com").AddRow("zeta.com")
	mock.ExpectQuery(`SELECT domain FROM vfs_domains ORDER BY domain`).WillReturnRows(rows)

	domains, err := store.ListDomains(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha.com", "zeta.com"}, domains)
	assert.NoError(t, mock.ExpectationsWereMet())
}
