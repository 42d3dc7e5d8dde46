// Package pg implements vfs.DomainStore on top of Postgres via pgx/stdlib.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chebykinn/browser-code/internal/vfs"
)

// DomainStore implements vfs.DomainStore, holding each domain's record as
// a JSONB column with an in-memory read cache — the same cache-over-SQL
// shape the sqlite backend and the rest of this codebase's hot
// read-modify-write persistence paths use.
type DomainStore struct {
	db *sql.DB

	mu    sync.RWMutex
	cache map[string]*vfs.DomainRecord
}

// New wraps an already-migrated *sql.DB opened with the pgx stdlib driver.
func New(db *sql.DB) *DomainStore {
	return &DomainStore{db: db, cache: make(map[string]*vfs.DomainRecord)}
}

func (s *DomainStore) GetDomain(ctx context.Context, domain string) (*vfs.DomainRecord, error) {
	s.mu.RLock()
	if rec, ok := s.cache[domain]; ok {
		s.mu.RUnlock()
		return rec, nil
	}
	s.mu.RUnlock()

	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT record FROM vfs_domains WHERE domain = $1`, domain).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load domain %q: %w", domain, err)
	}

	var rec vfs.DomainRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode domain %q: %w", domain, err)
	}

	s.mu.Lock()
	s.cache[domain] = &rec
	s.mu.Unlock()
	return &rec, nil
}

func (s *DomainStore) PutDomain(ctx context.Context, domain string, rec *vfs.DomainRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode domain %q: %w", domain, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO vfs_domains (domain, record, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (domain) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at
	`, domain, raw)
	if err != nil {
		return fmt.Errorf("persist domain %q: %w", domain, err)
	}

	s.mu.Lock()
	s.cache[domain] = rec
	s.mu.Unlock()
	s.notify(ctx, domain)
	return nil
}

func (s *DomainStore) DeleteDomain(ctx context.Context, domain string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vfs_domains WHERE domain = $1`, domain); err != nil {
		return fmt.Errorf("delete domain %q: %w", domain, err)
	}
	s.mu.Lock()
	delete(s.cache, domain)
	s.mu.Unlock()
	s.notify(ctx, domain)
	return nil
}

// notify fires a Postgres NOTIFY so internal/store.WatchChanges can relay
// VFS_STORAGE_CHANGED to connected gateway clients (spec's storage-change
// relay). Best-effort: a failed notify never fails the write it followed.
func (s *DomainStore) notify(ctx context.Context, domain string) {
	if _, err := s.db.ExecContext(ctx, `SELECT pg_notify('vfs_changed', $1)`, domain); err != nil {
		slog.Warn("store.pg.notify_failed", "domain", domain, "error", err)
	}
}

func (s *DomainStore) ListDomains(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT domain FROM vfs_domains ORDER BY domain`)
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

var _ vfs.DomainStore = (*DomainStore)(nil)
