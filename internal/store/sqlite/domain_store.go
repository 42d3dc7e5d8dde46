// Package sqlite implements vfs.DomainStore on top of modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chebykinn/browser-code/internal/vfs"
)

// DomainStore implements vfs.DomainStore, holding each domain's record as
// a JSON blob with an in-memory read cache (mirrors the cache-over-SQL
// pattern the rest of this codebase's persistence layers use for hot
// read-modify-write paths).
type DomainStore struct {
	db *sql.DB

	mu    sync.RWMutex
	cache map[string]*vfs.DomainRecord
}

// New wraps an already-migrated *sql.DB.
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

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM vfs_domains WHERE domain = ?`, domain).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load domain %q: %w", domain, err)
	}

	var rec vfs.DomainRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
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
		INSERT INTO vfs_domains (domain, record, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(domain) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at
	`, domain, raw, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("persist domain %q: %w", domain, err)
	}

	s.mu.Lock()
	s.cache[domain] = rec
	s.mu.Unlock()
	return nil
}

func (s *DomainStore) DeleteDomain(ctx context.Context, domain string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vfs_domains WHERE domain = ?`, domain); err != nil {
		return fmt.Errorf("delete domain %q: %w", domain, err)
	}
	s.mu.Lock()
	delete(s.cache, domain)
	s.mu.Unlock()
	return nil
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
