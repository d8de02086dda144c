package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ModuleFact is one cached registry lookup.
type ModuleFact struct {
	Path      string
	Exists    bool
	AgeDays   int
	FetchedAt time.Time
}

// CachedModule returns the cached fact for path if it is younger than ttl,
// or nil on a miss or stale entry.
func (s *Store) CachedModule(path string, ttl time.Duration) (*ModuleFact, error) {
	var (
		exists  int
		ageDays int
		fetched string
	)
	err := s.db.QueryRow(
		"SELECT exists_, age_days, fetched_at FROM module_cache WHERE path = ?", path,
	).Scan(&exists, &ageDays, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read module cache: %w", err)
	}

	at, err := time.Parse(time.RFC3339, fetched)
	if err != nil || time.Since(at) > ttl {
		return nil, nil
	}
	return &ModuleFact{Path: path, Exists: exists != 0, AgeDays: ageDays, FetchedAt: at}, nil
}

// PutModule upserts a lookup result with the current timestamp.
func (s *Store) PutModule(f ModuleFact) error {
	exists := 0
	if f.Exists {
		exists = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO module_cache(path, exists_, age_days, fetched_at)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			exists_ = excluded.exists_,
			age_days = excluded.age_days,
			fetched_at = excluded.fetched_at`,
		f.Path, exists, f.AgeDays, nowUTC())
	if err != nil {
		return fmt.Errorf("write module cache: %w", err)
	}
	return nil
}
