package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/newsdecades/newsdecades/internal/core/timeline"
)

var _ timeline.Cache = (*Store)(nil)

// Get returns the cached response record for term if it has not expired.
// Terms are stored verbatim.
func (s *Store) Get(ctx context.Context, term string) (string, bool, error) {
	if s == nil || s.DB == nil {
		return "", false, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var body string
	row := s.DB.QueryRowContext(ctx, `
		SELECT body
		FROM timeline_cache
		WHERE term = ? AND expires_at > ?
	`, term, s.clock().Unix())

	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("fetch cached timeline: %w", err)
	}
	return body, true, nil
}

// Set stores body under term for ttl. A non-positive ttl stores nothing.
func (s *Store) Set(ctx context.Context, term, body string, ttl time.Duration) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if ttl <= 0 {
		return nil
	}

	now := s.clock().UTC()
	expires := now.Add(ttl)

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO timeline_cache (term, body, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(term) DO UPDATE SET
			body = excluded.body,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, term, body, now.Unix(), expires.Unix())
	if err != nil {
		return fmt.Errorf("store cached timeline: %w", err)
	}

	return nil
}

// PurgeExpired deletes expired rows and returns how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM timeline_cache WHERE expires_at <= ?`, s.clock().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge cached timelines: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of cached rows, expired or not.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	var n int64
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM timeline_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cached timelines: %w", err)
	}
	return n, nil
}

func (s *Store) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}
