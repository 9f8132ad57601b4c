package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveDetail records enrichment data for an entry, replacing any earlier
// fetch.
func (s *Store) SaveDetail(ctx context.Context, detail *Detail) error {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()

	_, err := s.execWithRetry(ctx,
		`INSERT INTO details (
            entry_id, imdb_id, imdb_rating, douban_id, douban_rating,
            year, country, ext_title, fetched_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (entry_id) DO UPDATE SET
            imdb_id = excluded.imdb_id,
            imdb_rating = excluded.imdb_rating,
            douban_id = excluded.douban_id,
            douban_rating = excluded.douban_rating,
            year = excluded.year,
            country = excluded.country,
            ext_title = excluded.ext_title,
            fetched_at = excluded.fetched_at`,
		detail.EntryID,
		detail.IMDbID,
		detail.IMDbRating,
		detail.DoubanID,
		detail.DoubanRating,
		detail.Year,
		detail.Country,
		detail.ExtTitle,
		timestamp(now),
	)
	if err != nil {
		return fmt.Errorf("save detail: %w", err)
	}
	detail.FetchedAt = now
	return nil
}

// GetDetail returns the enrichment data for an entry.
func (s *Store) GetDetail(ctx context.Context, entryID int64) (*Detail, error) {
	ctx = ensureContext(ctx)
	var (
		detail    Detail
		fetchedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT entry_id, imdb_id, imdb_rating, douban_id, douban_rating,
            year, country, ext_title, fetched_at
        FROM details WHERE entry_id = ?`, entryID,
	).Scan(
		&detail.EntryID,
		&detail.IMDbID,
		&detail.IMDbRating,
		&detail.DoubanID,
		&detail.DoubanRating,
		&detail.Year,
		&detail.Country,
		&detail.ExtTitle,
		&fetchedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("detail for entry %d: %w", entryID, ErrNotFound)
		}
		return nil, fmt.Errorf("get detail: %w", err)
	}
	detail.FetchedAt = parseTimestamp(fetchedAt)
	return &detail, nil
}
