package history

import (
	"context"
	"fmt"
	"time"
)

const catalogColumns = `id, site, title, subtitle, info_link, download_link,
	size, seeders, leechers, imdb_rating, douban_rating, created_at, updated_at`

// UpsertCatalog records a listing entry, keyed on (site, info link).
// Repeated observations of the same item refresh its mutable fields (size,
// seeder and leecher counts, ratings) without creating a second row.
func (s *Store) UpsertCatalog(ctx context.Context, item *CatalogItem) error {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	ts := timestamp(now)

	_, err := s.execWithRetry(ctx,
		`INSERT INTO catalog (
            site, title, subtitle, info_link, download_link, size,
            seeders, leechers, imdb_rating, douban_rating, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (site, info_link) DO UPDATE SET
            title = excluded.title,
            subtitle = excluded.subtitle,
            download_link = excluded.download_link,
            size = excluded.size,
            seeders = excluded.seeders,
            leechers = excluded.leechers,
            imdb_rating = excluded.imdb_rating,
            douban_rating = excluded.douban_rating,
            updated_at = excluded.updated_at`,
		item.Site,
		item.Title,
		item.Subtitle,
		item.InfoLink,
		item.DownloadLink,
		item.Size,
		item.Seeders,
		item.Leechers,
		item.IMDbRating,
		item.DoubanRating,
		ts,
		ts,
	)
	if err != nil {
		return fmt.Errorf("upsert catalog: %w", err)
	}
	item.UpdatedAt = now
	return nil
}

// ListCatalog returns catalog items for a site, newest first. An empty site
// returns every item.
func (s *Store) ListCatalog(ctx context.Context, site string, limit int) ([]*CatalogItem, error) {
	ctx = ensureContext(ctx)

	query := "SELECT " + catalogColumns + " FROM catalog"
	var args []any
	if site != "" {
		query += " WHERE site = ?"
		args = append(args, site)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	defer rows.Close()

	var items []*CatalogItem
	for rows.Next() {
		var (
			item      CatalogItem
			createdAt string
			updatedAt string
		)
		err := rows.Scan(
			&item.ID,
			&item.Site,
			&item.Title,
			&item.Subtitle,
			&item.InfoLink,
			&item.DownloadLink,
			&item.Size,
			&item.Seeders,
			&item.Leechers,
			&item.IMDbRating,
			&item.DoubanRating,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan catalog item: %w", err)
		}
		item.CreatedAt = parseTimestamp(createdAt)
		item.UpdatedAt = parseTimestamp(updatedAt)
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog: %w", err)
	}
	return items, nil
}

// CatalogCount returns the number of catalog rows, optionally scoped to a
// site.
func (s *Store) CatalogCount(ctx context.Context, site string) (int, error) {
	ctx = ensureContext(ctx)
	var (
		count int
		err   error
	)
	if site == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM catalog").Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM catalog WHERE site = ?", site).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count catalog: %w", err)
	}
	return count, nil
}
