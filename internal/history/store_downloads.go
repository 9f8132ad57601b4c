package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const downloadColumns = `id, entry_id, agent, media_title, season, resolution,
	release_group, media_source, size, info_link, paused, added_at`

// RecordDownload persists one dispatch to a download agent.
func (s *Store) RecordDownload(ctx context.Context, dl *Download) error {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()

	res, err := s.execWithRetry(ctx,
		`INSERT INTO downloads (
            entry_id, agent, media_title, season, resolution,
            release_group, media_source, size, info_link, paused, added_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		dl.EntryID,
		dl.Agent,
		dl.MediaTitle,
		dl.Season,
		dl.Resolution,
		dl.ReleaseGroup,
		dl.MediaSource,
		dl.Size,
		dl.InfoLink,
		boolToInt(dl.Paused),
		timestamp(now),
	)
	if err != nil {
		return fmt.Errorf("record download: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	dl.ID = id
	dl.AddedAt = now
	return nil
}

// LatestDownloadOfRelease returns the most recent download sharing the same
// media title, season, and resolution, or ErrNotFound when no variant has
// been downloaded yet.
func (s *Store) LatestDownloadOfRelease(ctx context.Context, mediaTitle, season, resolution string) (*Download, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+downloadColumns+` FROM downloads
        WHERE media_title = ? AND season = ? AND resolution = ?
        ORDER BY id DESC LIMIT 1`,
		mediaTitle, season, resolution)
	dl, err := scanDownload(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest download: %w", err)
	}
	return dl, nil
}

// DownloadExistsForLink reports whether a download was already dispatched
// for the given detail page link.
func (s *Store) DownloadExistsForLink(ctx context.Context, infoLink string) (bool, error) {
	if infoLink == "" {
		return false, nil
	}
	ctx = ensureContext(ctx)
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM downloads WHERE info_link = ?", infoLink,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check download exists: %w", err)
	}
	return count > 0, nil
}

// ListDownloads returns downloads newest first.
func (s *Store) ListDownloads(ctx context.Context, limit int) ([]*Download, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + downloadColumns + " FROM downloads ORDER BY id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	defer rows.Close()

	var downloads []*Download
	for rows.Next() {
		dl, err := scanDownload(rows)
		if err != nil {
			return nil, fmt.Errorf("scan download: %w", err)
		}
		downloads = append(downloads, dl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate downloads: %w", err)
	}
	return downloads, nil
}

func scanDownload(row scanner) (*Download, error) {
	var (
		dl      Download
		paused  int
		addedAt string
	)
	err := row.Scan(
		&dl.ID,
		&dl.EntryID,
		&dl.Agent,
		&dl.MediaTitle,
		&dl.Season,
		&dl.Resolution,
		&dl.ReleaseGroup,
		&dl.MediaSource,
		&dl.Size,
		&dl.InfoLink,
		&paused,
		&addedAt,
	)
	if err != nil {
		return nil, err
	}
	dl.Paused = paused != 0
	dl.AddedAt = parseTimestamp(addedAt)
	return &dl, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
