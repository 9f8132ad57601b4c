package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidTransition indicates an attempt to move an entry out of a
	// terminal status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

const entryColumns = `id, source, site, title, subtitle, category, tags, size,
	info_link, download_link, status, reason, agent, tag, created_at, updated_at`

// InsertEntry records a new entry in status pending. The UNIQUE(title,
// subtitle) constraint makes the dedup check-and-insert atomic: when another
// pass already recorded the pair, no row is written and inserted is false.
func (s *Store) InsertEntry(ctx context.Context, entry *Entry) (bool, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	ts := timestamp(now)

	res, err := s.execWithRetry(ctx,
		`INSERT INTO entries (
            source, site, title, subtitle, category, tags, size,
            info_link, download_link, status, reason, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (title, subtitle) DO NOTHING`,
		entry.Source,
		entry.Site,
		entry.Title,
		entry.Subtitle,
		entry.Category,
		entry.Tags,
		entry.Size,
		entry.InfoLink,
		entry.DownloadLink,
		StatusPending,
		"",
		ts,
		ts,
	)
	if err != nil {
		return false, fmt.Errorf("insert entry: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("last insert id: %w", err)
	}
	entry.ID = id
	entry.Status = StatusPending
	entry.CreatedAt = now
	entry.UpdatedAt = now
	return true, nil
}

// Exists reports whether an entry with the given (title, subtitle) pair has
// already been recorded. It observes all committed rows, including those
// written by concurrent passes.
func (s *Store) Exists(ctx context.Context, title, subtitle string) (bool, error) {
	ctx = ensureContext(ctx)
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM entries WHERE title = ? AND subtitle = ?",
		title, subtitle,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check entry exists: %w", err)
	}
	return count > 0, nil
}

// GetEntry returns the entry with the given id.
func (s *Store) GetEntry(ctx context.Context, id int64) (*Entry, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE id = ?", id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("entry %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// Finalize moves a pending entry to a terminal status with an explanatory
// reason. Transitions are one-way: an entry already in a terminal status is
// left untouched and ErrInvalidTransition is returned.
func (s *Store) Finalize(ctx context.Context, id int64, status Status, reason string) error {
	ctx = ensureContext(ctx)
	if !status.IsTerminal() {
		return fmt.Errorf("%w: %q is not a terminal status", ErrInvalidTransition, status)
	}
	if _, ok := statusSet[status]; !ok {
		return fmt.Errorf("unknown status %q", status)
	}

	res, err := s.execWithRetry(ctx,
		"UPDATE entries SET status = ?, reason = ?, updated_at = ? WHERE id = ? AND status = ?",
		status, reason, timestamp(time.Now()), id, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("finalize entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		current, getErr := s.GetEntry(ctx, id)
		if getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: entry %d is already %s", ErrInvalidTransition, id, current.Status)
	}
	return nil
}

// SetDispatchInfo records the agent and tag overrides active for an entry.
func (s *Store) SetDispatchInfo(ctx context.Context, id int64, agent, tag string) error {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx,
		"UPDATE entries SET agent = ?, tag = ?, updated_at = ? WHERE id = ?",
		agent, tag, timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set dispatch info: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("entry %d: %w", id, ErrNotFound)
	}
	return nil
}

// EntryFilter narrows ListEntries results. Zero values leave a dimension
// unfiltered.
type EntryFilter struct {
	Status Status
	Source string
	Limit  int
}

// ListEntries returns entries newest first.
func (s *Store) ListEntries(ctx context.Context, filter EntryFilter) ([]*Entry, error) {
	ctx = ensureContext(ctx)

	var (
		conditions []string
		args       []any
	)
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, filter.Source)
	}

	query := "SELECT " + entryColumns + " FROM entries"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// CountByStatus returns the number of entries per status.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT status, COUNT(1) FROM entries GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int, len(allStatuses))
	for rows.Next() {
		var (
			status Status
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		entry     Entry
		createdAt string
		updatedAt string
	)
	err := row.Scan(
		&entry.ID,
		&entry.Source,
		&entry.Site,
		&entry.Title,
		&entry.Subtitle,
		&entry.Category,
		&entry.Tags,
		&entry.Size,
		&entry.InfoLink,
		&entry.DownloadLink,
		&entry.Status,
		&entry.Reason,
		&entry.Agent,
		&entry.Tag,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.CreatedAt = parseTimestamp(createdAt)
	entry.UpdatedAt = parseTimestamp(updatedAt)
	return &entry, nil
}
