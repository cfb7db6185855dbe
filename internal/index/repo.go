package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/layerline/internal/apperr"
	"github.com/starford/layerline/internal/models"
)

// LayerRow is an indexed layer together with its catalogue source.
type LayerRow struct {
	models.Layer
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// ListQuery selects a page of layers. A nil Visible matches all layers.
type ListQuery struct {
	Limit   int
	Offset  int
	Visible *bool
	Sort    string
}

var sortColumns = map[string]string{
	"":        "id ASC",
	"id":      "id ASC",
	"title":   "title COLLATE NOCASE ASC, id ASC",
	"start":   "start_date ASC, id ASC",
	"updated": "updated_at DESC, id ASC",
}

const layerColumns = `id, path, title, subtitle, period, start_date, end_date, inactive, visible, checksum, updated_at`

// UpsertLayer inserts or replaces a layer, its date ranges, and its FTS entry
// within a transaction. A different layer previously indexed from the same
// path is removed first.
func (db *DB) UpsertLayer(r LayerRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var prev string
	err = tx.QueryRow(`SELECT id FROM layers WHERE path = ? AND id <> ?`, r.Path, r.ID).Scan(&prev)
	switch {
	case err == nil:
		ftsDelete(tx, prev)
		if _, err := tx.Exec(`DELETE FROM layers WHERE id = ?`, prev); err != nil {
			return fmt.Errorf("index: replace layer at %s: %w", r.Path, err)
		}
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("index: lookup path: %w", err)
	}

	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	_, err = tx.Exec(`
		INSERT INTO layers (`+layerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path       = excluded.path,
			title      = excluded.title,
			subtitle   = excluded.subtitle,
			period     = excluded.period,
			start_date = excluded.start_date,
			end_date   = excluded.end_date,
			inactive   = excluded.inactive,
			visible    = excluded.visible,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, r.ID, r.Path, r.Title, r.Subtitle, r.Period,
		encodeTime(r.StartDate), encodeTime(r.EndDate),
		r.Inactive, r.Visible, r.Checksum, r.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert layer: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM date_ranges WHERE layer_id = ?`, r.ID); err != nil {
		return fmt.Errorf("index: clear ranges: %w", err)
	}
	if len(r.DateRanges) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO date_ranges (layer_id, position, start_date, end_date, interval) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare range insert: %w", err)
		}
		defer stmt.Close()
		for i, dr := range r.DateRanges {
			if _, err := stmt.Exec(r.ID, i, encodeTime(dr.StartDate), encodeTime(dr.EndDate), dr.Interval); err != nil {
				return fmt.Errorf("index: insert range: %w", err)
			}
		}
	}

	if err := ftsUpsert(tx, r.ID, r.Title, r.Subtitle); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteLayer removes a layer and its ranges. Deleting an unknown id is not an error.
func (db *DB) DeleteLayer(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	if _, err := tx.Exec(`DELETE FROM layers WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete layer: %w", err)
	}
	return tx.Commit()
}

// DeleteBySource removes the layer indexed from path and returns its id, or
// the empty string when nothing was indexed there.
func (db *DB) DeleteBySource(path string) (string, error) {
	var id string
	err := db.conn.QueryRow(`SELECT id FROM layers WHERE path = ?`, path).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: lookup path: %w", err)
	}
	return id, db.DeleteLayer(id)
}

// GetLayer returns one layer with its date ranges.
func (db *DB) GetLayer(id string) (*LayerRow, error) {
	row := db.conn.QueryRow(`SELECT `+layerColumns+` FROM layers WHERE id = ?`, id)
	r, err := scanLayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get layer: %w", err)
	}
	ranges, err := db.loadRanges([]string{id})
	if err != nil {
		return nil, err
	}
	r.DateRanges = ranges[id]
	return &r, nil
}

// ListLayers returns a page of layers and the total number matching the filter.
func (db *DB) ListLayers(q ListQuery) ([]LayerRow, int, error) {
	order, ok := sortColumns[q.Sort]
	if !ok {
		return nil, 0, fmt.Errorf("index: unknown sort %q: %w", q.Sort, apperr.ErrInvalid)
	}
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	where, args := "", []any{}
	if q.Visible != nil {
		where = ` WHERE visible = ?`
		args = append(args, *q.Visible)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM layers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count layers: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+layerColumns+` FROM layers`+where+
		` ORDER BY `+order+` LIMIT ? OFFSET ?`, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list layers: %w", err)
	}
	out, err := db.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// AllLayers returns every indexed layer ordered by id.
func (db *DB) AllLayers() ([]LayerRow, error) {
	rows, err := db.conn.Query(`SELECT ` + layerColumns + ` FROM layers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("index: all layers: %w", err)
	}
	return db.collect(rows)
}

// GetChecksum returns the stored checksum for a source path, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM layers WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums maps every indexed source path to its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM layers`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLayer(s scanner) (LayerRow, error) {
	var (
		r          LayerRow
		start, end string
	)
	err := s.Scan(&r.ID, &r.Path, &r.Title, &r.Subtitle, &r.Period, &start, &end,
		&r.Inactive, &r.Visible, &r.Checksum, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	r.StartDate = decodeTime(start)
	r.EndDate = decodeTime(end)
	return r, nil
}

// collect scans layer rows, closes them, and attaches date ranges.
func (db *DB) collect(rows *sql.Rows) ([]LayerRow, error) {
	defer rows.Close()
	var out []LayerRow
	for rows.Next() {
		r, err := scanLayer(rows)
		if err != nil {
			return nil, fmt.Errorf("index: scan layer: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if len(out) == 0 {
		return out, nil
	}
	ids := make([]string, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	ranges, err := db.loadRanges(ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].DateRanges = ranges[out[i].ID]
	}
	return out, nil
}

func (db *DB) loadRanges(ids []string) (map[string][]models.DateRange, error) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := db.conn.Query(`
		SELECT layer_id, start_date, end_date, interval
		FROM date_ranges
		WHERE layer_id IN (`+placeholders+`)
		ORDER BY layer_id, position
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: load ranges: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.DateRange, len(ids))
	for rows.Next() {
		var (
			id         string
			start, end string
			dr         models.DateRange
		)
		if err := rows.Scan(&id, &start, &end, &dr.Interval); err != nil {
			return nil, fmt.Errorf("index: scan range: %w", err)
		}
		dr.StartDate = decodeTime(start)
		dr.EndDate = decodeTime(end)
		out[id] = append(out[id], dr)
	}
	return out, rows.Err()
}
