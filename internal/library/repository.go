package library

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

type Repository interface {
	CreateItem(ctx context.Context, item *MediaItem) error
	GetItem(ctx context.Context, id string) (*MediaItem, error)
	GetItemByFilename(ctx context.Context, filename string) (*MediaItem, error)
	ListItems(ctx context.Context) ([]*MediaItem, error)
	DeleteItem(ctx context.Context, id string) error
	ListPendingProbes(ctx context.Context, limit int) ([]*MediaItem, error)
	UpdateProbeStatus(ctx context.Context, id, status, errorMsg string) error
	UpdateProbeResult(ctx context.Context, id string, duration float64, size int64) error
	UpdateThumbnail(ctx context.Context, id, url string) error

	SaveProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	DeleteProject(ctx context.Context, id string) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const itemColumns = `id, filename, display_name, kind, origin, path, url, thumbnail_url, size, duration, probe_status, probe_error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*MediaItem, error) {
	var m MediaItem
	var kind string
	var path, url, thumb, probeErr sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&m.ID, &m.Filename, &m.DisplayName, &kind, &m.Origin, &path, &url, &thumb,
		&m.Size, &m.Duration, &m.ProbeStatus, &probeErr, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	m.Kind = timeline.MediaKind(kind)
	m.Path = path.String
	m.URL = url.String
	m.ThumbnailURL = thumb.String
	m.ProbeError = probeErr.String
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &m, nil
}

func (r *SQLiteRepository) CreateItem(ctx context.Context, m *MediaItem) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO media_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Filename, m.DisplayName, string(m.Kind), m.Origin, nullString(m.Path), nullString(m.URL),
		nullString(m.ThumbnailURL), m.Size, m.Duration, m.ProbeStatus, nullString(m.ProbeError),
		m.CreatedAt.UTC().Format(time.RFC3339), m.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetItem(ctx context.Context, id string) (*MediaItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM media_items WHERE id = ?`, id)
	m, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func (r *SQLiteRepository) GetItemByFilename(ctx context.Context, filename string) (*MediaItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM media_items WHERE filename = ?`, filename)
	m, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func (r *SQLiteRepository) ListItems(ctx context.Context) ([]*MediaItem, error) {
	return r.queryItems(ctx, `SELECT `+itemColumns+` FROM media_items ORDER BY created_at DESC, filename`)
}

func (r *SQLiteRepository) ListPendingProbes(ctx context.Context, limit int) ([]*MediaItem, error) {
	if limit <= 0 {
		limit = 1
	}
	return r.queryItems(ctx, `SELECT `+itemColumns+` FROM media_items
		WHERE probe_status = 'pending' ORDER BY created_at ASC LIMIT ?`, limit)
}

func (r *SQLiteRepository) queryItems(ctx context.Context, query string, args ...any) ([]*MediaItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*MediaItem
	for rows.Next() {
		m, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *SQLiteRepository) DeleteItem(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM media_items WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) UpdateProbeStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE media_items SET probe_status = ?, probe_error = ?, updated_at = ? WHERE id = ?
	`, status, nullString(errorMsg), time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) UpdateThumbnail(ctx context.Context, id, url string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE media_items SET thumbnail_url = ?, updated_at = ? WHERE id = ?
	`, nullString(url), time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) UpdateProbeResult(ctx context.Context, id string, duration float64, size int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE media_items
		SET duration = ?, size = CASE WHEN ? > 0 THEN ? ELSE size END,
		    probe_status = 'ready', probe_error = NULL, updated_at = ?
		WHERE id = ?
	`, duration, size, size, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) SaveProject(ctx context.Context, p *Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, state = excluded.state, updated_at = excluded.updated_at
	`, p.ID, p.Name, string(p.State), p.CreatedAt.UTC().Format(time.RFC3339), p.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, state, created_at, updated_at FROM projects WHERE id = ?
	`, id)

	var p Project
	var state, createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.Name, &state, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.State = []byte(state)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at FROM projects ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		var p Project
		var createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Name, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
