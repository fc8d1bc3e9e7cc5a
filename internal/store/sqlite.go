package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/reportforge/designer/internal/element"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    display_name  TEXT NOT NULL,
    created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS templates (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    owner_id   TEXT NOT NULL,
    width      REAL NOT NULL,
    height     REAL NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS templates_owner_idx ON templates (owner_id);

CREATE TABLE IF NOT EXISTS elements (
    template_id TEXT NOT NULL REFERENCES templates (id) ON DELETE CASCADE,
    id          TEXT NOT NULL,
    paint_order INTEGER NOT NULL,
    kind        TEXT NOT NULL,
    name        TEXT NOT NULL DEFAULT '',
    x           REAL NOT NULL,
    y           REAL NOT NULL,
    width       REAL NOT NULL,
    height      REAL NOT NULL,
    visible     INTEGER NOT NULL,
    locked      INTEGER NOT NULL,
    data        TEXT,
    PRIMARY KEY (template_id, id)
);
`

// SQLite is the embedded single-file store used for development and the
// playground.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) CreateUser(ctx context.Context, u User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO users (id, email, password_hash, display_name, created_at)
        VALUES (?, ?, ?, ?, ?)
    `, u.ID, u.Email, u.PasswordHash, u.DisplayName, formatTime(u.CreatedAt))
	if err != nil {
		if errors.Is(err, sqlite3.CONSTRAINT) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLite) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *SQLite) GetUserByID(ctx context.Context, id string) (User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *SQLite) getUser(ctx context.Context, column, value string) (User, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, email, password_hash, display_name, created_at
        FROM users
        WHERE `+column+` = ?
    `, value)

	var (
		u       User
		created string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = parseTime(created)
	return u, nil
}

func (s *SQLite) CreateTemplate(ctx context.Context, t Template) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO templates (id, name, owner_id, width, height, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `, t.ID, t.Name, t.OwnerID, t.Width, t.Height, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		if errors.Is(err, sqlite3.CONSTRAINT) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func (s *SQLite) GetTemplate(ctx context.Context, id string) (Template, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, name, owner_id, width, height, created_at, updated_at
        FROM templates
        WHERE id = ?
    `, id)

	t, err := scanSQLiteTemplate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Template{}, ErrNotFound
		}
		return Template{}, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (s *SQLite) ListTemplates(ctx context.Context, ownerID string) ([]Template, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, name, owner_id, width, height, created_at, updated_at
        FROM templates
        WHERE owner_id = ?
        ORDER BY updated_at DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	templates := make([]Template, 0)
	for rows.Next() {
		t, err := scanSQLiteTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (s *SQLite) LoadElements(ctx context.Context, templateID string) ([]element.Ref, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, kind, name, x, y, width, height, visible, locked, data
        FROM elements
        WHERE template_id = ?
        ORDER BY paint_order
    `, templateID)
	if err != nil {
		return nil, fmt.Errorf("load elements: %w", err)
	}
	defer rows.Close()

	elements := make([]element.Ref, 0)
	for rows.Next() {
		var (
			el   element.Ref
			data sql.NullString
		)
		err := rows.Scan(&el.ID, &el.Kind, &el.Name,
			&el.Position.X, &el.Position.Y, &el.Size.Width, &el.Size.Height,
			&el.Visible, &el.Locked, &data)
		if err != nil {
			return nil, fmt.Errorf("scan element: %w", err)
		}
		if data.Valid {
			el.Data = json.RawMessage(data.String)
		}
		elements = append(elements, el)
	}
	return elements, rows.Err()
}

func (s *SQLite) SaveElements(ctx context.Context, templateID string, elements []element.Ref) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM elements WHERE template_id = ?`, templateID); err != nil {
		return fmt.Errorf("clear elements: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO elements (template_id, id, paint_order, kind, name, x, y, width, height, visible, locked, data)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, el := range elements {
		var data any
		if len(el.Data) > 0 {
			data = string(el.Data)
		}
		_, err := stmt.ExecContext(ctx, templateID, el.ID, i, string(el.Kind), el.Name,
			el.Position.X, el.Position.Y, el.Size.Width, el.Size.Height,
			el.Visible, el.Locked, data)
		if err != nil {
			return fmt.Errorf("insert element %s: %w", el.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE templates SET updated_at = ? WHERE id = ?`,
		formatTime(time.Now().UTC()), templateID); err != nil {
		return fmt.Errorf("touch template: %w", err)
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTemplate(row rowScanner) (Template, error) {
	var (
		t                Template
		created, updated string
	)
	if err := row.Scan(&t.ID, &t.Name, &t.OwnerID, &t.Width, &t.Height, &created, &updated); err != nil {
		return Template{}, err
	}
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	return t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
