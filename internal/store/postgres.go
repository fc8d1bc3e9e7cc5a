package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reportforge/designer/internal/element"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    display_name  TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS templates (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    owner_id   TEXT NOT NULL,
    width      DOUBLE PRECISION NOT NULL,
    height     DOUBLE PRECISION NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS templates_owner_idx ON templates (owner_id);

CREATE TABLE IF NOT EXISTS elements (
    template_id TEXT NOT NULL REFERENCES templates (id) ON DELETE CASCADE,
    id          TEXT NOT NULL,
    paint_order INTEGER NOT NULL,
    kind        TEXT NOT NULL,
    name        TEXT NOT NULL DEFAULT '',
    x           DOUBLE PRECISION NOT NULL,
    y           DOUBLE PRECISION NOT NULL,
    width       DOUBLE PRECISION NOT NULL,
    height      DOUBLE PRECISION NOT NULL,
    visible     BOOLEAN NOT NULL,
    locked      BOOLEAN NOT NULL,
    data        JSONB,
    PRIMARY KEY (template_id, id)
);
`

// Postgres is the production store.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool to databaseURL and applies the schema.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	config.MaxConns = 20
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) CreateUser(ctx context.Context, u User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := p.pool.Exec(ctx, `
        INSERT INTO users (id, email, password_hash, display_name, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, u.ID, u.Email, u.PasswordHash, u.DisplayName, u.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return p.getUser(ctx, "email", email)
}

func (p *Postgres) GetUserByID(ctx context.Context, id string) (User, error) {
	return p.getUser(ctx, "id", id)
}

func (p *Postgres) getUser(ctx context.Context, column, value string) (User, error) {
	var u User
	err := p.pool.QueryRow(ctx, `
        SELECT id, email, password_hash, display_name, created_at
        FROM users
        WHERE `+column+` = $1
    `, value).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (p *Postgres) CreateTemplate(ctx context.Context, t Template) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	_, err := p.pool.Exec(ctx, `
        INSERT INTO templates (id, name, owner_id, width, height, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, t.ID, t.Name, t.OwnerID, t.Width, t.Height, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

func (p *Postgres) GetTemplate(ctx context.Context, id string) (Template, error) {
	var t Template
	err := p.pool.QueryRow(ctx, `
        SELECT id, name, owner_id, width, height, created_at, updated_at
        FROM templates
        WHERE id = $1
    `, id).Scan(&t.ID, &t.Name, &t.OwnerID, &t.Width, &t.Height, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Template{}, ErrNotFound
		}
		return Template{}, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (p *Postgres) ListTemplates(ctx context.Context, ownerID string) ([]Template, error) {
	rows, err := p.pool.Query(ctx, `
        SELECT id, name, owner_id, width, height, created_at, updated_at
        FROM templates
        WHERE owner_id = $1
        ORDER BY updated_at DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	templates, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Template, error) {
		var t Template
		err := row.Scan(&t.ID, &t.Name, &t.OwnerID, &t.Width, &t.Height, &t.CreatedAt, &t.UpdatedAt)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan templates: %w", err)
	}
	return templates, nil
}

func (p *Postgres) LoadElements(ctx context.Context, templateID string) ([]element.Ref, error) {
	rows, err := p.pool.Query(ctx, `
        SELECT id, kind, name, x, y, width, height, visible, locked, data
        FROM elements
        WHERE template_id = $1
        ORDER BY paint_order
    `, templateID)
	if err != nil {
		return nil, fmt.Errorf("load elements: %w", err)
	}

	elements, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (element.Ref, error) {
		var (
			el   element.Ref
			kind string
			data []byte
		)
		err := row.Scan(&el.ID, &kind, &el.Name,
			&el.Position.X, &el.Position.Y, &el.Size.Width, &el.Size.Height,
			&el.Visible, &el.Locked, &data)
		el.Kind = element.Kind(kind)
		if len(data) > 0 {
			el.Data = json.RawMessage(data)
		}
		return el, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan elements: %w", err)
	}
	return elements, nil
}

// SaveElements replaces the element rows with one batched round trip inside a
// transaction.
func (p *Postgres) SaveElements(ctx context.Context, templateID string, elements []element.Ref) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM elements WHERE template_id = $1`, templateID)
	for i, el := range elements {
		var data any
		if len(el.Data) > 0 {
			data = el.Data
		}
		batch.Queue(`
            INSERT INTO elements (template_id, id, paint_order, kind, name, x, y, width, height, visible, locked, data)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        `, templateID, el.ID, i, string(el.Kind), el.Name,
			el.Position.X, el.Position.Y, el.Size.Width, el.Size.Height,
			el.Visible, el.Locked, data)
	}
	batch.Queue(`UPDATE templates SET updated_at = now() WHERE id = $1`, templateID)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save elements: %w", err)
	}
	return tx.Commit(ctx)
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
