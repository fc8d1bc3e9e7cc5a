// Package store persists users, templates and template elements.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reportforge/designer/internal/element"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"displayName"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Template is a report or receipt layout. Width and Height are the page size
// in canvas units.
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"ownerId"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Repository is implemented by the SQLite and Postgres stores.
type Repository interface {
	CreateUser(ctx context.Context, u User) error
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)

	CreateTemplate(ctx context.Context, t Template) error
	GetTemplate(ctx context.Context, id string) (Template, error)
	ListTemplates(ctx context.Context, ownerID string) ([]Template, error)

	// LoadElements returns a template's elements in paint order.
	LoadElements(ctx context.Context, templateID string) ([]element.Ref, error)
	// SaveElements replaces a template's elements in one transaction.
	SaveElements(ctx context.Context, templateID string, elements []element.Ref) error

	Close() error
}

// Open connects to the store selected by driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string) (Repository, error) {
	switch driver {
	case "sqlite":
		db, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "postgres":
		db, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
