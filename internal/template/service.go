// Package template manages report templates and serves them over REST.
package template

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/reportforge/designer/internal/element"
	"github.com/reportforge/designer/internal/store"
	"github.com/reportforge/designer/internal/typeid"
)

// PlaygroundID is the shared template anyone may open without signing in.
const PlaygroundID = "tmpl_playground"

var (
	ErrNotFound  = errors.New("template not found")
	ErrForbidden = errors.New("not the template owner")
)

// Repository is the part of the store the template service needs.
type Repository interface {
	CreateTemplate(ctx context.Context, t store.Template) error
	GetTemplate(ctx context.Context, id string) (store.Template, error)
	ListTemplates(ctx context.Context, ownerID string) ([]store.Template, error)
	LoadElements(ctx context.Context, templateID string) ([]element.Ref, error)
	SaveElements(ctx context.Context, templateID string, elements []element.Ref) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a new template owned by ownerID. When sample is set the
// template starts with the sample receipt layout instead of an empty page.
func (s *Service) Create(ctx context.Context, name, ownerID string, width, height float64, sample bool) (*store.Template, error) {
	if width <= 0 {
		width = ReceiptWidth
	}
	if height <= 0 {
		height = ReceiptHeight
	}

	t := store.Template{
		ID:      typeid.NewTemplateID(),
		Name:    name,
		OwnerID: ownerID,
		Width:   width,
		Height:  height,
	}
	if err := s.repo.CreateTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}

	if sample {
		if err := s.repo.SaveElements(ctx, t.ID, NewSampleReceipt()); err != nil {
			return nil, fmt.Errorf("seed elements: %w", err)
		}
	}

	created, err := s.repo.GetTemplate(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("reload template: %w", err)
	}
	return &created, nil
}

// Get returns a template the user may open.
func (s *Service) Get(ctx context.Context, templateID, userID string) (*store.Template, error) {
	t, err := s.repo.GetTemplate(ctx, templateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get template: %w", err)
	}
	if t.ID != PlaygroundID && t.OwnerID != userID {
		return nil, ErrForbidden
	}
	return &t, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]store.Template, error) {
	templates, err := s.repo.ListTemplates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// Elements returns the stored elements of a template in paint order.
func (s *Service) Elements(ctx context.Context, templateID, userID string) ([]element.Ref, error) {
	if _, err := s.Get(ctx, templateID, userID); err != nil {
		return nil, err
	}
	elements, err := s.repo.LoadElements(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("load elements: %w", err)
	}
	return elements, nil
}

// EnsurePlayground creates the playground template on first start.
func EnsurePlayground(ctx context.Context, repo Repository) error {
	_, err := repo.GetTemplate(ctx, PlaygroundID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("get playground: %w", err)
	}

	err = repo.CreateTemplate(ctx, store.Template{
		ID:     PlaygroundID,
		Name:   "Playground",
		Width:  ReceiptWidth,
		Height: ReceiptHeight,
	})
	if err != nil && !errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("create playground: %w", err)
	}
	if err := repo.SaveElements(ctx, PlaygroundID, NewSampleReceipt()); err != nil {
		return fmt.Errorf("seed playground: %w", err)
	}

	slog.Info("playground template created", "template", PlaygroundID)
	return nil
}
