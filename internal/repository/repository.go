// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/counter-orion/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides access to user accounts.
type UserRepository interface {
	// Create inserts a new user; uniqueness violations yield errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by exact (normalized) email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// Delete removes a user together with all owned entries.
	Delete(ctx context.Context, id uuid.UUID) error
}

// CatalogRepository provides read access to the shared catalog and the import reconciliation.
type CatalogRepository interface {
	// List returns one page of matching rows and the total match count.
	List(ctx context.Context, f model.CatalogFilter, limit, offset int) ([]model.CatalogItem, int, error)
	// Search returns up to limit rows matching the text query.
	Search(ctx context.Context, query string, limit int) ([]model.CatalogItem, error)
	// Reconcile applies a source list for one game in a single transaction.
	Reconcile(ctx context.Context, game string, items []model.ImportItem, prune bool) (model.ImportStats, error)
}

// EntryRepository provides owner-scoped access to owned entries.
type EntryRepository interface {
	// ListByOwner returns the owner's entries, most recent first.
	ListByOwner(ctx context.Context, userID uuid.UUID) ([]model.OwnedEntry, error)
	// Create inserts an entry if the referenced catalog item exists (errs.ErrNotFound otherwise).
	Create(ctx context.Context, e *model.OwnedEntry) error
	// Update applies the present fields of patch to the owner's entry.
	Update(ctx context.Context, userID, id uuid.UUID, patch model.EntryPatch) (*model.OwnedEntry, error)
	// Delete removes the owner's entry.
	Delete(ctx context.Context, userID, id uuid.UUID) error
}
