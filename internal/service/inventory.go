package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/counter-orion/internal/errs"
	"github.com/and161185/counter-orion/internal/model"
	"github.com/and161185/counter-orion/internal/repository"
)

// Column bounds: price is numeric(12,2), quantity is a 32-bit integer.
const (
	MaxPrice    = 1e10
	MaxQuantity = math.MaxInt32
)

var (
	errSkinNotFound  = fmt.Errorf("%w: skin not found", errs.ErrNotFound)
	errEntryNotFound = fmt.Errorf("%w: entry not found", errs.ErrNotFound)
)

// InventoryService defines owner-scoped operations over owned entries.
type InventoryService interface {
	// ListForOwner returns the owner's entries, most recent first.
	ListForOwner(ctx context.Context, userID uuid.UUID) ([]model.OwnedEntry, error)
	// Add creates an entry referencing an existing catalog item.
	Add(ctx context.Context, userID uuid.UUID, in model.NewEntry) (*model.OwnedEntry, error)
	// Update applies the present fields of patch to the owner's entry.
	Update(ctx context.Context, userID, id uuid.UUID, patch model.EntryPatch) (*model.OwnedEntry, error)
	// Remove deletes the owner's entry.
	Remove(ctx context.Context, userID, id uuid.UUID) error
}

type InventoryServiceImpl struct {
	repo repository.EntryRepository
}

// NewInventoryService constructs InventoryService.
func NewInventoryService(repo repository.EntryRepository) *InventoryServiceImpl {
	return &InventoryServiceImpl{repo: repo}
}

// optText trims s; blank strings become absent.
func optText(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func validateQuantity(q int) error {
	if q < 1 {
		return fmt.Errorf("%w: quantity must be >= 1", errs.ErrValidation)
	}
	if q > MaxQuantity {
		return fmt.Errorf("%w: quantity is too large", errs.ErrValidation)
	}
	return nil
}

func validatePrice(p *float64) error {
	if p == nil {
		return nil
	}
	if *p < 0 {
		return fmt.Errorf("%w: price must be >= 0", errs.ErrValidation)
	}
	if *p >= MaxPrice {
		return fmt.Errorf("%w: price is too large", errs.ErrValidation)
	}
	return nil
}

// ListForOwner returns an empty slice when the owner has no entries.
func (s *InventoryServiceImpl) ListForOwner(ctx context.Context, userID uuid.UUID) ([]model.OwnedEntry, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	return s.repo.ListByOwner(ctx, userID)
}

// Add validates in, normalizes blank text to absent and stores the entry.
// in.Quantity must already carry the default of 1 when the caller omitted it.
func (s *InventoryServiceImpl) Add(ctx context.Context, userID uuid.UUID, in model.NewEntry) (*model.OwnedEntry, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	if in.SkinID == uuid.Nil {
		return nil, fmt.Errorf("%w: skin_id is required", errs.ErrValidation)
	}
	if err := validateQuantity(in.Quantity); err != nil {
		return nil, err
	}
	if err := validatePrice(in.Price); err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	e := &model.OwnedEntry{
		ID:         id,
		UserID:     userID,
		SkinID:     in.SkinID,
		Wear:       optText(in.Wear),
		IsStatTrak: in.IsStatTrak,
		Quantity:   in.Quantity,
		Note:       optText(in.Note),
		Price:      in.Price,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errSkinNotFound
		}
		return nil, err
	}
	return e, nil
}

// Update validates the present fields the same way Add does.
func (s *InventoryServiceImpl) Update(ctx context.Context, userID, id uuid.UUID, patch model.EntryPatch) (*model.OwnedEntry, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	if patch.Quantity.Set {
		if err := validateQuantity(patch.Quantity.Value); err != nil {
			return nil, err
		}
	}
	if patch.Price.Set {
		if err := validatePrice(patch.Price.Value); err != nil {
			return nil, err
		}
	}
	if patch.Wear.Set {
		patch.Wear.Value = optText(patch.Wear.Value)
	}
	if patch.Note.Set {
		patch.Note.Value = optText(patch.Note.Value)
	}

	e, err := s.repo.Update(ctx, userID, id, patch)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errEntryNotFound
	}
	return e, err
}

// Remove reports another owner's entry exactly like a missing one.
func (s *InventoryServiceImpl) Remove(ctx context.Context, userID, id uuid.UUID) error {
	if userID == uuid.Nil {
		return fmt.Errorf("%w: empty user id", errs.ErrValidation)
	}
	err := s.repo.Delete(ctx, userID, id)
	if errors.Is(err, errs.ErrNotFound) {
		return errEntryNotFound
	}
	return err
}
