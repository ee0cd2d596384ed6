// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// User represents an account. The password is never stored in plaintext.
type User struct {
	ID        uuid.UUID // PK
	Email     string    // unique, lowercased
	Username  string    // unique
	PwdHash   []byte    // Argon2id(password, PwdSalt)
	PwdSalt   []byte    // per-user salt
	CreatedAt time.Time
}

// TokenKind separates access tokens from refresh tokens.
type TokenKind string

// Token kinds.
const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// Claims is the verified content of a token.
type Claims struct {
	UserID    uuid.UUID
	Email     string
	Username  string
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Tokens collects issued access/refresh tokens (refresh optional).
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // access token expiry (for diagnostics)
}

// CatalogItem is a shared, read-only reference row.
type CatalogItem struct {
	ID         uuid.UUID
	Game       string
	Weapon     string
	SkinName   string
	Rarity     string
	Collection *string
	ImageURL   *string
	CreatedAt  time.Time
}

// CatalogFilter narrows a catalog listing. Empty fields do not filter.
type CatalogFilter struct {
	Weapon string
	Rarity string
	Query  string
}

// CatalogPage is one page of a catalog listing.
type CatalogPage struct {
	Items    []CatalogItem
	Page     int
	PageSize int
	Total    int
	HasNext  bool
}

// OwnedEntry is a user's claim on a catalog item.
// Weapon, SkinName and Rarity are denormalized from the catalog for display.
type OwnedEntry struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	SkinID     uuid.UUID
	Wear       *string
	IsStatTrak bool
	Quantity   int
	Note       *string
	Price      *float64
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Weapon   string
	SkinName string
	Rarity   string
}

// NewEntry is a create intent for an owned entry.
type NewEntry struct {
	SkinID     uuid.UUID
	Wear       *string
	IsStatTrak bool
	Quantity   int
	Note       *string
	Price      *float64
}

// Opt is a field of a partial update; Set reports presence.
type Opt[T any] struct {
	Set   bool
	Value T
}

// Some returns a present Opt.
func Some[T any](v T) Opt[T] { return Opt[T]{Set: true, Value: v} }

// EntryPatch is a partial update. Pointer values of nil clear the field.
type EntryPatch struct {
	Wear       Opt[*string]
	IsStatTrak Opt[bool]
	Quantity   Opt[int]
	Note       Opt[*string]
	Price      Opt[*float64]
}

// Apply copies present fields onto e.
func (p EntryPatch) Apply(e *OwnedEntry) {
	if p.Wear.Set {
		e.Wear = p.Wear.Value
	}
	if p.IsStatTrak.Set {
		e.IsStatTrak = p.IsStatTrak.Value
	}
	if p.Quantity.Set {
		e.Quantity = p.Quantity.Value
	}
	if p.Note.Set {
		e.Note = p.Note.Value
	}
	if p.Price.Set {
		e.Price = p.Price.Value
	}
}

// ImportItem is one row of a catalog source list.
type ImportItem struct {
	Weapon     string
	SkinName   string
	Rarity     string
	Collection *string
	ImageURL   *string
}

// ImportStats reports the outcome of a catalog reconciliation.
type ImportStats struct {
	Inserted  int
	Updated   int
	Unchanged int
	Deleted   int
	Blocked   int // absent from source but still referenced by owned entries
}
