// Package convert maps domain types to and from the JSON bodies of the HTTP API.
package convert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/and161185/counter-orion/internal/errs"
	"github.com/and161185/counter-orion/internal/model"
	u "github.com/gofrs/uuid/v5"
)

// TokenType is echoed in token responses.
const TokenType = "Bearer"

// --- auth ---

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// ToRegisterResponse echoes the stored identity.
func ToRegisterResponse(usr model.User) RegisterResponse {
	return RegisterResponse{ID: usr.ID.String(), Email: usr.Email, Username: usr.Username}
}

// ToTokenResponse omits the refresh token when none was issued.
func ToTokenResponse(t model.Tokens) TokenResponse {
	return TokenResponse{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken, TokenType: TokenType}
}

// ToUserProfile never exposes password material.
func ToUserProfile(usr model.User) UserProfile {
	return UserProfile{ID: usr.ID.String(), Email: usr.Email, Username: usr.Username, CreatedAt: usr.CreatedAt}
}

// --- catalog ---

type CatalogItem struct {
	ID         string    `json:"id"`
	Game       string    `json:"game"`
	Weapon     string    `json:"weapon"`
	SkinName   string    `json:"skin_name"`
	Rarity     string    `json:"rarity"`
	Collection *string   `json:"collection"`
	ImageURL   *string   `json:"image_url"`
	CreatedAt  time.Time `json:"created_at"`
}

type CatalogPage struct {
	Items    []CatalogItem `json:"items"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Total    int           `json:"total"`
	HasNext  bool          `json:"has_next"`
}

type CatalogItems struct {
	Items []CatalogItem `json:"items"`
}

func ToCatalogItem(it model.CatalogItem) CatalogItem {
	return CatalogItem{
		ID:         it.ID.String(),
		Game:       it.Game,
		Weapon:     it.Weapon,
		SkinName:   it.SkinName,
		Rarity:     it.Rarity,
		Collection: it.Collection,
		ImageURL:   it.ImageURL,
		CreatedAt:  it.CreatedAt,
	}
}

// ToCatalogItems always returns a non-nil slice so empty results encode as [].
func ToCatalogItems(in []model.CatalogItem) []CatalogItem {
	out := make([]CatalogItem, 0, len(in))
	for _, it := range in {
		out = append(out, ToCatalogItem(it))
	}
	return out
}

func ToCatalogPage(p model.CatalogPage) CatalogPage {
	return CatalogPage{
		Items:    ToCatalogItems(p.Items),
		Page:     p.Page,
		PageSize: p.PageSize,
		Total:    p.Total,
		HasNext:  p.HasNext,
	}
}

// --- owned entries ---

type Entry struct {
	ID         string    `json:"id"`
	SkinID     string    `json:"skin_id"`
	Weapon     string    `json:"weapon"`
	SkinName   string    `json:"skin_name"`
	Rarity     string    `json:"rarity"`
	Wear       *string   `json:"wear"`
	IsStatTrak bool      `json:"is_stattrak"`
	Quantity   int       `json:"quantity"`
	Note       *string   `json:"note"`
	Price      *float64  `json:"price"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type EntryList struct {
	Items []Entry `json:"items"`
	Total int     `json:"total"`
}

type DeleteResponse struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

func ToEntry(e model.OwnedEntry) Entry {
	return Entry{
		ID:         e.ID.String(),
		SkinID:     e.SkinID.String(),
		Weapon:     e.Weapon,
		SkinName:   e.SkinName,
		Rarity:     e.Rarity,
		Wear:       e.Wear,
		IsStatTrak: e.IsStatTrak,
		Quantity:   e.Quantity,
		Note:       e.Note,
		Price:      e.Price,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

func ToEntryList(in []model.OwnedEntry) EntryList {
	out := EntryList{Items: make([]Entry, 0, len(in)), Total: len(in)}
	for _, e := range in {
		out.Items = append(out.Items, ToEntry(e))
	}
	return out
}

// AddEntryRequest is the body of an add call. Quantity defaults to 1.
type AddEntryRequest struct {
	SkinID     string   `json:"skin_id"`
	Wear       *string  `json:"wear"`
	IsStatTrak bool     `json:"is_stattrak"`
	Quantity   *int     `json:"quantity"`
	Note       *string  `json:"note"`
	Price      *float64 `json:"price"`
}

// FromAddEntryRequest parses the catalog reference and applies the quantity default.
func FromAddEntryRequest(in AddEntryRequest) (model.NewEntry, error) {
	raw := strings.TrimSpace(in.SkinID)
	if raw == "" {
		return model.NewEntry{}, fmt.Errorf("%w: skin_id is required", errs.ErrValidation)
	}
	id, err := u.FromString(raw)
	if err != nil {
		return model.NewEntry{}, fmt.Errorf("%w: skin_id must be a valid uuid", errs.ErrValidation)
	}
	qty := 1
	if in.Quantity != nil {
		qty = *in.Quantity
	}
	return model.NewEntry{
		SkinID:     id,
		Wear:       in.Wear,
		IsStatTrak: in.IsStatTrak,
		Quantity:   qty,
		Note:       in.Note,
		Price:      in.Price,
	}, nil
}

var jsonNull = []byte("null")

func isNull(raw json.RawMessage) bool { return bytes.Equal(bytes.TrimSpace(raw), jsonNull) }

// DecodeEntryPatch reads a partial update. Keys that are absent stay unset;
// null clears wear, note and price and is rejected for quantity and is_stattrak.
// Unknown keys are ignored.
func DecodeEntryPatch(body []byte) (model.EntryPatch, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return model.EntryPatch{}, fmt.Errorf("%w: invalid request body", errs.ErrValidation)
	}

	var p model.EntryPatch
	var err error
	if raw, ok := fields["wear"]; ok {
		if p.Wear, err = optional[string](raw, "wear"); err != nil {
			return model.EntryPatch{}, err
		}
	}
	if raw, ok := fields["note"]; ok {
		if p.Note, err = optional[string](raw, "note"); err != nil {
			return model.EntryPatch{}, err
		}
	}
	if raw, ok := fields["price"]; ok {
		if p.Price, err = optional[float64](raw, "price"); err != nil {
			return model.EntryPatch{}, err
		}
	}
	if raw, ok := fields["quantity"]; ok {
		if p.Quantity, err = required[int](raw, "quantity"); err != nil {
			return model.EntryPatch{}, err
		}
	}
	if raw, ok := fields["is_stattrak"]; ok {
		if p.IsStatTrak, err = required[bool](raw, "is_stattrak"); err != nil {
			return model.EntryPatch{}, err
		}
	}
	return p, nil
}

func optional[T any](raw json.RawMessage, name string) (model.Opt[*T], error) {
	if isNull(raw) {
		return model.Some[*T](nil), nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return model.Opt[*T]{}, fmt.Errorf("%w: %s has an invalid value", errs.ErrValidation, name)
	}
	return model.Some(&v), nil
}

func required[T any](raw json.RawMessage, name string) (model.Opt[T], error) {
	var v T
	if isNull(raw) {
		return model.Opt[T]{}, fmt.Errorf("%w: %s cannot be null", errs.ErrValidation, name)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return model.Opt[T]{}, fmt.Errorf("%w: %s has an invalid value", errs.ErrValidation, name)
	}
	return model.Some(v), nil
}
