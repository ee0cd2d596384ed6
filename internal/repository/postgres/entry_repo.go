package postgres

import (
	"context"
	"errors"

	"github.com/and161185/counter-orion/internal/errs"
	"github.com/and161185/counter-orion/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// EntryRepo implements EntryRepository using PostgreSQL.
type EntryRepo struct{ db *DB }

// NewEntryRepo constructs an owned-entry repository.
func NewEntryRepo(db *DB) *EntryRepo { return &EntryRepo{db: db} }

// entrySelect joins the catalog for display fields. Callers append the WHERE clause.
const entrySelect = `
SELECT e.id, e.user_id, e.skin_id, e.wear, e.is_stattrak, e.quantity, e.note, e.price::float8,
       e.created_at, e.updated_at, c.weapon, c.skin_name, c.rarity
FROM owned_skins e
JOIN skins_catalog c ON c.id = e.skin_id`

func scanEntry(row scanner) (*model.OwnedEntry, error) {
	var e model.OwnedEntry
	err := row.Scan(&e.ID, &e.UserID, &e.SkinID, &e.Wear, &e.IsStatTrak, &e.Quantity, &e.Note, &e.Price,
		&e.CreatedAt, &e.UpdatedAt, &e.Weapon, &e.SkinName, &e.Rarity)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByOwner returns the owner's entries, newest first.
func (r *EntryRepo) ListByOwner(ctx context.Context, userID uuid.UUID) ([]model.OwnedEntry, error) {
	const q = entrySelect + ` WHERE e.user_id=$1 ORDER BY e.created_at DESC, e.id DESC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.OwnedEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Create inserts e when its SkinID names an existing catalog row and fills
// the timestamps and display fields. A missing catalog row yields errs.ErrNotFound.
func (r *EntryRepo) Create(ctx context.Context, e *model.OwnedEntry) error {
	const q = `
WITH ins AS (
  INSERT INTO owned_skins (id, user_id, skin_id, wear, is_stattrak, quantity, note, price)
  SELECT $1::uuid, $2::uuid, c.id, $4::text, $5::boolean, $6::integer, $7::text, $8::numeric
  FROM skins_catalog c WHERE c.id = $3::uuid
  RETURNING skin_id, created_at, updated_at
)
SELECT ins.created_at, ins.updated_at, c.weapon, c.skin_name, c.rarity
FROM ins JOIN skins_catalog c ON c.id = ins.skin_id`

	err := r.db.Pool.QueryRow(ctx, q,
		e.ID, e.UserID, e.SkinID, e.Wear, e.IsStatTrak, e.Quantity, e.Note, e.Price,
	).Scan(&e.CreatedAt, &e.UpdatedAt, &e.Weapon, &e.SkinName, &e.Rarity)
	switch {
	case errors.Is(err, pgx.ErrNoRows), isForeignKeyViolation(err):
		return errs.ErrNotFound
	case isUniqueViolation(err):
		return errs.ErrAlreadyExists
	}
	return err
}

// Update locks the owner's entry, applies the present fields and stores the result.
func (r *EntryRepo) Update(ctx context.Context, userID, id uuid.UUID, patch model.EntryPatch) (*model.OwnedEntry, error) {
	const sel = entrySelect + ` WHERE e.id=$1 AND e.user_id=$2 FOR UPDATE OF e`
	const upd = `
UPDATE owned_skins
SET wear=$3, is_stattrak=$4, quantity=$5, note=$6, price=$7, updated_at=now()
WHERE id=$1 AND user_id=$2
RETURNING updated_at`

	var out *model.OwnedEntry
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		e, err := scanEntry(tx.QueryRow(ctx, sel, id, userID))
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		if err != nil {
			return err
		}
		patch.Apply(e)
		if err := tx.QueryRow(ctx, upd, id, userID, e.Wear, e.IsStatTrak, e.Quantity, e.Note, e.Price).
			Scan(&e.UpdatedAt); err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the owner's entry; entries of other users are reported as not found.
func (r *EntryRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM owned_skins WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
