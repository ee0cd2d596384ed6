package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/and161185/counter-orion/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// CatalogRepo implements CatalogRepository using PostgreSQL.
type CatalogRepo struct{ db *DB }

// NewCatalogRepo constructs a catalog repository.
func NewCatalogRepo(db *DB) *CatalogRepo { return &CatalogRepo{db: db} }

const catalogColumns = `id, game, weapon, skin_name, rarity, collection, image_url, created_at`

// catalogOrder keeps pagination deterministic.
const catalogOrder = ` ORDER BY weapon ASC, skin_name ASC, id ASC`

// likePattern turns a user query into a substring ILIKE pattern.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// catalogWhere builds the WHERE clause for f; placeholders start at $1.
func catalogWhere(f model.CatalogFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Weapon != "" {
		args = append(args, f.Weapon)
		conds = append(conds, fmt.Sprintf("weapon = $%d", len(args)))
	}
	if f.Rarity != "" {
		args = append(args, f.Rarity)
		conds = append(conds, fmt.Sprintf("rarity = $%d", len(args)))
	}
	if f.Query != "" {
		args = append(args, likePattern(f.Query))
		n := len(args)
		conds = append(conds, fmt.Sprintf("(skin_name ILIKE $%d OR weapon ILIKE $%d)", n, n))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns one page of rows matching f together with the total match count.
func (r *CatalogRepo) List(ctx context.Context, f model.CatalogFilter, limit, offset int) ([]model.CatalogItem, int, error) {
	where, args := catalogWhere(f)

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM skins_catalog`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []model.CatalogItem{}, 0, nil
	}

	n := len(args)
	q := `SELECT ` + catalogColumns + ` FROM skins_catalog` + where + catalogOrder +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2)
	items, err := r.query(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Search returns up to limit rows whose name or weapon contains query.
func (r *CatalogRepo) Search(ctx context.Context, query string, limit int) ([]model.CatalogItem, error) {
	where, args := catalogWhere(model.CatalogFilter{Query: query})
	q := `SELECT ` + catalogColumns + ` FROM skins_catalog` + where + catalogOrder +
		fmt.Sprintf(" LIMIT $%d", len(args)+1)
	return r.query(ctx, q, append(args, limit)...)
}

func (r *CatalogRepo) query(ctx context.Context, q string, args ...any) ([]model.CatalogItem, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CatalogItem{}
	for rows.Next() {
		var it model.CatalogItem
		if err := rows.Scan(&it.ID, &it.Game, &it.Weapon, &it.SkinName, &it.Rarity,
			&it.Collection, &it.ImageURL, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Reconcile upserts items for game and, with prune, deletes rows of that game
// missing from items. Rows still referenced by owned entries are never deleted.
func (r *CatalogRepo) Reconcile(
	ctx context.Context, game string, items []model.ImportItem, prune bool,
) (stats model.ImportStats, err error) {
	const upsert = `
INSERT INTO skins_catalog (id, game, weapon, skin_name, rarity, collection, image_url)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (game, weapon, skin_name) DO UPDATE
SET rarity = EXCLUDED.rarity, collection = EXCLUDED.collection, image_url = EXCLUDED.image_url
WHERE (skins_catalog.rarity, skins_catalog.collection, skins_catalog.image_url)
  IS DISTINCT FROM (EXCLUDED.rarity, EXCLUDED.collection, EXCLUDED.image_url)
RETURNING (xmax = 0) AS inserted`
	const existing = `SELECT id, weapon, skin_name FROM skins_catalog WHERE game=$1`
	const del = `
DELETE FROM skins_catalog c
WHERE c.id=$1 AND NOT EXISTS (SELECT 1 FROM owned_skins o WHERE o.skin_id = c.id)`

	err = r.db.inTx(ctx, func(tx pgx.Tx) error {
		keep := make(map[[2]string]struct{}, len(items))
		for i, it := range items {
			keep[[2]string{it.Weapon, it.SkinName}] = struct{}{}

			id, err := uuid.NewV4()
			if err != nil {
				return err
			}
			var inserted bool
			err = tx.QueryRow(ctx, upsert, id, game, it.Weapon, it.SkinName, it.Rarity, it.Collection, it.ImageURL).
				Scan(&inserted)
			switch {
			case errors.Is(err, pgx.ErrNoRows):
				stats.Unchanged++
			case err != nil:
				return fmt.Errorf("item[%d]: %w", i, err)
			case inserted:
				stats.Inserted++
			default:
				stats.Updated++
			}
		}
		if !prune {
			return nil
		}

		rows, err := tx.Query(ctx, existing, game)
		if err != nil {
			return err
		}
		var stale []uuid.UUID
		for rows.Next() {
			var (
				id             uuid.UUID
				weapon, skinNm string
			)
			if err := rows.Scan(&id, &weapon, &skinNm); err != nil {
				rows.Close()
				return err
			}
			if _, ok := keep[[2]string{weapon, skinNm}]; !ok {
				stale = append(stale, id)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, id := range stale {
			tag, err := tx.Exec(ctx, del, id)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				stats.Blocked++
				continue
			}
			stats.Deleted++
		}
		return nil
	})
	if err != nil {
		return model.ImportStats{}, err
	}
	return stats, nil
}
