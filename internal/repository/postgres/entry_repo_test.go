package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/and161185/counter-orion/internal/errs"
	"github.com/and161185/counter-orion/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var entryCols = []string{
	"id", "user_id", "skin_id", "wear", "is_stattrak", "quantity", "note", "price",
	"created_at", "updated_at", "weapon", "skin_name", "rarity",
}

func f64Ptr(f float64) *float64 { return &f }

func TestEntryRepo_ListByOwner(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)

	uid := uuid.Must(uuid.NewV4())
	skin := uuid.Must(uuid.NewV4())
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	id1, id2 := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`FROM owned_skins e JOIN skins_catalog c ON c.id = e.skin_id WHERE e.user_id=\$1 ORDER BY e.created_at DESC, e.id DESC`).
		WithArgs(uid).
		WillReturnRows(pgxmock.NewRows(entryCols).
			AddRow(id2, uid, skin, strPtr("Factory New"), true, 2, (*string)(nil), f64Ptr(12.5), newer, newer, "AK-47", "Asiimov", "Covert").
			AddRow(id1, uid, skin, (*string)(nil), false, 1, strPtr("gift"), (*float64)(nil), older, older, "AK-47", "Asiimov", "Covert"))

	got, err := r.ListByOwner(context.Background(), uid)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, id2, got[0].ID)
	require.Equal(t, "Factory New", *got[0].Wear)
	require.Equal(t, 12.5, *got[0].Price)
	require.Nil(t, got[1].Price)
	require.Equal(t, "gift", *got[1].Note)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepo_ListByOwner_Empty(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)
	uid := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`FROM owned_skins e`).WithArgs(uid).WillReturnRows(pgxmock.NewRows(entryCols))

	got, err := r.ListByOwner(context.Background(), uid)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

const createRe = `WITH ins AS \( INSERT INTO owned_skins`

func newEntry() *model.OwnedEntry {
	return &model.OwnedEntry{
		ID:       uuid.Must(uuid.NewV4()),
		UserID:   uuid.Must(uuid.NewV4()),
		SkinID:   uuid.Must(uuid.NewV4()),
		Quantity: 1,
	}
}

func TestEntryRepo_Create_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)
	e := newEntry()
	ts := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(createRe).
		WithArgs(e.ID, e.UserID, e.SkinID, (*string)(nil), false, 1, (*string)(nil), (*float64)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at", "weapon", "skin_name", "rarity"}).
			AddRow(ts, ts, "AWP", "Dragon Lore", "Covert"))

	require.NoError(t, r.Create(context.Background(), e))
	require.Equal(t, ts, e.CreatedAt)
	require.Equal(t, "Dragon Lore", e.SkinName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepo_Create_UnknownSkin(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)
	e := newEntry()

	mock.ExpectQuery(createRe).
		WithArgs(e.ID, e.UserID, e.SkinID, (*string)(nil), false, 1, (*string)(nil), (*float64)(nil)).
		WillReturnError(pgx.ErrNoRows)
	require.ErrorIs(t, r.Create(context.Background(), e), errs.ErrNotFound)

	mock.ExpectQuery(createRe).
		WithArgs(e.ID, e.UserID, e.SkinID, (*string)(nil), false, 1, (*string)(nil), (*float64)(nil)).
		WillReturnError(&pgconn.PgError{Code: "23503"})
	require.ErrorIs(t, r.Create(context.Background(), e), errs.ErrNotFound)

	mock.ExpectQuery(createRe).
		WithArgs(e.ID, e.UserID, e.SkinID, (*string)(nil), false, 1, (*string)(nil), (*float64)(nil)).
		WillReturnError(errors.New("boom"))
	err := r.Create(context.Background(), e)
	require.Error(t, err)
	require.NotErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

const lockRe = `WHERE e.id=\$1 AND e.user_id=\$2 FOR UPDATE OF e`
const updRe = `UPDATE owned_skins SET wear=\$3, is_stattrak=\$4, quantity=\$5, note=\$6, price=\$7, updated_at=now\(\)`

func TestEntryRepo_Update_AppliesOnlyPresentFields(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)

	uid, id, skin := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(lockRe).
		WithArgs(id, uid).
		WillReturnRows(pgxmock.NewRows(entryCols).
			AddRow(id, uid, skin, strPtr("Field-Tested"), false, 1, strPtr("old"), f64Ptr(3), created, created, "AK-47", "Redline", "Classified"))
	mock.ExpectQuery(updRe).
		WithArgs(id, uid, strPtr("Field-Tested"), false, 3, (*string)(nil), f64Ptr(3)).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(updated))
	mock.ExpectCommit()

	patch := model.EntryPatch{
		Quantity: model.Some(3),
		Note:     model.Some[*string](nil),
	}
	got, err := r.Update(context.Background(), uid, id, patch)
	require.NoError(t, err)
	require.Equal(t, 3, got.Quantity)
	require.Nil(t, got.Note)
	require.Equal(t, "Field-Tested", *got.Wear)
	require.Equal(t, 3.0, *got.Price)
	require.Equal(t, updated, got.UpdatedAt)
	require.Equal(t, created, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepo_Update_NotOwned(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)
	uid, id := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery(lockRe).WithArgs(id, uid).WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := r.Update(context.Background(), uid, id, model.EntryPatch{Quantity: model.Some(2)})
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepo_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)
	uid, id := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	mock.ExpectExec(`DELETE FROM owned_skins WHERE id=\$1 AND user_id=\$2`).
		WithArgs(id, uid).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.Delete(context.Background(), uid, id))

	mock.ExpectExec(`DELETE FROM owned_skins WHERE id=\$1 AND user_id=\$2`).
		WithArgs(id, uid).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, r.Delete(context.Background(), uid, id), errs.ErrNotFound)

	mock.ExpectExec(`DELETE FROM owned_skins`).
		WithArgs(id, uid).
		WillReturnError(errors.New("boom"))
	require.Error(t, r.Delete(context.Background(), uid, id))
	require.NoError(t, mock.ExpectationsWereMet())
}
