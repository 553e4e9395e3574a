package receipts

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"tripvault/internal/common"
	"tripvault/internal/cryptox"
	"tripvault/internal/logging"
	"tripvault/internal/models"
	"tripvault/internal/schema"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`PRAGMA foreign_keys = ON`)
	require.NoError(t, err)
	_, err = schema.Ensure(context.Background(), db, logging.NewNop())
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO owners (id, created_at, updated_at) VALUES ('u1', 't', 't')`)
	require.NoError(t, err)
	for _, e := range []string{"e1", "e2"} {
		_, err = db.Exec(`
			INSERT INTO entry_infos (id, owner_id, created_at, updated_at)
			VALUES (?, 'u1', 't', 't')
		`, e)
		require.NoError(t, err)
	}
	return db
}

func strptr(s string) *string { return &s }

func TestSave_RoundTrip(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, cryptox.NoopCipher{})
	ctx := context.Background()

	saved, err := r.Save(ctx, &models.ArrivalCardReceipt{
		OwnerID:            "u1",
		EntryInfoID:        "e1",
		CardType:           "TDAC",
		Destination:        strptr(" Thailand "),
		ConfirmationNumber: strptr("TH-2031-XYZ"),
		SubmissionMethod:   strptr("api"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, models.ReceiptStatusPending, saved.Status)
	assert.Equal(t, "Thailand", *saved.Destination)
	assert.Equal(t, "TH-2031-XYZ", *saved.ConfirmationNumber)
	assert.False(t, saved.IsSuperseded)

	got, err := r.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved, got)
}

func TestSave_MissingRequiredFields(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, cryptox.NoopCipher{})

	_, err := r.Save(context.Background(), &models.ArrivalCardReceipt{OwnerID: "u1"})
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestSave_NewSuccessSupersedesPrior(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, cryptox.NoopCipher{})
	ctx := context.Background()

	r1, err := r.Save(ctx, &models.ArrivalCardReceipt{
		OwnerID:            "u1",
		EntryInfoID:        "e1",
		CardType:           "TDAC",
		Status:             models.ReceiptStatusSuccess,
		ConfirmationNumber: strptr("OLD-001"),
	})
	require.NoError(t, err)

	active, err := r.Active(ctx, "e1", "TDAC")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, r1.ID, active.ID)

	r2, err := r.Save(ctx, &models.ArrivalCardReceipt{
		OwnerID:            "u1",
		EntryInfoID:        "e1",
		CardType:           "TDAC",
		Status:             models.ReceiptStatusSuccess,
		ConfirmationNumber: strptr("NEW-002"),
	})
	require.NoError(t, err)

	active, err = r.Active(ctx, "e1", "TDAC")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, r2.ID, active.ID)

	old, err := r.GetByID(ctx, r1.ID)
	require.NoError(t, err)
	assert.True(t, old.IsSuperseded)
	require.NotNil(t, old.SupersededBy)
	assert.Equal(t, r2.ID, *old.SupersededBy)
	require.NotNil(t, old.SupersededReason)
	assert.Equal(t, models.SupersededReasonNewer, *old.SupersededReason)
	assert.NotNil(t, old.SupersededAt)
}

func TestSave_SuccessSupersedesPending(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, cryptox.NoopCipher{})
	ctx := context.Background()

	pending, err := r.Save(ctx, &models.ArrivalCardReceipt{
		OwnerID: "u1", EntryInfoID: "e1", CardType: "TDAC",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptStatusPending, pending.Status)

	success, err := r.Save(ctx, &models.ArrivalCardReceipt{
		OwnerID: "u1", EntryInfoID: "e1", CardType: "TDAC",
		Status: models.ReceiptStatusSuccess,
	})
	require.NoError(t, err)

	got, err := r.GetByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSuperseded)
	assert.Equal(t, success.ID, *got.SupersededBy)
}

func TestSave_FailedRowsAreNeverSuperseded(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, cryptox.NoopCipher{})
	ctx := context.Background()

	failed, err := r.Save(ctx, &models.ArrivalCardReceipt{
		OwnerID: "u1", EntryInfoID: "e1", CardType: "TDAC",
		Status: models.ReceiptStatusFailed,
	})
	require.NoError(t, err)

	_, err = r.Save(ctx, &models.ArrivalCardReceipt{
		OwnerID: "u1", EntryInfoID: "e1", CardType: "TDAC",
		Status: models.ReceiptStatusSuccess,
	})
	require.NoError(t, err)

	got, err := r.GetByID(ctx, failed.ID)
	require.NoError(t, err)
	assert.False(t, got.IsSuperseded)
	assert.Nil(t, got.SupersededBy)
}

func TestSave_DistinctCardTypesCoexist(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, cryptox.NoopCipher{})
	ctx := context.Background()

	tdac, err := r.Save(ctx, &models.ArrivalCardReceipt{
		OwnerID: "u1", EntryInfoID: "e1", CardType: "TDAC",
		Status: models.ReceiptStatusSuccess,
	})
	require.NoError(t, err)

	mdac, err := r.Save(ctx, &models.ArrivalCardReceipt{
		OwnerID: "u1", EntryInfoID: "e1", CardType: "MDAC",
		Status: models.ReceiptStatusSuccess,
	})
	require.NoError(t, err)

	gotTdac, err := r.GetByID(ctx, tdac.ID)
	require.NoError(t, err)
	assert.False(t, gotTdac.IsSuperseded)

	activeMdac, err := r.Active(ctx, "e1", "MDAC")
	require.NoError(t, err)
	require.NotNil(t, activeMdac)
	assert.Equal(t, mdac.ID, activeMdac.ID)
}

func TestActive_NoneWhenOnlyPendingOrFailed(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, cryptox.NoopCipher{})
	ctx := context.Background()

	_, err := r.Save(ctx, &models.ArrivalCardReceipt{
		OwnerID: "u1", EntryInfoID: "e1", CardType: "TDAC",
	})
	require.NoError(t, err)
	_, err = r.Save(ctx, &models.ArrivalCardReceipt{
		OwnerID: "u1", EntryInfoID: "e1", CardType: "TDAC",
		Status: models.ReceiptStatusFailed,
	})
	require.NoError(t, err)

	active, err := r.Active(ctx, "e1", "TDAC")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestForEntryInfo_IncludesSupersededHistory(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, cryptox.NoopCipher{})
	ctx := context.Background()

	for n := 0; n < 3; n++ {
		_, err := r.Save(ctx, &models.ArrivalCardReceipt{
			OwnerID: "u1", EntryInfoID: "e1", CardType: "TDAC",
			Status: models.ReceiptStatusSuccess,
		})
		require.NoError(t, err)
	}

	all, err := r.ForEntryInfo(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first, and only the newest is still active.
	assert.False(t, all[0].IsSuperseded)
	assert.True(t, all[1].IsSuperseded)
	assert.True(t, all[2].IsSuperseded)
}

func TestForEntryInfos_GroupsAndExcludesSuperseded(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, cryptox.NoopCipher{})
	ctx := context.Background()

	_, err := r.Save(ctx, &models.ArrivalCardReceipt{
		OwnerID: "u1", EntryInfoID: "e1", CardType: "TDAC",
		Status: models.ReceiptStatusSuccess,
	})
	require.NoError(t, err)
	e1Active, err := r.Save(ctx, &models.ArrivalCardReceipt{
		OwnerID: "u1", EntryInfoID: "e1", CardType: "TDAC",
		Status: models.ReceiptStatusSuccess,
	})
	require.NoError(t, err)
	e2Active, err := r.Save(ctx, &models.ArrivalCardReceipt{
		OwnerID: "u1", EntryInfoID: "e2", CardType: "TDAC",
		Status: models.ReceiptStatusSuccess,
	})
	require.NoError(t, err)

	grouped, err := r.ForEntryInfos(ctx, []string{"e1", "e2"})
	require.NoError(t, err)
	require.Len(t, grouped["e1"], 1)
	assert.Equal(t, e1Active.ID, grouped["e1"][0].ID)
	require.Len(t, grouped["e2"], 1)
	assert.Equal(t, e2Active.ID, grouped["e2"][0].ID)

	empty, err := r.ForEntryInfos(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSave_Update_PreservesCreatedAt(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, cryptox.NoopCipher{})
	ctx := context.Background()

	first, err := r.Save(ctx, &models.ArrivalCardReceipt{
		OwnerID: "u1", EntryInfoID: "e1", CardType: "TDAC",
	})
	require.NoError(t, err)

	first.Status = models.ReceiptStatusSuccess
	first.ConfirmationNumber = strptr("CONF-9")
	second, err := r.Save(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, models.ReceiptStatusSuccess, second.Status)

	n, err := r.CountByOwnerID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestConfirmationNumberEncryptedAtRest(t *testing.T) {
	db := setupDB(t)

	key := make([]byte, 32)
	cipher, err := cryptox.NewAESGCMCipher(key)
	require.NoError(t, err)
	r := NewSQLiteRepository(db, cipher)
	ctx := context.Background()

	saved, err := r.Save(ctx, &models.ArrivalCardReceipt{
		OwnerID: "u1", EntryInfoID: "e1", CardType: "TDAC",
		ConfirmationNumber: strptr("SECRET-42"),
	})
	require.NoError(t, err)
	assert.Equal(t, "SECRET-42", *saved.ConfirmationNumber)

	var raw string
	err = db.QueryRow(`SELECT confirmation_number FROM arrival_card_receipts WHERE id = ?`, saved.ID).Scan(&raw)
	require.NoError(t, err)
	assert.NotEqual(t, "SECRET-42", raw)
	assert.Contains(t, raw, "aesgcm.v1:")
}

func TestGetByID_NotFound(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, cryptox.NoopCipher{})

	got, err := r.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteByID(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, cryptox.NoopCipher{})
	ctx := context.Background()

	saved, err := r.Save(ctx, &models.ArrivalCardReceipt{
		OwnerID: "u1", EntryInfoID: "e1", CardType: "TDAC",
	})
	require.NoError(t, err)

	require.NoError(t, r.DeleteByID(ctx, saved.ID))

	ok, err := r.Exists(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	err = r.DeleteByID(ctx, saved.ID)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestDeleteByOwnerID(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db, cryptox.NoopCipher{})
	ctx := context.Background()

	for _, e := range []string{"e1", "e2"} {
		_, err := r.Save(ctx, &models.ArrivalCardReceipt{
			OwnerID: "u1", EntryInfoID: e, CardType: "TDAC",
		})
		require.NoError(t, err)
	}

	n, err := r.DeleteByOwnerID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := r.GetByOwnerID(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}
