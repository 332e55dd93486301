package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/soundbay/soundbay-backend/internal/catalog"
	"github.com/soundbay/soundbay-backend/internal/ownership"
	"github.com/soundbay/soundbay-backend/pkg/db/models"
	"github.com/soundbay/soundbay-backend/pkg/enums"
	pkgerrors "github.com/soundbay/soundbay-backend/pkg/errors"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{`
CREATE TABLE IF NOT EXISTS tracks (
  id TEXT PRIMARY KEY,
  seller_id TEXT,
  title TEXT NOT NULL,
  artist TEXT NOT NULL DEFAULT '',
  price_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS cart_lines (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  track_id TEXT NOT NULL,
  seller_id TEXT,
  unit_price_cents INTEGER NOT NULL,
  title_snapshot TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (buyer_id, track_id)
);`, `
CREATE TABLE IF NOT EXISTS ownership_grants (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  track_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (buyer_id, track_id)
);`}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newCartService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), catalog.NewRepository(db), ownership.NewRepository(db))
	require.NoError(t, err)
	return svc
}

func seedTrack(t *testing.T, db *gorm.DB, sellerID *uuid.UUID, price int, active bool) models.Track {
	t.Helper()
	track := models.Track{
		ID:         uuid.New(),
		SellerID:   sellerID,
		Title:      "Test Track",
		Artist:     "Test Artist",
		PriceCents: price,
		Currency:   enums.CurrencyUSD,
		Active:     active,
	}
	require.NoError(t, db.Create(&track).Error)
	return track
}

func TestAddTrackSnapshotsPriceAndSeller(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)

	sellerID := uuid.New()
	track := seedTrack(t, db, &sellerID, 1299, true)
	buyerID := uuid.New()

	line, err := svc.AddTrack(context.Background(), buyerID, track.ID)
	require.NoError(t, err)
	require.Equal(t, track.ID, line.TrackID)
	require.Equal(t, 1299, line.UnitPriceCents)
	require.Equal(t, "Test Track", line.TitleSnapshot)
	require.NotNil(t, line.SellerID)
	require.Equal(t, sellerID, *line.SellerID)

	// Later catalog price edits must not move the existing line.
	require.NoError(t, db.Model(&models.Track{}).Where("id = ?", track.ID).Update("price_cents", 9999).Error)
	summary, err := svc.List(context.Background(), buyerID)
	require.NoError(t, err)
	require.Len(t, summary.Lines, 1)
	require.Equal(t, 1299, summary.Lines[0].UnitPriceCents)
	require.Equal(t, 1299, summary.TotalCents)
}

func TestAddTrackRejectsDuplicates(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)

	track := seedTrack(t, db, nil, 500, true)
	buyerID := uuid.New()

	_, err := svc.AddTrack(context.Background(), buyerID, track.ID)
	require.NoError(t, err)

	_, err = svc.AddTrack(context.Background(), buyerID, track.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestAddTrackRejectsInactive(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)

	track := seedTrack(t, db, nil, 500, false)

	_, err := svc.AddTrack(context.Background(), uuid.New(), track.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestAddTrackRejectsAlreadyOwned(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)

	track := seedTrack(t, db, nil, 500, true)
	buyerID := uuid.New()
	require.NoError(t, db.Create(&models.OwnershipGrant{
		ID:      uuid.New(),
		BuyerID: buyerID,
		TrackID: track.ID,
		OrderID: uuid.New(),
	}).Error)

	_, err := svc.AddTrack(context.Background(), buyerID, track.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestAddTrackUnknownTrack(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)

	_, err := svc.AddTrack(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRemoveAndClear(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db)

	first := seedTrack(t, db, nil, 100, true)
	second := seedTrack(t, db, nil, 200, true)
	buyerID := uuid.New()

	_, err := svc.AddTrack(context.Background(), buyerID, first.ID)
	require.NoError(t, err)
	_, err = svc.AddTrack(context.Background(), buyerID, second.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), buyerID, first.ID))

	err = svc.Remove(context.Background(), buyerID, first.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	require.NoError(t, svc.Clear(context.Background(), buyerID))
	summary, err := svc.List(context.Background(), buyerID)
	require.NoError(t, err)
	require.Empty(t, summary.Lines)
	require.Zero(t, summary.TotalCents)
}
