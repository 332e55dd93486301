package ownership

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/soundbay/soundbay-backend/pkg/db/models"
)

// Repository tracks which buyer owns which track.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GrantAll(ctx context.Context, grants []models.OwnershipGrant) error
	Owns(ctx context.Context, buyerID, trackID uuid.UUID) (bool, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.OwnershipGrant, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an ownership repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// GrantAll inserts grants, skipping (buyer, track) pairs that already exist
// so replayed fulfillment stays idempotent.
func (r *repository) GrantAll(ctx context.Context, grants []models.OwnershipGrant) error {
	if len(grants) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&grants).Error
}

func (r *repository) Owns(ctx context.Context, buyerID, trackID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OwnershipGrant{}).
		Where("buyer_id = ? AND track_id = ?", buyerID, trackID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.OwnershipGrant, error) {
	var rows []models.OwnershipGrant
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
