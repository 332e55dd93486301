package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundbay/soundbay-backend/pkg/db/models"
)

// Repository is the buyer-cart persistence surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Add(ctx context.Context, line *models.CartLine) (*models.CartLine, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.CartLine, error)
	Remove(ctx context.Context, buyerID, trackID uuid.UUID) (int64, error)
	Clear(ctx context.Context, buyerID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Add(ctx context.Context, line *models.CartLine) (*models.CartLine, error) {
	if err := r.db.WithContext(ctx).Create(line).Error; err != nil {
		return nil, err
	}
	return line, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.CartLine, error) {
	var rows []models.CartLine
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Remove(ctx context.Context, buyerID, trackID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("buyer_id = ? AND track_id = ?", buyerID, trackID).
		Delete(&models.CartLine{})
	return result.RowsAffected, result.Error
}

func (r *repository) Clear(ctx context.Context, buyerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Delete(&models.CartLine{}).Error
}
