package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundbay/soundbay-backend/pkg/db/models"
)

// Repository is the track catalog persistence surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, track *models.Track) (*models.Track, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Track, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Track, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Track, error)
	ListActive(ctx context.Context, limit int) ([]models.Track, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, track *models.Track) (*models.Track, error) {
	if err := r.db.WithContext(ctx).Create(track).Error; err != nil {
		return nil, err
	}
	return track, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Track, error) {
	var track models.Track
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&track).Error
	if err != nil {
		return nil, err
	}
	return &track, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Track, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Track
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Track, error) {
	var rows []models.Track
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListActive(ctx context.Context, limit int) ([]models.Track, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Track
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
