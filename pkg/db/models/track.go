package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/soundbay/soundbay-backend/pkg/enums"
)

// Track is a purchasable digital audio item. A nil SellerID marks
// platform-owned catalog content.
type Track struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID   *uuid.UUID     `gorm:"column:seller_id;type:uuid;index:ix_tracks_seller"`
	Title      string         `gorm:"column:title;not null"`
	Artist     string         `gorm:"column:artist;not null"`
	PriceCents int            `gorm:"column:price_cents;not null"`
	Currency   enums.Currency `gorm:"column:currency;type:text;not null;default:'USD'"`
	Active     bool           `gorm:"column:active;not null;default:true"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
