package models

import (
	"time"

	"github.com/google/uuid"
)

// CartLine persists a track a buyer intends to purchase. Digital goods carry
// no quantity; a track appears at most once per buyer cart. A nil SellerID
// means the line is platform-owned content.
type CartLine struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID        uuid.UUID  `gorm:"column:buyer_id;type:uuid;not null;uniqueIndex:ux_cart_buyer_track"`
	TrackID        uuid.UUID  `gorm:"column:track_id;type:uuid;not null;uniqueIndex:ux_cart_buyer_track"`
	SellerID       *uuid.UUID `gorm:"column:seller_id;type:uuid"`
	UnitPriceCents int        `gorm:"column:unit_price_cents;not null"`
	TitleSnapshot  string     `gorm:"column:title_snapshot;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
