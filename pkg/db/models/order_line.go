package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLine snapshots one purchased track at order-creation time, including
// the commission split and the seller's merchant id as routed. Fulfillment
// reads these rows, never the (mutable) cart.
type OrderLine struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID `gorm:"column:order_id;type:uuid;not null;index:ix_order_lines_order"`
	TrackID          uuid.UUID `gorm:"column:track_id;type:uuid;not null"`
	SellerID         *uuid.UUID `gorm:"column:seller_id;type:uuid;index:ix_order_lines_seller"`
	SellerMerchantID *string    `gorm:"column:seller_merchant_id"`
	UnitPriceCents   int       `gorm:"column:unit_price_cents;not null"`
	FeeCents         int       `gorm:"column:fee_cents;not null"`
	NetCents         int       `gorm:"column:net_cents;not null"`
	TitleSnapshot    string    `gorm:"column:title_snapshot;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}
