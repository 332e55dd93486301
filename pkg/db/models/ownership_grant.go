package models

import (
	"time"

	"github.com/google/uuid"
)

// OwnershipGrant records that a buyer owns a track. Grants are idempotent per
// (buyer, track); re-granting on a repeated capture event is a no-op.
type OwnershipGrant struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID   uuid.UUID `gorm:"column:buyer_id;type:uuid;not null;uniqueIndex:ux_grants_buyer_track"`
	TrackID   uuid.UUID `gorm:"column:track_id;type:uuid;not null;uniqueIndex:ux_grants_buyer_track"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;index:ix_grants_order"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
