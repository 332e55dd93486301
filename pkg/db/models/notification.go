package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/soundbay/soundbay-backend/pkg/enums"
)

// Notification is an in-app message delivered to a buyer or seller.
type Notification struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientID uuid.UUID              `gorm:"column:recipient_id;type:uuid;not null;index:ix_notifications_recipient"`
	Kind        enums.NotificationKind `gorm:"column:kind;type:notification_kind;not null"`
	Payload     json.RawMessage        `gorm:"column:payload;type:jsonb;not null"`
	ReadAt      *time.Time             `gorm:"column:read_at"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}
