package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/soundbay/soundbay-backend/pkg/enums"
)

// Order is the internal record of a checkout submitted to the payment
// processor. ExternalOrderID is the processor-side order id; status moves
// created -> completed exactly once, at capture time.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID         uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index:ix_orders_buyer"`
	ExternalOrderID string            `gorm:"column:external_order_id;not null;uniqueIndex:ux_orders_external"`
	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'created'"`
	PaymentMode     enums.PaymentMode `gorm:"column:payment_mode;type:payment_mode;not null"`
	Currency        enums.Currency    `gorm:"column:currency;type:text;not null;default:'USD'"`
	TotalCents      int               `gorm:"column:total_cents;not null"`
	FeeTotalCents   int               `gorm:"column:fee_total_cents;not null;default:0"`
	CaptureID       *string           `gorm:"column:capture_id"`
	DeclineReason   *string           `gorm:"column:decline_reason"`
	CompletedAt     *time.Time        `gorm:"column:completed_at"`
	Lines           []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
