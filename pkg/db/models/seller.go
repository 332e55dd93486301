package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/soundbay/soundbay-backend/pkg/enums"
)

// Seller represents a merchant account selling tracks on the marketplace.
// Processor linkage fields (MerchantID, TrackingID) are populated by the
// onboarding flow and by webhook reconciliation.
type Seller struct {
	ID                    uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID                uuid.UUID          `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_sellers_user"`
	DisplayName           string             `gorm:"column:display_name;not null"`
	Email                 string             `gorm:"column:email;not null"`
	Status                enums.SellerStatus `gorm:"column:status;type:seller_status;not null;default:'pending'"`
	MerchantID            *string            `gorm:"column:merchant_id;uniqueIndex:ux_sellers_merchant"`
	TrackingID            *string            `gorm:"column:tracking_id;index:ix_sellers_tracking"`
	PaymentsReceivable    bool               `gorm:"column:payments_receivable;not null;default:false"`
	PrimaryEmailConfirmed bool               `gorm:"column:primary_email_confirmed;not null;default:false"`
	CommissionRate        decimal.Decimal    `gorm:"column:commission_rate;type:numeric(6,5);not null"`
	OnboardedAt           *time.Time         `gorm:"column:onboarded_at"`
	RevokedAt             *time.Time         `gorm:"column:revoked_at"`
	CreatedAt             time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// Eligible reports whether the seller can receive split payouts right now.
func (s Seller) Eligible() bool {
	return s.Status == enums.SellerStatusActive &&
		s.MerchantID != nil && *s.MerchantID != "" &&
		s.PaymentsReceivable
}
