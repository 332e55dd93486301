package enums

import "fmt"

// SellerStatus tracks a seller's onboarding/consent lifecycle with the processor.
type SellerStatus string

const (
	// SellerStatusPending means a referral was created and completion has not arrived.
	SellerStatusPending SellerStatus = "pending"
	// SellerStatusActive means a merchant id is bound and payments are receivable.
	SellerStatusActive SellerStatus = "active"
	// SellerStatusRevoked means consent was withdrawn; re-onboarding starts a new cycle.
	SellerStatusRevoked SellerStatus = "revoked"
)

var validSellerStatuses = []SellerStatus{
	SellerStatusPending,
	SellerStatusActive,
	SellerStatusRevoked,
}

// String implements fmt.Stringer.
func (s SellerStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SellerStatus.
func (s SellerStatus) IsValid() bool {
	for _, candidate := range validSellerStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSellerStatus converts raw input into a SellerStatus.
func ParseSellerStatus(value string) (SellerStatus, error) {
	for _, candidate := range validSellerStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid seller status %q", value)
}
