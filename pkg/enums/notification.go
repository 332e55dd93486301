package enums

import "fmt"

// NotificationKind labels buyer/seller notification rows.
type NotificationKind string

const (
	NotificationPurchaseConfirmation NotificationKind = "purchase_confirmation"
	NotificationSellerActivated      NotificationKind = "seller_activated"
	NotificationSellerRevoked        NotificationKind = "seller_revoked"
)

var validNotificationKinds = []NotificationKind{
	NotificationPurchaseConfirmation,
	NotificationSellerActivated,
	NotificationSellerRevoked,
}

// IsValid reports whether the value is a known NotificationKind.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw input into a NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
