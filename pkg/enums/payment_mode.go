package enums

import "fmt"

// PaymentMode describes how an order is routed through the processor.
type PaymentMode string

const (
	// PaymentModeStandard routes the full amount to the platform account.
	PaymentModeStandard PaymentMode = "standard"
	// PaymentModeSingleSellerSplit routes funds to one seller with a named platform fee.
	PaymentModeSingleSellerSplit PaymentMode = "single_seller_split"
	// PaymentModeMultiSellerSplit routes one purchase unit per seller, each with its own fee.
	PaymentModeMultiSellerSplit PaymentMode = "multi_seller_split"
)

var validPaymentModes = []PaymentMode{
	PaymentModeStandard,
	PaymentModeSingleSellerSplit,
	PaymentModeMultiSellerSplit,
}

// IsSplit reports whether the mode uses the processor's multiparty path.
func (m PaymentMode) IsSplit() bool {
	return m == PaymentModeSingleSellerSplit || m == PaymentModeMultiSellerSplit
}

// String implements fmt.Stringer.
func (m PaymentMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known PaymentMode.
func (m PaymentMode) IsValid() bool {
	for _, candidate := range validPaymentModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePaymentMode converts raw input into a PaymentMode.
func ParsePaymentMode(value string) (PaymentMode, error) {
	for _, candidate := range validPaymentModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment mode %q", value)
}
