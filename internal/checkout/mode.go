package checkout

import (
	"github.com/google/uuid"

	"github.com/soundbay/soundbay-backend/pkg/db/models"
	"github.com/soundbay/soundbay-backend/pkg/enums"
)

// maxSplitSellers is the processor's hard limit on purchase units per order.
const maxSplitSellers = 10

// Fallback causes recorded when a cart is re-routed to the standard path.
const (
	FallbackMixedCart        = "mixed_cart"
	FallbackSellerLimit      = "seller_limit"
	FallbackIneligibleSeller = "ineligible_seller"
)

// ModeDecision is the routing verdict for one cart.
type ModeDecision struct {
	Mode enums.PaymentMode
	// FallbackCause is non-empty when split routing was possible on paper
	// but the conservative policy forced Standard.
	FallbackCause string
}

// SelectMode applies the routing decision table. The policy is deliberately
// conservative: any beneficiary that cannot currently receive funds forces
// the whole order through the platform rather than attempting a partial
// split, and mixed carts never split.
func SelectMode(platform *Group, sellerGroups []Group, eligible map[uuid.UUID]models.Seller) ModeDecision {
	if len(sellerGroups) == 0 {
		return ModeDecision{Mode: enums.PaymentModeStandard}
	}
	if platform != nil && len(platform.Lines) > 0 {
		return ModeDecision{Mode: enums.PaymentModeStandard, FallbackCause: FallbackMixedCart}
	}
	if len(sellerGroups) > maxSplitSellers {
		return ModeDecision{Mode: enums.PaymentModeStandard, FallbackCause: FallbackSellerLimit}
	}
	for _, group := range sellerGroups {
		if _, ok := eligible[*group.SellerID]; !ok {
			return ModeDecision{Mode: enums.PaymentModeStandard, FallbackCause: FallbackIneligibleSeller}
		}
	}
	if len(sellerGroups) == 1 {
		return ModeDecision{Mode: enums.PaymentModeSingleSellerSplit}
	}
	return ModeDecision{Mode: enums.PaymentModeMultiSellerSplit}
}
