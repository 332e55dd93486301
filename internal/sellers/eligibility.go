package sellers

import (
	"time"

	"github.com/soundbay/soundbay-backend/pkg/db/models"
	"github.com/soundbay/soundbay-backend/pkg/enums"
)

// EventSource identifies which path produced an eligibility event.
type EventSource string

const (
	// SourceOnboardingReturn is the synchronous path: the seller came back
	// from the processor's flow and we queried status by tracking id.
	SourceOnboardingReturn EventSource = "onboarding_return"
	// SourceWebhook is the asynchronous push from the processor.
	SourceWebhook EventSource = "webhook"
)

// EligibilityEvent is an idempotent eligibility fact. Both trigger paths
// (onboarding return and webhook) produce these and feed them through the
// same merge, so replays and races converge on one state.
type EligibilityEvent struct {
	Source                EventSource
	TrackingID            string
	MerchantID            string
	Status                enums.SellerStatus
	PaymentsReceivable    bool
	PrimaryEmailConfirmed bool
}

// merge applies an eligibility event onto a seller record in place and
// reports whether anything changed. The merge is commutative for agreeing
// events and monotone over the status lattice: a stale Pending never
// regresses an Active or Revoked seller.
func merge(seller *models.Seller, evt EligibilityEvent, now time.Time) bool {
	switch evt.Status {
	case enums.SellerStatusPending:
		// Pending is the lattice bottom; it never overrides anything.
		return false

	case enums.SellerStatusRevoked:
		if seller.Status == enums.SellerStatusRevoked {
			return false
		}
		seller.Status = enums.SellerStatusRevoked
		seller.PaymentsReceivable = false
		seller.RevokedAt = &now
		return true

	case enums.SellerStatusActive:
		switch seller.Status {
		case enums.SellerStatusRevoked:
			// A revoked seller reactivates only through a fresh onboarding
			// cycle, proven by the event carrying the seller's current
			// tracking id. Stale activations from the old cycle are dropped.
			if evt.TrackingID == "" || seller.TrackingID == nil || evt.TrackingID != *seller.TrackingID {
				return false
			}
			return activate(seller, evt, now)
		case enums.SellerStatusActive:
			// Re-applying Active refreshes payable flags without a full
			// transition.
			changed := false
			if evt.MerchantID != "" && (seller.MerchantID == nil || *seller.MerchantID != evt.MerchantID) {
				merchantID := evt.MerchantID
				seller.MerchantID = &merchantID
				changed = true
			}
			if seller.PaymentsReceivable != evt.PaymentsReceivable {
				seller.PaymentsReceivable = evt.PaymentsReceivable
				changed = true
			}
			if seller.PrimaryEmailConfirmed != evt.PrimaryEmailConfirmed {
				seller.PrimaryEmailConfirmed = evt.PrimaryEmailConfirmed
				changed = true
			}
			return changed
		default:
			return activate(seller, evt, now)
		}
	}
	return false
}

func activate(seller *models.Seller, evt EligibilityEvent, now time.Time) bool {
	if evt.MerchantID == "" {
		// Active without a merchant id violates the seller invariant; treat
		// the event as not-yet-complete.
		return false
	}
	merchantID := evt.MerchantID
	seller.Status = enums.SellerStatusActive
	seller.MerchantID = &merchantID
	seller.PaymentsReceivable = evt.PaymentsReceivable
	seller.PrimaryEmailConfirmed = evt.PrimaryEmailConfirmed
	seller.OnboardedAt = &now
	seller.RevokedAt = nil
	return true
}
