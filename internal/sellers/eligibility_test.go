package sellers

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/soundbay/soundbay-backend/pkg/db/models"
	"github.com/soundbay/soundbay-backend/pkg/enums"
)

func pendingSeller() *models.Seller {
	tracking := "trk-current"
	return &models.Seller{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Status:     enums.SellerStatusPending,
		TrackingID: &tracking,
	}
}

func activeEvent(trackingID string) EligibilityEvent {
	return EligibilityEvent{
		Source:                SourceWebhook,
		TrackingID:            trackingID,
		MerchantID:            "M-1",
		Status:                enums.SellerStatusActive,
		PaymentsReceivable:    true,
		PrimaryEmailConfirmed: true,
	}
}

func TestMergeActivatesPendingSeller(t *testing.T) {
	t.Parallel()

	seller := pendingSeller()
	now := time.Now().UTC()

	if !merge(seller, activeEvent("trk-current"), now) {
		t.Fatal("expected merge to report a change")
	}
	if seller.Status != enums.SellerStatusActive {
		t.Fatalf("expected active, got %s", seller.Status)
	}
	if seller.MerchantID == nil || *seller.MerchantID != "M-1" {
		t.Fatal("expected merchant id to be bound")
	}
	if !seller.PaymentsReceivable {
		t.Fatal("expected payments receivable")
	}
	if seller.OnboardedAt == nil {
		t.Fatal("expected onboarded timestamp")
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	t.Parallel()

	seller := pendingSeller()
	now := time.Now().UTC()
	evt := activeEvent("trk-current")

	if !merge(seller, evt, now) {
		t.Fatal("first apply should change state")
	}
	if merge(seller, evt, now) {
		t.Fatal("second apply of the same event must be a no-op")
	}
	if seller.Status != enums.SellerStatusActive {
		t.Fatalf("expected active after replay, got %s", seller.Status)
	}
}

func TestMergeStalePendingNeverRegressesActive(t *testing.T) {
	t.Parallel()

	seller := pendingSeller()
	now := time.Now().UTC()
	merge(seller, activeEvent("trk-current"), now)

	stale := EligibilityEvent{
		Source:     SourceWebhook,
		TrackingID: "trk-current",
		Status:     enums.SellerStatusPending,
	}
	if merge(seller, stale, now) {
		t.Fatal("stale pending must not change state")
	}
	if seller.Status != enums.SellerStatusActive {
		t.Fatalf("expected seller to stay active, got %s", seller.Status)
	}
}

func TestMergeRevokesActiveSeller(t *testing.T) {
	t.Parallel()

	seller := pendingSeller()
	now := time.Now().UTC()
	merge(seller, activeEvent("trk-current"), now)

	revoke := EligibilityEvent{
		Source:     SourceWebhook,
		MerchantID: "M-1",
		Status:     enums.SellerStatusRevoked,
	}
	if !merge(seller, revoke, now) {
		t.Fatal("expected revocation to apply")
	}
	if seller.Status != enums.SellerStatusRevoked {
		t.Fatalf("expected revoked, got %s", seller.Status)
	}
	if seller.PaymentsReceivable {
		t.Fatal("revoked sellers must not remain payable")
	}
	if seller.RevokedAt == nil {
		t.Fatal("expected revoked timestamp")
	}
}

func TestMergeStaleActivationDoesNotResurrectRevokedSeller(t *testing.T) {
	t.Parallel()

	seller := pendingSeller()
	now := time.Now().UTC()
	merge(seller, activeEvent("trk-current"), now)
	merge(seller, EligibilityEvent{Status: enums.SellerStatusRevoked}, now)

	// A delayed activation from the old onboarding cycle carries a tracking
	// id that no longer matches once the seller re-onboards.
	newTracking := "trk-new"
	seller.TrackingID = &newTracking

	if merge(seller, activeEvent("trk-current"), now) {
		t.Fatal("stale activation must not apply to a revoked seller")
	}
	if seller.Status != enums.SellerStatusRevoked {
		t.Fatalf("expected seller to stay revoked, got %s", seller.Status)
	}
}

func TestMergeFreshCycleReactivatesRevokedSeller(t *testing.T) {
	t.Parallel()

	seller := pendingSeller()
	now := time.Now().UTC()
	merge(seller, activeEvent("trk-current"), now)
	merge(seller, EligibilityEvent{Status: enums.SellerStatusRevoked}, now)

	newTracking := "trk-new"
	seller.TrackingID = &newTracking

	if !merge(seller, activeEvent("trk-new"), now) {
		t.Fatal("activation from the current cycle should apply")
	}
	if seller.Status != enums.SellerStatusActive {
		t.Fatalf("expected active, got %s", seller.Status)
	}
	if seller.RevokedAt != nil {
		t.Fatal("reactivation should clear the revoked timestamp")
	}
}

func TestMergeActiveWithoutMerchantIDIsIgnored(t *testing.T) {
	t.Parallel()

	seller := pendingSeller()
	evt := activeEvent("trk-current")
	evt.MerchantID = ""

	if merge(seller, evt, time.Now().UTC()) {
		t.Fatal("active without merchant id violates the seller invariant")
	}
	if seller.Status != enums.SellerStatusPending {
		t.Fatalf("expected pending, got %s", seller.Status)
	}
}

func TestMergeActiveRefreshesPayableFlags(t *testing.T) {
	t.Parallel()

	seller := pendingSeller()
	now := time.Now().UTC()
	merge(seller, activeEvent("trk-current"), now)

	refreshed := activeEvent("trk-current")
	refreshed.PaymentsReceivable = false

	if !merge(seller, refreshed, now) {
		t.Fatal("expected flag refresh to register as a change")
	}
	if seller.Status != enums.SellerStatusActive {
		t.Fatalf("expected seller to stay active, got %s", seller.Status)
	}
	if seller.PaymentsReceivable {
		t.Fatal("expected payments receivable to be cleared")
	}
}
