package checkout

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/soundbay/soundbay-backend/internal/commission"
	"github.com/soundbay/soundbay-backend/pkg/db/models"
	"github.com/soundbay/soundbay-backend/pkg/enums"
)

func cartLine(sellerID *uuid.UUID, priceCents int) models.CartLine {
	return models.CartLine{
		ID:             uuid.New(),
		BuyerID:        uuid.New(),
		TrackID:        uuid.New(),
		SellerID:       sellerID,
		UnitPriceCents: priceCents,
		TitleSnapshot:  "Track",
	}
}

func eligibleSeller(id uuid.UUID, merchantID string) models.Seller {
	mid := merchantID
	return models.Seller{
		ID:                 id,
		Status:             enums.SellerStatusActive,
		MerchantID:         &mid,
		PaymentsReceivable: true,
		CommissionRate:     decimal.RequireFromString("0.15"),
	}
}

func TestPartitionSplitsByBeneficiary(t *testing.T) {
	sellerA := uuid.New()
	sellerB := uuid.New()

	lines := []models.CartLine{
		cartLine(&sellerA, 100),
		cartLine(nil, 250),
		cartLine(&sellerB, 300),
		cartLine(&sellerA, 50),
	}

	platform, sellers := Partition(lines)

	require.NotNil(t, platform)
	require.Len(t, platform.Lines, 1)
	require.Equal(t, 250, platform.GrossCents)

	require.Len(t, sellers, 2)
	require.Equal(t, sellerA, *sellers[0].SellerID)
	require.Equal(t, 150, sellers[0].GrossCents)
	require.Len(t, sellers[0].Lines, 2)
	require.Equal(t, sellerB, *sellers[1].SellerID)
	require.Equal(t, 300, sellers[1].GrossCents)
}

func TestPartitionAllPlatform(t *testing.T) {
	platform, sellers := Partition([]models.CartLine{cartLine(nil, 100), cartLine(nil, 200)})
	require.NotNil(t, platform)
	require.Len(t, platform.Lines, 2)
	require.Empty(t, sellers)
}

func TestSelectModePlatformOnly(t *testing.T) {
	platform, sellers := Partition([]models.CartLine{cartLine(nil, 100)})
	decision := SelectMode(platform, sellers, nil)
	require.Equal(t, enums.PaymentModeStandard, decision.Mode)
	require.Empty(t, decision.FallbackCause)
}

func TestSelectModeSingleSeller(t *testing.T) {
	sellerID := uuid.New()
	platform, sellers := Partition([]models.CartLine{cartLine(&sellerID, 100)})
	eligible := map[uuid.UUID]models.Seller{sellerID: eligibleSeller(sellerID, "M-1")}

	decision := SelectMode(platform, sellers, eligible)
	require.Equal(t, enums.PaymentModeSingleSellerSplit, decision.Mode)
	require.Empty(t, decision.FallbackCause)
}

func TestSelectModeMultiSeller(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	platform, sellers := Partition([]models.CartLine{cartLine(&a, 100), cartLine(&b, 200)})
	eligible := map[uuid.UUID]models.Seller{
		a: eligibleSeller(a, "M-A"),
		b: eligibleSeller(b, "M-B"),
	}

	decision := SelectMode(platform, sellers, eligible)
	require.Equal(t, enums.PaymentModeMultiSellerSplit, decision.Mode)
}

func TestSelectModeMixedCartFallsBack(t *testing.T) {
	sellerID := uuid.New()
	platform, sellers := Partition([]models.CartLine{cartLine(&sellerID, 100), cartLine(nil, 200)})
	eligible := map[uuid.UUID]models.Seller{sellerID: eligibleSeller(sellerID, "M-1")}

	decision := SelectMode(platform, sellers, eligible)
	require.Equal(t, enums.PaymentModeStandard, decision.Mode)
	require.Equal(t, FallbackMixedCart, decision.FallbackCause)
}

func TestSelectModeSellerLimitFallsBack(t *testing.T) {
	var lines []models.CartLine
	eligible := map[uuid.UUID]models.Seller{}
	for i := 0; i < maxSplitSellers+1; i++ {
		id := uuid.New()
		lines = append(lines, cartLine(&id, 100))
		eligible[id] = eligibleSeller(id, "M-"+strconv.Itoa(i))
	}
	platform, sellers := Partition(lines)

	decision := SelectMode(platform, sellers, eligible)
	require.Equal(t, enums.PaymentModeStandard, decision.Mode)
	require.Equal(t, FallbackSellerLimit, decision.FallbackCause)
}

func TestSelectModeIneligibleSellerFallsBack(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	platform, sellers := Partition([]models.CartLine{cartLine(&a, 100), cartLine(&b, 200)})
	eligible := map[uuid.UUID]models.Seller{a: eligibleSeller(a, "M-A")}

	decision := SelectMode(platform, sellers, eligible)
	require.Equal(t, enums.PaymentModeStandard, decision.Mode)
	require.Equal(t, FallbackIneligibleSeller, decision.FallbackCause)
}

func TestBuildOrderRequestStandard(t *testing.T) {
	req, err := BuildOrderRequest(BuildInput{
		Mode:       enums.PaymentModeStandard,
		Currency:   enums.CurrencyUSD,
		TotalCents: 1234,
	})
	require.NoError(t, err)
	require.Equal(t, "CAPTURE", req.Intent)
	require.Len(t, req.PurchaseUnits, 1)
	require.Equal(t, "12.34", req.PurchaseUnits[0].Amount.Value)
	require.Nil(t, req.PurchaseUnits[0].Payee)
	require.Nil(t, req.PurchaseUnits[0].PaymentInstruction)
}

func TestBuildOrderRequestSplitNamesFeePayee(t *testing.T) {
	sellerID := uuid.New()
	sellers := map[uuid.UUID]models.Seller{sellerID: eligibleSeller(sellerID, "M-SELLER")}

	req, err := BuildOrderRequest(BuildInput{
		Mode:       enums.PaymentModeSingleSellerSplit,
		Currency:   enums.CurrencyUSD,
		TotalCents: 1000,
		Allocations: []commission.Allocation{{
			SellerID:   sellerID,
			GrossCents: 1000,
			FeeCents:   150,
			NetCents:   850,
		}},
		Sellers:            sellers,
		PlatformMerchantID: "M-PLATFORM",
	})
	require.NoError(t, err)
	require.Len(t, req.PurchaseUnits, 1)

	unit := req.PurchaseUnits[0]
	require.Equal(t, sellerID.String(), unit.ReferenceID)
	require.Equal(t, "10.00", unit.Amount.Value)
	require.Equal(t, "M-SELLER", unit.Payee.MerchantID)
	require.NotNil(t, unit.PaymentInstruction)
	require.Equal(t, "INSTANT", unit.PaymentInstruction.DisbursementMode)
	require.Len(t, unit.PaymentInstruction.PlatformFees, 1)
	require.Equal(t, "1.50", unit.PaymentInstruction.PlatformFees[0].Amount.Value)
	require.Equal(t, "M-PLATFORM", unit.PaymentInstruction.PlatformFees[0].Payee.MerchantID)
}

func TestBuildOrderRequestMultiSellerUnits(t *testing.T) {
	sellers := map[uuid.UUID]models.Seller{}
	var allocations []commission.Allocation
	for i := 0; i < 3; i++ {
		id := uuid.New()
		sellers[id] = eligibleSeller(id, fmt.Sprintf("M-%d", i))
		allocations = append(allocations, commission.Allocation{
			SellerID:   id,
			GrossCents: 500,
			FeeCents:   75,
			NetCents:   425,
		})
	}

	req, err := BuildOrderRequest(BuildInput{
		Mode:               enums.PaymentModeMultiSellerSplit,
		Currency:           enums.CurrencyEUR,
		TotalCents:         1500,
		Allocations:        allocations,
		Sellers:            sellers,
		PlatformMerchantID: "M-PLATFORM",
	})
	require.NoError(t, err)
	require.Len(t, req.PurchaseUnits, 3)
	for i, unit := range req.PurchaseUnits {
		require.Equal(t, allocations[i].SellerID.String(), unit.ReferenceID)
		require.Equal(t, "EUR", unit.Amount.CurrencyCode)
	}
}

func TestBuildOrderRequestSplitRequiresMerchantID(t *testing.T) {
	sellerID := uuid.New()
	seller := eligibleSeller(sellerID, "")
	seller.MerchantID = nil

	_, err := BuildOrderRequest(BuildInput{
		Mode:       enums.PaymentModeSingleSellerSplit,
		Currency:   enums.CurrencyUSD,
		TotalCents: 1000,
		Allocations: []commission.Allocation{{
			SellerID:   sellerID,
			GrossCents: 1000,
			FeeCents:   150,
		}},
		Sellers:            map[uuid.UUID]models.Seller{sellerID: seller},
		PlatformMerchantID: "M-PLATFORM",
	})
	require.Error(t, err)
}

func TestBuildOrderRequestSplitRequiresPlatformMerchant(t *testing.T) {
	sellerID := uuid.New()
	_, err := BuildOrderRequest(BuildInput{
		Mode:        enums.PaymentModeMultiSellerSplit,
		Currency:    enums.CurrencyUSD,
		TotalCents:  1000,
		Allocations: []commission.Allocation{{SellerID: sellerID, GrossCents: 1000}},
		Sellers:     map[uuid.UUID]models.Seller{sellerID: eligibleSeller(sellerID, "M-1")},
	})
	require.Error(t, err)
}
