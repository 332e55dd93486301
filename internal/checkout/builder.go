package checkout

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/soundbay/soundbay-backend/internal/commission"
	"github.com/soundbay/soundbay-backend/pkg/db/models"
	"github.com/soundbay/soundbay-backend/pkg/enums"
	pkgerrors "github.com/soundbay/soundbay-backend/pkg/errors"
	"github.com/soundbay/soundbay-backend/pkg/paypal"
)

// BuildInput is everything the external order builder needs to assemble the
// processor request for one cart.
type BuildInput struct {
	Mode               enums.PaymentMode
	Currency           enums.Currency
	TotalCents         int
	Allocations        []commission.Allocation
	Sellers            map[uuid.UUID]models.Seller
	PlatformMerchantID string
}

// BuildOrderRequest assembles the processor order payload. For split modes
// every purchase unit names its seller payee, and every platform fee names
// the platform's own merchant id explicitly: leaving the fee payee implied
// silently voids fee collection.
func BuildOrderRequest(in BuildInput) (paypal.OrderRequest, error) {
	switch in.Mode {
	case enums.PaymentModeStandard:
		return paypal.OrderRequest{
			Intent: "CAPTURE",
			PurchaseUnits: []paypal.PurchaseUnit{{
				Amount: paypal.Amount{
					CurrencyCode: in.Currency.String(),
					Value:        paypal.FormatCents(in.TotalCents),
				},
			}},
		}, nil

	case enums.PaymentModeSingleSellerSplit, enums.PaymentModeMultiSellerSplit:
		if in.PlatformMerchantID == "" {
			return paypal.OrderRequest{}, pkgerrors.New(pkgerrors.CodeDependency, "platform merchant id not configured")
		}
		if len(in.Allocations) == 0 {
			return paypal.OrderRequest{}, pkgerrors.New(pkgerrors.CodeValidation, "split order requires fee allocations")
		}

		units := make([]paypal.PurchaseUnit, 0, len(in.Allocations))
		for _, alloc := range in.Allocations {
			seller, ok := in.Sellers[alloc.SellerID]
			if !ok || seller.MerchantID == nil || *seller.MerchantID == "" {
				return paypal.OrderRequest{}, pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("seller %s has no payable merchant account", alloc.SellerID))
			}
			units = append(units, paypal.PurchaseUnit{
				ReferenceID: alloc.SellerID.String(),
				Amount: paypal.Amount{
					CurrencyCode: in.Currency.String(),
					Value:        paypal.FormatCents(alloc.GrossCents),
				},
				Payee: &paypal.Payee{MerchantID: *seller.MerchantID},
				PaymentInstruction: &paypal.PaymentInstruction{
					DisbursementMode: paypal.DisbursementInstant,
					PlatformFees: []paypal.PlatformFee{{
						Amount: paypal.Amount{
							CurrencyCode: in.Currency.String(),
							Value:        paypal.FormatCents(alloc.FeeCents),
						},
						Payee: &paypal.Payee{MerchantID: in.PlatformMerchantID},
					}},
				},
			})
		}
		return paypal.OrderRequest{Intent: "CAPTURE", PurchaseUnits: units}, nil

	default:
		return paypal.OrderRequest{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported payment mode %q", in.Mode))
	}
}
