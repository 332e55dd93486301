package paypal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/soundbay/soundbay-backend/pkg/enums"
	pkgerrors "github.com/soundbay/soundbay-backend/pkg/errors"
)

// DisbursementInstant releases seller funds immediately at capture time.
const DisbursementInstant = "INSTANT"

// Amount is a currency/value pair formatted per PayPal's string convention.
type Amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// Payee identifies the account receiving a purchase unit or a platform fee.
type Payee struct {
	MerchantID string `json:"merchant_id,omitempty"`
	Email      string `json:"email_address,omitempty"`
}

// PlatformFee names the commission carved out of a purchase unit.
type PlatformFee struct {
	Amount Amount `json:"amount"`
	Payee  *Payee `json:"payee,omitempty"`
}

// PaymentInstruction carries split-payment routing for one purchase unit.
type PaymentInstruction struct {
	DisbursementMode string        `json:"disbursement_mode,omitempty"`
	PlatformFees     []PlatformFee `json:"platform_fees,omitempty"`
}

// PurchaseUnit is one routable slice of an order.
type PurchaseUnit struct {
	ReferenceID        string              `json:"reference_id,omitempty"`
	Description        string              `json:"description,omitempty"`
	CustomID           string              `json:"custom_id,omitempty"`
	Amount             Amount              `json:"amount"`
	Payee              *Payee              `json:"payee,omitempty"`
	PaymentInstruction *PaymentInstruction `json:"payment_instruction,omitempty"`
}

// OrderRequest is the create-order payload.
type OrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
}

// OrderResult is the subset of the create-order response the platform uses.
type OrderResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreateOrder registers an order with PayPal. requestID is sent as the
// PayPal-Request-Id header so retries of the same checkout do not create
// duplicate processor orders.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest, requestID string) (*OrderResult, error) {
	if len(req.PurchaseUnits) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one purchase unit")
	}
	if req.Intent == "" {
		req.Intent = "CAPTURE"
	}

	c.log(ctx, "request", "create_order", map[string]any{
		"purchase_units": len(req.PurchaseUnits),
		"intent":         req.Intent,
	})

	var result OrderResult
	headers := map[string]string{"PayPal-Request-Id": requestID}
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", headers, req, &result); err != nil {
		c.log(ctx, "error", "create_order", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "create_order", map[string]any{
		"order_id": result.ID,
		"status":   result.Status,
	})
	return &result, nil
}

// CaptureOptions tunes a capture call.
type CaptureOptions struct {
	// RequestID deduplicates retried captures processor-side.
	RequestID string
	// MerchantID, when set, sends a PayPal-Auth-Assertion header acting on
	// behalf of that seller. Required for single-seller split captures.
	MerchantID string
}

// CaptureResult is the normalized outcome of a capture attempt.
type CaptureResult struct {
	OrderID    string
	Status     string
	CaptureIDs []string
}

// Completed reports whether the processor finished the capture.
func (r *CaptureResult) Completed() bool {
	return r != nil && strings.EqualFold(r.Status, "COMPLETED")
}

// CaptureOrder attempts to capture an approved order. Buyer-recoverable
// declines are returned as *DeclineError; everything else surfaces as a
// dependency/validation error.
func (c *Client) CaptureOrder(ctx context.Context, orderID string, opts CaptureOptions) (*CaptureResult, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	c.log(ctx, "request", "capture_order", map[string]any{"order_id": orderID})

	headers := map[string]string{"PayPal-Request-Id": opts.RequestID}
	if opts.MerchantID != "" {
		headers["PayPal-Auth-Assertion"] = c.authAssertion(opts.MerchantID)
	}

	var payload struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", url.PathEscape(orderID))
	if err := c.do(ctx, http.MethodPost, path, headers, struct{}{}, &payload); err != nil {
		if declined, reason := classifyDecline(err); declined {
			c.log(ctx, "response", "capture_order", map[string]any{
				"order_id": orderID,
				"declined": true,
				"reason":   reason.String(),
			})
			return nil, &DeclineError{OrderID: orderID, Reason: reason}
		}
		c.log(ctx, "error", "capture_order", map[string]any{"error": err.Error()})
		return nil, err
	}

	result := &CaptureResult{OrderID: payload.ID, Status: payload.Status}
	for _, pu := range payload.PurchaseUnits {
		for _, capture := range pu.Payments.Captures {
			result.CaptureIDs = append(result.CaptureIDs, capture.ID)
		}
	}

	c.log(ctx, "response", "capture_order", map[string]any{
		"order_id": result.OrderID,
		"status":   result.Status,
		"captures": len(result.CaptureIDs),
	})
	return result, nil
}

// DeclineError marks a capture the buyer can recover from by retrying with a
// different instrument. It is not a system fault.
type DeclineError struct {
	OrderID string
	Reason  enums.DeclineReason
}

func (e *DeclineError) Error() string {
	return fmt.Sprintf("capture declined for order %s: %s", e.OrderID, e.Reason)
}

// AsDecline extracts a DeclineError from an error chain.
func AsDecline(err error) (*DeclineError, bool) {
	var decline *DeclineError
	if errors.As(err, &decline) {
		return decline, true
	}
	return nil, false
}

var declineIssues = map[string]enums.DeclineReason{
	"INSTRUMENT_DECLINED":            enums.DeclineReasonGeneric,
	"INSUFFICIENT_FUNDS":             enums.DeclineReasonInsufficientFunds,
	"CARD_EXPIRED":                   enums.DeclineReasonInstrumentExpired,
	"CARD_CLOSED":                    enums.DeclineReasonInstrumentExpired,
	"CVV_CHECK_FAILED":               enums.DeclineReasonSecurityCodeMismatch,
	"PAYER_ACCOUNT_RESTRICTED":       enums.DeclineReasonAccountRestricted,
	"PAYER_ACCOUNT_LOCKED_OR_CLOSED": enums.DeclineReasonAccountRestricted,
	"PAYER_CANNOT_PAY":               enums.DeclineReasonAccountRestricted,
	"DUPLICATE_INVOICE_ID":           enums.DeclineReasonDuplicate,
	"TRANSACTION_REFUSED":            enums.DeclineReasonGeneric,
}

func classifyDecline(err error) (bool, enums.DeclineReason) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false, ""
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		return false, ""
	}
	for _, detail := range apiErr.Details {
		if reason, ok := declineIssues[strings.ToUpper(detail.Issue)]; ok {
			return true, reason
		}
	}
	return false, ""
}

// authAssertion builds the unsigned JWT PayPal expects when the platform acts
// on behalf of a connected merchant.
func (c *Client) authAssertion(merchantID string) string {
	header, _ := json.Marshal(map[string]string{"alg": "none"})
	claims, _ := json.Marshal(map[string]string{
		"iss":      c.clientID,
		"payer_id": merchantID,
	})
	return base64.RawURLEncoding.EncodeToString(header) + "." +
		base64.RawURLEncoding.EncodeToString(claims) + "."
}

// FormatCents renders an integer cent amount as PayPal's decimal string.
func FormatCents(cents int) string {
	return decimal.NewFromInt(int64(cents)).Div(decimal.NewFromInt(100)).StringFixed(2)
}
