package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/soundbay/soundbay-backend/api/responses"
	checkoutsvc "github.com/soundbay/soundbay-backend/internal/checkout"
	"github.com/soundbay/soundbay-backend/pkg/db/models"
	pkgerrors "github.com/soundbay/soundbay-backend/pkg/errors"
	"github.com/soundbay/soundbay-backend/pkg/logger"
)

type orderLineResponse struct {
	TrackID        uuid.UUID  `json:"track_id"`
	SellerID       *uuid.UUID `json:"seller_id,omitempty"`
	UnitPriceCents int        `json:"unit_price_cents"`
	FeeCents       int        `json:"fee_cents"`
	NetCents       int        `json:"net_cents"`
	Title          string     `json:"title"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	ExternalOrderID string              `json:"external_order_id"`
	Status          string              `json:"status"`
	PaymentMode     string              `json:"payment_mode"`
	Currency        string              `json:"currency"`
	TotalCents      int                 `json:"total_cents"`
	FeeTotalCents   int                 `json:"fee_total_cents"`
	DeclineReason   *string             `json:"decline_reason,omitempty"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
	Lines           []orderLineResponse `json:"lines"`
	CreatedAt       time.Time           `json:"created_at"`
}

func newOrderResponse(order *models.Order) orderResponse {
	lines := make([]orderLineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLineResponse{
			TrackID:        line.TrackID,
			SellerID:       line.SellerID,
			UnitPriceCents: line.UnitPriceCents,
			FeeCents:       line.FeeCents,
			NetCents:       line.NetCents,
			Title:          line.TitleSnapshot,
		})
	}
	return orderResponse{
		ID:              order.ID,
		ExternalOrderID: order.ExternalOrderID,
		Status:          order.Status.String(),
		PaymentMode:     order.PaymentMode.String(),
		Currency:        order.Currency.String(),
		TotalCents:      order.TotalCents,
		FeeTotalCents:   order.FeeTotalCents,
		DeclineReason:   order.DeclineReason,
		CompletedAt:     order.CompletedAt,
		Lines:           lines,
		CreatedAt:       order.CreatedAt,
	}
}

type captureResponse struct {
	Captured       bool          `json:"captured"`
	Order          orderResponse `json:"order"`
	DeclineReason  string        `json:"decline_reason,omitempty"`
	DeclineMessage string        `json:"decline_message,omitempty"`
}

// OrderCreate submits the buyer's cart as an order with the processor.
func OrderCreate(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateOrder(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// OrderCapture finalizes payment after buyer approval. A decline comes back
// as a 200 with captured=false so the frontend can prompt a retry.
func OrderCapture(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseURLParamUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.Capture(r.Context(), buyerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := captureResponse{
			Captured:       outcome.Captured,
			Order:          newOrderResponse(outcome.Order),
			DeclineMessage: outcome.DeclineMsg,
		}
		if outcome.DeclineReason != "" {
			payload.DeclineReason = outcome.DeclineReason.String()
		}
		responses.WriteSuccess(w, payload)
	}
}

// OrderDetail returns one of the buyer's orders.
func OrderDetail(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseURLParamUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), buyerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderList returns the buyer's order history.
func OrderList(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.ListOrders(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]orderResponse, 0, len(orders))
		for i := range orders {
			out = append(out, newOrderResponse(&orders[i]))
		}
		responses.WriteSuccess(w, out)
	}
}
