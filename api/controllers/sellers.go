package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/soundbay/soundbay-backend/api/responses"
	"github.com/soundbay/soundbay-backend/api/validators"
	"github.com/soundbay/soundbay-backend/internal/sellers"
	"github.com/soundbay/soundbay-backend/pkg/db/models"
	pkgerrors "github.com/soundbay/soundbay-backend/pkg/errors"
	"github.com/soundbay/soundbay-backend/pkg/logger"
)

type registerSellerRequest struct {
	DisplayName    string `json:"display_name" validate:"required,max=120"`
	Email          string `json:"email" validate:"omitempty,email"`
	CommissionRate string `json:"commission_rate"`
}

type sellerResponse struct {
	ID                 uuid.UUID  `json:"id"`
	DisplayName        string     `json:"display_name"`
	Status             string     `json:"status"`
	PaymentsReceivable bool       `json:"payments_receivable"`
	CommissionRate     string     `json:"commission_rate"`
	OnboardedAt        *time.Time `json:"onboarded_at,omitempty"`
}

func newSellerResponse(seller *models.Seller) sellerResponse {
	return sellerResponse{
		ID:                 seller.ID,
		DisplayName:        seller.DisplayName,
		Status:             seller.Status.String(),
		PaymentsReceivable: seller.PaymentsReceivable,
		CommissionRate:     seller.CommissionRate.String(),
		OnboardedAt:        seller.OnboardedAt,
	}
}

// SellerRegister creates a seller profile for the authenticated user.
func SellerRegister(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sellers service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload registerSellerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var rate decimal.Decimal
		if payload.CommissionRate != "" {
			parsed, err := decimal.NewFromString(payload.CommissionRate)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid commission rate"))
				return
			}
			rate = parsed
		}

		seller, err := svc.Register(r.Context(), sellers.RegisterInput{
			UserID:         userID,
			DisplayName:    payload.DisplayName,
			Email:          payload.Email,
			CommissionRate: rate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newSellerResponse(seller))
	}
}

// SellerMe returns the authenticated user's seller profile.
func SellerMe(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sellers service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		seller, err := svc.GetByUserID(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSellerResponse(seller))
	}
}

// SellerStartOnboarding begins the hosted onboarding flow and returns the
// redirect URL.
func SellerStartOnboarding(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sellers service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		seller, err := svc.GetByUserID(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.StartOnboarding(r.Context(), seller.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

type completeOnboardingRequest struct {
	TrackingID string `json:"tracking_id" validate:"required"`
}

// SellerCompleteOnboarding is the direct-completion path, called when the
// seller lands back on the frontend from the processor's flow.
func SellerCompleteOnboarding(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sellers service unavailable"))
			return
		}

		var payload completeOnboardingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		seller, err := svc.CompleteOnboarding(r.Context(), payload.TrackingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSellerResponse(seller))
	}
}
