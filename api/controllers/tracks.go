package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/soundbay/soundbay-backend/api/middleware"
	"github.com/soundbay/soundbay-backend/api/responses"
	"github.com/soundbay/soundbay-backend/api/validators"
	"github.com/soundbay/soundbay-backend/internal/catalog"
	"github.com/soundbay/soundbay-backend/internal/sellers"
	"github.com/soundbay/soundbay-backend/pkg/db/models"
	"github.com/soundbay/soundbay-backend/pkg/enums"
	pkgerrors "github.com/soundbay/soundbay-backend/pkg/errors"
	"github.com/soundbay/soundbay-backend/pkg/logger"
)

type publishTrackRequest struct {
	Title      string `json:"title" validate:"required,max=200"`
	Artist     string `json:"artist" validate:"max=200"`
	PriceCents int    `json:"price_cents" validate:"required,min=1"`
	Currency   string `json:"currency"`
}

type trackResponse struct {
	ID         uuid.UUID  `json:"id"`
	SellerID   *uuid.UUID `json:"seller_id,omitempty"`
	Title      string     `json:"title"`
	Artist     string     `json:"artist,omitempty"`
	PriceCents int        `json:"price_cents"`
	Currency   string     `json:"currency"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
}

func newTrackResponse(track *models.Track) trackResponse {
	return trackResponse{
		ID:         track.ID,
		SellerID:   track.SellerID,
		Title:      track.Title,
		Artist:     track.Artist,
		PriceCents: track.PriceCents,
		Currency:   track.Currency.String(),
		Active:     track.Active,
		CreatedAt:  track.CreatedAt,
	}
}

// TrackPublish lists a new track. The role gate is mounted on the route;
// sellers publish under their own account, admins publish platform-owned
// content with no beneficiary.
func TrackPublish(svc catalog.Service, sellerSvc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload publishTrackRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var sellerID *uuid.UUID
		if middleware.RoleFromContext(r.Context()) != string(enums.RoleAdmin) {
			userID, err := userIDFromRequest(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			seller, err := sellerSvc.GetByUserID(r.Context(), userID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			sellerID = &seller.ID
		}

		track, err := svc.Publish(r.Context(), catalog.PublishInput{
			SellerID:   sellerID,
			Title:      payload.Title,
			Artist:     payload.Artist,
			PriceCents: payload.PriceCents,
			Currency:   enums.Currency(strings.ToUpper(strings.TrimSpace(payload.Currency))),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newTrackResponse(track))
	}
}

// TrackList returns the active storefront catalog.
func TrackList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		tracks, err := svc.ListActive(r.Context(), 0)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]trackResponse, 0, len(tracks))
		for i := range tracks {
			out = append(out, newTrackResponse(&tracks[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// TrackDetail returns a single track.
func TrackDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		trackID, err := parseURLParamUUID(r, "trackID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		track, err := svc.Get(r.Context(), trackID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newTrackResponse(track))
	}
}

func userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return userID, nil
}

func parseURLParamUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}
