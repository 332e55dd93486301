package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/soundbay/soundbay-backend/internal/catalog"
	"github.com/soundbay/soundbay-backend/internal/ownership"
	dbpkg "github.com/soundbay/soundbay-backend/pkg/db"
	"github.com/soundbay/soundbay-backend/pkg/db/models"
	pkgerrors "github.com/soundbay/soundbay-backend/pkg/errors"
)

// Service manages the buyer's cart of tracks.
type Service interface {
	AddTrack(ctx context.Context, buyerID, trackID uuid.UUID) (*models.CartLine, error)
	List(ctx context.Context, buyerID uuid.UUID) (*Summary, error)
	Remove(ctx context.Context, buyerID, trackID uuid.UUID) error
	Clear(ctx context.Context, buyerID uuid.UUID) error
}

// Summary is the buyer-facing cart view.
type Summary struct {
	Lines      []models.CartLine `json:"lines"`
	TotalCents int               `json:"total_cents"`
}

type service struct {
	repo      Repository
	tracks    catalog.Repository
	ownership ownership.Repository
}

// NewService builds the cart service.
func NewService(repo Repository, tracks catalog.Repository, owned ownership.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tracks == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if owned == nil {
		return nil, fmt.Errorf("ownership repository required")
	}
	return &service{repo: repo, tracks: tracks, ownership: owned}, nil
}

// AddTrack snapshots the track's current price, title, and beneficiary seller
// onto a cart line. The snapshot is what checkout prices against; later
// catalog edits do not move an existing cart.
func (s *service) AddTrack(ctx context.Context, buyerID, trackID uuid.UUID) (*models.CartLine, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if trackID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "track id required")
	}

	track, err := s.tracks.FindByID(ctx, trackID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "track not found")
	}
	if !track.Active {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "track is not available for purchase")
	}

	owns, err := s.ownership.Owns(ctx, buyerID, trackID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check ownership")
	}
	if owns {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "track already owned")
	}

	line := &models.CartLine{
		ID:             uuid.New(),
		BuyerID:        buyerID,
		TrackID:        track.ID,
		SellerID:       track.SellerID,
		UnitPriceCents: track.PriceCents,
		TitleSnapshot:  track.Title,
	}
	created, err := s.repo.Add(ctx, line)
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "track already in cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart line")
	}
	return created, nil
}

func (s *service) List(ctx context.Context, buyerID uuid.UUID) (*Summary, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	lines, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart")
	}
	summary := &Summary{Lines: lines}
	for _, line := range lines {
		summary.TotalCents += line.UnitPriceCents
	}
	return summary, nil
}

func (s *service) Remove(ctx context.Context, buyerID, trackID uuid.UUID) error {
	if buyerID == uuid.Nil || trackID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer id and track id required")
	}
	affected, err := s.repo.Remove(ctx, buyerID, trackID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart line")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "track not in cart")
	}
	return nil
}

func (s *service) Clear(ctx context.Context, buyerID uuid.UUID) error {
	if buyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if err := s.repo.Clear(ctx, buyerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}
