package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/soundbay/soundbay-backend/pkg/db/models"
	"github.com/soundbay/soundbay-backend/pkg/enums"
	pkgerrors "github.com/soundbay/soundbay-backend/pkg/errors"
)

// Service manages the track catalog.
type Service interface {
	Publish(ctx context.Context, input PublishInput) (*models.Track, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Track, error)
	ListActive(ctx context.Context, limit int) ([]models.Track, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Track, error)
}

// PublishInput captures a new track listing. A nil SellerID publishes the
// track as platform-owned content.
type PublishInput struct {
	SellerID   *uuid.UUID
	Title      string
	Artist     string
	PriceCents int
	Currency   enums.Currency
}

type service struct {
	repo Repository
}

// NewService builds the catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Publish(ctx context.Context, input PublishInput) (*models.Track, error) {
	if input.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if input.PriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}

	track := &models.Track{
		ID:         uuid.New(),
		SellerID:   input.SellerID,
		Title:      input.Title,
		Artist:     input.Artist,
		PriceCents: input.PriceCents,
		Currency:   currency,
		Active:     true,
	}
	created, err := s.repo.Create(ctx, track)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create track")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Track, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "track id required")
	}
	track, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "track not found")
	}
	return track, nil
}

func (s *service) ListActive(ctx context.Context, limit int) ([]models.Track, error) {
	rows, err := s.repo.ListActive(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list tracks")
	}
	return rows, nil
}

func (s *service) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Track, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	rows, err := s.repo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list seller tracks")
	}
	return rows, nil
}
