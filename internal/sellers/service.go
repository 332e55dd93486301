package sellers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/soundbay/soundbay-backend/internal/commission"
	"github.com/soundbay/soundbay-backend/pkg/db/models"
	"github.com/soundbay/soundbay-backend/pkg/enums"
	pkgerrors "github.com/soundbay/soundbay-backend/pkg/errors"
	"github.com/soundbay/soundbay-backend/pkg/logger"
	"github.com/soundbay/soundbay-backend/pkg/outbox"
	"github.com/soundbay/soundbay-backend/pkg/paypal"
	"github.com/soundbay/soundbay-backend/pkg/redis"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type processorOnboarding interface {
	CreatePartnerReferral(ctx context.Context, req paypal.ReferralRequest) (*paypal.ReferralResult, error)
	GetMerchantIntegrationByTrackingID(ctx context.Context, trackingID string) (*paypal.MerchantIntegration, error)
}

type onboardingSessions interface {
	StoreOnboardingSession(ctx context.Context, trackingID, sellerID string, ttl time.Duration) error
	GetOnboardingSession(ctx context.Context, trackingID string) (string, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the seller directory plus the eligibility state machine.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Seller, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Seller, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Seller, error)
	StartOnboarding(ctx context.Context, sellerID uuid.UUID) (*OnboardingSession, error)
	CompleteOnboarding(ctx context.Context, trackingID string) (*models.Seller, error)
	ApplyEligibilityEvent(ctx context.Context, evt EligibilityEvent) (*models.Seller, bool, error)
	FindEligible(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Seller, error)
}

// RegisterInput captures a new seller signup.
type RegisterInput struct {
	UserID         uuid.UUID
	DisplayName    string
	Email          string
	CommissionRate decimal.Decimal
}

// OnboardingSession is handed to the frontend to redirect the seller into the
// processor's hosted flow.
type OnboardingSession struct {
	TrackingID string `json:"tracking_id"`
	ActionURL  string `json:"action_url"`
}

// Options tunes the onboarding flow.
type Options struct {
	ReturnURL     string
	OnboardingTTL time.Duration
	DefaultRate   decimal.Decimal
}

type service struct {
	tx        txRunner
	repo      Repository
	processor processorOnboarding
	sessions  onboardingSessions
	outbox    outboxPublisher
	logg      *logger.Logger
	opts      Options
}

// NewService builds the sellers service.
func NewService(
	tx txRunner,
	repo Repository,
	processor processorOnboarding,
	sessions onboardingSessions,
	publisher outboxPublisher,
	logg *logger.Logger,
	opts Options,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("sellers repository required")
	}
	if processor == nil {
		return nil, fmt.Errorf("processor client required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("onboarding session store required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if opts.OnboardingTTL <= 0 {
		opts.OnboardingTTL = 72 * time.Hour
	}
	return &service{
		tx:        tx,
		repo:      repo,
		processor: processor,
		sessions:  sessions,
		outbox:    publisher,
		logg:      logg,
		opts:      opts,
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Seller, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.DisplayName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "display name required")
	}

	rate := input.CommissionRate
	if rate.IsZero() && !s.opts.DefaultRate.IsZero() {
		rate = s.opts.DefaultRate
	}
	// The rate is fixed here for the seller's lifetime; the commission
	// calculator trusts it downstream.
	if !commission.ValidRate(rate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission rate must be between 0 and 1")
	}

	seller := &models.Seller{
		UserID:         input.UserID,
		DisplayName:    input.DisplayName,
		Email:          input.Email,
		Status:         enums.SellerStatusPending,
		CommissionRate: rate,
	}
	created, err := s.repo.Create(ctx, seller)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create seller")
	}
	return created, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	seller, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "seller not found")
	}
	return seller, nil
}

func (s *service) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Seller, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	seller, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "seller not found")
	}
	return seller, nil
}

// StartOnboarding mints a tracking id, registers a partner referral with the
// processor, and binds the tracking id to the seller in the session store so
// webhook deliveries can be correlated even if the local row lags.
func (s *service) StartOnboarding(ctx context.Context, sellerID uuid.UUID) (*OnboardingSession, error) {
	seller, err := s.GetByID(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if seller.Status == enums.SellerStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "seller is already onboarded")
	}

	trackingID := uuid.NewString()
	referral, err := s.processor.CreatePartnerReferral(ctx, paypal.ReferralRequest{
		TrackingID: trackingID,
		Email:      seller.Email,
		ReturnURL:  s.opts.ReturnURL,
	})
	if err != nil {
		return nil, err
	}

	seller.TrackingID = &trackingID
	seller.Status = enums.SellerStatusPending
	if err := s.repo.Save(ctx, seller); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist tracking id")
	}

	if err := s.sessions.StoreOnboardingSession(ctx, trackingID, seller.ID.String(), s.opts.OnboardingTTL); err != nil {
		// Correlation still works through the sellers table; log and move on.
		s.logg.Warn(s.logg.WithSellerID(ctx, seller.ID.String()), "failed to store onboarding session")
	}

	return &OnboardingSession{TrackingID: trackingID, ActionURL: referral.ActionURL}, nil
}

// CompleteOnboarding is the direct-completion path: the seller returned from
// the processor flow, so we query current status by tracking id and apply it.
func (s *service) CompleteOnboarding(ctx context.Context, trackingID string) (*models.Seller, error) {
	if trackingID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking id required")
	}

	integration, err := s.processor.GetMerchantIntegrationByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, err
	}

	status := enums.SellerStatusPending
	if integration.MerchantID != "" && integration.PaymentsReceivable {
		status = enums.SellerStatusActive
	}

	seller, _, err := s.ApplyEligibilityEvent(ctx, EligibilityEvent{
		Source:                SourceOnboardingReturn,
		TrackingID:            trackingID,
		MerchantID:            integration.MerchantID,
		Status:                status,
		PaymentsReceivable:    integration.PaymentsReceivable,
		PrimaryEmailConfirmed: integration.PrimaryEmailConfirmed,
	})
	return seller, err
}

// ApplyEligibilityEvent resolves the target seller (tracking id first, then
// merchant id, then the onboarding session store) and applies the event
// through the idempotent merge inside a transaction.
func (s *service) ApplyEligibilityEvent(ctx context.Context, evt EligibilityEvent) (*models.Seller, bool, error) {
	seller, err := s.resolveSeller(ctx, evt)
	if err != nil {
		return nil, false, err
	}

	var (
		result  *models.Seller
		changed bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// Re-read inside the transaction so concurrent appliers merge onto
		// fresh state.
		current, err := repo.FindByID(ctx, seller.ID)
		if err != nil {
			return err
		}

		previous := current.Status
		if !merge(current, evt, time.Now().UTC()) {
			result = current
			return nil
		}
		if err := repo.Save(ctx, current); err != nil {
			return err
		}

		payload := map[string]any{
			"seller_id":           current.ID.String(),
			"previous_status":     previous.String(),
			"status":              current.Status.String(),
			"source":              string(evt.Source),
			"payments_receivable": current.PaymentsReceivable,
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSellerEligibilityChanged,
			AggregateType: enums.AggregateSeller,
			AggregateID:   current.ID,
			Data:          payload,
			Version:       1,
		}); err != nil {
			return err
		}

		if notification := eligibilityNotification(current, previous); notification != nil {
			if err := tx.Create(notification).Error; err != nil {
				return err
			}
		}

		result = current
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply eligibility event")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"seller_id": result.ID.String(),
		"status":    result.Status.String(),
		"source":    string(evt.Source),
		"changed":   changed,
	})
	s.logg.Info(logCtx, "seller eligibility event applied")
	return result, changed, nil
}

func (s *service) resolveSeller(ctx context.Context, evt EligibilityEvent) (*models.Seller, error) {
	if evt.TrackingID != "" {
		if seller, err := s.repo.FindByTrackingID(ctx, evt.TrackingID); err == nil {
			return seller, nil
		}
	}
	if evt.MerchantID != "" {
		if seller, err := s.repo.FindByMerchantID(ctx, evt.MerchantID); err == nil {
			return seller, nil
		}
	}
	if evt.TrackingID != "" {
		if raw, err := s.sessions.GetOnboardingSession(ctx, evt.TrackingID); err == nil {
			if id, parseErr := uuid.Parse(raw); parseErr == nil {
				if seller, findErr := s.repo.FindByID(ctx, id); findErr == nil {
					return seller, nil
				}
			}
		} else if !redis.IsNil(err) {
			s.logg.Warn(ctx, "onboarding session lookup failed")
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found for eligibility event")
}

// FindEligible returns the subset of the requested sellers that can receive
// split payouts, keyed by id. Missing or ineligible sellers are simply absent.
func (s *service) FindEligible(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Seller, error) {
	rows, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load sellers")
	}
	eligible := make(map[uuid.UUID]models.Seller, len(rows))
	for _, seller := range rows {
		if seller.Eligible() {
			eligible[seller.ID] = seller
		}
	}
	return eligible, nil
}

func eligibilityNotification(seller *models.Seller, previous enums.SellerStatus) *models.Notification {
	var kind enums.NotificationKind
	switch {
	case seller.Status == enums.SellerStatusActive && previous != enums.SellerStatusActive:
		kind = enums.NotificationSellerActivated
	case seller.Status == enums.SellerStatusRevoked && previous != enums.SellerStatusRevoked:
		kind = enums.NotificationSellerRevoked
	default:
		return nil
	}
	payload, _ := json.Marshal(map[string]string{
		"seller_id": seller.ID.String(),
		"status":    seller.Status.String(),
	})
	return &models.Notification{
		RecipientID: seller.UserID,
		Kind:        kind,
		Payload:     payload,
	}
}
