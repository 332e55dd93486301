package paypalwebhook

import (
	"context"
	"encoding/json"

	"github.com/soundbay/soundbay-backend/internal/sellers"
	"github.com/soundbay/soundbay-backend/pkg/enums"
	pkgerrors "github.com/soundbay/soundbay-backend/pkg/errors"
	"github.com/soundbay/soundbay-backend/pkg/logger"
	"github.com/soundbay/soundbay-backend/pkg/metrics"
	"github.com/soundbay/soundbay-backend/pkg/paypal"
)

// Event types PayPal pushes for partner-managed merchant accounts.
const (
	EventMerchantOnboardingCompleted = "MERCHANT.ONBOARDING.COMPLETED"
	EventMerchantConsentRevoked      = "MERCHANT.PARTNER-CONSENT.REVOKED"
)

// Disposition is the terminal classification of one webhook delivery. Every
// disposition except rejected is acknowledged with a 2xx so PayPal stops
// redelivering.
type Disposition string

const (
	DispositionProcessed Disposition = "processed"
	DispositionDuplicate Disposition = "duplicate"
	DispositionIgnored   Disposition = "ignored"
	DispositionOrphaned  Disposition = "orphaned"
	DispositionRejected  Disposition = "rejected"
)

type signatureVerifier interface {
	VerifyWebhookSignature(ctx context.Context, sig paypal.WebhookSignature, event json.RawMessage) (bool, error)
}

type merchantLookup interface {
	GetMerchantIntegration(ctx context.Context, merchantID string) (*paypal.MerchantIntegration, error)
}

type eligibilityApplier interface {
	ApplyEligibilityEvent(ctx context.Context, evt sellers.EligibilityEvent) (bool, error)
}

type dedupGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// EligibilityAdapter narrows the sellers service to the surface the gateway
// needs.
type EligibilityAdapter struct {
	svc sellers.Service
}

// NewEligibilityAdapter wraps the sellers service for webhook consumption.
func NewEligibilityAdapter(svc sellers.Service) *EligibilityAdapter {
	return &EligibilityAdapter{svc: svc}
}

func (a *EligibilityAdapter) ApplyEligibilityEvent(ctx context.Context, evt sellers.EligibilityEvent) (bool, error) {
	_, changed, err := a.svc.ApplyEligibilityEvent(ctx, evt)
	return changed, err
}

type ServiceParams struct {
	Verifier    signatureVerifier
	Merchants   merchantLookup
	Eligibility eligibilityApplier
	Guard       dedupGuard
	Metrics     *metrics.CheckoutMetrics
	Logger      *logger.Logger
}

// Service is the webhook ingestion gateway: it authenticates deliveries,
// dedups them, and translates processor events into eligibility facts.
type Service struct {
	verifier    signatureVerifier
	merchants   merchantLookup
	eligibility eligibilityApplier
	guard       dedupGuard
	metrics     *metrics.CheckoutMetrics
	logg        *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "signature verifier required")
	}
	if params.Merchants == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "merchant lookup required")
	}
	if params.Eligibility == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "eligibility applier required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "dedup guard required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		verifier:    params.Verifier,
		merchants:   params.Merchants,
		eligibility: params.Eligibility,
		guard:       params.Guard,
		metrics:     params.Metrics,
		logg:        params.Logger,
	}, nil
}

type eventEnvelope struct {
	ID           string `json:"id"`
	EventType    string `json:"event_type"`
	ResourceType string `json:"resource_type"`
	Resource     struct {
		MerchantID string `json:"merchant_id"`
		TrackingID string `json:"tracking_id"`
	} `json:"resource"`
}

// HandleDelivery runs one webhook delivery end to end. A rejected disposition
// is the only one paired with an error the transport should surface as 4xx;
// no state is mutated before the signature check passes.
func (s *Service) HandleDelivery(ctx context.Context, sig paypal.WebhookSignature, body json.RawMessage) (Disposition, error) {
	verified, err := s.verifier.VerifyWebhookSignature(ctx, sig, body)
	if err != nil {
		s.count(DispositionRejected)
		return DispositionRejected, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify webhook signature")
	}
	if !verified {
		s.count(DispositionRejected)
		return DispositionRejected, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature verification failed")
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		s.count(DispositionRejected)
		return DispositionRejected, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook event")
	}
	if envelope.ID == "" {
		s.count(DispositionRejected)
		return DispositionRejected, pkgerrors.New(pkgerrors.CodeValidation, "webhook event id missing")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.ID,
		"event_type": envelope.EventType,
	})

	duplicate, err := s.guard.CheckAndMark(ctx, envelope.ID)
	if err != nil {
		// Dedup store down: process anyway, the eligibility merge is
		// idempotent so a replay converges.
		s.logg.Warn(logCtx, "webhook dedup check failed, processing without guard")
	} else if duplicate {
		s.logg.Info(logCtx, "duplicate webhook delivery acknowledged")
		s.count(DispositionDuplicate)
		return DispositionDuplicate, nil
	}

	disposition, handleErr := s.dispatch(logCtx, envelope)
	if handleErr != nil {
		// Release the mark so PayPal's retry is not swallowed as a duplicate.
		if delErr := s.guard.Delete(ctx, envelope.ID); delErr != nil {
			s.logg.Warn(logCtx, "failed to release webhook dedup mark")
		}
		s.count(disposition)
		return disposition, handleErr
	}

	s.count(disposition)
	return disposition, nil
}

func (s *Service) dispatch(ctx context.Context, envelope eventEnvelope) (Disposition, error) {
	switch envelope.EventType {
	case EventMerchantOnboardingCompleted:
		return s.applyOnboardingCompleted(ctx, envelope)
	case EventMerchantConsentRevoked:
		return s.applyConsentRevoked(ctx, envelope)
	default:
		s.logg.Info(ctx, "webhook event type not handled")
		return DispositionIgnored, nil
	}
}

// applyOnboardingCompleted re-queries the merchant's current capabilities
// rather than trusting the (sparse) event resource, then feeds the result
// through the eligibility merge.
func (s *Service) applyOnboardingCompleted(ctx context.Context, envelope eventEnvelope) (Disposition, error) {
	if envelope.Resource.MerchantID == "" {
		s.logg.Warn(ctx, "onboarding event missing merchant id")
		return DispositionIgnored, nil
	}

	integration, err := s.merchants.GetMerchantIntegration(ctx, envelope.Resource.MerchantID)
	if err != nil {
		return DispositionRejected, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load merchant integration")
	}

	status := enums.SellerStatusPending
	if integration.MerchantID != "" && integration.PaymentsReceivable {
		status = enums.SellerStatusActive
	}

	trackingID := envelope.Resource.TrackingID
	if trackingID == "" {
		trackingID = integration.TrackingID
	}

	return s.apply(ctx, sellers.EligibilityEvent{
		Source:                sellers.SourceWebhook,
		TrackingID:            trackingID,
		MerchantID:            integration.MerchantID,
		Status:                status,
		PaymentsReceivable:    integration.PaymentsReceivable,
		PrimaryEmailConfirmed: integration.PrimaryEmailConfirmed,
	})
}

func (s *Service) applyConsentRevoked(ctx context.Context, envelope eventEnvelope) (Disposition, error) {
	if envelope.Resource.MerchantID == "" {
		s.logg.Warn(ctx, "consent revocation missing merchant id")
		return DispositionIgnored, nil
	}
	return s.apply(ctx, sellers.EligibilityEvent{
		Source:     sellers.SourceWebhook,
		TrackingID: envelope.Resource.TrackingID,
		MerchantID: envelope.Resource.MerchantID,
		Status:     enums.SellerStatusRevoked,
	})
}

func (s *Service) apply(ctx context.Context, evt sellers.EligibilityEvent) (Disposition, error) {
	changed, err := s.eligibility.ApplyEligibilityEvent(ctx, evt)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			// No seller correlates to this merchant; ack so PayPal stops
			// retrying a delivery we can never route.
			s.logg.Warn(ctx, "webhook delivery does not match any seller")
			return DispositionOrphaned, nil
		}
		return DispositionRejected, err
	}
	if changed {
		s.logg.Info(ctx, "eligibility updated from webhook")
	}
	return DispositionProcessed, nil
}

func (s *Service) count(disposition Disposition) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncWebhookEvent(string(disposition))
}
