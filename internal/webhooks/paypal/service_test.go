package paypalwebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/soundbay/soundbay-backend/internal/sellers"
	"github.com/soundbay/soundbay-backend/pkg/enums"
	pkgerrors "github.com/soundbay/soundbay-backend/pkg/errors"
	"github.com/soundbay/soundbay-backend/pkg/logger"
	"github.com/soundbay/soundbay-backend/pkg/metrics"
	"github.com/soundbay/soundbay-backend/pkg/paypal"
)

type fakeVerifier struct {
	verified bool
	err      error
}

func (f *fakeVerifier) VerifyWebhookSignature(context.Context, paypal.WebhookSignature, json.RawMessage) (bool, error) {
	return f.verified, f.err
}

type fakeMerchants struct {
	integration *paypal.MerchantIntegration
	err         error
	calls       int
}

func (f *fakeMerchants) GetMerchantIntegration(_ context.Context, merchantID string) (*paypal.MerchantIntegration, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.integration != nil {
		return f.integration, nil
	}
	return &paypal.MerchantIntegration{MerchantID: merchantID, PaymentsReceivable: true}, nil
}

type fakeApplier struct {
	events  []sellers.EligibilityEvent
	changed bool
	err     error
}

func (f *fakeApplier) ApplyEligibilityEvent(_ context.Context, evt sellers.EligibilityEvent) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.events = append(f.events, evt)
	return f.changed, nil
}

type fakeGuard struct {
	seen     map[string]bool
	checkErr error
	deleted  []string
}

func (f *fakeGuard) CheckAndMark(_ context.Context, eventID string) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[eventID] {
		return true, nil
	}
	f.seen[eventID] = true
	return false, nil
}

func (f *fakeGuard) Delete(_ context.Context, eventID string) error {
	delete(f.seen, eventID)
	f.deleted = append(f.deleted, eventID)
	return nil
}

func validSignature() paypal.WebhookSignature {
	return paypal.WebhookSignature{
		TransmissionID:   "tx-1",
		TransmissionTime: "2026-01-02T03:04:05Z",
		TransmissionSig:  "sig",
		CertURL:          "https://api.paypal.test/cert",
		AuthAlgo:         "SHA256withRSA",
	}
}

func eventBody(id, eventType, merchantID, trackingID string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"id":%q,"event_type":%q,"resource":{"merchant_id":%q,"tracking_id":%q}}`,
		id, eventType, merchantID, trackingID))
}

func newTestGateway(t *testing.T, verifier *fakeVerifier, merchants *fakeMerchants, applier *fakeApplier, guard *fakeGuard) *Service {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "webhook-test", Level: zerolog.Disabled, Output: io.Discard})
	svc, err := NewService(ServiceParams{
		Verifier:    verifier,
		Merchants:   merchants,
		Eligibility: applier,
		Guard:       guard,
		Metrics:     metrics.NewCheckoutMetrics(nil),
		Logger:      logg,
	})
	require.NoError(t, err)
	return svc
}

func TestHandleDeliveryInvalidSignature(t *testing.T) {
	applier := &fakeApplier{}
	merchants := &fakeMerchants{}
	svc := newTestGateway(t, &fakeVerifier{verified: false}, merchants, applier, &fakeGuard{})

	disposition, err := svc.HandleDelivery(context.Background(),
		validSignature(), eventBody("WH-1", EventMerchantOnboardingCompleted, "M-1", "trk-1"))

	require.Error(t, err)
	require.Equal(t, DispositionRejected, disposition)
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())

	// Nothing downstream runs on a forged delivery.
	require.Empty(t, applier.events)
	require.Zero(t, merchants.calls)
}

func TestHandleDeliveryMissingHeaders(t *testing.T) {
	applier := &fakeApplier{}
	svc := newTestGateway(t, &fakeVerifier{verified: false}, &fakeMerchants{}, applier, &fakeGuard{})

	disposition, err := svc.HandleDelivery(context.Background(),
		paypal.WebhookSignature{}, eventBody("WH-1", EventMerchantOnboardingCompleted, "M-1", "trk-1"))

	require.Error(t, err)
	require.Equal(t, DispositionRejected, disposition)
	require.Empty(t, applier.events)
}

func TestHandleDeliveryOnboardingCompleted(t *testing.T) {
	applier := &fakeApplier{changed: true}
	merchants := &fakeMerchants{integration: &paypal.MerchantIntegration{
		MerchantID:            "M-7",
		TrackingID:            "trk-7",
		PaymentsReceivable:    true,
		PrimaryEmailConfirmed: true,
	}}
	svc := newTestGateway(t, &fakeVerifier{verified: true}, merchants, applier, &fakeGuard{})

	disposition, err := svc.HandleDelivery(context.Background(),
		validSignature(), eventBody("WH-2", EventMerchantOnboardingCompleted, "M-7", "trk-7"))

	require.NoError(t, err)
	require.Equal(t, DispositionProcessed, disposition)
	require.Len(t, applier.events, 1)

	evt := applier.events[0]
	require.Equal(t, sellers.SourceWebhook, evt.Source)
	require.Equal(t, "M-7", evt.MerchantID)
	require.Equal(t, "trk-7", evt.TrackingID)
	require.Equal(t, enums.SellerStatusActive, evt.Status)
	require.True(t, evt.PaymentsReceivable)
}

func TestHandleDeliveryOnboardingNotYetReceivable(t *testing.T) {
	applier := &fakeApplier{}
	merchants := &fakeMerchants{integration: &paypal.MerchantIntegration{
		MerchantID:         "M-8",
		PaymentsReceivable: false,
	}}
	svc := newTestGateway(t, &fakeVerifier{verified: true}, merchants, applier, &fakeGuard{})

	disposition, err := svc.HandleDelivery(context.Background(),
		validSignature(), eventBody("WH-3", EventMerchantOnboardingCompleted, "M-8", ""))

	require.NoError(t, err)
	require.Equal(t, DispositionProcessed, disposition)
	require.Len(t, applier.events, 1)
	require.Equal(t, enums.SellerStatusPending, applier.events[0].Status)
}

func TestHandleDeliveryConsentRevoked(t *testing.T) {
	applier := &fakeApplier{changed: true}
	merchants := &fakeMerchants{}
	svc := newTestGateway(t, &fakeVerifier{verified: true}, merchants, applier, &fakeGuard{})

	disposition, err := svc.HandleDelivery(context.Background(),
		validSignature(), eventBody("WH-4", EventMerchantConsentRevoked, "M-9", ""))

	require.NoError(t, err)
	require.Equal(t, DispositionProcessed, disposition)
	require.Len(t, applier.events, 1)
	require.Equal(t, enums.SellerStatusRevoked, applier.events[0].Status)
	// Revocation never needs the capability lookup.
	require.Zero(t, merchants.calls)
}

func TestHandleDeliveryDuplicateAcked(t *testing.T) {
	applier := &fakeApplier{changed: true}
	guard := &fakeGuard{}
	svc := newTestGateway(t, &fakeVerifier{verified: true}, &fakeMerchants{}, applier, guard)

	body := eventBody("WH-5", EventMerchantConsentRevoked, "M-5", "")

	first, err := svc.HandleDelivery(context.Background(), validSignature(), body)
	require.NoError(t, err)
	require.Equal(t, DispositionProcessed, first)

	second, err := svc.HandleDelivery(context.Background(), validSignature(), body)
	require.NoError(t, err)
	require.Equal(t, DispositionDuplicate, second)
	require.Len(t, applier.events, 1)
}

func TestHandleDeliveryUnknownEventTypeAcked(t *testing.T) {
	applier := &fakeApplier{}
	svc := newTestGateway(t, &fakeVerifier{verified: true}, &fakeMerchants{}, applier, &fakeGuard{})

	disposition, err := svc.HandleDelivery(context.Background(),
		validSignature(), eventBody("WH-6", "PAYMENT.CAPTURE.COMPLETED", "", ""))

	require.NoError(t, err)
	require.Equal(t, DispositionIgnored, disposition)
	require.Empty(t, applier.events)
}

func TestHandleDeliveryOrphanedSellerAcked(t *testing.T) {
	applier := &fakeApplier{err: pkgerrors.New(pkgerrors.CodeNotFound, "seller not found for eligibility event")}
	svc := newTestGateway(t, &fakeVerifier{verified: true}, &fakeMerchants{}, applier, &fakeGuard{})

	disposition, err := svc.HandleDelivery(context.Background(),
		validSignature(), eventBody("WH-7", EventMerchantConsentRevoked, "M-unknown", ""))

	require.NoError(t, err)
	require.Equal(t, DispositionOrphaned, disposition)
}

func TestHandleDeliveryFailureReleasesDedupMark(t *testing.T) {
	applier := &fakeApplier{err: errors.New("db down")}
	guard := &fakeGuard{}
	svc := newTestGateway(t, &fakeVerifier{verified: true}, &fakeMerchants{}, applier, guard)

	body := eventBody("WH-8", EventMerchantConsentRevoked, "M-8", "")

	_, err := svc.HandleDelivery(context.Background(), validSignature(), body)
	require.Error(t, err)
	require.Contains(t, guard.deleted, "WH-8")

	// The retry is not misclassified as a duplicate.
	applier.err = nil
	disposition, err := svc.HandleDelivery(context.Background(), validSignature(), body)
	require.NoError(t, err)
	require.Equal(t, DispositionProcessed, disposition)
}

func TestHandleDeliveryDedupStoreDownStillProcesses(t *testing.T) {
	applier := &fakeApplier{changed: true}
	guard := &fakeGuard{checkErr: errors.New("redis unavailable")}
	svc := newTestGateway(t, &fakeVerifier{verified: true}, &fakeMerchants{}, applier, guard)

	disposition, err := svc.HandleDelivery(context.Background(),
		validSignature(), eventBody("WH-9", EventMerchantConsentRevoked, "M-9", ""))

	require.NoError(t, err)
	require.Equal(t, DispositionProcessed, disposition)
	require.Len(t, applier.events, 1)
}
