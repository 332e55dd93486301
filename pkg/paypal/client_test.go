package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/soundbay/soundbay-backend/pkg/config"
	"github.com/soundbay/soundbay-backend/pkg/enums"
	"github.com/soundbay/soundbay-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "paypal-test", Level: zerolog.Disabled, Output: io.Discard})
}

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.PayPalConfig{
		ClientID:  "client-id",
		Secret:    "client-secret",
		Env:       "sandbox",
		WebhookID: "wh-1",
		PartnerID: "partner-1",
		Timeout:   5 * time.Second,
	}
	client, err := NewClient(context.Background(), cfg, testLogger(), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, srv
}

func writeToken(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": "token-1",
		"expires_in":   3600,
	})
}

func TestAccessTokenCached(t *testing.T) {
	t.Parallel()

	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			t.Errorf("unexpected basic auth %q/%q", user, pass)
		}
		writeToken(w)
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("unexpected authorization header %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "ORD-1", "status": "CREATED"})
	})

	client, _ := testClient(t, mux)

	req := OrderRequest{PurchaseUnits: []PurchaseUnit{{Amount: Amount{CurrencyCode: "USD", Value: "10.00"}}}}
	for i := 0; i < 3; i++ {
		if _, err := client.CreateOrder(context.Background(), req, "req-1"); err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
	}

	if tokenCalls != 1 {
		t.Fatalf("expected a single token fetch, got %d", tokenCalls)
	}
}

func TestCreateOrderSendsRequestID(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, _ *http.Request) { writeToken(w) })
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("PayPal-Request-Id"); got != "checkout-42" {
			t.Errorf("expected request id header, got %q", got)
		}
		var body OrderRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Intent != "CAPTURE" {
			t.Errorf("expected CAPTURE intent, got %q", body.Intent)
		}
		if len(body.PurchaseUnits) != 2 {
			t.Errorf("expected 2 purchase units, got %d", len(body.PurchaseUnits))
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "ORD-2", "status": "CREATED"})
	})

	client, _ := testClient(t, mux)

	req := OrderRequest{PurchaseUnits: []PurchaseUnit{
		{ReferenceID: "seller-a", Amount: Amount{CurrencyCode: "USD", Value: "5.00"}},
		{ReferenceID: "seller-b", Amount: Amount{CurrencyCode: "USD", Value: "7.50"}},
	}}
	result, err := client.CreateOrder(context.Background(), req, "checkout-42")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if result.ID != "ORD-2" {
		t.Fatalf("unexpected order id %q", result.ID)
	}
}

func TestCaptureOrderSuccess(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, _ *http.Request) { writeToken(w) })
	mux.HandleFunc("/v2/checkout/orders/ORD-3/capture", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("PayPal-Auth-Assertion"); got == "" {
			t.Error("expected auth assertion header for on-behalf-of capture")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "ORD-3",
			"status": "COMPLETED",
			"purchase_units": []map[string]any{
				{"payments": map[string]any{"captures": []map[string]any{{"id": "CAP-1", "status": "COMPLETED"}}}},
			},
		})
	})

	client, _ := testClient(t, mux)

	result, err := client.CaptureOrder(context.Background(), "ORD-3", CaptureOptions{RequestID: "cap-1", MerchantID: "M-1"})
	if err != nil {
		t.Fatalf("CaptureOrder: %v", err)
	}
	if !result.Completed() {
		t.Fatalf("expected completed capture, got status %q", result.Status)
	}
	if len(result.CaptureIDs) != 1 || result.CaptureIDs[0] != "CAP-1" {
		t.Fatalf("unexpected capture ids %v", result.CaptureIDs)
	}
}

func TestCaptureOrderLargeMultipartyResponse(t *testing.T) {
	t.Parallel()

	// Ten purchase units with receivable breakdowns and HATEOAS links, the
	// shape PayPal returns for a multi-seller capture at the routing limit.
	units := make([]map[string]any, 0, 10)
	for i := 0; i < 10; i++ {
		captureID := fmt.Sprintf("CAP-%02d", i)
		units = append(units, map[string]any{
			"reference_id": fmt.Sprintf("seller-%02d", i),
			"payments": map[string]any{
				"captures": []map[string]any{{
					"id":     captureID,
					"status": "COMPLETED",
					"amount": map[string]string{"currency_code": "USD", "value": "12.99"},
					"seller_receivable_breakdown": map[string]any{
						"gross_amount": map[string]string{"currency_code": "USD", "value": "12.99"},
						"paypal_fee":   map[string]string{"currency_code": "USD", "value": "0.68"},
						"net_amount":   map[string]string{"currency_code": "USD", "value": "10.36"},
						"platform_fees": []map[string]any{{
							"amount": map[string]string{"currency_code": "USD", "value": "1.95"},
							"payee":  map[string]string{"merchant_id": "PLATFORM-MERCHANT-1"},
						}},
					},
					"links": []map[string]string{
						{"rel": "self", "href": "https://api-m.sandbox.paypal.com/v2/payments/captures/" + captureID, "method": "GET"},
						{"rel": "refund", "href": "https://api-m.sandbox.paypal.com/v2/payments/captures/" + captureID + "/refund", "method": "POST"},
						{"rel": "up", "href": "https://api-m.sandbox.paypal.com/v2/checkout/orders/ORD-6", "method": "GET"},
					},
				}},
			},
		})
	}
	body, err := json.Marshal(map[string]any{
		"id":             "ORD-6",
		"status":         "COMPLETED",
		"purchase_units": units,
	})
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if len(body) <= 4096 {
		t.Fatalf("fixture must exceed 4096 bytes to cover large responses, got %d", len(body))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, _ *http.Request) { writeToken(w) })
	mux.HandleFunc("/v2/checkout/orders/ORD-6/capture", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})

	client, _ := testClient(t, mux)

	result, err := client.CaptureOrder(context.Background(), "ORD-6", CaptureOptions{RequestID: "cap-large"})
	if err != nil {
		t.Fatalf("CaptureOrder: %v", err)
	}
	if !result.Completed() {
		t.Fatalf("expected completed capture, got status %q", result.Status)
	}
	if len(result.CaptureIDs) != 10 {
		t.Fatalf("expected 10 capture ids, got %d", len(result.CaptureIDs))
	}
}

func TestCaptureOrderDecline(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, _ *http.Request) { writeToken(w) })
	mux.HandleFunc("/v2/checkout/orders/ORD-4/capture", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":    "UNPROCESSABLE_ENTITY",
			"message": "The requested action could not be performed.",
			"details": []map[string]string{{"issue": "INSUFFICIENT_FUNDS"}},
		})
	})

	client, _ := testClient(t, mux)

	_, err := client.CaptureOrder(context.Background(), "ORD-4", CaptureOptions{RequestID: "cap-2"})
	if err == nil {
		t.Fatal("expected decline error")
	}
	decline, ok := AsDecline(err)
	if !ok {
		t.Fatalf("expected DeclineError, got %v", err)
	}
	if decline.Reason != enums.DeclineReasonInsufficientFunds {
		t.Fatalf("unexpected decline reason %q", decline.Reason)
	}
}

func TestCaptureOrderServerError(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, _ *http.Request) { writeToken(w) })
	mux.HandleFunc("/v2/checkout/orders/ORD-5/capture", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "INTERNAL_SERVER_ERROR"})
	})

	client, _ := testClient(t, mux)

	_, err := client.CaptureOrder(context.Background(), "ORD-5", CaptureOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := AsDecline(err); ok {
		t.Fatal("server errors must not classify as declines")
	}
}

func TestCreatePartnerReferral(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, _ *http.Request) { writeToken(w) })
	mux.HandleFunc("/v2/customer/partner-referrals", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode referral body: %v", err)
		}
		if body["tracking_id"] != "trk-1" {
			t.Errorf("unexpected tracking id %v", body["tracking_id"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"links": []map[string]string{
				{"rel": "self", "href": "https://example.test/self"},
				{"rel": "action_url", "href": "https://example.test/onboard"},
			},
		})
	})

	client, _ := testClient(t, mux)

	result, err := client.CreatePartnerReferral(context.Background(), ReferralRequest{
		TrackingID: "trk-1",
		Email:      "seller@example.test",
	})
	if err != nil {
		t.Fatalf("CreatePartnerReferral: %v", err)
	}
	if result.ActionURL != "https://example.test/onboard" {
		t.Fatalf("unexpected action url %q", result.ActionURL)
	}
}

func TestGetMerchantIntegrationByTrackingID(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, _ *http.Request) { writeToken(w) })
	mux.HandleFunc("/v1/customer/partners/partner-1/merchant-integrations", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("tracking_id"); got != "trk-2" {
			t.Errorf("unexpected tracking id %q", got)
		}
		_ = json.NewEncoder(w).Encode(MerchantIntegration{
			MerchantID:            "M-2",
			TrackingID:            "trk-2",
			PaymentsReceivable:    true,
			PrimaryEmailConfirmed: true,
		})
	})

	client, _ := testClient(t, mux)

	integration, err := client.GetMerchantIntegrationByTrackingID(context.Background(), "trk-2")
	if err != nil {
		t.Fatalf("GetMerchantIntegrationByTrackingID: %v", err)
	}
	if integration.MerchantID != "M-2" || !integration.PaymentsReceivable {
		t.Fatalf("unexpected integration %+v", integration)
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	t.Parallel()

	verdict := "SUCCESS"
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, _ *http.Request) { writeToken(w) })
	mux.HandleFunc("/v1/notification/verify-webhook-signature", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode verify body: %v", err)
		}
		if body["webhook_id"] != "wh-1" {
			t.Errorf("unexpected webhook id %v", body["webhook_id"])
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"verification_status": verdict})
	})

	client, _ := testClient(t, mux)

	sig := WebhookSignature{
		TransmissionID:   "tx-1",
		TransmissionTime: "2026-01-01T00:00:00Z",
		TransmissionSig:  "sig",
		CertURL:          "https://api.paypal.test/cert",
		AuthAlgo:         "SHA256withRSA",
	}
	ok, err := client.VerifyWebhookSignature(context.Background(), sig, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("VerifyWebhookSignature: %v", err)
	}
	if !ok {
		t.Fatal("expected verification to pass")
	}

	verdict = "FAILURE"
	ok, err = client.VerifyWebhookSignature(context.Background(), sig, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("VerifyWebhookSignature: %v", err)
	}
	if ok {
		t.Fatal("expected verification to fail")
	}
}

func TestVerifyWebhookSignatureMissingHeaders(t *testing.T) {
	t.Parallel()

	client, _ := testClient(t, http.NewServeMux())

	ok, err := client.VerifyWebhookSignature(context.Background(), WebhookSignature{}, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("VerifyWebhookSignature: %v", err)
	}
	if ok {
		t.Fatal("incomplete headers must never verify")
	}
}

func TestFormatCents(t *testing.T) {
	t.Parallel()

	cases := map[int]string{
		0:     "0.00",
		1:     "0.01",
		999:   "9.99",
		1250:  "12.50",
		10000: "100.00",
	}
	for cents, want := range cases {
		if got := FormatCents(cents); got != want {
			t.Errorf("FormatCents(%d) = %q, want %q", cents, got, want)
		}
	}
}
