package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	pkgerrors "github.com/soundbay/soundbay-backend/pkg/errors"
)

// WebhookSignature collects the headers PayPal sends with each delivery.
type WebhookSignature struct {
	TransmissionID   string
	TransmissionTime string
	TransmissionSig  string
	CertURL          string
	AuthAlgo         string
}

// SignatureFromHeaders extracts the verification headers from a request.
func SignatureFromHeaders(h http.Header) WebhookSignature {
	return WebhookSignature{
		TransmissionID:   h.Get("Paypal-Transmission-Id"),
		TransmissionTime: h.Get("Paypal-Transmission-Time"),
		TransmissionSig:  h.Get("Paypal-Transmission-Sig"),
		CertURL:          h.Get("Paypal-Cert-Url"),
		AuthAlgo:         h.Get("Paypal-Auth-Algo"),
	}
}

// Complete reports whether every header required for verification is present.
func (s WebhookSignature) Complete() bool {
	return s.TransmissionID != "" && s.TransmissionTime != "" &&
		s.TransmissionSig != "" && s.CertURL != "" && s.AuthAlgo != ""
}

// VerifyWebhookSignature asks PayPal to confirm a webhook delivery is
// authentic. Returns true only on an explicit SUCCESS verdict.
func (c *Client) VerifyWebhookSignature(ctx context.Context, sig WebhookSignature, event json.RawMessage) (bool, error) {
	if !sig.Complete() {
		return false, nil
	}
	if c.webhookID == "" {
		return false, pkgerrors.New(pkgerrors.CodeDependency, "paypal webhook id not configured")
	}

	body := map[string]any{
		"transmission_id":   sig.TransmissionID,
		"transmission_time": sig.TransmissionTime,
		"transmission_sig":  sig.TransmissionSig,
		"cert_url":          sig.CertURL,
		"auth_algo":         sig.AuthAlgo,
		"webhook_id":        c.webhookID,
		"webhook_event":     event,
	}

	var payload struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/notification/verify-webhook-signature", nil, body, &payload); err != nil {
		c.log(ctx, "error", "verify_webhook_signature", map[string]any{"error": err.Error()})
		return false, err
	}

	verified := strings.EqualFold(payload.VerificationStatus, "SUCCESS")
	c.log(ctx, "response", "verify_webhook_signature", map[string]any{
		"transmission_id": sig.TransmissionID,
		"verified":        verified,
	})
	return verified, nil
}
