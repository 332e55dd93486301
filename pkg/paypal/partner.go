package paypal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/soundbay/soundbay-backend/pkg/errors"
)

// ReferralRequest starts a partner onboarding flow for a seller.
type ReferralRequest struct {
	TrackingID string
	Email      string
	ReturnURL  string
}

// ReferralResult carries the hosted onboarding URL the seller is redirected to.
type ReferralResult struct {
	ActionURL string
}

// CreatePartnerReferral registers an onboarding referral and returns the
// action_url the seller must visit to grant consent.
func (c *Client) CreatePartnerReferral(ctx context.Context, req ReferralRequest) (*ReferralResult, error) {
	if strings.TrimSpace(req.TrackingID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking id is required")
	}

	body := map[string]any{
		"tracking_id": req.TrackingID,
		"email":       req.Email,
		"operations": []map[string]any{
			{
				"operation": "API_INTEGRATION",
				"api_integration_preference": map[string]any{
					"rest_api_integration": map[string]any{
						"integration_method": "PAYPAL",
						"integration_type":   "THIRD_PARTY",
						"third_party_details": map[string]any{
							"features": []string{"PAYMENT", "REFUND", "PARTNER_FEE"},
						},
					},
				},
			},
		},
		"products": []string{"EXPRESS_CHECKOUT"},
		"legal_consents": []map[string]any{
			{"type": "SHARE_DATA_CONSENT", "granted": true},
		},
	}
	if req.ReturnURL != "" {
		body["partner_config_override"] = map[string]any{"return_url": req.ReturnURL}
	}

	c.log(ctx, "request", "create_partner_referral", map[string]any{
		"tracking_id": req.TrackingID,
		"email":       req.Email,
	})

	var payload struct {
		Links []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}
	if err := c.do(ctx, http.MethodPost, "/v2/customer/partner-referrals", nil, body, &payload); err != nil {
		c.log(ctx, "error", "create_partner_referral", map[string]any{"error": err.Error()})
		return nil, err
	}

	result := &ReferralResult{}
	for _, link := range payload.Links {
		if strings.EqualFold(link.Rel, "action_url") {
			result.ActionURL = link.Href
		}
	}
	if result.ActionURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "partner referral response missing action url")
	}

	c.log(ctx, "response", "create_partner_referral", map[string]any{
		"tracking_id": req.TrackingID,
	})
	return result, nil
}

// MerchantIntegration is the processor's view of a connected seller account.
type MerchantIntegration struct {
	MerchantID            string `json:"merchant_id"`
	TrackingID            string `json:"tracking_id"`
	PaymentsReceivable    bool   `json:"payments_receivable"`
	PrimaryEmailConfirmed bool   `json:"primary_email_confirmed"`
}

// GetMerchantIntegrationByTrackingID looks up a connected account by the
// tracking id minted at referral time.
func (c *Client) GetMerchantIntegrationByTrackingID(ctx context.Context, trackingID string) (*MerchantIntegration, error) {
	if strings.TrimSpace(trackingID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking id is required")
	}
	if c.partnerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paypal partner id not configured")
	}

	path := fmt.Sprintf("/v1/customer/partners/%s/merchant-integrations?tracking_id=%s",
		url.PathEscape(c.partnerID), url.QueryEscape(trackingID))

	var result MerchantIntegration
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &result); err != nil {
		c.log(ctx, "error", "get_merchant_integration", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "get_merchant_integration", map[string]any{
		"tracking_id":         trackingID,
		"payments_receivable": result.PaymentsReceivable,
	})
	return &result, nil
}

// GetMerchantIntegration looks up a connected account by its merchant id.
func (c *Client) GetMerchantIntegration(ctx context.Context, merchantID string) (*MerchantIntegration, error) {
	if strings.TrimSpace(merchantID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant id is required")
	}
	if c.partnerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paypal partner id not configured")
	}

	path := fmt.Sprintf("/v1/customer/partners/%s/merchant-integrations/%s",
		url.PathEscape(c.partnerID), url.PathEscape(merchantID))

	var result MerchantIntegration
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &result); err != nil {
		c.log(ctx, "error", "get_merchant_integration", map[string]any{"error": err.Error()})
		return nil, err
	}
	return &result, nil
}
