package paypal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	pkgerrors "github.com/soundbay/soundbay-backend/pkg/errors"
)

// APIError carries a structured PayPal API failure, including the issue codes
// PayPal reports on 4xx responses (e.g. INSTRUMENT_DECLINED).
type APIError struct {
	StatusCode int
	Name       string
	Message    string
	DebugID    string
	Details    []ErrorDetail
}

// ErrorDetail is a single entry from PayPal's details array.
type ErrorDetail struct {
	Issue       string `json:"issue"`
	Description string `json:"description"`
	Field       string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("paypal api error %d %s: %s (%s)", e.StatusCode, e.Name, e.Details[0].Issue, e.DebugID)
	}
	return fmt.Sprintf("paypal api error %d %s: %s (%s)", e.StatusCode, e.Name, e.Message, e.DebugID)
}

// HasIssue reports whether any detail entry carries the given issue code.
func (e *APIError) HasIssue(issue string) bool {
	for _, d := range e.Details {
		if strings.EqualFold(d.Issue, issue) {
			return true
		}
	}
	return false
}

func parseAPIError(status int, raw []byte) error {
	apiErr := &APIError{StatusCode: status}

	var payload struct {
		Name    string        `json:"name"`
		Message string        `json:"message"`
		DebugID string        `json:"debug_id"`
		Details []ErrorDetail `json:"details"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		apiErr.Name = payload.Name
		apiErr.Message = payload.Message
		apiErr.DebugID = payload.DebugID
		apiErr.Details = payload.Details
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}

	return pkgerrors.Wrap(domainCodeForStatus(status), apiErr, "paypal request failed")
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return pkgerrors.CodeUnauthorized
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusConflict:
		return pkgerrors.CodeConflict
	case status == http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	case status == http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case status >= 400 && status < 500:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeDependency
	}
}
