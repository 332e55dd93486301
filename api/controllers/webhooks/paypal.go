package webhookcontrollers

import (
	"io"
	"net/http"

	"github.com/soundbay/soundbay-backend/api/responses"
	paypalwebhook "github.com/soundbay/soundbay-backend/internal/webhooks/paypal"
	pkgerrors "github.com/soundbay/soundbay-backend/pkg/errors"
	"github.com/soundbay/soundbay-backend/pkg/logger"
	"github.com/soundbay/soundbay-backend/pkg/paypal"
)

// maxWebhookBody bounds a delivery payload; PayPal events are small.
const maxWebhookBody = 1 << 20

// PayPalWebhook receives webhook deliveries from PayPal. Anything that is not
// an outright rejection is acknowledged with a 2xx so PayPal stops retrying.
func PayPalWebhook(svc *paypalwebhook.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body"))
			return
		}

		sig := paypal.SignatureFromHeaders(r.Header)
		disposition, err := svc.HandleDelivery(r.Context(), sig, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"disposition": string(disposition)})
	}
}
