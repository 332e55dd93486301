package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/soundbay/soundbay-backend/api/controllers"
	webhookcontrollers "github.com/soundbay/soundbay-backend/api/controllers/webhooks"
	"github.com/soundbay/soundbay-backend/api/middleware"
	cartsvc "github.com/soundbay/soundbay-backend/internal/cart"
	"github.com/soundbay/soundbay-backend/internal/catalog"
	checkoutsvc "github.com/soundbay/soundbay-backend/internal/checkout"
	"github.com/soundbay/soundbay-backend/internal/notifications"
	"github.com/soundbay/soundbay-backend/internal/sellers"
	paypalwebhook "github.com/soundbay/soundbay-backend/internal/webhooks/paypal"
	"github.com/soundbay/soundbay-backend/pkg/config"
	"github.com/soundbay/soundbay-backend/pkg/db"
	"github.com/soundbay/soundbay-backend/pkg/enums"
	"github.com/soundbay/soundbay-backend/pkg/logger"
	"github.com/soundbay/soundbay-backend/pkg/redis"
)

// Onboarding and registration call the processor, so they carry a tighter
// per-actor budget than regular mutations.
const (
	sellerRateLimit       = 10
	sellerRateLimitWindow = time.Minute
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	catalogService catalog.Service,
	sellerService sellers.Service,
	cartService cartsvc.Service,
	checkoutService checkoutsvc.Service,
	notificationsRepo notifications.Repository,
	paypalWebhookService *paypalwebhook.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	auth := middleware.Auth(cfg.JWT, logg)
	idem := middleware.Idempotency(redisClient, logg)
	sellerLimit := middleware.RateLimit(redisClient, logg, sellerRateLimit, sellerRateLimitWindow)
	publishRole := middleware.RequireRole(logg, string(enums.RoleSeller), string(enums.RoleAdmin))

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	// Webhook deliveries authenticate via signature verification, not JWT.
	r.Post("/api/v1/webhooks/paypal", webhookcontrollers.PayPalWebhook(paypalWebhookService, logg))

	// Storefront reads are public; publishing requires a seller or admin token.
	r.Get("/api/v1/tracks", controllers.TrackList(catalogService, logg))
	r.Get("/api/v1/tracks/{trackID}", controllers.TrackDetail(catalogService, logg))
	r.With(auth, publishRole, idem).Post("/api/v1/tracks", controllers.TrackPublish(catalogService, sellerService, logg))

	r.Route("/api", func(r chi.Router) {
		r.Use(auth)

		r.Get("/v1/cart", controllers.CartFetch(cartService, logg))
		r.With(idem).Post("/v1/cart", controllers.CartAdd(cartService, logg))
		r.Delete("/v1/cart", controllers.CartClear(cartService, logg))
		r.Delete("/v1/cart/{trackID}", controllers.CartRemove(cartService, logg))

		r.With(idem).Post("/v1/orders", controllers.OrderCreate(checkoutService, logg))
		r.Get("/v1/orders", controllers.OrderList(checkoutService, logg))
		r.Get("/v1/orders/{orderID}", controllers.OrderDetail(checkoutService, logg))
		r.With(idem).Post("/v1/orders/{orderID}/capture", controllers.OrderCapture(checkoutService, logg))

		r.With(sellerLimit, idem).Post("/v1/sellers", controllers.SellerRegister(sellerService, logg))
		r.Get("/v1/sellers/me", controllers.SellerMe(sellerService, logg))
		r.With(sellerLimit, idem).Post("/v1/sellers/me/onboarding", controllers.SellerStartOnboarding(sellerService, logg))
		r.With(sellerLimit).Post("/v1/sellers/me/onboarding/complete", controllers.SellerCompleteOnboarding(sellerService, logg))

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.NotificationList(notificationsRepo, logg))
			r.Post("/{notificationID}/read", controllers.NotificationMarkRead(notificationsRepo, logg))
			r.Post("/read-all", controllers.NotificationMarkAllRead(notificationsRepo, logg))
		})
	})

	return r
}
