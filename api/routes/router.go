package routes

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/tapcards-backend/api/controllers"
	"github.com/angelmondragon/tapcards-backend/api/middleware"
	"github.com/angelmondragon/tapcards-backend/internal/auth"
	"github.com/angelmondragon/tapcards-backend/internal/catalog"
	"github.com/angelmondragon/tapcards-backend/internal/notifications"
	"github.com/angelmondragon/tapcards-backend/internal/orders"
	"github.com/angelmondragon/tapcards-backend/internal/payments"
	"github.com/angelmondragon/tapcards-backend/internal/pricing"
	"github.com/angelmondragon/tapcards-backend/pkg/auth/session"
	"github.com/angelmondragon/tapcards-backend/pkg/config"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	"github.com/angelmondragon/tapcards-backend/pkg/locale"
	"github.com/angelmondragon/tapcards-backend/pkg/logger"
	"github.com/angelmondragon/tapcards-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/tapcards-backend/pkg/redis"
)

// Redis is the slice of the cache client the HTTP layer uses.
type Redis interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Deps carries everything the router hands to middleware and controllers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Sessions session.AccessSessionChecker
	Redis    Redis
	Locales  *locale.Negotiator

	// LocalFiles serves uploads from disk when the local storage driver is active.
	LocalFiles http.Handler

	Readiness map[string]controllers.Pinger
	Metrics   *metrics.HTTPMetrics
	Gatherer  prometheus.Gatherer

	Auth          auth.Service
	Catalog       catalog.Service
	Pricing       pricing.Service
	Orders        orders.Service
	Payments      payments.Service
	Notifications notifications.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}

	limits := cfg.RateLimit
	loginLimit := middleware.RateLimit(middleware.RateLimitPolicy{
		Name: "login", Window: limits.LoginWindow, Limit: limits.LoginLimit, ByEmail: true,
	}, d.Redis, logg)
	registerLimit := middleware.RateLimit(middleware.RateLimitPolicy{
		Name: "register", Window: limits.RegisterWindow, Limit: limits.RegisterLimit, ByEmail: true,
	}, d.Redis, logg)
	orderLimit := middleware.RateLimit(middleware.RateLimitPolicy{
		Name: "order-create", Window: limits.OrderCreateWindow, Limit: limits.OrderCreateLimit,
	}, d.Redis, logg)
	proofLimit := middleware.RateLimit(middleware.RateLimitPolicy{
		Name: "proof-upload", Window: limits.ProofUploadWindow, Limit: limits.ProofUploadLimit,
	}, d.Redis, logg)

	idempotent := middleware.Idempotency(d.Redis, middleware.DefaultIdempotencyTTL, logg)
	decisionIdempotent := middleware.Idempotency(d.Redis, middleware.DecisionIdempotencyTTL, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Readiness))
	})
	if d.LocalFiles != nil && strings.HasPrefix(cfg.Storage.PublicBaseURL, "/") {
		base := strings.TrimRight(cfg.Storage.PublicBaseURL, "/")
		r.Handle(base+"/*", http.StripPrefix(base, d.LocalFiles))
	}
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(registerLimit).Post("/register", controllers.AuthRegister(d.Auth, logg))
			r.With(loginLimit).Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
			r.With(middleware.Auth(cfg.JWT, d.Sessions, logg)).Post("/logout", controllers.AuthLogout(d.Auth, logg))
		})

		r.Get("/packs", controllers.ListPacks(d.Catalog, d.Locales, logg))
		r.Get("/packs/{packId}", controllers.GetPack(d.Catalog, d.Locales, logg))
		r.Post("/quotes", controllers.CreateQuote(d.Pricing, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, d.Sessions, logg))
			r.With(orderLimit, idempotent).Post("/orders", controllers.CreateOrder(d.Orders, cfg.Uploads, logg))
			r.Get("/orders/{reference}", controllers.GetOrderByReference(d.Orders, logg))
			r.With(proofLimit, idempotent).Post("/orders/{reference}/payment-proof", controllers.SubmitPaymentProof(d.Payments, cfg.Uploads, logg))
		})

		r.Route("/me", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
			r.Get("/orders", controllers.ListMyOrders(d.Orders, logg))
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(d.Notifications, controllers.CustomerInbox, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(d.Notifications, controllers.CustomerInbox, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(d.Notifications, controllers.CustomerInbox, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(d.Orders, logg))
			r.Get("/{orderId}", controllers.AdminGetOrder(d.Orders, logg))
			r.With(idempotent).Post("/{orderId}/ship", controllers.AdminShipOrder(d.Orders, logg))
			r.With(idempotent).Post("/{orderId}/deliver", controllers.AdminDeliverOrder(d.Orders, logg))
			r.With(idempotent).Post("/{orderId}/cancel", controllers.AdminCancelOrder(d.Orders, logg))
			r.With(idempotent).Delete("/{orderId}", controllers.AdminDeleteOrder(d.Orders, logg))
			r.With(idempotent).Post("/{orderId}/payment-validations", controllers.AdminSubmitPaymentProof(d.Payments, cfg.Uploads, logg))
		})

		r.Route("/payment-validations", func(r chi.Router) {
			r.Get("/", controllers.AdminListPaymentValidations(d.Payments, logg))
			r.Get("/{validationId}", controllers.AdminGetPaymentValidation(d.Payments, logg))
			r.With(decisionIdempotent).Post("/{validationId}/approve", controllers.AdminApprovePayment(d.Payments, logg))
			r.With(decisionIdempotent).Post("/{validationId}/reject", controllers.AdminRejectPayment(d.Payments, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(d.Notifications, controllers.AdminInbox, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(d.Notifications, controllers.AdminInbox, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(d.Notifications, controllers.AdminInbox, logg))
		})
	})

	return r
}
