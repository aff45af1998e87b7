package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront/pkg/redis"
)

// Dependencies are the collaborators the HTTP surface is built from.
// RateLimiter and Idempotency are optional; leave them nil to disable the
// matching middleware.
type Dependencies struct {
	Sessions    controllers.SessionSource
	Readiness   map[string]controllers.Pinger
	RateLimiter middleware.RateLimiterStore
	Idempotency pkgredis.IdempotencyStore
	Gatherer    prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins, cfg.Session.Header),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	cartPolicy := middleware.NewRateLimitPolicy(
		"cart",
		cfg.RateLimit.Window,
		cfg.RateLimit.SessionLimit,
		cfg.RateLimit.IPLimit,
	)
	mutation := chi.Chain(
		middleware.RateLimit(cartPolicy, deps.RateLimiter, logg),
		middleware.Idempotency(deps.Idempotency, cfg.RateLimit.IdempotencyTTL, logg),
	)

	sessions := deps.Sessions
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(cfg.Session, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(sessions, logg))
			r.With(mutation...).Delete("/", controllers.CartClear(sessions, logg))
			r.With(mutation...).Post("/items", controllers.CartAddItem(sessions, logg))
			r.With(mutation...).Post("/items/{lineItemId}/increase", controllers.CartIncreaseItem(sessions, logg))
			r.With(mutation...).Post("/items/{lineItemId}/decrease", controllers.CartDecreaseItem(sessions, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.InventorySnapshot(sessions, logg))
			r.Get("/{variantId}", controllers.InventoryVariant(sessions, logg))
			r.Post("/availability", controllers.InventoryAvailability(sessions, logg))
			r.With(mutation...).Post("/reset", controllers.InventoryReset(sessions, logg))
			r.Post("/refresh", controllers.InventoryRefresh(sessions, logg))
		})
	})

	return r
}
