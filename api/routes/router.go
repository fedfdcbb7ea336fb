package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/skawsh-sack/api/controllers"
	ordercontrollers "github.com/angelmondragon/skawsh-sack/api/controllers/orders"
	sackcontrollers "github.com/angelmondragon/skawsh-sack/api/controllers/sack"
	"github.com/angelmondragon/skawsh-sack/api/middleware"
	"github.com/angelmondragon/skawsh-sack/internal/catalog"
	"github.com/angelmondragon/skawsh-sack/internal/orders"
	"github.com/angelmondragon/skawsh-sack/internal/totals"
	"github.com/angelmondragon/skawsh-sack/pkg/config"
	"github.com/angelmondragon/skawsh-sack/pkg/logger"
	"github.com/angelmondragon/skawsh-sack/pkg/metrics"
	"github.com/angelmondragon/skawsh-sack/pkg/redis"
)

// Deps carries everything the HTTP surface is wired to.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	Metrics    *metrics.SackMetrics
	Gatherer   prometheus.Gatherer
	Catalog    catalog.Catalog
	Sessions   middleware.SessionResolver
	Aggregator *totals.Aggregator
	Coupons    *totals.CouponBook
	Orders     *orders.Service
	// Idempotency is optional; order writes are not deduplicated without it.
	Idempotency redis.IdempotencyStore
	// Pingers are checked by /health/ready, keyed by dependency name.
	Pingers map[string]controllers.Pinger
	// EventHeartbeat overrides the keep-alive interval of the sack event stream.
	EventHeartbeat time.Duration
}

func NewRouter(d Deps) http.Handler {
	logg := d.Logger
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, d.Metrics),
		middleware.CORS(d.Config.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(d.Config.App.Env))
		r.Get("/ready", controllers.HealthReady(d.Config.App.Env, d.Pingers, logg))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/studios/{studioID}/services", controllers.StudioServices(d.Catalog, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(d.Sessions, logg))

			r.Route("/sack", func(r chi.Router) {
				r.Get("/", sackcontrollers.Fetch(d.Aggregator, logg))
				r.Delete("/", sackcontrollers.Clear(d.Aggregator, logg))
				r.Get("/bar", sackcontrollers.Bar(logg))
				r.Get("/events", sackcontrollers.Events(d.Aggregator, d.EventHeartbeat, logg))
				r.Get("/totals", sackcontrollers.Totals(d.Aggregator, logg))

				r.Post("/items", sackcontrollers.AddItem(d.Catalog, d.Aggregator, logg))
				r.Patch("/items/{serviceID}/step", sackcontrollers.Step(d.Aggregator, logg))
				r.Put("/items/{serviceID}/sub-items", sackcontrollers.UpdateSubItems(d.Aggregator, logg))
				r.Delete("/items/{serviceID}", sackcontrollers.RemoveItem(d.Aggregator, logg))

				r.Put("/fulfillment", sackcontrollers.SetFulfillment(d.Aggregator, logg))
				r.Post("/conflict/resolve", sackcontrollers.ResolveConflict(d.Aggregator, logg))
				r.Delete("/conflict", sackcontrollers.DismissConflict(d.Aggregator, logg))

				r.Post("/coupon", sackcontrollers.ApplyCoupon(d.Coupons, d.Aggregator, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Use(middleware.Idempotency(d.Idempotency, logg))

				r.Post("/", ordercontrollers.Place(d.Orders, logg))
				r.Get("/", ordercontrollers.List(d.Orders, logg))
				r.Get("/{orderID}", ordercontrollers.Detail(d.Orders, logg))
				r.Post("/{orderID}/cancel", ordercontrollers.Cancel(d.Orders, logg))
				r.Post("/{orderID}/advance", ordercontrollers.Advance(d.Orders, logg))
				r.Delete("/{orderID}", ordercontrollers.Delete(d.Orders, logg))
			})
		})
	})

	return r
}
