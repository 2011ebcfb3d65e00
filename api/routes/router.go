package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maribelreyes/omflow-backend/api/controllers"
	"github.com/maribelreyes/omflow-backend/api/middleware"
	"github.com/maribelreyes/omflow-backend/internal/bookings"
	"github.com/maribelreyes/omflow-backend/internal/contacts"
	"github.com/maribelreyes/omflow-backend/internal/events"
	"github.com/maribelreyes/omflow-backend/internal/jobs"
	"github.com/maribelreyes/omflow-backend/internal/leads"
	"github.com/maribelreyes/omflow-backend/internal/offerings"
	"github.com/maribelreyes/omflow-backend/pkg/config"
	"github.com/maribelreyes/omflow-backend/pkg/db"
	"github.com/maribelreyes/omflow-backend/pkg/logger"
	"github.com/maribelreyes/omflow-backend/pkg/redis"
)

// Params carries everything the router wires together.
type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         db.Pinger
	Redis      *redis.Client
	Leads      leads.Service
	Contacts   contacts.Service
	Events     events.Service
	Jobs       jobs.Service
	Bookings   bookings.Service
	Offerings  offerings.Service
	Dispatcher controllers.DispatchRunner
	Gatherer   prometheus.Gatherer
}

func NewRouter(params Params) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	capturePolicy := middleware.NewCaptureRateLimitPolicy(
		"capture",
		cfg.CaptureLimit.Window,
		cfg.CaptureLimit.IPLimit,
		cfg.CaptureLimit.EmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	if params.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public/v1", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.With(middleware.CaptureRateLimit(capturePolicy, params.Redis, logg)).
			Post("/leads", controllers.CaptureLead(params.Leads, logg))
		r.Get("/unsubscribe", controllers.Unsubscribe(params.Contacts, logg))
		r.Post("/resubscribe", controllers.Resubscribe(params.Contacts, logg))
	})

	r.Route("/api/internal/v1", func(r chi.Router) {
		r.Use(middleware.InternalAuth(cfg.InternalAuth, logg))

		r.Get("/ping", controllers.InternalPing())

		r.Post("/events", controllers.TrackEvent(params.Events, logg))
		r.Get("/events", controllers.ListEvents(params.Events, logg))

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", controllers.EnqueueJob(params.Jobs, logg))
			r.Post("/cancel", controllers.CancelJobs(params.Jobs, logg))
			r.Get("/", controllers.ListJobs(params.Jobs, logg))
		})

		r.Route("/offerings", func(r chi.Router) {
			r.Post("/", controllers.CreateOffering(params.Offerings, logg))
			r.Get("/{offeringId}", controllers.GetOffering(params.Offerings, logg))
		})

		r.Post("/bookings/confirm", controllers.ConfirmBooking(params.Bookings, logg))

		r.Post("/dispatch/run", controllers.RunDispatch(params.Dispatcher, logg))
	})

	return r
}
