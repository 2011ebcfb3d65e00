package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/maribelreyes/omflow-backend/api/routes"
	"github.com/maribelreyes/omflow-backend/internal/bookings"
	"github.com/maribelreyes/omflow-backend/internal/contacts"
	"github.com/maribelreyes/omflow-backend/internal/dispatch"
	"github.com/maribelreyes/omflow-backend/internal/events"
	"github.com/maribelreyes/omflow-backend/internal/jobs"
	"github.com/maribelreyes/omflow-backend/internal/leads"
	"github.com/maribelreyes/omflow-backend/internal/nudges"
	"github.com/maribelreyes/omflow-backend/internal/offerings"
	"github.com/maribelreyes/omflow-backend/internal/templates"
	"github.com/maribelreyes/omflow-backend/internal/throttle"
	"github.com/maribelreyes/omflow-backend/pkg/config"
	"github.com/maribelreyes/omflow-backend/pkg/db"
	"github.com/maribelreyes/omflow-backend/pkg/logger"
	"github.com/maribelreyes/omflow-backend/pkg/mailer"
	"github.com/maribelreyes/omflow-backend/pkg/metrics"
	"github.com/maribelreyes/omflow-backend/pkg/migrate"
	"github.com/maribelreyes/omflow-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	contactsRepo := contacts.NewRepository(dbClient.DB())
	eventsRepo := events.NewRepository(dbClient.DB())
	offeringsRepo := offerings.NewRepository(dbClient.DB())
	bookingsRepo := bookings.NewRepository(dbClient.DB())
	jobsRepo := jobs.NewRepository(dbClient.DB())

	contactsService, err := contacts.NewService(contactsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create contacts service", err)
		os.Exit(1)
	}

	eventsService, err := events.NewService(eventsRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create events service", err)
		os.Exit(1)
	}

	offeringsService, err := offerings.NewService(offeringsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create offerings service", err)
		os.Exit(1)
	}

	throttleService, err := throttle.NewService(throttle.Params{
		Contacts: contactsRepo,
		Events:   eventsRepo,
		Bookings: bookingsRepo,
		Sends:    jobsRepo,
		Config:   cfg.Automation,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create throttle service", err)
		os.Exit(1)
	}

	jobsService, err := jobs.NewService(jobs.Params{
		Repo:   jobsRepo,
		Policy: throttleService,
		Config: cfg.Automation,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create jobs service", err)
		os.Exit(1)
	}

	leadsService, err := leads.NewService(leads.Params{
		Contacts: contactsService,
		Events:   eventsService,
		Queue:    jobsService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create leads service", err)
		os.Exit(1)
	}

	bookingsService, err := bookings.NewService(bookings.Params{
		Repo:      bookingsRepo,
		Offerings: offeringsService,
		Contacts:  contactsService,
		Events:    eventsService,
		Queue:     jobsService,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create bookings service", err)
		os.Exit(1)
	}

	nudgeGenerator, err := nudges.NewGenerator(nudges.Params{
		Offerings: offeringsRepo,
		Attendees: bookingsRepo,
		Queue:     jobsService,
		Config:    cfg.Automation,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create nudge generator", err)
		os.Exit(1)
	}

	dispatcher, err := dispatch.NewDispatcher(dispatch.Params{
		Queue:    jobsService,
		Policy:   throttleService,
		Contacts: contactsService,
		Renderer: templates.NewRenderer(cfg.App.BaseURL),
		Sender:   mailer.New(cfg.Mailer, logg),
		Tracker:  eventsService,
		Nudges:   nudgeGenerator,
		Metrics:  metrics.NewDispatchMetrics(prometheus.DefaultRegisterer),
		Config:   cfg.Automation,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:     cfg,
			Logger:     logg,
			DB:         dbClient,
			Redis:      redisClient,
			Leads:      leadsService,
			Contacts:   contactsService,
			Events:     eventsService,
			Jobs:       jobsService,
			Bookings:   bookingsService,
			Offerings:  offeringsService,
			Dispatcher: dispatcher,
			Gatherer:   prometheus.DefaultGatherer,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
