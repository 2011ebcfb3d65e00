package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/maribelreyes/omflow-backend/internal/bookings"
	"github.com/maribelreyes/omflow-backend/internal/contacts"
	"github.com/maribelreyes/omflow-backend/internal/cron"
	"github.com/maribelreyes/omflow-backend/internal/dispatch"
	"github.com/maribelreyes/omflow-backend/internal/events"
	"github.com/maribelreyes/omflow-backend/internal/jobs"
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

const lockKeyFormat = "om:automation-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "automation-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "automation-worker"

	logg = logger.New(logger.Options{
		ServiceName: "automation-worker",
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
		WorkerID: workerID(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher", err)
		os.Exit(1)
	}

	dispatchJob, err := cron.NewDispatchJob(cron.DispatchJobParams{
		Logger:     logg,
		Dispatcher: dispatcher,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch job", err)
		os.Exit(1)
	}

	eventRetentionJob, err := cron.NewEventRetentionJob(cron.EventRetentionJobParams{
		Logger:     logg,
		Repository: eventsRepo,
		Retention:  cfg.Automation.EventRetentionDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create event retention job", err)
		os.Exit(1)
	}

	jobRetentionJob, err := cron.NewJobRetentionJob(cron.JobRetentionJobParams{
		Logger:     logg,
		Repository: jobsRepo,
		Retention:  cfg.Automation.JobRetentionDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create job retention job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Worker.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(dispatchJob, eventRetentionJob, jobRetentionJob),
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Worker.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting automation worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "automation worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "automation worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

func workerID() string {
	if id := os.Getenv("DYNO"); id != "" {
		return "dispatcher-" + id
	}
	return ""
}
