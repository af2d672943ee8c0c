package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"lpr-service/internal/auth"
	"lpr-service/internal/config"
	"lpr-service/internal/db"
	"lpr-service/internal/domain/lpr"
	httphandler "lpr-service/internal/http"
	"lpr-service/internal/http/middleware"
	"lpr-service/internal/jobs"
	"lpr-service/internal/kv"
	"lpr-service/internal/logger"
	"lpr-service/internal/metrics"
	"lpr-service/internal/realtime"
	"lpr-service/internal/reporting"
	"lpr-service/internal/repository"
	"lpr-service/internal/service"
)

const shutdownTimeout = 20 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sentryEnabled := false
	if cfg.Sentry.DSN != "" {
		if err := reporting.InitSentry(cfg.Sentry.DSN, cfg.Environment); err != nil {
			appLogger.Warn().Err(err).Msg("sentry disabled")
		} else {
			sentryEnabled = true
			defer reporting.Flush(2 * time.Second)
		}
	}
	reporter := reporting.New(appLogger, sentryEnabled)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics, err := metrics.New(registry)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to register metrics")
	}

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	redisClient, err := kv.Connect(ctx, cfg.Redis)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer redisClient.Close()

	catalog, err := lpr.NewAlertCatalog(cfg.Alerts.Labels)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("invalid alert labels")
	}

	hub := realtime.NewHub(64, appLogger)
	publisher := realtime.Multi{hub}
	if cfg.Realtime.NATSURL != "" {
		conn, err := realtime.ConnectNATS(cfg.Realtime.NATSURL)
		if err != nil {
			appLogger.Fatal().Err(err).Msg("failed to connect nats")
		}
		defer conn.Drain()
		publisher = append(publisher, realtime.NewNATSPublisher(conn, cfg.Realtime.SubjectPrefix))
	}

	dispatcher, shutdownJobs := buildDispatcher(cfg, appLogger, reporter, appMetrics)

	lookup := kv.NewRedisLookup(redisClient)
	detectionRepo := repository.NewDetectionRepository(database)
	referenceRepo := repository.NewReferenceRepository(database, cfg.Cache.ReferenceTTL)
	alertRepo := repository.NewAlertRepository(database)
	userRepo := repository.NewUserRepository(database)
	notificationRepo := repository.NewNotificationRepository(database)
	auditRepo := repository.NewAuditRepository(database)

	enricher := service.NewRegistryEnricher(lookup, appLogger)
	matcher := service.NewAlertMatcher(lookup, alertRepo, userRepo, catalog, cfg.Alerts.BroadcastGroups, appLogger)
	fanout := service.NewFanout(publisher, notificationRepo, auditRepo, dispatcher, reporter, appMetrics, appLogger)
	detectionService := service.NewDetectionService(detectionRepo, referenceRepo, enricher, matcher, fanout, cfg.Location(), appMetrics, appLogger)
	companionService := service.NewCompanionService(detectionRepo, appMetrics, appLogger)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	stream := httphandler.NewStream(hub, 0, appLogger)
	handler := httphandler.NewHandler(detectionService, companionService, stream, cfg.Location(), appLogger)
	router := httphandler.NewRouter(handler, httphandler.Middlewares{
		Station: middleware.StationToken(cfg.Station.Token),
		Auth:    middleware.Auth(tokenParser),
		Timeout: middleware.Timeout(cfg.HTTP.RequestTimeout),
	}, appMetrics.Handler(), cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info().Str("addr", addr).Msg("starting lpr service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error().Err(err).Msg("failed to start server")
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("http server shutdown failed")
	}
	if err := shutdownJobs(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("notification jobs shutdown failed")
	}
}

// buildDispatcher prefers Kafka when brokers are configured so another
// process delivers the alerts; otherwise jobs run on the local pool.
func buildDispatcher(
	cfg *config.Config,
	log zerolog.Logger,
	reporter reporting.Reporter,
	m *metrics.Metrics,
) (jobs.Dispatcher, func(context.Context) error) {
	if cfg.Notify.KafkaBrokers != "" {
		d, err := jobs.NewKafkaDispatcher(cfg.Notify.KafkaBrokers, cfg.Notify.KafkaTopic, log, reporter)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create kafka dispatcher")
		}
		log.Info().Str("topic", cfg.Notify.KafkaTopic).Msg("alert jobs go to kafka")
		return d, func(context.Context) error { return d.Close() }
	}

	var notifier jobs.Notifier = jobs.NewLogNotifier(log)
	if len(cfg.Notify.URLs) > 0 {
		n, err := jobs.NewShoutrrrNotifier(cfg.Notify.URLs, cfg.Notify.Timeout)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create notifier")
		}
		notifier = n
	}

	pool := jobs.NewPool(jobs.PoolConfig{
		Workers:   cfg.Notify.Workers,
		QueueSize: cfg.Notify.QueueSize,
		Timeout:   cfg.Notify.Timeout,
	}, notifier, log, reporter, m)
	pool.Start()
	return pool, pool.Shutdown
}
