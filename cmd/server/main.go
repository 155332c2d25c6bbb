package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"internhub/internal/events"
	"internhub/internal/events/kafka"
	jwttoken "internhub/internal/jwt_token"
	"internhub/internal/mail"
	notifhandler "internhub/internal/notification/handler"
	notifmetrics "internhub/internal/notification/metrics"
	notifservice "internhub/internal/notification/service"
	notifstore "internhub/internal/notification/store"
	"internhub/internal/notification/worker"
	"internhub/internal/platform/config"
	"internhub/internal/platform/httpserver"
	"internhub/internal/platform/logger"
	platformredis "internhub/internal/platform/redis"
	"internhub/internal/sweep"
	httptransport "internhub/internal/transport/http"
	wfhandler "internhub/internal/workflow/handler"
	wfmetrics "internhub/internal/workflow/metrics"
	wfservice "internhub/internal/workflow/service"
	appstore "internhub/internal/workflow/store/application"
	logstore "internhub/internal/workflow/store/statuslog"
	pgtx "internhub/pkg/platform/tx"
)

// main wires the stores, the workflow engine, the notification pipeline and
// the HTTP server. Business logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	var (
		apps   wfservice.ApplicationStore
		logs   wfservice.StatusLogStore
		notifs notifservice.Store
		txOpts []wfservice.Option
		db     *sql.DB
	)

	if cfg.Database.URL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			log.Error("opening database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Error("database unreachable", "error", err)
			os.Exit(1)
		}
		apps = appstore.NewPostgres(db)
		logs = logstore.NewPostgres(db)
		notifs = notifstore.NewPostgres(db)
		txOpts = append(txOpts, wfservice.WithTx(pgtx.NewRunner(db)))
		log.Info("using postgres stores")
	} else {
		apps = appstore.NewInMemory()
		logs = logstore.NewInMemory()
		notifs = notifstore.NewInMemory()
		log.Info("using in-memory stores")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		notifs = notifstore.NewRedis(redisClient.Client)
		log.Info("using redis notification log")
	}

	// Event fan-out: the in-process channel always feeds the notification
	// worker; Kafka is added when brokers are configured.
	publisher := events.NewChannelPublisher(256, log)
	sinks := []events.Sink{publisher}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := kafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("connecting to kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
		log.Info("publishing status changes to kafka", "topic", cfg.Kafka.Topic)
	}

	engineOpts := append(txOpts,
		wfservice.WithLogger(log),
		wfservice.WithMetrics(wfmetrics.New()),
		wfservice.WithEvents(events.NewMulti(log, sinks...)),
	)
	engine, err := wfservice.New(apps, logs, engineOpts...)
	if err != nil {
		log.Error("building workflow engine", "error", err)
		os.Exit(1)
	}

	nm := notifmetrics.New()
	notifLog, err := notifservice.NewLog(notifs,
		notifservice.WithLogger(log),
		notifservice.WithMetrics(nm),
	)
	if err != nil {
		log.Error("building notification log", "error", err)
		os.Exit(1)
	}
	dispatcher, err := notifservice.NewDispatcher(notifLog, mail.NewLogSender(log), log, nm)
	if err != nil {
		log.Error("building notification dispatcher", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifWorker := worker.New(publisher.Events(), dispatcher, log)
	go notifWorker.Run(ctx)

	sweeper, err := sweep.New(engine, cfg.Sweep.Threshold,
		sweep.WithLogger(log),
		sweep.WithConcurrency(cfg.Sweep.Concurrency),
	)
	if err != nil {
		log.Error("building sweeper", "error", err)
		os.Exit(1)
	}
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Sweep.Schedule, func() {
		if _, err := sweeper.Run(ctx); err != nil {
			log.Error("stale sweep failed", "error", err)
		}
	}); err != nil {
		log.Error("scheduling sweep", "error", err, "schedule", cfg.Sweep.Schedule)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	validator := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)

	health := func(r *http.Request) error {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				return err
			}
		}
		if redisClient != nil {
			return redisClient.Health(r.Context())
		}
		return nil
	}

	router := httptransport.NewRouter(health,
		wfhandler.New(engine, log, validator),
		notifhandler.New(notifLog, log, validator),
	)

	srv := httpserver.New(cfg.Server.Addr, router)
	log.Info("starting internhub", "addr", cfg.Server.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("internhub stopped")
}
