package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	assethandler "ecotrace/internal/asset/handler"
	assetservice "ecotrace/internal/asset/service"
	assetstore "ecotrace/internal/asset/store"
	"ecotrace/internal/audit"
	"ecotrace/internal/audit/relay"
	"ecotrace/internal/bulk"
	bulkhandler "ecotrace/internal/bulk/handler"
	"ecotrace/internal/evidence"
	"ecotrace/internal/ledger"
	"ecotrace/internal/notification"
	"ecotrace/internal/platform/config"
	"ecotrace/internal/platform/httpserver"
	"ecotrace/internal/platform/logger"
	"ecotrace/internal/platform/metrics"
	"ecotrace/internal/platform/middleware"
	platformredis "ecotrace/internal/platform/redis"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// Storage: Postgres when configured, in-memory otherwise.
	var (
		assets assetstore.Store
		db     *sql.DB
	)
	if cfg.Postgres.DSN != "" {
		var err error
		db, err = sql.Open("pgx", cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		assets = assetstore.NewPostgres(db)
	} else {
		log.Warn("POSTGRES_DSN not set, using in-memory asset store")
		assets = assetstore.NewInMemory()
	}

	// Serial cache is optional; nil degrades to store-only duplicate checks.
	var serialCache *assetstore.SerialCache
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		serialCache = assetstore.NewSerialCache(redisClient.Client, log)
	}

	// Audit: outbox-backed when Postgres is available.
	var auditStore audit.Store
	if db != nil {
		auditStore = audit.NewPostgresStore(db)
	} else {
		auditStore = audit.NewInMemoryStore()
	}
	auditor := audit.NewPublisher(auditStore, audit.WithLogger(log))

	// Ledger: best-effort witness, never the source of truth.
	var recorder ledger.ProofRecorder = ledger.Disabled{}
	if cfg.Ledger.Enabled && cfg.Ledger.Endpoint != "" {
		recorder = ledger.WithRetry(ledger.NewHTTPRecorder(cfg.Ledger), ledger.DefaultRetryPolicy())
	}

	lifecycle := assetservice.New(assets,
		assetservice.WithLogger(log),
		assetservice.WithAuditPublisher(auditor),
		assetservice.WithMetrics(m),
		assetservice.WithLedger(recorder),
		assetservice.WithSerialCache(serialCache),
	)

	dispatcher := notification.NewDispatcher(buildChannels(cfg.Notify, log),
		notification.WithLogger(log),
		notification.WithMetrics(m),
	)

	coordinator := bulk.New(lifecycle,
		bulk.WithLogger(log),
		bulk.WithNotifier(dispatcher),
		bulk.WithAuditPublisher(auditor),
		bulk.WithMetrics(m),
		bulk.WithInterBatchDelay(cfg.Bulk.InterBatchDelay),
	)

	validator := middleware.NewHMACValidator(cfg.JWTSigningKey)
	var apiKeys *middleware.APIKeyVerifier
	if len(cfg.APIKeyHashes) > 0 {
		apiKeys = middleware.NewAPIKeyVerifier(cfg.APIKeyHashes)
		log.Info("api key auth enabled for bulk routes", "callers", len(cfg.APIKeyHashes))
	}

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	// Proof blobs are held in process until the pinning service is deployed;
	// the lifecycle core only ever sees their content hashes.
	proofs := evidence.NewInMemoryStore()
	assethandler.New(lifecycle, proofs, log, validator).Register(router)
	bulkhandler.New(coordinator, log, validator, apiKeys).Register(router)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting ecotrace", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// The outbox relay runs only with both Postgres and Kafka configured.
	if db != nil && len(cfg.Kafka.Brokers) > 0 {
		producer, err := relay.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return err
		}
		defer producer.Close()
		worker := relay.NewWorker(db, producer, log)
		g.Go(func() error {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

// buildChannels assembles the configured notification channels. Without an
// SMTP relay configured the email channel degrades to a log line.
func buildChannels(cfg config.NotifyConfig, log *slog.Logger) []notification.Channel {
	var channels []notification.Channel
	if cfg.EmailFrom != "" && cfg.EmailTo != "" {
		send := notification.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPUsername, cfg.SMTPPassword)
		if cfg.SMTPAddr == "" {
			send = func(ctx context.Context, from, to, subject, _ string) error {
				log.InfoContext(ctx, "email notification", "from", from, "to", to, "subject", subject)
				return nil
			}
		}
		channels = append(channels, notification.NewEmailChannel(cfg.EmailFrom, cfg.EmailTo, send))
	}
	if cfg.SlackWebhookURL != "" {
		channels = append(channels, notification.NewSlackChannel(cfg.SlackWebhookURL))
	}
	if cfg.TeamsWebhookURL != "" {
		channels = append(channels, notification.NewTeamsChannel(cfg.TeamsWebhookURL))
	}
	return channels
}
