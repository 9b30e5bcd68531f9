package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"rental-backend/admin"
	"rental-backend/admin/application"
	admindomain "rental-backend/admin/domain"
	"rental-backend/admin/infra"
	"rental-backend/audit"
	"rental-backend/auth"
	"rental-backend/config"
	"rental-backend/httpx"
	"rental-backend/middleware/ratelimit"
	rlapp "rental-backend/middleware/ratelimit/application"
	rldomain "rental-backend/middleware/ratelimit/domain"
	rlinfra "rental-backend/middleware/ratelimit/infra"
	"rental-backend/notify"
	"rental-backend/objectstore"
	"rental-backend/observability"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), v, cfg)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address (LISTEN_ADDR)")
	_ = v.BindPFlag("listen_addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func serve(ctx context.Context, v *viper.Viper, cfg config.Config) error {
	logger, err := observability.NewLogger(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.SetupTracing(ctx, observability.TracingOptions{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
	}, logger)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	db, closeDB, err := openStore(ctx, v, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	rdb := connectRedis(ctx, cfg.Redis, logger)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	quota, stats, err := buildQuota(cfg, rdb, logger)
	if err != nil {
		return err
	}

	var notifier notify.Dispatcher = notify.LogDispatcher{Logger: logger}
	if cfg.Notify.URL != "" {
		notifier = notify.NewHTTPDispatcher(cfg.Notify.URL, cfg.Notify.RPS)
	}
	signer, err := objectstore.NewHMACSigner(cfg.Documents.BaseURL, cfg.Documents.Bucket, []byte(cfg.Documents.SigningKey),
		objectstore.WithTTL(cfg.Documents.LinkTTL))
	if err != nil {
		return err
	}
	recorder := audit.NewZapRecorder(logger, audit.WithStore(db))
	defer recorder.Wait()

	deps := application.Deps{Notifier: notifier, Audit: recorder, Logger: logger}
	hostRepo := infra.NewHostRepository(db)
	listingRepo := infra.NewListingRepository(db)
	handler := admin.NewHandler(
		application.NewHostService(hostRepo, listingRepo, signer, deps),
		application.NewListingService(listingRepo, hostRepo, deps,
			application.WithConcurrency(cfg.Bulk.StoreConcurrency, cfg.Bulk.NotifyConcurrency)),
		application.NewPlanService(infra.NewPlanRepository(db), deps),
		logger,
	)

	var jwtOpts []auth.JWTOption
	if cfg.JWT.Issuer != "" {
		jwtOpts = append(jwtOpts, auth.WithIssuer(cfg.JWT.Issuer))
	}
	gate := auth.NewGate(auth.NewJWTExtractor([]byte(cfg.JWT.Secret), jwtOpts...), logger)

	r := chi.NewRouter()
	r.NotFound(httpx.RouteNotFound)
	r.MethodNotAllowed(httpx.RouteMethodNotAllowed)
	r.Use(httpx.RequestID, httpx.Recoverer(logger), httpx.CORS, httpx.AccessLog(logger))

	concurrency, inflight := ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            cfg.Rate.ConcurrencyMax,
		AcquireTimeout: cfg.Rate.ConcurrencyTimeout,
	})
	r.Use(concurrency)
	if cfg.Rate.EdgeEnabled {
		buckets := rlinfra.NewBucketStore(cfg.Rate.EdgeRPS, cfg.Rate.EdgeBurst)
		buckets.StartJanitor(ctx)
		r.Use(ratelimit.EdgeMiddleware(ratelimit.EdgeOptions{
			Store:              buckets,
			Stats:              stats,
			Logger:             logger,
			TrustXForwardedFor: cfg.Rate.TrustXFF,
		}))
	}
	r.Mount("/", handler.Routes(gate, quota))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           otelhttp.NewHandler(r, cfg.Telemetry.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("admin api listening",
			zap.String("addr", cfg.ListenAddr),
			zap.Stringer("rate_failure_policy", cfg.Rate.FailurePolicy),
			zap.Bool("edge_rate_enabled", cfg.Rate.EdgeEnabled),
			zap.Int("concurrency_max", cfg.Rate.ConcurrencyMax))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown incomplete", zap.Error(err))
	}
	logger.Info("admin api stopped", zap.Int64("rejected_busy", inflight.Rejected()))
	return nil
}

// connectRedis abre o cliente do Redis. Falha no ping só gera aviso: o
// go-redis reconecta sozinho e, até lá, cada checagem de cota segue a
// política de falha configurada.
func connectRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR not set, quota counters are per process")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable at start-up, quota checks follow the failure policy",
			zap.String("addr", cfg.Addr), zap.Error(err))
	}
	return rdb
}

// buildQuota liga o QuotaService ao Redis quando configurado; sem Redis os
// contadores ficam na memória do processo.
func buildQuota(cfg config.Config, rdb *redis.Client, logger *zap.Logger) (admin.QuotaFunc, rldomain.StatsStore, error) {
	var counters rldomain.CounterStore = rlinfra.NewMemoryQuotaStore(nil)
	if rdb != nil {
		counters = rlinfra.NewRedisQuotaStore(rdb, rlinfra.WithQuotaPrefix(cfg.Rate.KeyPrefix))
	}
	svc, err := rlapp.NewQuotaService(counters, admindomain.Quotas(),
		rlapp.WithFailurePolicy(cfg.Rate.FailurePolicy),
		rlapp.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}

	var stats rldomain.StatsStore
	if cfg.Rate.StatsEnabled {
		if rdb != nil {
			stats = rlinfra.NewRedisStatsStore(rdb,
				rlinfra.WithStatsPrefix(cfg.Rate.StatsPrefix),
				rlinfra.WithStatsTTL(cfg.Rate.StatsTTL))
		} else {
			stats = rlinfra.NewMemoryStatsStore()
		}
	}
	return ratelimit.Quota(ratelimit.QuotaOptions{Checker: svc, Stats: stats, Logger: logger}), stats, nil
}
