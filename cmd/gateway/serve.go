package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"account-gateway/auth"
	"account-gateway/dispatch"
	"account-gateway/logging"
	"account-gateway/metrics"
	"account-gateway/middleware/ratelimit"
	"account-gateway/middleware/ratelimit/domain"
	"account-gateway/middleware/ratelimit/infra"
	"account-gateway/router"
	"account-gateway/storage"
	"account-gateway/users"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func runMigrate(ctx context.Context, v *viper.Viper) error {
	cfg, err := readConfig(v)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := cfg.requireDatabase(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log, flush, err := logging.New(cfg.logLevel, cfg.logDevelopment)
	if err != nil {
		return err
	}
	defer flush()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		log.Error(err, "Failed to connect to database")
		return err
	}
	defer db.Close()

	if err := users.Migrate(ctx, db.Bun()); err != nil {
		log.Error(err, "Failed to create users table")
		return err
	}
	log.Info("users table ready", "dialect", db.Dialect())
	return nil
}

func runServe(ctx context.Context, v *viper.Viper) error {
	cfg, err := readConfig(v)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := cfg.requireServe(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log, flush, err := logging.New(cfg.logLevel, cfg.logDevelopment)
	if err != nil {
		return err
	}
	defer flush()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		log.Error(err, "Failed to connect to database")
		return err
	}
	defer db.Close()
	if err := users.Migrate(ctx, db.Bun()); err != nil {
		log.Error(err, "Failed to create users table")
		return err
	}

	issuer, err := auth.NewIssuer(cfg.secretKey, cfg.tokenTTL)
	if err != nil {
		return err
	}
	authn := auth.NewAuthenticator(issuer, cfg.tokenCacheTTL)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store := infra.NewStore(cfg.tiers())
	watchTiers(v, store, log.WithName("config"))
	stats, closeStats, err := openStats(ctx, cfg)
	if err != nil {
		log.Error(err, "redis stats ping error")
		return err
	}
	defer closeStats()

	guard := ratelimit.NewGuard(ratelimit.Options{
		Store:               store,
		Stats:               stats,
		KeyHeader:           cfg.rateKeyHeader,
		TrustXForwardedFor:  cfg.trustXFF,
		RetryAfter:          cfg.retryAfter,
		AddRateLimitHeaders: cfg.addHeaders,
		OnDecision: func(tier domain.Tier, allowed bool) {
			m.Admission(string(tier), allowed)
		},
		Logger: log.WithName("ratelimit"),
	})

	handlers := users.Handlers{BcryptCost: cfg.bcryptCost}.Bind(router.Handlers{
		Login: auth.Login{Issuer: issuer}.Handle,
	})
	rt := router.New(router.Options{
		Routes:          router.Table(handlers),
		Auth:            authn,
		Guard:           guard,
		Pool:            db,
		ReadTimeout:     cfg.readTimeout,
		MaxRequestBytes: cfg.maxRequestBytes,
		Logger:          log.WithName("router"),
		Metrics:         m,
	})

	d := dispatch.New(dispatch.Options{
		Addr:           cfg.listenAddr,
		Workers:        cfg.workers,
		SlotsPerWorker: cfg.slotsPerWorker,
		Global:         store.Get(domain.TierGlobal),
		RetryEvery:     cfg.admissionRetry,
		GracePerWorker: cfg.gracePerWorker,
		Logger:         log.WithName("dispatch"),
		Metrics:        m,
	}, rt)

	logStartup(log, cfg, db.Dialect())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		authn.Start(gctx)
		return nil
	})
	if cfg.metricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.metricsAddr, reg, log.WithName("metrics"))
		})
	}
	g.Go(func() error {
		return d.Run(gctx)
	})
	return g.Wait()
}

func openDatabase(ctx context.Context, cfg config) (*storage.DB, error) {
	return storage.Open(ctx, cfg.databaseURL, storage.Options{
		MaxOpenConns:    cfg.dbMaxOpenConns,
		MaxIdleConns:    cfg.dbMaxIdleConns,
		ConnMaxLifetime: cfg.dbConnMaxLifetime,
		AcquireTimeout:  cfg.dbAcquireTimeout,
	})
}

// openStats devolve nil (sem estatísticas) quando RATE_STATS_ENABLED=false.
func openStats(ctx context.Context, cfg config) (domain.StatsStore, func(), error) {
	if !cfg.rateStatsEnabled {
		return nil, func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.rateStatsRedisAddr,
		Password: cfg.rateStatsRedisPassword,
		DB:       cfg.rateStatsRedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	_, err := rdb.Ping(pingCtx).Result()
	cancel()
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}

	stats := infra.NewRedisStatsStore(
		rdb,
		infra.WithStatsPrefix(cfg.rateStatsPrefix),
		infra.WithStatsTTL(cfg.rateStatsTTL),
		infra.WithStatsBucket(cfg.rateStatsBucket),
		infra.WithStatsTrackKeys(cfg.rateStatsTrackKeys),
	)
	return stats, func() { _ = rdb.Close() }, nil
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, log logr.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

func logStartup(log logr.Logger, cfg config, dialect storage.Dialect) {
	log.Info("gateway config", "listen", cfg.listenAddr, "database", dialect, "workers", cfg.workers, "slotsPerWorker", cfg.slotsPerWorker)
	log.Info("rate", "globalRPS", cfg.globalRPS(), "globalBurst", cfg.globalBurst, "commonRPS", cfg.commonRPS, "commonBurst", cfg.commonBurst, "hardRPS", cfg.hardRPS, "hardBurst", cfg.hardBurst, "keyHeader", cfg.rateKeyHeader, "trustXFF", cfg.trustXFF)
	log.Info("rate-stats", "enabled", cfg.rateStatsEnabled, "redisAddr", cfg.rateStatsRedisAddr, "bucket", cfg.rateStatsBucket, "ttl", cfg.rateStatsTTL.String(), "trackKeys", cfg.rateStatsTrackKeys)
}
