package main

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"account-gateway/middleware/ratelimit/domain"
	"account-gateway/middleware/ratelimit/infra"

	"github.com/spf13/viper"
)

type config struct {
	listenAddr  string
	databaseURL string
	secretKey   string

	workers        int
	slotsPerWorker int
	admissionRetry time.Duration
	gracePerWorker time.Duration

	globalRPSPerWorker float64
	globalBurst        int
	commonRPS          float64
	commonBurst        int
	hardRPS            float64
	hardBurst          int
	retryAfter         time.Duration
	addHeaders         bool
	rateKeyHeader      string
	trustXFF           bool

	readTimeout     time.Duration
	maxRequestBytes int

	dbMaxOpenConns    int
	dbMaxIdleConns    int
	dbConnMaxLifetime time.Duration
	dbAcquireTimeout  time.Duration

	tokenTTL      time.Duration
	tokenCacheTTL time.Duration
	bcryptCost    int

	metricsAddr    string
	logLevel       string
	logDevelopment bool

	rateStatsEnabled       bool
	rateStatsRedisAddr     string
	rateStatsRedisPassword string
	rateStatsRedisDB       int
	rateStatsPrefix        string
	rateStatsTTL           time.Duration
	rateStatsBucket        string
	rateStatsTrackKeys     bool
}

// newViper lê as variáveis de ambiente pelo nome exato (LISTEN_ADDR etc.).
func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("WORKER_NUM", 2)
	v.SetDefault("SLOTS_PER_WORKER", 10)
	v.SetDefault("ADMISSION_RETRY", "10ms")
	v.SetDefault("GRACE_PER_WORKER", "1s")
	v.SetDefault("GLOBAL_RPS_PER_WORKER", 200)
	v.SetDefault("GLOBAL_BURST", 0)
	v.SetDefault("COMMON_RPS", 100)
	v.SetDefault("COMMON_BURST", 100)
	v.SetDefault("HARD_RPS", 100)
	v.SetDefault("HARD_BURST", 100)
	v.SetDefault("RETRY_AFTER", "1s")
	v.SetDefault("ADD_RATELIMIT_HEADERS", false)
	v.SetDefault("TRUST_XFF", false)
	v.SetDefault("READ_TIMEOUT", "10s")
	v.SetDefault("MAX_REQUEST_BYTES", 64<<10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 16)
	v.SetDefault("DB_MAX_IDLE_CONNS", 16)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("DB_ACQUIRE_TIMEOUT", "5s")
	v.SetDefault("TOKEN_TTL", "1h")
	v.SetDefault("TOKEN_CACHE_TTL", "1m")
	v.SetDefault("BCRYPT_COST", 0)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DEVELOPMENT", false)

	v.SetDefault("RATE_STATS_ENABLED", false)
	v.SetDefault("RATE_STATS_REDIS_DB", 0)
	v.SetDefault("RATE_STATS_PREFIX", "ratelimit:stats")
	v.SetDefault("RATE_STATS_TTL", "24h")
	v.SetDefault("RATE_STATS_BUCKET", "minute")
	v.SetDefault("RATE_STATS_TRACK_KEYS", false)
	return v
}

func readConfig(v *viper.Viper) (config, error) {
	cfg := config{}
	cfg.listenAddr = v.GetString("LISTEN_ADDR")
	cfg.databaseURL = strings.TrimSpace(v.GetString("DATABASE_URL"))
	cfg.secretKey = v.GetString("SECRET_KEY")

	cfg.workers = v.GetInt("WORKER_NUM")
	cfg.slotsPerWorker = v.GetInt("SLOTS_PER_WORKER")
	cfg.admissionRetry = v.GetDuration("ADMISSION_RETRY")
	cfg.gracePerWorker = v.GetDuration("GRACE_PER_WORKER")

	cfg.globalRPSPerWorker = v.GetFloat64("GLOBAL_RPS_PER_WORKER")
	// IMPORTANTE: o "burst" do tier global é a rajada inicial aceita pelo
	// processo inteiro. Sem valor explícito ele acompanha a taxa total
	// (workers × RPS por worker), ou seja, um segundo de tráfego.
	cfg.globalBurst = v.GetInt("GLOBAL_BURST")
	if cfg.globalBurst == 0 {
		cfg.globalBurst = int(math.Ceil(cfg.globalRPS()))
	}
	cfg.commonRPS = v.GetFloat64("COMMON_RPS")
	cfg.commonBurst = v.GetInt("COMMON_BURST")
	cfg.hardRPS = v.GetFloat64("HARD_RPS")
	cfg.hardBurst = v.GetInt("HARD_BURST")
	cfg.retryAfter = v.GetDuration("RETRY_AFTER")
	cfg.addHeaders = v.GetBool("ADD_RATELIMIT_HEADERS")
	cfg.rateKeyHeader = v.GetString("RATE_KEY_HEADER")
	cfg.trustXFF = v.GetBool("TRUST_XFF")

	cfg.readTimeout = v.GetDuration("READ_TIMEOUT")
	cfg.maxRequestBytes = v.GetInt("MAX_REQUEST_BYTES")

	cfg.dbMaxOpenConns = v.GetInt("DB_MAX_OPEN_CONNS")
	cfg.dbMaxIdleConns = v.GetInt("DB_MAX_IDLE_CONNS")
	cfg.dbConnMaxLifetime = v.GetDuration("DB_CONN_MAX_LIFETIME")
	cfg.dbAcquireTimeout = v.GetDuration("DB_ACQUIRE_TIMEOUT")
	cfg.tokenTTL = v.GetDuration("TOKEN_TTL")
	cfg.tokenCacheTTL = v.GetDuration("TOKEN_CACHE_TTL")
	cfg.bcryptCost = v.GetInt("BCRYPT_COST")
	cfg.metricsAddr = v.GetString("METRICS_ADDR")
	cfg.logLevel = v.GetString("LOG_LEVEL")
	cfg.logDevelopment = v.GetBool("LOG_DEVELOPMENT")

	cfg.rateStatsEnabled = v.GetBool("RATE_STATS_ENABLED")
	cfg.rateStatsRedisAddr = v.GetString("RATE_STATS_REDIS_ADDR")
	cfg.rateStatsRedisPassword = v.GetString("RATE_STATS_REDIS_PASSWORD")
	cfg.rateStatsRedisDB = v.GetInt("RATE_STATS_REDIS_DB")
	cfg.rateStatsPrefix = v.GetString("RATE_STATS_PREFIX")
	cfg.rateStatsTTL = v.GetDuration("RATE_STATS_TTL")
	cfg.rateStatsBucket = v.GetString("RATE_STATS_BUCKET")
	cfg.rateStatsTrackKeys = v.GetBool("RATE_STATS_TRACK_KEYS")

	if cfg.rateStatsEnabled && strings.TrimSpace(cfg.rateStatsRedisAddr) == "" {
		return config{}, errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true")
	}
	if cfg.workers <= 0 {
		return config{}, errors.New("WORKER_NUM must be > 0")
	}
	if cfg.slotsPerWorker <= 0 {
		return config{}, errors.New("SLOTS_PER_WORKER must be > 0")
	}
	if cfg.globalRPSPerWorker <= 0 {
		return config{}, errors.New("GLOBAL_RPS_PER_WORKER must be > 0")
	}
	for name, n := range map[string]float64{
		"COMMON_RPS":   cfg.commonRPS,
		"COMMON_BURST": float64(cfg.commonBurst),
		"HARD_RPS":     cfg.hardRPS,
		"HARD_BURST":   float64(cfg.hardBurst),
		"GLOBAL_BURST": float64(cfg.globalBurst),
	} {
		if n < 0 {
			return config{}, fmt.Errorf("%s must be >= 0", name)
		}
	}
	return cfg, nil
}

func (c config) requireDatabase() error {
	if c.databaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	return nil
}

// requireServe valida o que só o comando serve precisa.
func (c config) requireServe() error {
	if err := c.requireDatabase(); err != nil {
		return err
	}
	if c.secretKey == "" {
		return errors.New("SECRET_KEY is required")
	}
	return nil
}

func (c config) globalRPS() float64 {
	return float64(c.workers) * c.globalRPSPerWorker
}

func (c config) tiers() map[domain.Tier]infra.TierConfig {
	return map[domain.Tier]infra.TierConfig{
		domain.TierGlobal: {RPS: c.globalRPS(), Burst: c.globalBurst},
		domain.TierCommon: {RPS: c.commonRPS, Burst: c.commonBurst},
		domain.TierHard:   {RPS: c.hardRPS, Burst: c.hardBurst},
	}
}
