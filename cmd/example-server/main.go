package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"account-gateway/auth"
	"account-gateway/dispatch"
	"account-gateway/logging"
	"account-gateway/middleware/ratelimit"
	"account-gateway/middleware/ratelimit/domain"
	"account-gateway/middleware/ratelimit/infra"
	"account-gateway/router"
	"account-gateway/storage"
	"account-gateway/users"

	"golang.org/x/crypto/bcrypt"
)

// Exemplo: o gateway inteiro num processo só, com SQLite em memória e um
// usuário de demonstração (demo@example.com / Demo!Pass123).
func main() {
	log, flush, err := logging.New("debug", true)
	if err != nil {
		panic(err)
	}
	defer flush()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := storage.Open(ctx, ":memory:", storage.Options{})
	if err != nil {
		log.Error(err, "open database")
		os.Exit(1)
	}
	defer db.Close()

	if err := seed(ctx, db); err != nil {
		log.Error(err, "seed database")
		os.Exit(1)
	}

	issuer, err := auth.NewIssuer("example-secret", 0)
	if err != nil {
		log.Error(err, "issuer")
		os.Exit(1)
	}

	// sem Start o cache de tokens nunca remove itens vencidos
	authn := auth.NewAuthenticator(issuer, 0)
	go authn.Start(ctx)

	// tiers pequenos para ver o 429 com poucos requests
	store := infra.NewStore(map[domain.Tier]infra.TierConfig{
		domain.TierGlobal: {RPS: 50, Burst: 50},
		domain.TierCommon: {RPS: 1, Burst: 3},
		domain.TierHard:   {RPS: 0.2, Burst: 2},
	})
	stats := infra.NewMemoryStatsStore(infra.WithTrackKeys(true))
	guard := ratelimit.NewGuard(ratelimit.Options{
		Store:               store,
		Stats:               stats,
		KeyHeader:           "X-Api-Key", // ou vazio para usar IP
		TrustXForwardedFor:  true,
		AddRateLimitHeaders: true,
		Logger:              log.WithName("ratelimit"),
	})

	rt := router.New(router.Options{
		Routes: router.Table(users.Handlers{BcryptCost: bcrypt.MinCost}.Bind(router.Handlers{
			Login: auth.Login{Issuer: issuer}.Handle,
		})),
		Auth:   authn,
		Guard:  guard,
		Pool:   db,
		Logger: log.WithName("router"),
	})

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	d := dispatch.New(dispatch.Options{
		Addr:   addr,
		Global: store.Get(domain.TierGlobal),
		Logger: log.WithName("dispatch"),
	}, rt)

	if err := d.Run(ctx); err != nil {
		log.Error(err, "server error")
		os.Exit(1)
	}

	total := stats.Total()
	log.Info("rate stats", "allowed", total.Allowed, "denied", total.Denied, "byTier", stats.ByTier())
}

func seed(ctx context.Context, db *storage.DB) error {
	if err := users.Migrate(ctx, db.Bun()); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("Demo!Pass123"), bcrypt.MinCost)
	if err != nil {
		return err
	}
	return users.Insert(ctx, db.Bun(), &users.User{Name: "Demo", Email: "demo@example.com", Password: string(hash)})
}
