package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log" // Logging library
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/signature-echo/internal/config"
	"github.com/iliyamo/signature-echo/internal/database"
	"github.com/iliyamo/signature-echo/internal/handler"
	"github.com/iliyamo/signature-echo/internal/middleware"
	"github.com/iliyamo/signature-echo/internal/queue"
	"github.com/iliyamo/signature-echo/internal/replay"
	"github.com/iliyamo/signature-echo/internal/repository"
	"github.com/iliyamo/signature-echo/internal/router"
	"github.com/iliyamo/signature-echo/internal/signature"
)

func main() {
	if err := config.LoadEnvFile(); err != nil {
		log.Fatalf("load env file: %v", err)
	}
	cfg := config.Load()

	verifier, err := signature.New(cfg.SignatureScheme, cfg.SignatureSecret)
	if err != nil {
		log.Fatal(err)
	}
	if !signature.Keyed(verifier) {
		log.Printf("WARNING: signature scheme %q is a keyless digest; requests to /test are not authenticated (set SIGNATURE_SCHEME=hmac and SIGNATURE_SECRET)", verifier.Scheme())
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable: rate limiting and response caching disabled, refs kept in memory")
	} else {
		defer rdb.Close()
	}

	deps := router.Deps{
		Health:    handler.NewHealthHandler(rdb, nil),
		Verify:    handler.NewVerifyHandler(verifier),
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	}

	dbCfg := config.LoadDatabaseConfig()
	if dbCfg.Enabled() {
		db := openQuoteStore(dbCfg)
		defer db.Close()
		deps.Health.DB = db
		deps.Quotes = handler.NewQuoteHandler(repository.NewQuoteRepo(db))
		deps.Cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
		deps.Guard = newGuard(cfg, rdb)
	}

	e := router.New(cfg, deps)
	serve(e, cfg)
}

// openQuoteStore opens the database, creates the schema and loads the
// optional seed file.  Any failure is fatal.
func openQuoteStore(dbCfg config.DatabaseConfig) *sql.DB {
	db, err := database.Open(dbCfg)
	if err != nil {
		log.Fatalf("open %s database: %v", dbCfg.Driver, err)
	}
	repo := repository.NewQuoteRepo(db)
	ctx := context.Background()
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("create quote schema: %v", err)
	}
	if dbCfg.SeedFile != "" {
		n, err := repo.SeedFromFile(ctx, dbCfg.SeedFile)
		if err != nil {
			log.Fatalf("seed quotes: %v", err)
		}
		log.Printf("seeded %d quotes from %s", n, dbCfg.SeedFile)
	}
	return db
}

// newGuard wires the signed-request guard: JWS verification over the
// compacted JSON body, Ref claims in Redis (or memory) and audit publishing.
func newGuard(cfg config.Config, rdb *redis.Client) echo.MiddlewareFunc {
	gcfg := config.LoadGuardConfig(cfg.SignatureSecret)
	if gcfg.Secret == "" {
		log.Fatal("quote API requires GUARD_SECRET or SIGNATURE_SECRET")
	}

	var refs replay.Store = replay.NewMemoryStore()
	if rdb != nil {
		refs = replay.NewRedisStore(rdb, gcfg.RefPrefix)
	}

	var pub queue.Publisher = queue.NopPublisher{}
	if acfg := config.LoadAuditConfig(); acfg.Enabled {
		pub = queue.NewAMQPPublisher(acfg.URL, acfg.Queue)
	}

	v := signature.JWSVerifier{Secret: []byte(gcfg.Secret), Compact: true}
	return middleware.SignedRequest(gcfg, v, refs, pub)
}

// serve starts e and shuts it down gracefully on SIGINT/SIGTERM.
func serve(e *echo.Echo, cfg config.Config) {
	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := e.Shutdown(ctx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
		close(idleConnsClosed)
	}()

	log.Printf("listening on %s (env=%s, scheme=%s)", cfg.Addr(), cfg.Env, cfg.SignatureScheme)
	if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	<-idleConnsClosed
}
