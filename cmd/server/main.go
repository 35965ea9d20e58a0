package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"securebank/internal/auth"
	"securebank/internal/executor"
	"securebank/internal/httpapi"
	"securebank/internal/ledger"
	"securebank/internal/ledger/memory"
	"securebank/internal/planner"
	"securebank/internal/seed"
	"securebank/internal/store"
)

func mustEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func mustIntEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// backend bundles whichever store implementation was selected. Both
// backends satisfy every interface here.
type backend interface {
	ledger.Store
	ledger.ProfileReader
	auth.UserStore
	auth.ProfileWriter
}

func main() {
	start := time.Now()

	// .env is optional; real env always wins
	_ = godotenv.Load()

	addr := mustEnv("BANK_HTTP_ADDR", ":8080")
	dsn := os.Getenv("BANK_DB_DSN")
	secret := mustEnv("BANK_JWT_SECRET", "sandbox-secret-do-not-reuse")

	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("[startup] logger init failed: %v", err)
	}
	defer zlog.Sync()
	logger := zlog.Sugar()

	log.Printf("[startup] begin addr=%s backend=%s", addr, backendName(dsn))

	startCtx, startCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer startCancel()

	var st backend
	if dsn != "" {
		st = connectPostgres(startCtx, dsn)
	} else {
		mem := memory.New()
		if err := seed.Apply(startCtx, mem); err != nil {
			log.Fatalf("[startup] seeding failed: %v", err)
		}
		log.Printf("[startup] memory backend seeded with sample data")
		st = mem
	}

	var pl *planner.Planner
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		pl = planner.New(planner.NewHTTPClient(key))
		log.Printf("[startup] assistant planner enabled")
	} else {
		log.Printf("[startup] GROQ_API_KEY not set, assistant endpoint disabled")
	}

	dispatch := executor.New(st, st, pl, logger)
	authSvc := auth.New(st, st, st, secret)
	h := httpapi.NewHandlers(st, st, dispatch, authSvc, logger)

	srv := &http.Server{
		Addr:    addr,
		Handler: httpapi.Router(h),

		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      45 * time.Second, // assistant calls can be slow
		IdleTimeout:       60 * time.Second,
	}

	log.Printf(
		"[startup] ready in %s, listening on %s",
		time.Since(start).Truncate(time.Millisecond),
		addr,
	)

	log.Fatal(srv.ListenAndServe())
}

func backendName(dsn string) string {
	if dsn != "" {
		return "postgres"
	}
	return "memory"
}

func connectPostgres(ctx context.Context, dsn string) *store.Store {
	// DB pool sizing
	cpu := runtime.GOMAXPROCS(0)
	defMaxConns := clamp(cpu*4, 4, 50)
	maxConns := mustIntEnv("BANK_DB_MAX_CONNS", defMaxConns)

	log.Printf("[startup] cpu=%d maxConns=%d", cpu, maxConns)

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		log.Fatalf("[startup] parse dsn failed: %v", err)
	}

	cfg.MaxConns = int32(maxConns)
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 10 * time.Second
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	log.Printf("[startup] connecting to DB")
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("[startup] db connect failed: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("[startup] db ping failed: %v", err)
	}

	if mustEnv("BANK_DB_MIGRATE", "1") == "1" {
		log.Printf("[startup] running migrations")
		if err := store.Migrate(ctx, pool); err != nil {
			log.Fatalf("[startup] migrations failed: %v", err)
		}
	}

	st := store.New(pool)
	if mustEnv("BANK_DB_SEED", "1") == "1" {
		if err := seed.Apply(ctx, st); err != nil {
			log.Fatalf("[startup] seeding failed: %v", err)
		}
		log.Printf("[startup] postgres backend seeded with sample data")
	}
	return st
}
