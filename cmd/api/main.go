package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"praxis.software/internal/audit"
	"praxis.software/internal/auth"
	"praxis.software/internal/httpapi"
	"praxis.software/internal/obs"
	"praxis.software/internal/store/pg"
	redisstore "praxis.software/internal/store/redis"
)

var version = "0.3.0"

func main() {
	obs.Init()

	secret := os.Getenv("PRAXIS_AUTH_SECRET")
	if secret == "" {
		log.Fatal("PRAXIS_AUTH_SECRET is required")
	}

	ctx := context.Background()

	// Identity store: PostgreSQL when a DSN is configured, in-memory
	// otherwise (development runs only).
	var (
		store      auth.Store
		auditStore audit.Store
		probe      httpapi.ReadyProbe
	)
	if dsn := os.Getenv("PRAXIS_PG_DSN"); dsn != "" {
		pgStore, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()
		store = pgStore
		auditStore = pg.NewAuditStore(pgStore)
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		log.Println("PRAXIS_PG_DSN not set, using in-memory store")
		store = auth.NewMemoryStore()
		auditStore = audit.NewMemoryStore()
	}

	// Lockout counters: Redis when configured, so lock state is shared
	// across replicas. In-memory otherwise.
	var counters auth.CounterStore
	if addr := os.Getenv("PRAXIS_REDIS_ADDR"); addr != "" {
		db, _ := strconv.Atoi(os.Getenv("PRAXIS_REDIS_DB"))
		rc, err := redisstore.Open(ctx, addr, os.Getenv("PRAXIS_REDIS_PASSWORD"), db)
		if err != nil {
			log.Fatalf("open redis: %v", err)
		}
		defer rc.Close()
		counters = rc
	} else {
		log.Println("PRAXIS_REDIS_ADDR not set, lockout counters are per-instance")
		counters = auth.NewMemoryCounters()
	}

	sessions, err := auth.NewSessionManager(store, secret)
	if err != nil {
		log.Fatalf("session manager: %v", err)
	}
	svc, err := auth.NewService(store, sessions, auth.NewLockout(counters), audit.NewRecorder(auditStore))
	if err != nil {
		log.Fatalf("service: %v", err)
	}

	api := httpapi.New(probe, version, svc)

	addr := os.Getenv("PRAXIS_LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting praxis-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Println("Stopped")
}
