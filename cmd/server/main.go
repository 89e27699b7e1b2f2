package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	adminhandler "rollcall/internal/admin/handler"
	authhandler "rollcall/internal/auth/handler"
	authservice "rollcall/internal/auth/service"
	"rollcall/internal/checkin/attendance"
	checkinhandler "rollcall/internal/checkin/handler"
	checkinmetrics "rollcall/internal/checkin/metrics"
	checkinservice "rollcall/internal/checkin/service"
	"rollcall/internal/checkin/token"
	jwttoken "rollcall/internal/jwt_token"
	"rollcall/internal/platform/config"
	"rollcall/internal/platform/httpserver"
	"rollcall/internal/platform/logger"
	"rollcall/internal/platform/postgres"
	platformredis "rollcall/internal/platform/redis"
	"rollcall/internal/recordstore"
	"rollcall/internal/roster"
	httptransport "rollcall/internal/transport/http"
)

// sweepInterval is how often expired tokens left behind by never-scanned QR
// codes are cleaned out of the store.
const sweepInterval = time.Minute

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		log.Error("store initialization failed", "error", err, "backend", cfg.StoreBackend)
		os.Exit(1)
	}
	defer cleanup()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ids := roster.New(store)
	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "rollcall")
	validator := jwttoken.NewMiddlewareAdapter(jwtService)

	tokens := token.NewManager(store, ids, cfg.TokenTTL())
	checkin := checkinservice.New(
		tokens,
		attendance.NewLedger(store),
		ids,
		checkinmetrics.New(registry),
		log,
	)
	auth := authservice.New(ids, jwtService, cfg.AdminSessionTTL, cfg.ParticipantSessionTTL, log)

	router := httptransport.NewRouter(store, registry,
		checkinhandler.New(checkin, log, validator),
		authhandler.New(auth, log),
		adminhandler.New(store, cfg.BootstrapKey, log),
	)

	go sweepExpiredTokens(ctx, tokens, log)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting rollcall", "addr", cfg.Addr, "backend", cfg.StoreBackend)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
}

// buildStore selects the record store backend and returns it alongside its
// cleanup function.
func buildStore(ctx context.Context, cfg config.Config) (recordstore.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		client, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return recordstore.NewRedis(client.Client), func() { _ = client.Close() }, nil

	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		pg := recordstore.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return pg, func() { _ = db.Close() }, nil

	default:
		return recordstore.NewMemory(), func() {}, nil
	}
}

// sweepExpiredTokens periodically removes tokens that expired without ever
// being scanned. Redemption does not depend on the sweep; it only keeps the
// token collection from growing unbounded.
func sweepExpiredTokens(ctx context.Context, tokens *token.Manager, log *slog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := tokens.DeleteExpired(ctx, time.Now())
			if err != nil {
				log.Warn("expired token sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				log.Info("swept expired tokens", "removed", removed)
			}
		}
	}
}
