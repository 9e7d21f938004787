package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"curanet/internal/audit"
	"curanet/internal/authority"
	consentservice "curanet/internal/consent/service"
	consentstore "curanet/internal/consent/store"
	"curanet/internal/emergency"
	"curanet/internal/gate"
	"curanet/internal/platform/config"
	"curanet/internal/platform/database"
	"curanet/internal/platform/health"
	"curanet/internal/platform/logger"
	"curanet/internal/platform/metrics"
	"curanet/internal/policy"
	"curanet/internal/ratelimit"
	httptransport "curanet/internal/transport/http"
	"curanet/internal/workers"
	"curanet/pkg/platform/middleware/auth"
)

// main wires the engine's dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services; everything here is assembly.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Environment)
	m := metrics.New()

	log.Info("initializing curanet consent engine",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"persistent", cfg.DatabaseURL != "",
	)

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		log.Error("database initialization failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close() //nolint:errcheck // shutdown path

	// Nil pool means in-memory stores: single-process deployments and local
	// development. All invariants hold identically in both backends.
	var (
		consents consentstore.Store
		trail    audit.Store
		shares   emergency.Store
	)
	if pool != nil {
		consents = consentstore.NewPostgres(pool.DB())
		trail = audit.NewPostgres(pool.DB())
		shares = emergency.NewPostgres(pool.DB())
	} else {
		consents = consentstore.NewMemoryStore()
		trail = audit.NewMemoryStore()
		shares = emergency.NewMemoryStore()
	}

	writer := audit.NewWriter(trail, audit.WithLogger(log), audit.WithMetrics(m))
	pol := policy.FromConfig(&cfg)

	// Actor identity and role are asserted by the platform's signed tokens;
	// the engine runs without a separate resolver unless one is plugged in.
	auth0 := authority.New(consents, nil, pol,
		authority.WithLogger(log),
		authority.WithMetrics(m),
	)
	accessGate := gate.New(auth0, writer, pol,
		gate.WithLogger(log),
		gate.WithMetrics(m),
	)
	consentSvc := consentservice.NewService(consents, nil, writer, pol,
		consentservice.WithLogger(log),
		consentservice.WithMetrics(m),
		consentservice.WithRequestTTL(cfg.RequestTTL),
	)

	// The record source is the surrounding EHR's port; the static source
	// serves until that integration is wired.
	records := emergency.NewStaticRecordSource()
	emergencySvc := emergency.NewService(shares, records, writer,
		emergency.WithLogger(log),
		emergency.WithMetrics(m),
		emergency.WithMaxTTL(cfg.ShareMaxTTL),
	)

	limiterStore := ratelimit.NewMemoryStore()
	redeemLimiter := ratelimit.NewLimiter(limiterStore, cfg.RedeemRateLimit, cfg.RedeemRateWindow)

	healthHandler := health.New(cfg.Environment)
	if pool != nil {
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Consent:   consentSvc,
		Emergency: emergencySvc,
		Trail:     writer,
		Access:    accessGate,
		Redeems:   redeemLimiter,
		Health:    healthHandler,
		Validator: auth.NewVerifier(cfg.JWTSigningKey),
		Logger:    log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SweepInterval > 0 {
		sweeper := workers.New(consents, emergencySvc,
			workers.WithLogger(log),
			workers.WithInterval(cfg.SweepInterval),
			workers.WithRateLimitPrune(limiterStore),
		)
		go func() {
			_ = sweeper.Run(ctx)
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
