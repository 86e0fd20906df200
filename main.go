// main.go
// LitoralCitrus reporting API: role-gated daily plant reports backed by Firestore.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"litoralcitrus/audit"
	"litoralcitrus/auth"
	"litoralcitrus/config"
	"litoralcitrus/forms"
	"litoralcitrus/geo"
	"litoralcitrus/guard"
	"litoralcitrus/handlers"
	"litoralcitrus/identity"
	"litoralcitrus/logger"
	"litoralcitrus/metrics"
	"litoralcitrus/middleware"
	"litoralcitrus/reports"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg)
	if envErr != nil {
		log.Debug().Msg("no .env file found, using system environment variables")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("store", cfg.Firebase.StoreBackend).
		Msg("starting LitoralCitrus API")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	m := metrics.New()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshTokenExpiration)
	provider := identity.NewProvider(store, jwtManager, cfg.JWT.RefreshTokenExpiration, identity.Options{
		LoginAttempts:    cfg.RateLimit.LoginAttempts,
		LoginWindow:      cfg.RateLimit.LoginWindow,
		ProfileCacheTTL:  cfg.Session.ProfileCacheTTL,
		ProfileCacheSize: cfg.Session.ProfileCacheMax,
	}, log, m)

	var locator geo.Locator = geo.Disabled{}
	if cfg.Geo.Enabled {
		locator = geo.NewClient(cfg.Geo.URL, cfg.Geo.Timeout, log, m)
	}

	var recorder audit.Recorder = audit.Nop{}
	var dispatcher *audit.Dispatcher
	if cfg.Audit.Enabled {
		dispatcher = audit.NewDispatcher(store, locator, audit.Options{
			Workers:      cfg.Audit.Workers,
			QueueSize:    cfg.Audit.QueueSize,
			WriteTimeout: cfg.Audit.WriteTimeout,
		}, log, m)
		recorder = dispatcher
	}

	drafts := forms.NewDrafts(cfg.Forms.MaxDrafts, cfg.Forms.DraftTTL, forms.LayoutKind(cfg.Forms.DefaultLayout))
	unsubscribe := provider.OnStateChange(func(c identity.StateChange) {
		switch c.Kind {
		case identity.ChangeSignedOut, identity.ChangeAccessUpdated:
			drafts.Discard(c.UID)
		}
	})
	defer unsubscribe()

	svc := reports.NewService(store, recorder, log, m)
	g := guard.New(provider, cfg.Session.CookieName, log, m)

	mux := handlers.NewRouter(handlers.Routes{
		Guard: g,
		Auth: handlers.NewAuthHandler(provider, g, store, recorder, handlers.CookieOptions{
			Name:   cfg.Session.CookieName,
			Secure: cfg.IsProduction(),
			MaxAge: cfg.JWT.Expiration,
		}, log),
		Forms:   handlers.NewFormHandler(drafts, svc, log),
		Reports: handlers.NewReportsHandler(svc, log),
		Admin:   handlers.NewAdminHandler(store, recorder, provider, log),
		Metrics: m.Handler(),
	})

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, log)
	rateLimiter.CleanupOldLimiters(ctx)

	handler := middleware.Chain(mux,
		middleware.RequestLogger(log, m),
		middleware.CORSMiddleware(cfg.CORS.AllowedOrigins),
		rateLimiter.Middleware(),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, failed := <-serveErr:
		if failed {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
	}
	if dispatcher != nil {
		if err := dispatcher.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
