// Package app wires configuration, storage and the storefront stores into the
// CLI and the API server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/raj-engineer/EcomApp/internal/catalogapi"
	"github.com/raj-engineer/EcomApp/internal/handler"
	"github.com/raj-engineer/EcomApp/pkg/health"
	"github.com/raj-engineer/EcomApp/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the API server.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Server.Addr),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("catalog", cfg.Catalog.BaseURL),
	)

	sf, err := NewStorefront(ctx, lg, cfg,
		catalogapi.WithTracerProvider(m.TracerProvider()),
		catalogapi.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create storefront")
	}
	defer func() {
		if err := sf.Close(); err != nil {
			lg.Warn("Close storefront", zap.Error(err))
		}
	}()

	healthSvc := health.New(health.WithLogger(lg))
	healthSvc.AddReadinessCheck("storage", 5*time.Second, health.PingCheck(cfg.Storage.Driver, sf.Storage.Ping))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Server.Addr,
		Handler: otelhttp.NewHandler(NewRouter(ctx, cfg, sf, healthSvc), "storefront-api",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Server.Graceful.ReadinessDelay))
		time.Sleep(cfg.Server.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Server.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Server.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// NewRouter mounts the probes and the API behind the middleware stack.
// ctx bounds the rate limiter's cleanup goroutine and supplies the base
// logger.
func NewRouter(ctx context.Context, cfg *Config, sf *Storefront, healthSvc *health.Health) http.Handler {
	h := handler.NewHandler(handler.Deps{
		Products:  sf.Client,
		Catalog:   sf.Catalog,
		Cart:      sf.Cart,
		Favorites: sf.Favorites,
		Orders:    sf.Orders,
	}, handler.APIKeyGuard(cfg.Server.APIKey))

	r := chi.NewRouter()
	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)
	r.Mount("/api", h.Routes())

	return httpmiddleware.Wrap(r,
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.Server.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization", handler.APIKeyHeader, "api_key"},
			ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.Server.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Rate:  cfg.Server.RateLimit.Rate,
			Burst: cfg.Server.RateLimit.Burst,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.LogRequests(),
		httpmiddleware.Recovery(),
	)
}
