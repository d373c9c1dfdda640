// Package server serves the bot's status endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/pc1e0/comm/internal/http/handler"
	"github.com/pc1e0/comm/internal/http/middleware"
	"github.com/pc1e0/comm/internal/http/router"
)

type ServerConfig struct {
	Port         string
	ServiceName  string
	Tracing      bool
	IsProduction bool
}

// NewRouter builds the engine. Order matters: OTel creates the span, Recovery
// catches panics, Logger logs with trace context.
func NewRouter(cfg ServerConfig, status *handler.StatusHandler) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if cfg.Tracing {
		engine.Use(otelgin.Middleware(cfg.ServiceName))
	}
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger("/health"))

	router.SetupRoutes(engine, status)
	return engine
}

// Serve runs the server until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, cfg ServerConfig, h http.Handler) error {
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
