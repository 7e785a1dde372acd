package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	delivery "github.com/egannguyen/pharma-storefront/internal/delivery/http"
	"github.com/egannguyen/pharma-storefront/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the storefront HTTP API. Routes live under /api; /health reports
storage reachability and /metrics exposes Prometheus metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.UsesDefaultSecret() {
		slog.Warn("auth.jwt_secret is the built-in default; set STOREFRONT_AUTH_JWT_SECRET before exposing the API")
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg, afero.NewOsFs())
	if err != nil {
		return err
	}
	defer a.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewServerMetrics(reg)
	a.withEvents(m)

	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           newRouter(a, m, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	slog.Info("Shutting down...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}

func newRouter(a *app, m *metrics.ServerMetrics, g prometheus.Gatherer) http.Handler {
	deps := delivery.Deps{
		Orders:     a.orderService(),
		Carts:      a.cartService(),
		Products:   a.productService(),
		Users:      a.userService(),
		Identities: a.tokens,
		Health:     []delivery.Pinger{a.gateway},
		Metrics:    m,
	}
	if a.bus != nil {
		deps.Events = a.bus
	}
	if g != nil {
		deps.MetricsHandler = metrics.Handler(g)
	}
	return delivery.NewHandler(deps, delivery.Config{
		CORSOrigins:  a.cfg.Server.CORSOrigins,
		CookieName:   a.cfg.Auth.CookieName,
		SecureCookie: a.cfg.Auth.SecureCookie,
	}).Router()
}
