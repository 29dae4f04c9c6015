// Command gateway runs the automation gateway: the HTTP boundary between
// the marketplace frontend and the workflow-automation backend.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cwmia/gateway/internal/automation"
	"github.com/cwmia/gateway/internal/config"
	"github.com/cwmia/gateway/internal/gateway"
	"github.com/cwmia/gateway/internal/httpapi"
	"github.com/cwmia/gateway/internal/identity"
	"github.com/cwmia/gateway/internal/logging"
	"github.com/cwmia/gateway/internal/metrics"
	"github.com/cwmia/gateway/internal/store"
	"github.com/cwmia/gateway/internal/supabase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Supabase.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New("automation-gateway", cfg.Log.Level, cfg.Log.Format)

	// Two Supabase clients: the anon-key client resolves end-user tokens,
	// the service-role client reads the catalog and patches purchases.
	authClient, err := supabase.New(supabase.Config{URL: cfg.Supabase.URL, APIKey: cfg.Supabase.AnonKey})
	if err != nil {
		log.Fatalf("supabase auth client: %v", err)
	}
	adminClient, err := supabase.New(supabase.Config{URL: cfg.Supabase.URL, APIKey: cfg.Supabase.ServiceRoleKey})
	if err != nil {
		log.Fatalf("supabase admin client: %v", err)
	}

	verifier := identity.NewVerifier(authClient, cfg.Supabase.JWTSecret, logger)
	st := store.New(adminClient)
	webhook := automation.NewClient(logger)

	checkout := gateway.NewCheckoutService(verifier, st, webhook, cfg.Checkout, logger)
	generation := gateway.NewGenerationService(verifier, webhook, cfg.Generation, logger)
	callback := gateway.NewCallbackService(st, cfg.Callback, logger)

	m := metrics.New(prometheus.DefaultRegisterer)
	handler := httpapi.NewHandler(checkout, generation, callback, logger)
	router := httpapi.NewRouter(handler, m, logger, cfg.Server.CORSOrigins)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(map[string]interface{}{"port": cfg.Server.Port}).Info("gateway listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("shutdown failed")
	}
}
