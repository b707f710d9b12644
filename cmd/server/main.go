package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"itl-resource-backend/internal/application/services"
	"itl-resource-backend/internal/application/uniqueness"
	"itl-resource-backend/internal/config"
	"itl-resource-backend/internal/infrastructure/repositories/mem"
)

var (
	configPath string
	httpAddr   string
)

func main() {
	root := &cobra.Command{
		Use:          "itl-resource-backend",
		Short:        "ITL resource provider backend",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "Path to configuration file")
	root.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP address (overrides config)")
	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	root.Flags().AddGoFlagSet(klogFlags)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		klog.Errorf("server failed: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if httpAddr != "" {
		cfg.API.HTTPAddr = httpAddr
	}

	store := mem.NewStore()
	defer store.Close()
	index := uniqueness.NewIndex()

	var regOpts []services.RegistryOption
	if cfg.Limits.RatePerSecond > 0 {
		regOpts = append(regOpts, services.WithRateLimit(cfg.Limits.RatePerSecond, cfg.Limits.Burst))
	}
	registry := services.NewProviderRegistry(regOpts...)
	if err := services.RegisterBuiltins(registry, store, index, services.CatalogOptions{
		RetainDeleted: cfg.Provider.RetainDeleted,
	}); err != nil {
		return err
	}

	registry.Subject().Subscribe(func(ev services.ResourceEvent) {
		if ev.Record != nil {
			klog.Infof("event %s %s %s", ev.Op, ev.Type, ev.Record.Identity.Path)
			return
		}
		klog.Infof("event %s %s", ev.Op, ev.Type)
	})

	httpServer := setupHTTPServer(cfg, registry)

	errCh := make(chan error, 1)
	go func() {
		klog.Infof("%s %s (provider namespace %s) listening on %s, %d resource types registered",
			cfg.App.Name, cfg.App.Version, cfg.Provider.Namespace, cfg.API.HTTPAddr, len(registry.Types()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	klog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// setupHTTPServer exposes liveness/readiness and the registered type
// catalog. The resource API itself is served by the separate transport
// layer; this process only has to be observable.
func setupHTTPServer(cfg *config.Config, registry *services.ProviderRegistry) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/providers", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(registry.Types())
	})
	return &http.Server{
		Addr:    cfg.API.HTTPAddr,
		Handler: mux,
	}
}
