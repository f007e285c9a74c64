package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/cityfix/pkg/api"
	"github.com/cuemby/cityfix/pkg/auth"
	"github.com/cuemby/cityfix/pkg/events"
	"github.com/cuemby/cityfix/pkg/issues"
	"github.com/cuemby/cityfix/pkg/log"
	"github.com/cuemby/cityfix/pkg/messages"
	"github.com/cuemby/cityfix/pkg/metrics"
	"github.com/cuemby/cityfix/pkg/notify"
	"github.com/cuemby/cityfix/pkg/payments"
	"github.com/cuemby/cityfix/pkg/stats"
	"github.com/cuemby/cityfix/pkg/storage"
	"github.com/cuemby/cityfix/pkg/users"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the CityFix API server",
	Long: `Run the CityFix REST API.

The server needs a JWT signing secret (auth.jwt_secret or
CITYFIX_AUTH_JWT_SECRET). Payments stay disabled until a Stripe secret key
is configured.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.WithComponent("serve")
	metrics.SetVersion(Version)

	store, err := storage.NewBoltStore(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()
	metrics.RegisterComponent(metrics.ComponentStorage, true, "")

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	metrics.RegisterComponent(metrics.ComponentEvents, true, "")

	dispatcher := notify.NewDispatcher(store, broker)
	dispatcher.Start()
	defer dispatcher.Stop()

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	issueSvc := issues.NewService(store, broker, issues.Config{FreeIssueLimit: cfg.Quota.FreeIssueLimit})

	var gateway payments.Gateway
	if cfg.Payments.Enabled() {
		gateway = payments.NewStripeGateway(cfg.Payments.StripeSecretKey, cfg.Payments.StripeWebhookSecret)
		metrics.RegisterComponent(metrics.ComponentPayments, true, "")
	} else {
		metrics.RegisterComponent(metrics.ComponentPayments, true, "disabled")
		logger.Warn().Msg("No Stripe secret key configured, payments disabled")
	}
	paymentSvc := payments.NewService(store, gateway, issueSvc, broker, payments.Config{
		PremiumAmount: cfg.Payments.PremiumAmount,
		BoostAmount:   cfg.Payments.BoostAmount,
		Currency:      cfg.Payments.Currency,
		SuccessURL:    cfg.Payments.SuccessURL,
		CancelURL:     cfg.Payments.CancelURL,
	})

	server := api.NewServer(api.Config{
		Addr:              cfg.Server.Addr,
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
		TrustProxy:        cfg.Server.TrustProxy,
		RequestsPerSecond: cfg.Rate.RequestsPerSecond,
		Burst:             cfg.Rate.Burst,
	}, api.Services{
		Store:    store,
		Tokens:   tokens,
		Users:    users.NewService(store, auth.NewHasher(cfg.Auth.BcryptCost), tokens, broker),
		Issues:   issueSvc,
		Notify:   notify.NewService(store),
		Messages: messages.NewService(store, broker),
		Payments: paymentSvc,
		Stats:    stats.NewService(store),
	})

	collector := metrics.NewCollector(store, broker, metrics.DefaultCollectInterval)
	collector.Start()
	defer collector.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("CityFix %s listening on %s\n", Version, cfg.Server.Addr)
	fmt.Println("Press Ctrl+C to stop.")

	// Wait for interrupt signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("API server error: %w", err)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}

	fmt.Println("✓ Shutdown complete")
	return nil
}
