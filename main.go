package main

import (
	"context"
	"fmt"
	"log"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"seamless/config"
	"seamless/controllers/callback/slots/playstar"
	"seamless/controllers/callback/slots/pragmatic"
	"seamless/controllers/callback/slots/telo"
	"seamless/controllers/callback/sportsbook/saba"
	"seamless/controllers/callback/sportsbook/sbo"
	"seamless/database"
	"seamless/helpers"
	"seamless/jobs"
	"seamless/reconcile"
	"seamless/routes"
	"seamless/store"
	"seamless/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, cleanup, err := helpers.InitializeLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer cleanup()

	if err := run(cfg); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	creds, err := config.LoadCredentials(cfg.CredentialsFile, cfg.Environment)
	if err != nil {
		return fmt.Errorf("credentials: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	ledger, err := newLedger(ctx, cfg.Ledger, creds)
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := reconcile.NewMetrics(reg)

	engine := func(provider string) *reconcile.Engine {
		return reconcile.New(provider, store.NewGorm(db, provider), ledger, metrics, reconcile.Options{
			AutoEnroll:    cfg.Reconcile.AutoEnroll,
			LedgerTimeout: cfg.Ledger.Timeout,
		})
	}

	engines := map[string]*reconcile.Engine{}
	for _, provider := range []string{playstar.Provider, pragmatic.Provider, saba.Provider, sbo.Provider, telo.Provider} {
		engines[provider] = engine(provider)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          routes.ErrorHandler,
	})
	app.Use(recover.New())
	routes.Setup(app, creds, routes.Handlers{
		Playstar:  playstar.NewHandler(engines[playstar.Provider]),
		Pragmatic: pragmatic.NewHandler(engines[pragmatic.Provider]),
		Saba:      saba.NewHandler(engines[saba.Provider]),
		Sbo:       sbo.NewHandler(engines[sbo.Provider]),
		Telo:      telo.NewHandler(engines[telo.Provider]),
	}, reg)

	var expiryDone <-chan struct{}
	if cfg.Reconcile.WaitingTTL > 0 {
		expiryDone = jobs.StartWaitingExpiry(ctx, slices.Collect(maps.Values(engines)), cfg.Reconcile.ExpiryEvery, cfg.Reconcile.WaitingTTL)
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("Server running",
			zap.String("addr", cfg.Addr()),
			zap.String("environment", cfg.Environment),
			zap.String("ledger", cfg.Ledger.Backend),
			zap.String("database", cfg.Database.Driver))
		errCh <- app.Listen(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("Gracefully shutting down...")
	if err := app.Shutdown(); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if expiryDone != nil {
		<-expiryDone
	}
	closeDB(db)
	zap.L().Info("Server exited cleanly")
	return nil
}

func newLedger(ctx context.Context, cfg config.LedgerConfig, creds *config.CredentialTable) (wallet.Gateway, error) {
	switch cfg.Backend {
	case "formance":
		return wallet.NewFormance(ctx, cfg.Formance)
	case "memory":
		zap.L().Warn("Using the in-memory ledger; balances are lost on restart")
		return wallet.NewMemory(), nil
	default:
		return wallet.NewHTTP(cfg.BaseURL, cfg.Timeout, creds), nil
	}
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		zap.L().Warn("Failed to close database", zap.Error(err))
	}
}
