package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brokerdesk/internal/app"
	"github.com/brokerdesk/internal/config"
	"github.com/brokerdesk/internal/database"
	"github.com/brokerdesk/internal/events"
	"github.com/brokerdesk/internal/pricing"
	"github.com/brokerdesk/internal/repository"
	"github.com/brokerdesk/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveMigrate  bool
	serveNoWorker bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, price feed and background workers",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "auto-migrate the schema before serving")
	serveCmd.Flags().BoolVar(&serveNoWorker, "no-workers", false, "do not run the trade monitor and swap rollover")
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()
	cfg, log := rt.cfg, rt.logger

	gin.SetMode(cfg.Server.Mode)

	if serveMigrate {
		if err := database.Migrate(rt.db); err != nil {
			return err
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("close redis", zap.Error(err))
		}
	}()

	quotes := newPricing(cfg, rdb, repository.NewInstrumentRepository(rt.db), log.Named("pricing"))
	publisher := newPublisher(cfg, log.Named("events"))
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("close publisher", zap.Error(err))
		}
	}()

	a, err := app.New(rt.db, quotes, publisher, app.OptionsFrom(cfg, Version), log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := quotes.Start(ctx); err != nil {
		log.Warn("price stream not started", zap.Error(err))
	}
	defer quotes.Stop()

	if !serveNoWorker {
		monitor := worker.NewTradeMonitor(a.Trades, quotes, cfg.Trading.MonitorInterval, log.Named("monitor"))
		swaps := worker.NewSwapWorker(a.Trades, cfg.Trading.SwapRolloverHour, log.Named("swap"))
		go monitor.Start(ctx)
		go swaps.Start(ctx)
		defer monitor.Stop()
		defer swaps.Stop()
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("addr", srv.Addr), zap.String("version", Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("Server exited properly")
	return nil
}

func newPricing(cfg *config.Config, rdb *redis.Client, instruments pricing.Instruments, log *zap.Logger) *pricing.Service {
	opts := []pricing.Option{pricing.WithCache(pricing.NewRedisCache(rdb, cfg.Pricing.StaleAfter))}
	if cfg.Pricing.QuoteAPIURL != "" {
		opts = append(opts, pricing.WithREST(pricing.NewRESTProvider(
			cfg.Pricing.QuoteAPIURL, cfg.Pricing.QuoteAPIKey, cfg.Pricing.RateLimit, cfg.Pricing.RateLimitBurst, log)))
	}
	if cfg.Pricing.BinanceWSURL != "" {
		opts = append(opts, pricing.WithStream(pricing.NewBinanceStream(cfg.Pricing.BinanceWSURL, log)))
	}
	return pricing.NewService(instruments, cfg.Pricing.StaleAfter, log, opts...)
}

func newPublisher(cfg *config.Config, log *zap.Logger) events.Publisher {
	if !cfg.Kafka.Enabled {
		return events.Nop{}
	}
	log.Info("publishing events to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	return events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), log)
}
