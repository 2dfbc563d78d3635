package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"

	"github.com/brojonat/salesbot/service/config"
	"github.com/brojonat/salesbot/service/db"
	"github.com/brojonat/salesbot/service/discord"
	"github.com/brojonat/salesbot/service/logging"
	"github.com/brojonat/salesbot/service/metadata"
	"github.com/brojonat/salesbot/service/metrics"
	natspkg "github.com/brojonat/salesbot/service/nats"
	"github.com/brojonat/salesbot/service/sales"
	"github.com/brojonat/salesbot/service/solana"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Poll the project address and post sales until interrupted",
		Description: `Required environment:
  PROJECT_ADDRESS  base58 address whose transactions are watched
  DISCORD_URL      Discord webhook URL

Optional: SOLANA_RPC_URL, APP_ENV, LOG_LEVEL, POLL_INTERVAL, FETCH_RETRY_DELAY,
SIGNATURE_LIMIT, HTTP_TIMEOUT, METRICS_ADDR, NATS_URL, DATABASE_URL.`,
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				logger, _ := logging.New(os.Getenv("APP_ENV"), "", os.Stderr)
				logger.Error("invalid configuration", "error", err)
				return cli.Exit("", 1)
			}

			logger, err := logging.New(cfg.AppEnv, cfg.LogLevel, os.Stderr)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := runBot(ctx, cfg, logger); err != nil {
				logger.Error("sales bot stopped", "error", err)
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

// runBot wires every component from cfg and runs the poller until ctx is done.
func runBot(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metricsCollector := metrics.NewMetrics(registry)

	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr, metrics.NewHandler(metricsCollector, registry), logger)
		defer shutdown()
	}

	endpoint, err := solana.SelectRandomEndpoint(cfg.SolanaRPCURLs)
	if err != nil {
		return err
	}
	solanaClient := solana.NewClient(solana.NewRPCClient(endpoint), endpoint, cfg.SignatureLimit, metricsCollector, logger)
	logger.Info("initialized solana RPC client",
		"endpoint", endpoint,
		"total_endpoints", len(cfg.SolanaRPCURLs),
	)

	httpClient := resty.New().SetTimeout(cfg.HTTPTimeout)
	metadataClient := metadata.NewClient(solanaClient, httpClient, metricsCollector, logger)

	webhook, err := discord.NewWebhook(cfg.DiscordURL, httpClient, logger)
	if err != nil {
		return err
	}
	sinks := []sales.Sink{{Name: "discord", Notifier: webhook}}

	if cfg.NATSURL != "" {
		publisher, err := natspkg.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()
		sinks = append(sinks, sales.Sink{Name: "nats", Notifier: natspkg.SaleNotifier{Publisher: publisher}})
	}

	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store := db.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		logger.Info("connected to database")
		sinks = append(sinks, sales.Sink{Name: "postgres", Notifier: store})
	}

	notifier := sales.NewMultiNotifier(metricsCollector, sinks...)
	address := cfg.ProjectAddress.String()

	processor := sales.NewProcessor(solanaClient, metadataClient, sales.DefaultRegistry(), notifier, address, metricsCollector, logger)
	poller := sales.NewPoller(solanaClient, processor, sales.PollerConfig{
		Address:      cfg.ProjectAddress,
		PollInterval: cfg.PollInterval,
		RetryPolicy:  sales.RetryPolicyFor(cfg.FetchRetryDelay),
	}, metricsCollector, logger)

	logger.Info("sales bot initialized, all dependencies ready",
		"address", address,
		"sinks", notifier.Sinks(),
		"env", cfg.AppEnv,
	)

	err = poller.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Info("shutting down sales bot")
		return nil
	}
	return err
}

// serveMetrics starts the metrics server in the background and returns its shutdown func.
func serveMetrics(addr string, handler http.Handler, logger *slog.Logger) func() {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting metrics HTTP server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", "error", err)
		}
	}
}

// stderrLogger is used by the inspection commands, which only log failures.
func stderrLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelError}))
}
