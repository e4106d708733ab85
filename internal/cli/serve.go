package cli

import (
	"context"
	"fmt"
	"time"

	"eshop/internal/app"
	"eshop/internal/config"
	"eshop/internal/database"
	"eshop/internal/models"
	"eshop/internal/repositories"
	"eshop/pkg/mailbox"
	"eshop/pkg/metrics"
	"eshop/pkg/rabbitmq"
	"eshop/pkg/redisstore"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront API and the outbox relay",
		Long: `Run the storefront API.

The server migrates the database, seeds the product catalog, serves the REST
API and the static pages, and relays pending notifications into the mailbox
buckets.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := rootOpts.load()
			if err != nil {
				return err
			}
			defer log.Sync()
			return runServe(cmd.Context(), cfg, log)
		},
	}
}

func runServe(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN, log)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	products, err := database.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return err
	}
	if err := database.SeedProducts(ctx, repositories.NewGORMProductRepository(db), products); err != nil {
		return err
	}
	log.Info("Catalog seeded", zap.Int("products", len(products)))

	mb, err := mailbox.New(ctx, mailboxConfig(cfg))
	if err != nil {
		return err
	}
	for _, bucket := range []string{models.BucketUserRegistrations, models.BucketOrderConfirmations} {
		if err := mb.EnsureBucket(ctx, bucket); err != nil {
			// The relay keeps the events pending until the mailbox is back.
			log.Warn("Mailbox bucket not ready", zap.String("bucket", bucket), zap.Error(err))
		}
	}

	opts := app.Options{
		DB:         db,
		Mailbox:    mb,
		Logger:     log,
		Metrics:    metrics.New("api"),
		SecretKey:  cfg.SecretKey,
		PublicDir:  cfg.PublicDir,
		LoginRate:  rate.Every(6 * time.Second),
		LoginBurst: 10,
	}

	if cfg.RabbitMQURL != "" {
		// Connects on first use; events stay pending while the broker is down.
		mq := rabbitmq.NewAnnouncer(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
		defer mq.Close()
		opts.Announcer = mq
	}

	if cfg.RedisURL != "" {
		store, err := redisstore.New(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("Redis not available, using in-memory sessions", zap.Error(err))
		} else {
			defer store.Close()
			opts.Sessions = store
			log.Info("Using Redis for session storage")
		}
	}

	a := app.New(opts)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting server", zap.String("addr", cfg.AppPort))
		if err := a.Fiber.Listen(cfg.AppPort); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down server")
		return a.Fiber.ShutdownWithTimeout(10 * time.Second)
	})
	interval := cfg.OutboxInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	g.Go(func() error {
		return a.Relay.Run(ctx, interval)
	})
	return g.Wait()
}

func mailboxConfig(cfg config.Config) mailbox.Config {
	return mailbox.Config{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Region:    cfg.MinioRegion,
	}
}
