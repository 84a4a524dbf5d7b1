package cli

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"contest-service/internal/app"
	"contest-service/internal/config"
	"contest-service/internal/identity"
	"contest-service/internal/infra/memory"
	pgstore "contest-service/internal/infra/postgres"
	redisinfra "contest-service/internal/infra/redis"
	transport "contest-service/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the contest server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.Secret == "" {
		return fmt.Errorf("auth secret not configured")
	}

	log := newLogger(cfg.Log.Level)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var store app.Store
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()
		store = pgstore.NewStore(db)
	} else {
		log.Warn("postgres url not configured, using in-memory store")
		store = memory.NewStore()
	}

	keyTTL := config.TTLDuration(cfg.AnswerKey.TTL, 10*time.Minute)
	keys, cleanup, err := buildAnswerKeys(ctx, cfg, store, keyTTL)
	if err != nil {
		return err
	}
	defer cleanup()

	service := app.NewService(store, keys, log)
	provider := identity.NewProvider(store, identity.Config{
		Secret:   cfg.Auth.Secret,
		TokenTTL: config.TTLDuration(cfg.Auth.TokenTTL, 7*24*time.Hour),
	})
	handler := transport.NewHandler(service, provider, log, transport.Config{
		RateLimitPerSecond: cfg.RateLimit.PerSecond,
		RateLimitBurst:     cfg.RateLimit.Burst,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Infof("starting contest service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildAnswerKeys wires the scoring engine's answer-key path: Redis-backed
// when configured, in-memory otherwise, loading from Postgres when available
// and falling back to the store's question rows.
func buildAnswerKeys(ctx context.Context, cfg config.Config, store app.Store, ttl time.Duration) (app.AnswerKeyRepository, func(), error) {
	cleanup := func() {}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() { pool.Close() }
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		prev := cleanup
		cleanup = func() {
			_ = client.Close()
			prev()
		}
		if pool != nil {
			return redisinfra.NewAnswerKeyCache(client, pgstore.NewAnswerKeyLoader(pool), ttl), cleanup, nil
		}
		return redisinfra.NewAnswerKeyCache(client, memory.NewStoreLoader(store), ttl), cleanup, nil
	}

	if pool != nil {
		return memory.NewAnswerKeyCache(pgstore.NewAnswerKeyLoader(pool), ttl), cleanup, nil
	}
	return memory.NewAnswerKeyCache(memory.NewStoreLoader(store), ttl), cleanup, nil
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	log.SetOutput(os.Stdout)
	if parsed, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(parsed)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}
