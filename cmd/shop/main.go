package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ElenaBezro/go-shop-api/internal/auth"
	"github.com/ElenaBezro/go-shop-api/internal/cache"
	"github.com/ElenaBezro/go-shop-api/internal/httpapi"
	"github.com/ElenaBezro/go-shop-api/internal/outbox"
	"github.com/ElenaBezro/go-shop-api/internal/repository"
	"github.com/ElenaBezro/go-shop-api/internal/service"
)

type config struct {
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	DBHost        string `envconfig:"DB_HOST" default:"localhost"`
	DBPort        int    `envconfig:"DB_PORT" default:"5432"`
	DBUser        string `envconfig:"DB_USER" default:"postgres"`
	DBPassword    string `envconfig:"DB_PASSWORD" required:"true"`
	DBName        string `envconfig:"DB_NAME" default:"shop"`
	MigrationsDir string `envconfig:"MIGRATIONS_DIR" default:"migrations"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	KafkaBrokers []string      `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string        `envconfig:"KAFKA_TOPIC" default:"shop.orders"`
	OutboxPoll   time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`

	JWTSecret   string        `envconfig:"JWT_SECRET" required:"true"`
	JWTLifetime time.Duration `envconfig:"JWT_LIFETIME" default:"24h"`

	AdminUsername string `envconfig:"ADMIN_USERNAME" default:"admin"`
	AdminEmail    string `envconfig:"ADMIN_EMAIL" default:"admin@localhost"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD" required:"true"`
}

func main() {
	log, err := zap.NewProduction(zap.Fields(zap.String("service", "shop-api")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log); err != nil {
		log.Fatal("shop api exited", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	var cfg config
	if err := envconfig.Process("SHOP", &cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cred := &repository.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.MigrationsDir,
	}
	pg, err := repository.NewPostgres(cred)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pg.Close()

	if err := pg.RunMigrations(cred); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info("migrations applied")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	cartCache := cache.NewRedisCache(redisClient)

	stores := pg.Stores()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTLifetime)

	authService := auth.NewService(stores.Users, tokens, log)
	productService := service.NewProductService(stores, log)
	cartService := service.NewCartService(stores, cartCache, log)
	orderService := service.NewOrderService(pg, stores, cartCache, log)

	if err := authService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return fmt.Errorf("bootstrap admin user: %w", err)
	}

	if len(cfg.KafkaBrokers) > 0 {
		writer := &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.KafkaTopic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		}
		defer writer.Close()

		poller := outbox.NewPoller(stores.Outbox, writer, log, cfg.OutboxPoll, 50)
		go poller.Run(ctx)
	} else {
		log.Warn("no kafka brokers configured, outbox events will accumulate")
	}

	router := httpapi.NewRouter(
		log,
		tokens,
		httpapi.NewAuthHandler(authService),
		httpapi.NewProductHandler(productService),
		httpapi.NewCartHandler(cartService),
		httpapi.NewOrderHandler(orderService),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.Int("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	return nil
}
