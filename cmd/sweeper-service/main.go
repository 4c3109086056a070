package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gigdesk/assignq/internal/assignment/engine"
	"github.com/gigdesk/assignq/internal/assignment/storage"
	"github.com/gigdesk/assignq/internal/config"
	"github.com/gigdesk/assignq/internal/notify"
	"github.com/gigdesk/assignq/internal/sweeper"
	"github.com/gigdesk/assignq/shared/logger"
	"github.com/gigdesk/assignq/shared/postgresql"
	"github.com/gigdesk/assignq/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("SWEEPER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/sweeper-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateSweeperConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := logger.New(&logger.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cfg.Logging.Output,
		EnableSource: cfg.Logging.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting assignment queue sweeper",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("schedule", cfg.Sweeper.Schedule),
	)

	// Initialize PostgreSQL client
	dbClient, err := postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	// Promotions triggered by the sweep notify freelancers too, so the
	// sweeper carries the same dispatcher as the API service.
	var dispatcher notify.Dispatcher = notify.Nop{}
	if cfg.RabbitMQ.Host != "" {
		rabbitClient, err := rabbitmq.NewClient(&rabbitmq.Config{
			Host:               cfg.RabbitMQ.Host,
			Port:               cfg.RabbitMQ.Port,
			User:               cfg.RabbitMQ.User,
			Password:           cfg.RabbitMQ.Password,
			VHost:              cfg.RabbitMQ.VHost,
			ExchangeName:       cfg.RabbitMQ.Exchange.Name,
			ExchangeType:       cfg.RabbitMQ.Exchange.Type,
			ExchangeDurable:    cfg.RabbitMQ.Exchange.Durable,
			ExchangeAutoDelete: cfg.RabbitMQ.Exchange.AutoDelete,
			RoutingKey:         cfg.RabbitMQ.RoutingKey,
			RetryAttempts:      cfg.RabbitMQ.Connection.RetryAttempts,
			RetryInterval:      cfg.RabbitMQ.Connection.RetryInterval,
			Heartbeat:          cfg.RabbitMQ.Connection.Heartbeat,
		}, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		defer rabbitClient.Close()
		dispatcher = notify.NewAMQPDispatcher(rabbitClient, appLogger.Logger)
	} else {
		appLogger.Warn("RabbitMQ not configured, offer notifications disabled")
	}

	db := dbClient.GetDB()
	eng := engine.New(&engine.Config{
		Store:             storage.NewStorage(db, appLogger.Logger),
		Directory:         storage.NewDirectory(db, appLogger.Logger),
		Targets:           storage.NewTargets(db, appLogger.Logger),
		Dispatcher:        dispatcher,
		Logger:            appLogger.Logger,
		DefaultOfferTTL:   cfg.Engine.DefaultOfferTTL,
		DefaultQueueLimit: cfg.Engine.DefaultQueueLimit,
	})

	sw := sweeper.New(&sweeper.Config{
		Engine:   eng,
		Logger:   appLogger.Logger,
		Schedule: cfg.Sweeper.Schedule,
	})

	// Run until interrupted
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		appLogger.Info("Shutting down sweeper...")
		cancel()
	}()

	return sw.Start(ctx)
}
