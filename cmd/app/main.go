package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"os"

	"github.com/sushihentaime/showcase/internal/attachment"
	"github.com/sushihentaime/showcase/internal/common"
	"github.com/sushihentaime/showcase/internal/contentservice"
	"github.com/sushihentaime/showcase/internal/mailservice"
	"github.com/sushihentaime/showcase/internal/userservice"
)

type application struct {
	config      *Config
	logger      *slog.Logger
	db          *sql.DB
	userService userService
	entities    []entityService
}

func main() {
	configPath := flag.String("config", ".env", "path to an env file with configuration values")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger = newLogger(cfg)

	err = run(cfg, logger)
	if err != nil {
		logger.Error("application stopped with an error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(slog.String("env", cfg.Environment))
}

func run(cfg *Config, logger *slog.Logger) error {
	db, err := common.NewDB(cfg.db())
	if err != nil {
		return err
	}
	defer func() {
		if err := common.CloseDB(db); err != nil {
			logger.Error("failed to close the database", slog.String("error", err.Error()))
		}
	}()
	logger.Info("database connection established")

	if cfg.AutoMigrate {
		if err := migrateUp(cfg); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	cache := common.NewCache(cfg.CacheTTL, 2*cfg.CacheTTL)

	var (
		broker   *common.MessageBroker
		producer common.MessageProducer
	)
	if cfg.MQHost != "" {
		broker, err = common.NewMessageBroker(common.AMQPURI(cfg.MQUser, cfg.MQPassword, cfg.MQHost, cfg.MQPort))
		if err != nil {
			return err
		}
		defer broker.Close()

		err = common.SetupUserExchange(broker)
		if err != nil {
			return err
		}
		producer = broker
		logger.Info("message broker connected", slog.String("host", cfg.MQHost))
	} else {
		logger.Warn("RABBITMQ_HOST is not set, user events will not be published")
	}

	tokens := userservice.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	users := userservice.NewUserService(db, producer, cache, tokens, logger)

	if cfg.AdminUsername != "" {
		created, err := users.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminPassword, cfg.AdminEmail)
		if err != nil {
			return err
		}
		if created {
			logger.Info("bootstrap admin created", slog.String("username", cfg.AdminUsername))
		}
	}

	var (
		services []*contentservice.EntityService
		entities []entityService
	)
	for _, r := range contentservice.Resources() {
		store := attachment.New(cfg.UploadDir, r.Dir, cfg.PublicBaseURL)
		if err := os.MkdirAll(store.Path(), 0o755); err != nil {
			return err
		}

		svc := contentservice.NewEntityService(db, r, store, cache, logger)
		services = append(services, svc)
		entities = append(entities, svc)
	}

	if broker != nil && cfg.MailHost != "" {
		mail := mailservice.NewMailService(broker, cfg.MailHost, cfg.MailUser, cfg.MailPassword, cfg.MailSender, cfg.MailPort, cfg.PublicBaseURL, logger)
		if err := mail.SendWelcomeEmail(); err != nil {
			return err
		}
		defer mail.Close()
	}

	if cfg.ReconcileInterval > 0 {
		reconciler := contentservice.NewReconciler(services, cfg.ReconcileInterval, cfg.ReconcileGrace, logger)
		reconciler.Start(context.Background())
		defer reconciler.Stop()
	}

	app := &application{
		config:      cfg,
		logger:      logger,
		db:          db,
		userService: users,
		entities:    entities,
	}

	return app.serve()
}

func migrateUp(cfg *Config) error {
	m, err := common.Migrate(cfg.Migrations, cfg.db().DSN())
	if err != nil {
		return err
	}

	srcErr, dbErr := m.Close()
	return errors.Join(srcErr, dbErr)
}
