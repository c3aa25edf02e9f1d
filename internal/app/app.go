package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/405153-Masera/deviaje-users-and-auth/internal/auth"
	"github.com/405153-Masera/deviaje-users-and-auth/internal/config"
	"github.com/405153-Masera/deviaje-users-and-auth/internal/event"
	handler "github.com/405153-Masera/deviaje-users-and-auth/internal/handler/http"
	"github.com/405153-Masera/deviaje-users-and-auth/internal/mailer"
	"github.com/405153-Masera/deviaje-users-and-auth/internal/repository/postgres"
	"github.com/405153-Masera/deviaje-users-and-auth/internal/service"
	"github.com/405153-Masera/deviaje-users-and-auth/migrations"
	"github.com/405153-Masera/deviaje-users-and-auth/pkg/database"
	"github.com/405153-Masera/deviaje-users-and-auth/pkg/health"
	pkgkafka "github.com/405153-Masera/deviaje-users-and-auth/pkg/kafka"
	"github.com/405153-Masera/deviaje-users-and-auth/pkg/tracing"
)

const serviceName = "users-and-auth"

// App wires together all dependencies and runs the service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	producer       *pkgkafka.Producer
	mailer         *mailer.Mailer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TraceSampleRate,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// PostgreSQL connection pool.
	pgCfg := database.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		DBName:   cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, serviceName)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Mailer: real SMTP when enabled, log-only otherwise.
	var sender mailer.Sender
	if cfg.EmailEnabled {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		sender = &mailer.LogSender{Logger: logger}
	}
	mail := mailer.New(sender, cfg.FrontendBaseURL, logger)

	// Build the dependency graph.
	codec := auth.NewCodec(cfg.JWTSecret)
	hasher := service.NewPasswordHasher(service.DefaultBcryptCost)
	userRepo := postgres.NewUserRepository(pool)
	roleRepo := postgres.NewRoleRepository(pool)
	refreshRepo := postgres.NewRefreshTokenRepository(pool)
	resetRepo := postgres.NewPasswordResetTokenRepository(pool)
	reviewRepo := postgres.NewReviewRepository(pool)
	eventProducer := event.NewProducer(producer, logger)

	authService := service.NewAuthService(userRepo, refreshRepo, codec, hasher, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry, logger)
	passwordService := service.NewPasswordService(userRepo, resetRepo, refreshRepo, hasher, mail, eventProducer, cfg.PasswordResetExpiry, logger)
	userService := service.NewUserService(userRepo, roleRepo, refreshRepo, resetRepo, hasher, mail, eventProducer, logger)
	reviewService := service.NewReviewService(reviewRepo, logger)

	// Health checks: postgres is critical, kafka degrades gracefully.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	router := handler.NewRouter(handler.RouterDeps{
		AuthService:     authService,
		PasswordService: passwordService,
		UserService:     userService,
		ReviewService:   reviewService,
		Codec:           codec,
		HealthHandler:   healthHandler,
		Logger:          logger,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		producer:       producer,
		mailer:         mail,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Mailer (flush queued emails)
// 3. Tracer (flush pending spans from drained requests)
// 4. Kafka producer
// 5. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// Drained requests may have enqueued mail; flush before closing deps.
	a.mailer.Close()

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
