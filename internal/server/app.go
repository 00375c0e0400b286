// Package server wires configuration, storage, integrations and services
// together and runs the gRPC endpoint until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/dmitrijs2005/docvault/internal/server/blobstore"
	"github.com/dmitrijs2005/docvault/internal/server/config"
	"github.com/dmitrijs2005/docvault/internal/server/connections"
	"github.com/dmitrijs2005/docvault/internal/server/events"
	"github.com/dmitrijs2005/docvault/internal/server/lockout"
	"github.com/dmitrijs2005/docvault/internal/server/notify"
	"github.com/dmitrijs2005/docvault/internal/server/password"
	"github.com/dmitrijs2005/docvault/internal/server/ratelimit"
	"github.com/dmitrijs2005/docvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docvault/internal/server/services"
	"github.com/dmitrijs2005/docvault/internal/server/tokens"

	gs "github.com/dmitrijs2005/docvault/internal/server/grpc"
)

type App struct {
	config          *config.Config
	logger          logging.Logger
	issuer          *tokens.Issuer
	userService     *services.UserService
	documentService *services.DocumentService
	closers         []func() error
}

// NewApp connects to every configured backend and builds the services.
// Optional integrations fall back to in-process stand-ins when their
// address is empty.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)
	app := &App{config: c, logger: logger}

	if err := app.init(ctx); err != nil {
		app.close()
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	issuer, err := tokens.NewIssuer(tokens.Secrets{
		Access:       c.AccessTokenSecret,
		Refresh:      c.RefreshTokenSecret,
		Verification: c.VerificationTokenSecret,
		Reset:        c.ResetTokenSecret,
	})
	if err != nil {
		return fmt.Errorf("token issuer init error: %w", err)
	}
	app.issuer = issuer

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	app.closers = append(app.closers, db.Close)
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	blobs, err := blobstore.NewS3Store(ctx, blobstore.Config{
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
	})
	if err != nil {
		return fmt.Errorf("blob store init error: %w", err)
	}

	graphClient, err := connections.NewNeo4jClient(ctx, connections.Options{
		URI:      c.Neo4jURI,
		Username: c.Neo4jUser,
		Password: c.Neo4jPassword,
		Database: c.Neo4jDatabase,
	})
	if err != nil {
		return fmt.Errorf("connection graph init error: %w", err)
	}
	app.closers = append(app.closers, func() error { return graphClient.Close(context.Background()) })

	notifier, err := app.newNotifier()
	if err != nil {
		return err
	}
	limiter, err := app.newLimiter(ctx)
	if err != nil {
		return err
	}
	publisher := app.newPublisher()

	tx := dbx.NewSQLTransactor(db)

	app.userService = services.NewUserService(services.UserDeps{
		DB:       tx,
		Repos:    rm,
		Tokens:   issuer,
		Hasher:   password.NewArgon2(password.DefaultParams),
		Lockout:  lockout.NewGuard(lockout.Config{Threshold: c.LockoutThreshold, Window: c.LockoutWindow}),
		Notifier: notifier,
		Limiter:  limiter,
		Events:   publisher,
		Logger:   app.logger,
	}, c)

	app.documentService = services.NewDocumentService(services.DocumentDeps{
		DB:     tx,
		Repos:  rm,
		Blobs:  blobs,
		Graph:  connections.NewNeo4jGraph(graphClient),
		Events: publisher,
		Logger: app.logger,
	}, c)

	return nil
}

func (app *App) newNotifier() (notify.Dispatcher, error) {
	if app.config.RabbitMQURL == "" {
		app.logger.Warn(context.Background(), "RabbitMQ not configured, notifications are only logged")
		return notify.NewLogDispatcher(app.logger), nil
	}
	rc, err := notify.DialRabbit(app.config.RabbitMQURL, notify.EmailQueue, notify.SMSQueue)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq init error: %w", err)
	}
	app.closers = append(app.closers, rc.Close)
	return notify.NewQueueDispatcher(rc, app.logger), nil
}

func (app *App) newLimiter(ctx context.Context) (ratelimit.Limiter, error) {
	if app.config.RedisAddr == "" {
		app.logger.Warn(ctx, "Redis not configured, password reset requests are not throttled")
		return ratelimit.Unlimited{}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: app.config.RedisAddr})
	app.closers = append(app.closers, client.Close)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping error: %w", err)
	}
	return ratelimit.NewRedisLimiter(client, ratelimit.Config{
		Prefix:      "forgot_password:",
		MaxAttempts: app.config.ForgotPasswordMaxAttempts,
		Window:      app.config.ForgotPasswordWindow,
	}), nil
}

func (app *App) newPublisher() events.Publisher {
	brokers := app.config.Brokers()
	if len(brokers) == 0 {
		return events.Nop{}
	}
	p := events.NewKafkaPublisher(brokers, app.config.KafkaTopic)
	app.closers = append(app.closers, p.Close)
	return p
}

func (app *App) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil && err != io.EOF {
			app.logger.Warn(context.Background(), "close error", "error", err)
		}
	}
	app.closers = nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.documentService, app.issuer)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases every backend connection.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()
	app.close()
}
