package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/account-api/internal/config"
	"github.com/iliyamo/account-api/internal/database"
	"github.com/iliyamo/account-api/internal/handler"
	"github.com/iliyamo/account-api/internal/logger"
	"github.com/iliyamo/account-api/internal/mailer"
	"github.com/iliyamo/account-api/internal/middleware"
	"github.com/iliyamo/account-api/internal/notify"
	"github.com/iliyamo/account-api/internal/queue"
	"github.com/iliyamo/account-api/internal/repository"
	"github.com/iliyamo/account-api/internal/router"
	"github.com/iliyamo/account-api/internal/service"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "read .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting and avatar cache disabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		defer func() { _ = rdb.Close() }()
	}

	store, err := service.NewCredentialStore(repo, cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("credential store: %w", err)
	}
	tokens := service.NewTokenManager(store, cfg.JWTSecret)
	cache := middleware.NewAvatarCache(cfg.Cache, rdb, log)
	dispatcher := notify.NewAsync(newSink(cfg, log), log, cfg.NotifyTimeout)
	accounts := service.NewAccountService(store, tokens, service.NewAvatarProcessor(), dispatcher, cache, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(log), middleware.Prometheus(), echomw.Recover())
	router.RegisterRoutes(e, router.Deps{
		Users:       handler.NewUserHandler(accounts, log, cfg.RequestTimeout),
		Auth:        middleware.SessionAuth(accounts, log),
		RateLimit:   middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
		AvatarCache: cache.Middleware(),
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env),
			zap.String("store", cfg.StoreDriver), zap.String("notify", cfg.NotifyDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		log.Warn("pending notifications abandoned", zap.Error(err))
	}
	return nil
}

// openStore connects the configured backend and prepares its schema.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (repository.UserRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, db, err := database.OpenMongo(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		repo := repository.NewMongoUserRepo(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil
	case config.StoreMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return repository.NewMemoryUserRepo(), func() {}, nil
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mysql: %w", err)
		}
		repo := repository.NewUserRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("mysql schema: %w", err)
		}
		return repo, func() { _ = db.Close() }, nil
	}
}

func newSink(cfg config.Config, log *zap.Logger) notify.Sink {
	if cfg.NotifyDriver == config.NotifyAMQP {
		return queue.NewPublisher(cfg.AMQPURL)
	}
	return mailer.NewLogMailer(cfg.SMTP.From, log.Named("mailer"))
}
