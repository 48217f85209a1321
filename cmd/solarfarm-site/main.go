package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwvelando/solarfarm-site/internal/assessment"
	"github.com/iwvelando/solarfarm-site/internal/config"
	"github.com/iwvelando/solarfarm-site/internal/logging"
	"github.com/iwvelando/solarfarm-site/internal/notify"
	"github.com/iwvelando/solarfarm-site/internal/ratelimit"
	"github.com/iwvelando/solarfarm-site/internal/retention"
	"github.com/iwvelando/solarfarm-site/internal/server"
	"github.com/iwvelando/solarfarm-site/internal/store"
	"github.com/iwvelando/solarfarm-site/internal/store/memory"
	"github.com/iwvelando/solarfarm-site/internal/store/postgres"
	"github.com/iwvelando/solarfarm-site/pkg/constants"
	"github.com/iwvelando/solarfarm-site/pkg/finance"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const redisPingTimeout = 3 * time.Second

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to site configuration file")
	serverConfigLocation := flag.String("server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	conf := config.Default()
	if config.Exists(*configLocation) {
		loaded, err := config.LoadConfiguration(*configLocation)
		if err != nil {
			fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
			os.Exit(1)
		}
		conf = loaded
	}

	serverConf, err := server.LoadConfig(*serverConfigLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load server configuration at %s\", \"error\": \"%v\"}\n", *serverConfigLocation, err)
		os.Exit(1)
	}

	logger, err := logging.New(mergeLogging(conf.Logging, serverConf.Logging), *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	if err := run(logger, conf, serverConf); err != nil {
		logger.Fatal("server failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}

func run(logger *zap.Logger, conf *config.Configuration, serverConf *server.Config) error {
	ctx := context.Background()

	assumptions, err := conf.Market.Assumptions()
	if err != nil {
		return err
	}
	engine, err := finance.NewEngine(assumptions)
	if err != nil {
		return err
	}
	coefficients, err := conf.Assessment.Coefficients()
	if err != nil {
		return err
	}
	estimator, err := assessment.NewEstimator(coefficients)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, logger, conf.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var (
		limiter  ratelimit.Limiter
		notifier notify.Notifier = notify.NewLogNotifier(logger)
	)
	if conf.Redis.Addr != "" {
		client, err := openRedis(ctx, conf.Redis)
		if err != nil {
			return err
		}
		defer func() {
			_ = client.Close()
		}()
		limiter = ratelimit.NewRedis(client, conf.RateLimit.Requests, conf.RateLimit.Window)
		notifier = notify.Multi{notifier, notify.NewRedisNotifier(client, conf.Redis.Channel)}
		logger.Info("using redis for rate limiting and notifications",
			zap.String("op", "main.run"),
			zap.String("addr", conf.Redis.Addr),
			zap.String("channel", conf.Redis.Channel),
		)
	} else {
		memLimiter := ratelimit.NewMemory(conf.RateLimit.Requests, conf.RateLimit.Window, conf.RateLimit.Burst)
		defer memLimiter.Stop()
		limiter = memLimiter
	}

	job, err := retention.NewJob(st, conf.Retention.CalculationDays, conf.Retention.Schedule, logger)
	if err != nil {
		return err
	}
	if err := job.Start(); err != nil {
		return err
	}

	handler := server.NewHandler(logger, server.Dependencies{
		Engine:    engine,
		Estimator: estimator,
		Store:     st,
		Notifier:  notifier,
		Limiter:   limiter,
	}, serverConf.BodySizeBytes(), version)

	srv := &http.Server{
		Addr:         serverConf.Address,
		Handler:      handler,
		ReadTimeout:  serverConf.ReadTimeout,
		WriteTimeout: serverConf.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("op", "main.run"),
			zap.String("address", serverConf.Address),
			zap.String("version", version),
			zap.Int64("maxBodySize", serverConf.BodySizeBytes()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		job.Stop(ctx)
		return fmt.Errorf("failed to serve: %w", err)
	case sig := <-quit:
		logger.Info("shutting down server",
			zap.String("op", "main.run"),
			zap.String("signal", sig.String()),
		)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, serverConf.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during server shutdown",
			zap.String("op", "main.run"),
			zap.Error(err),
		)
	}
	job.Stop(shutdownCtx)

	logger.Info("server exited", zap.String("op", "main.run"))
	return nil
}

func openStore(ctx context.Context, logger *zap.Logger, db config.DatabaseConfig) (store.Store, error) {
	if db.DSN == "" {
		logger.Warn("no database configured, records are kept in memory",
			zap.String("op", "main.openStore"),
		)
		return memory.New(), nil
	}

	pg, err := postgres.Open(ctx, postgres.Options{
		DSN:            db.DSN,
		MaxConns:       db.MaxConns,
		MinConns:       db.MinConns,
		ConnectTimeout: db.ConnectTimeout,
		PingTimeout:    db.PingTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	return pg, nil
}

func openRedis(ctx context.Context, rc config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", rc.Addr, err)
	}
	return client, nil
}

// mergeLogging lets the server configuration override the site logging settings field by field.
func mergeLogging(site, srv config.LoggingConfig) config.LoggingConfig {
	if srv.Level != "" {
		site.Level = srv.Level
	}
	if srv.Format != "" {
		site.Format = srv.Format
	}
	if srv.OutputFile != "" {
		site.OutputFile = srv.OutputFile
	}
	return site
}
