// Command pinboard-server serves the pinboard pages, JSON API and gRPC health endpoint.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/pinboard/internal/config"
	"github.com/and161185/pinboard/internal/feed"
	"github.com/and161185/pinboard/internal/layout"
	"github.com/and161185/pinboard/internal/limiter"
	"github.com/and161185/pinboard/internal/migrate"
	"github.com/and161185/pinboard/internal/repository/postgres"
	grpcserver "github.com/and161185/pinboard/internal/server/grpc"
	httpserver "github.com/and161185/pinboard/internal/server/http"
	"github.com/and161185/pinboard/internal/service"
	"github.com/and161185/pinboard/internal/session"
	"github.com/and161185/pinboard/internal/setup"
	"github.com/and161185/pinboard/internal/storage"
	"github.com/gin-gonic/gin"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const shutdownGrace = 5 * time.Second

// main reads configuration, runs migrations and serves HTTP and gRPC until a signal arrives.
func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger not built yet
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	// Flags override the environment.
	flag.StringVar(&cfg.HTTP.Addr, "addr", cfg.HTTP.Addr, "HTTP listen address")
	flag.StringVar(&cfg.GRPC.Addr, "grpc-addr", cfg.GRPC.Addr, "gRPC health listen address")
	flag.StringVar(&cfg.DB.DSN, "dsn", cfg.DB.DSN, "PostgreSQL DSN")
	flag.BoolVar(&cfg.Dev, "dev", cfg.Dev, "development mode (debug logs, gRPC reflection)")
	flag.Parse()

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("storage", cfg.StorageDriver),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DB.DSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("postgres", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(ctx); err != nil {
		logger.Fatal("postgres ping", zap.Error(err))
	}

	// Repositories
	identities := postgres.NewIdentityRepo(db)
	users := postgres.NewUserRepo(db)
	profiles := postgres.NewProfileRepo(db)
	images := postgres.NewImageRepo(db)
	rpc := postgres.NewSetupRPC(db)

	store, media, err := newStore(cfg)
	if err != nil {
		logger.Fatal("object store", zap.Error(err))
	}

	// Sessions
	lim := limiter.NewPG(db.Pool, limiter.Policy{Window: cfg.Auth.FailWindow, MaxFails: cfg.Auth.MaxFails, BlockFor: cfg.Auth.BlockFor})
	sessions := session.NewProvider(identities, lim, session.Config{
		SignKey:       []byte(cfg.Auth.JWTKey),
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshWindow: cfg.Auth.RefreshWindow,
	}, logger.Named("session"))

	// Feed
	views, err := feed.NewViews(cfg.Feed.MaxLists, cfg.Feed.ListTTL, logger.Named("views"))
	if err != nil {
		logger.Fatal("views", zap.Error(err))
	}
	defer views.Close()
	unsubscribe := sessions.Subscribe(views.OnAuthEvent)
	defer unsubscribe()

	resolver := feed.NewStoreResolver(store, cfg.S3.PublicBase)
	feedSvc := feed.NewService(
		feed.NewFetcher(images, users, profiles),
		feed.NewAssembler(resolver, cfg.Feed.ResolveTimeout, logger.Named("feed")),
		views,
	)

	// Storage setup, retried on a schedule
	ensurer := setup.NewEnsurer(rpc, store, logger.Named("setup"))
	health := grpcserver.New(logger.Named("grpc"), cfg.Dev)
	ensurer.OnChange(health.SetReady)

	setupCtx, cancelSetup := context.WithTimeout(ctx, cfg.Setup.Timeout)
	if err := ensurer.Ensure(setupCtx); err != nil {
		logger.Warn("storage not ready; uploads blocked until setup succeeds", zap.Error(err))
	}
	cancelSetup()

	quartz := cron.New(cron.WithLogger(setup.CronLogger{L: logger.Named("cron").Sugar()}))
	if _, err := ensurer.Schedule(quartz, cfg.Setup.Schedule, cfg.Setup.Timeout); err != nil {
		logger.Fatal("setup schedule", zap.String("spec", cfg.Setup.Schedule), zap.Error(err))
	}
	quartz.Start()
	defer func() { <-quartz.Stop().Done() }()

	// Services
	pins := service.NewPinService(images, store, ensurer, feedSvc, logger.Named("pins"))
	profileSvc := service.NewProfileService(users, profiles, store, resolver, logger.Named("profiles"))

	layout.SetIcons(layout.DefaultIcons)
	if !cfg.Dev {
		gin.SetMode(gin.ReleaseMode)
	}
	web := httpserver.New(sessions, feedSvc, pins, profileSvc, ensurer, httpserver.Options{
		CookieName:     cfg.HTTP.CookieName,
		CookieSecure:   cfg.HTTP.CookieSecure,
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
		AllowOrigins:   cfg.HTTP.AllowOrigins,
		Media:          media,
	}, logger.Named("http"))

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		logger.Fatal("listen", zap.String("addr", cfg.GRPC.Addr), zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("grpc health listening", zap.String("addr", cfg.GRPC.Addr))
		return health.Serve(gctx, lis, shutdownGrace)
	})
	g.Go(func() error {
		return web.Run(gctx, cfg.HTTP.Addr, cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout, shutdownGrace)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", zap.Error(err))
		stop()
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

func newLogger(cfg *config.Config) *zap.Logger {
	zc := zap.NewProductionConfig()
	if cfg.Dev {
		zc = zap.NewDevelopmentConfig()
	}
	if lvl, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// newStore picks the object store. The memory store is also returned so its objects can be served.
func newStore(cfg *config.Config) (storage.ObjectStore, *storage.MemoryStore, error) {
	if cfg.StorageDriver == config.DriverMemory {
		m := storage.NewMemoryStore(cfg.S3.Bucket, "/media")
		return m, m, nil
	}
	s, err := storage.NewMinioStore(storage.MinioConfig{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Bucket:    cfg.S3.Bucket,
		Region:    cfg.S3.Region,
		UseSSL:    cfg.S3.UseSSL,
	})
	if err != nil {
		return nil, nil, err
	}
	return s, nil, nil
}
