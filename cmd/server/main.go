package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	api "github.com/sakshi-sonii/CET-for-JES-sub000/internal/api/http"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/assessment"
	auth "github.com/sakshi-sonii/CET-for-JES-sub000/internal/auth/middleware"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/cache"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/config"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/db"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/events"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	// --- Store ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var (
		st    assessment.Store
		sqlDB *sql.DB
	)
	switch cfg.StoreDriver {
	case "memory":
		st = store.NewMemory()
	case string(db.DriverSQLite), string(db.DriverPostgres):
		dbh, err := db.Open(openCtx, db.Driver(cfg.StoreDriver), cfg.DBDSN)
		if err != nil {
			return fmt.Errorf("db open: %w", err)
		}
		defer dbh.Close()
		st, sqlDB = store.NewSQL(dbh), dbh
	case "mongo":
		mdb, err := db.OpenMongo(openCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return fmt.Errorf("mongo open: %w", err)
		}
		defer mdb.Client().Disconnect(context.Background()) //nolint:errcheck
		st = store.NewMongo(mdb)
	default:
		return fmt.Errorf("unsupported store driver: %s", cfg.StoreDriver)
	}

	opts := []assessment.Option{
		assessment.WithLogger(logger.Named("assessment")),
		assessment.WithChunkBudget(cfg.ChunkBudgetBytes),
	}

	// --- Cache ---
	if cfg.RedisAddr != "" {
		rdb, err := cache.Dial(openCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		opts = append(opts, assessment.WithCache(cache.NewRedis(rdb, "examprep:", cfg.CacheTTL)))
	}

	// --- Events ---
	var pubs events.Multi
	if cfg.EventLog && sqlDB != nil {
		pubs = append(pubs, events.NewSQLLog(sqlDB, cfg.SiteID))
	}
	if cfg.SQSQueueName != "" {
		p, err := events.DialSQS(openCtx, cfg.AWSRegion, cfg.SQSQueueName, cfg.SiteID)
		if err != nil {
			return fmt.Errorf("sqs: %w", err)
		}
		pubs = append(pubs, p)
	}
	if len(pubs) > 0 {
		opts = append(opts, assessment.WithPublisher(pubs))
	}

	svc := assessment.New(st, opts...)

	if cfg.AdminPassHash != "" {
		if err := svc.EnsureAdmin(openCtx, cfg.AdminUser, cfg.AdminPassHash); err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}
	} else {
		logger.Warn("ADMIN_PASS_HASH not set; no admin account is created")
	}

	// --- Router ---
	authSvc := auth.NewAuthService(cfg.AuthSecret, cfg.TokenTTL)
	r := api.NewRouter(svc, authSvc, logger.Named("http"),
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins(),
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("mode", string(cfg.Mode)),
			zap.String("store", cfg.StoreDriver),
			zap.Bool("cache", cfg.RedisAddr != ""),
			zap.Int("event_sinks", len(pubs)))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.Mode == config.ModeOnline {
		zc = zap.NewProductionConfig()
	}
	if cfg.LogLevel != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		zc.Level = lvl
	}
	return zc.Build()
}
