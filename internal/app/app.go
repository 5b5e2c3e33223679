// Package app is the composition root: it connects the backing services and
// builds the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"car-listing-api-server/config"
	"car-listing-api-server/internal/api/handlers"
	"car-listing-api-server/internal/api/routes"
	"car-listing-api-server/internal/auth"
	"car-listing-api-server/internal/database"
	"car-listing-api-server/internal/media"
	"car-listing-api-server/internal/minio"
	"car-listing-api-server/internal/s3"
	"car-listing-api-server/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type App struct {
	server *http.Server
	client *mongo.Client
	log    *zap.Logger
}

// New connects MongoDB and the media store and builds the server. The
// returned App owns the database client.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	client, db, err := database.Connect(ctx, cfg.Mongo)
	if err != nil {
		return nil, err
	}
	log.Info("Connected to MongoDB", zap.String("database", cfg.Mongo.DBName))

	if err := database.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	store, err := newMediaStore(ctx, cfg, log)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	users := database.NewUserRepository(db)
	router := routes.SetupRouter(cfg, routes.Dependencies{
		Cars:   service.NewCarService(database.NewCarRepository(db), store, log),
		Users:  users,
		Finder: users,
		Tokens: auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL()),
		DB: handlers.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		}),
		Registry: registry,
		Log:      log,
	})

	return &App{
		server: &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		client: client,
		log:    log,
	}, nil
}

func newMediaStore(ctx context.Context, cfg config.Config, log *zap.Logger) (media.Store, error) {
	switch cfg.Media.Driver {
	case "minio":
		store, err := minio.NewStorage(ctx, cfg.Minio, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MinIO storage: %w", err)
		}
		log.Info("Media store ready", zap.String("driver", "minio"), zap.String("bucket", cfg.Minio.Bucket))
		return store, nil
	default:
		store, err := s3.NewUploader(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 uploader: %w", err)
		}
		log.Info("Media store ready", zap.String("driver", "s3"), zap.String("bucket", cfg.S3.Bucket))
		return store, nil
	}
}

// Run serves until Stop is called.
func (a *App) Run() error {
	a.log.Info("Starting API server", zap.String("addr", a.server.Addr))
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests and closes the database client.
func (a *App) Stop(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if dErr := a.client.Disconnect(ctx); dErr != nil && err == nil {
		err = dErr
	}
	return err
}
