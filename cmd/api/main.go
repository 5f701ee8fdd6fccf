//	@title			Upload Gateway API
//	@version		1.0
//	@description	Streams admin uploads into the object store.
//
//	@host		localhost:8080
//	@BasePath	/api/v1

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/gzadmin/uploadgw/internal/config"
	appMiddleware "github.com/gzadmin/uploadgw/internal/middleware"
	"github.com/gzadmin/uploadgw/internal/storage"
	"github.com/gzadmin/uploadgw/internal/upload"

	_ "github.com/gzadmin/uploadgw/docs/swagger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	store, closeStore, err := newStorage(initCtx, cfg, logger)
	cancelInit()
	if err != nil {
		logger.Fatal("object storage init failed", zap.Error(err))
	}
	defer closeStore()

	// Wire dependencies: storage → service → handler
	uploadSvc := upload.NewService(store, upload.Options{
		Namespaced:     cfg.Namespaced,
		DefaultModel:   cfg.DefaultModel,
		DefaultChannel: cfg.DefaultChannel,
		Namer:          newNamer(cfg),
		Binding:        "STORAGE_BUCKET",
	}, logger)
	uploadHandler := upload.NewHandler(uploadSvc, cfg.MaxUploadSize, cfg.MultipartMemory, logger)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	var limits []func(http.Handler) http.Handler
	if cfg.UploadRateLimit > 0 {
		limits = append(limits, httprate.LimitByIP(cfg.UploadRateLimit, time.Minute))
	}

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/ready", uploadHandler.Ready)

	// Swagger UI — available at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ready", uploadHandler.Ready)
		r.With(limits...).Post("/upload", uploadHandler.Upload)
	})

	// Path used by the admin client before the API was versioned.
	r.With(limits...).Post("/api/upload", uploadHandler.Upload)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.AppEnv),
			zap.String("storage", cfg.StorageDriver),
			zap.Bool("storage_bound", store != nil),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
		return
	}

	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// newStorage builds the configured binding. A nil Storage with a nil error
// means no bucket is configured; uploads then answer StorageUnavailable.
func newStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Storage, func(), error) {
	noop := func() {}

	if !cfg.StorageConfigured() {
		logger.Warn("STORAGE_BUCKET is not set, uploads will be rejected")
		return nil, noop, nil
	}

	if cfg.StorageDriver == config.DriverMemory {
		logger.Warn("using in-memory storage, uploads are lost on restart")
		return storage.NewMemory(cfg.StoragePublicBase), noop, nil
	}

	s, err := storage.NewMinioStorage(ctx, storage.MinioConfig{
		Endpoint:   cfg.StorageEndpoint,
		AccessKey:  cfg.StorageAccessKey,
		SecretKey:  cfg.StorageSecretKey,
		Region:     cfg.StorageRegion,
		Bucket:     cfg.StorageBucket,
		PublicBase: cfg.StoragePublicBase,
		UseSSL:     cfg.StorageUseSSL,
		PublicRead: cfg.StoragePublicRead,
	}, logger)
	if err != nil {
		return nil, noop, err
	}
	return s, s.Close, nil
}

func newNamer(cfg *config.Config) upload.Namer {
	if cfg.Naming == config.NamingUUID {
		return upload.RandomNamer{}
	}
	return upload.TimestampNamer{}
}
