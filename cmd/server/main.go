// Package main is the entry point for the Citizen Watch report server.
// Citizens submit road issue reports with an optional photo, the public
// dashboard lists every report, and a single admin moves reports through
// Reported, In Progress and Completed.
//
// Storage is pluggable:
//   - reports live in PostgreSQL, Firestore or process memory
//   - photos live in Cloud Storage, on an FTP server, on local disk or in memory
//
// Orphaned photos (uploaded but never referenced by a report) are removed by
// a scheduled sweeper.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/citizenwatch/roadwatch-server/internal/attachments"
	"github.com/citizenwatch/roadwatch-server/internal/config"
	"github.com/citizenwatch/roadwatch-server/internal/database"
	"github.com/citizenwatch/roadwatch-server/internal/events"
	"github.com/citizenwatch/roadwatch-server/internal/handlers"
	"github.com/citizenwatch/roadwatch-server/internal/metrics"
	"github.com/citizenwatch/roadwatch-server/internal/repository"
	"github.com/citizenwatch/roadwatch-server/internal/services"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	logger := newLogger(cfg)
	defer logger.Sync()
	sugar := logger.Sugar()

	sugar.Infow("Starting Citizen Watch server",
		"port", cfg.Port,
		"env", cfg.Environment,
		"repository", cfg.RepositoryDriver,
		"storage", cfg.StorageDriver,
	)

	ctx := context.Background()

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		sugar.Fatalf("Failed to open repository: %v", err)
	}
	defer repo.Close()

	store, err := openStore(ctx, cfg)
	if err != nil {
		sugar.Fatalf("Failed to open attachment store: %v", err)
	}
	defer store.Close()

	var publisher events.Publisher = events.Nop{}
	if cfg.RedisURL != "" {
		rp, err := events.NewRedisPublisher(ctx, cfg.RedisURL)
		if err != nil {
			sugar.Fatalf("Failed to connect to Redis: %v", err)
		}
		publisher = rp
	}
	defer publisher.Close()

	gate, err := newAccessGate(cfg)
	if err != nil {
		sugar.Fatalf("Failed to configure admin access: %v", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Initialize services
	issueSvc := services.NewIssueService(repo, store, gate, publisher, m, sugar)
	sweeper := services.NewOrphanSweeper(repo, store, cfg.SweepGrace, m, sugar)
	if cfg.SweepSchedule != "" {
		if err := sweeper.Start(cfg.SweepSchedule); err != nil {
			sugar.Fatalf("Failed to start orphan sweeper: %v", err)
		}
	}

	// Initialize handlers
	ui, err := handlers.NewUIHandler(sugar)
	if err != nil {
		sugar.Fatalf("Failed to load templates: %v", err)
	}

	routes := handlers.RouterConfig{
		Reports:        handlers.NewReportHandler(issueSvc, int64(cfg.MaxUploadMB)<<20, sugar),
		Auth:           handlers.NewAuthHandler(gate, cfg.IsProduction(), sugar),
		Health:         handlers.NewHealthHandler(repo, cfg.RepositoryDriver, sugar),
		UI:             ui,
		Metrics:        m,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimitRPM:   cfg.RateLimitRPM,
		Logger:         logger,
	}
	if cfg.StorageDriver == "local" && !isAbsoluteURL(cfg.UploadBaseURL) {
		routes.UploadDir = cfg.UploadDir
		routes.UploadPath = cfg.UploadBaseURL
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handlers.NewRouter(routes),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sugar.Infof("Server listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	sugar.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("Forced shutdown", "error", err)
	}
	sweeper.Stop(shutdownCtx)

	sugar.Info("Server stopped")
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func openRepository(ctx context.Context, cfg *config.Config) (repository.Repository, error) {
	switch cfg.RepositoryDriver {
	case "postgres":
		pool, err := database.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		repo := repository.NewPostgres(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			repo.Close()
			return nil, err
		}
		return repo, nil
	case "firestore":
		client, err := database.NewFirestore(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
		if err != nil {
			return nil, err
		}
		return repository.NewFirestore(client), nil
	default:
		return repository.NewMemory(), nil
	}
}

func openStore(ctx context.Context, cfg *config.Config) (attachments.Store, error) {
	switch cfg.StorageDriver {
	case "gcs":
		client, err := database.NewStorage(ctx, cfg.FirebaseCredentialsFile)
		if err != nil {
			return nil, err
		}
		bucket := client.Bucket(cfg.FirebaseStorageBucket)
		return attachments.NewGCS(bucket, cfg.FirebaseStorageBucket, client), nil
	case "ftp":
		return attachments.NewFTP(cfg.FTPHost, cfg.FTPPort, cfg.FTPUser, cfg.FTPPassword, cfg.FTPBaseURL), nil
	case "local":
		store, err := attachments.NewLocal(cfg.UploadDir, cfg.UploadBaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return attachments.NewMemory(), nil
	}
}

func newAccessGate(cfg *config.Config) (*services.AccessGate, error) {
	hash := []byte(cfg.AdminPasswordHash)
	if len(hash) == 0 {
		var err error
		hash, err = services.HashPassword(cfg.AdminPassword, bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
	}
	return services.NewAccessGate(cfg.AdminUsername, hash, cfg.SessionSecret)
}

func isAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
