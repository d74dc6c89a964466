package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/campusflow/campusflow/internal/api"
	"github.com/campusflow/campusflow/internal/app"
	"github.com/campusflow/campusflow/internal/app/reminders"
	"github.com/campusflow/campusflow/internal/database"
	"github.com/campusflow/campusflow/internal/realtime"
	"github.com/campusflow/campusflow/internal/services"
	"github.com/campusflow/campusflow/internal/sources"
	"github.com/campusflow/campusflow/internal/store"
	"github.com/campusflow/campusflow/internal/uploads"
	"github.com/campusflow/campusflow/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("campusflow-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	recordStore, err := store.New(db)
	if err != nil {
		return fmt.Errorf("initialise store: %w", err)
	}

	uploadManager, err := uploads.NewManager(cfg.Uploads.Dir)
	if err != nil {
		return fmt.Errorf("initialise uploads: %w", err)
	}

	feedClient, err := sources.NewFeedClient(cfg.Sources.Feed.URL, cfg.Sources.Feed.Timeout)
	if err != nil {
		return fmt.Errorf("initialise feed client: %w", err)
	}
	peerClient, err := sources.NewPeerClient(cfg.Sources.Peer.URL, cfg.Sources.Peer.Timeout)
	if err != nil {
		return fmt.Errorf("initialise peer client: %w", err)
	}

	hub := realtime.NewHub()

	assignmentSvc, err := services.NewAssignmentService(recordStore, uploadManager, hub)
	if err != nil {
		return fmt.Errorf("initialise assignment service: %w", err)
	}
	alertSvc, err := services.NewAlertService(recordStore, hub)
	if err != nil {
		return fmt.Errorf("initialise alert service: %w", err)
	}
	announcementSvc, err := services.NewAnnouncementService(recordStore, hub)
	if err != nil {
		return fmt.Errorf("initialise announcement service: %w", err)
	}
	syncSvc, err := services.NewSyncService(recordStore, feedClient, peerClient, uploadManager, hub)
	if err != nil {
		return fmt.Errorf("initialise sync service: %w", err)
	}

	if cfg.Reminders.Enabled {
		reminderSvc, reminderErr := services.NewReminderService(recordStore, hub,
			services.WithThreshold(cfg.Reminders.Threshold()))
		if reminderErr != nil {
			return fmt.Errorf("initialise reminder service: %w", reminderErr)
		}

		scheduler := reminders.NewScheduler(reminderSvc, syncSvc,
			reminders.WithSchedule(cfg.Reminders.Schedule))
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("start reminder scheduler: %w", err)
		}
		defer func() { <-scheduler.Stop().Done() }()
	}

	startupSync(ctx, cfg, syncSvc, log)

	router, err := api.NewRouter(cfg, api.Dependencies{
		Assignments:   assignmentSvc,
		Alerts:        alertSvc,
		Announcements: announcementSvc,
		Sync:          syncSvc,
		Hub:           hub,
		UploadsDir:    uploadManager.Dir(),
	})
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

// startupSync runs the configured initial sync cycles in the background so a
// slow or unreachable source never delays serving.
func startupSync(ctx context.Context, cfg *app.Config, syncSvc *services.SyncService, log *zap.Logger) {
	if cfg.Sources.Feed.SyncOnStart {
		go func() {
			if _, err := syncSvc.SyncFeed(ctx); err != nil {
				log.Warn("startup feed sync failed", zap.Error(err))
			}
		}()
	}
	if cfg.Sources.Peer.SyncOnStart {
		go func() {
			if _, err := syncSvc.PullPeer(ctx); err != nil {
				log.Warn("startup peer sync failed", zap.Error(err))
			}
		}()
	}
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	logger.WithModule("database").Info("database connected",
		zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = cfg.Database.Postgres.Password
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = cfg.Database.MySQL.Password
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("database handle unavailable on shutdown", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("database close failed", zap.Error(err))
	}
}
