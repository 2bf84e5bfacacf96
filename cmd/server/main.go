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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/workstead/workstead/internal/api"
	"github.com/workstead/workstead/internal/app"
	"github.com/workstead/workstead/internal/app/maintenance"
	iauth "github.com/workstead/workstead/internal/auth"
	"github.com/workstead/workstead/internal/cache"
	"github.com/workstead/workstead/internal/database"
	"github.com/workstead/workstead/internal/middleware"
	"github.com/workstead/workstead/internal/query"
	"github.com/workstead/workstead/internal/services"
	"github.com/workstead/workstead/pkg/logger"
	"github.com/workstead/workstead/pkg/mail"
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
	fs := flag.NewFlagSet("workstead-server", flag.ContinueOnError)
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

	if err := ensureSecretsPresent(cfg); err != nil {
		return err
	}

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	if cfg.Bootstrap.AdminEmail != "" && cfg.Bootstrap.AdminPassword != "" {
		created, err := database.EnsureRootAdmin(db, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword)
		if err != nil {
			return fmt.Errorf("ensure root admin: %w", err)
		}
		if created {
			log.Info("root admin account created", zap.String("email", strings.ToLower(cfg.Bootstrap.AdminEmail)))
		}
	}

	var store cache.Store
	switch strings.ToLower(strings.TrimSpace(cfg.Cache.Driver)) {
	case "", "memory":
		store = cache.NewMemoryStore()
	case "database":
		store = cache.NewDatabaseStore(db)
	default:
		return fmt.Errorf("unsupported cache driver %q", cfg.Cache.Driver)
	}

	executor, err := query.NewExecutor(store, query.WithTTL(cfg.Cache.TTL))
	if err != nil {
		return fmt.Errorf("initialise query executor: %w", err)
	}

	jwtService, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         cfg.Auth.JWT.Secret,
		Issuer:         cfg.Auth.JWT.Issuer,
		AccessTokenTTL: cfg.Auth.JWT.TTL,
	})
	if err != nil {
		return fmt.Errorf("initialise jwt service: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(mail.SMTPSettings{
		Enabled:  cfg.Email.SMTP.Enabled,
		Host:     cfg.Email.SMTP.Host,
		Port:     cfg.Email.SMTP.Port,
		Username: cfg.Email.SMTP.Username,
		Password: cfg.Email.SMTP.Password,
		From:     cfg.Email.SMTP.From,
		UseTLS:   cfg.Email.SMTP.UseTLS,
		Timeout:  cfg.Email.SMTP.Timeout,
	})
	if err != nil {
		return fmt.Errorf("initialise mailer: %w", err)
	}

	auditSvc, err := services.NewAuditService(db)
	if err != nil {
		return fmt.Errorf("initialise audit service: %w", err)
	}
	userSvc, err := services.NewUserService(db, store, auditSvc)
	if err != nil {
		return fmt.Errorf("initialise user service: %w", err)
	}
	companySvc, err := services.NewCompanyService(db, store, auditSvc)
	if err != nil {
		return fmt.Errorf("initialise company service: %w", err)
	}
	taskSvc, err := services.NewTaskService(db, store, auditSvc)
	if err != nil {
		return fmt.Errorf("initialise task service: %w", err)
	}
	reportSvc, err := services.NewReportService(db, store, auditSvc)
	if err != nil {
		return fmt.Errorf("initialise report service: %w", err)
	}
	dashboardSvc, err := services.NewDashboardService(db)
	if err != nil {
		return fmt.Errorf("initialise dashboard service: %w", err)
	}
	authSvc, err := services.NewAuthService(db, jwtService, auditSvc, services.AuthConfig{
		LockoutThreshold: cfg.Auth.Local.LockoutThreshold,
		LockoutDuration:  cfg.Auth.Local.LockoutDuration,
	})
	if err != nil {
		return fmt.Errorf("initialise auth service: %w", err)
	}

	resetOpts := []services.ResetOption{}
	if cfg.Auth.Reset.BaseURL != "" {
		resetOpts = append(resetOpts, services.WithResetBaseURL(cfg.Auth.Reset.BaseURL))
	}
	if cfg.Auth.Reset.Expiry > 0 {
		resetOpts = append(resetOpts, services.WithResetExpiry(cfg.Auth.Reset.Expiry))
	}
	resetSvc, err := services.NewPasswordResetService(db, userSvc, mailer, auditSvc, resetOpts...)
	if err != nil {
		return fmt.Errorf("initialise password reset service: %w", err)
	}

	if cfg.Maintenance.Enabled {
		var purger maintenance.CachePurger
		if dbStore, ok := store.(*cache.DatabaseStore); ok {
			purger = dbStore
		}
		cleaner := maintenance.NewCleaner(purger, resetSvc, auditSvc,
			maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays))
		if err := cleaner.Start(); err != nil {
			return fmt.Errorf("start maintenance jobs: %w", err)
		}
		defer func() {
			stopCtx := cleaner.Stop()
			if err := cleaner.RunOnce(stopCtx); err != nil {
				log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
			}
		}()
	}

	router, err := api.NewRouter(api.Dependencies{
		DB:              db,
		JWT:             jwtService,
		Executor:        executor,
		Mailer:          mailer,
		RateStore:       middleware.NewCacheRateStore(store),
		Auth:            authSvc,
		Users:           userSvc,
		Companies:       companySvc,
		Tasks:           taskSvc,
		Reports:         reportSvc,
		Dashboard:       dashboardSvc,
		Reset:           resetSvc,
		RateLimit:       cfg.Server.RateLimit.Requests,
		RateLimitWindow: cfg.Server.RateLimit.Window,
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

func ensureSecretsPresent(cfg *app.Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Auth.JWT.Secret = strings.TrimSpace(cfg.Auth.JWT.Secret)
	if cfg.Auth.JWT.Secret == "" {
		return errors.New("auth.jwt.secret must be configured")
	}

	return nil
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

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
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
