package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskhive/taskhive-auth/internal/auth/abuse"
	httpapi "github.com/taskhive/taskhive-auth/internal/auth/http"
	"github.com/taskhive/taskhive-auth/internal/auth/mail"
	"github.com/taskhive/taskhive-auth/internal/auth/service"
	"github.com/taskhive/taskhive-auth/internal/auth/store"
	"github.com/taskhive/taskhive-auth/internal/auth/store/drivers/sqlite"
	"github.com/taskhive/taskhive-auth/pkg/cryptox"
	"github.com/taskhive/taskhive-auth/pkg/jwtx"
	"github.com/taskhive/taskhive-auth/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	codec *jwtx.Codec

	tokenService        *service.TokenService
	authService         *service.AuthService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "taskhive-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.SigningSecret == "" {
		return nil, fmt.Errorf("AUTH_SIGNING_SECRET is required")
	}
	codec, err := jwtx.NewCodec([]byte(cfg.SigningSecret), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}
	app.codec = codec

	cryptox.SetPepperPath(cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initServices() error {
	app.tokenService = &service.TokenService{
		Codec:                app.codec,
		Store:                app.db,
		EmailVerificationTTL: app.cfg.VerificationTTL,
		PasswordResetTTL:     app.cfg.ResetTTL,
		LoginTTL:             app.cfg.SessionTTL,
	}

	var mailer mail.Mailer
	if app.cfg.SMTP.Host != "" {
		smtp, err := mail.NewSMTPMailer(app.cfg.SMTP)
		if err != nil {
			return fmt.Errorf("failed to initialize SMTP mailer: %w", err)
		}
		mailer = smtp
		app.logger.Info("smtp mailer enabled", "host", app.cfg.SMTP.Host)
	} else {
		mailer = &mail.LogMailer{Logger: app.logger}
		app.logger.Warn("no SMTP host configured, mail goes to the log")
	}

	var filter abuse.Filter = abuse.AllowAll{}
	if app.cfg.AbuseFilterURL != "" {
		filter = abuse.NewHTTPFilter(app.cfg.AbuseFilterURL)
		app.logger.Info("abuse filter enabled", "endpoint", app.cfg.AbuseFilterURL)
	}

	app.authService = &service.AuthService{
		Store:  app.db,
		Tokens: app.tokenService,
		Sender: &mail.Sender{Mailer: mailer, BaseURL: app.cfg.PublicBaseURL},
		Filter: filter,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.codec, BuildVersion, app.db, app.logger)
	router.AuthService = app.authService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
