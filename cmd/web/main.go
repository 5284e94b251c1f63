package main

import (
	"context"
	"database/sql"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Abdellah421/irrigition-app/internal/config"
	"github.com/Abdellah421/irrigition-app/internal/hub"
	"github.com/Abdellah421/irrigition-app/internal/logging"
	"github.com/Abdellah421/irrigition-app/internal/models"
	"github.com/Abdellah421/irrigition-app/internal/relay"
	"github.com/Abdellah421/irrigition-app/internal/uploads"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/go-playground/form/v4"
	_ "github.com/mattn/go-sqlite3"
)

type application struct {
	logger         *slog.Logger
	users          models.UserModelInterface
	notifications  models.NotificationModelInterface
	events         models.EventModelInterface
	cache          *relay.Cache
	hub            *hub.Hub
	commander      *relay.Commander
	uploads        *uploads.Store
	templateCache  map[string]*template.Template
	formDecoder    *form.Decoder
	sessionManager *scs.SessionManager
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.AppEnv, cfg.LogLevel)

	instanceDir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(instanceDir, 0o755); err != nil {
		logger.Error("create instance directory", "error", err)
		os.Exit(1)
	}

	db, err := openDB(cfg.DSN)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := models.CreateTables(db); err != nil {
		logger.Error("create tables", "error", err)
		os.Exit(1)
	}
	createSessionTable(db, logger)

	var verifier models.CredentialVerifier = models.PlaintextVerifier{}
	if cfg.PasswordScheme == "bcrypt" {
		verifier = models.BcryptVerifier{}
	}

	templateCache, err := newTemplateCache()
	if err != nil {
		logger.Error("build template cache", "error", err)
		os.Exit(1)
	}

	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.New(db)
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Cookie.Secure = cfg.AppEnv == "prod"

	uploadStore, err := uploads.New(cfg.UploadDir, logger)
	if err != nil {
		logger.Error("init upload store", "error", err)
		os.Exit(1)
	}

	cache := relay.NewCache()
	liveHub := hub.New(logger, func() any { return cache.Snapshot() })
	broker := relay.New(relay.Config{
		BrokerURL:     cfg.BrokerURL,
		ClientID:      cfg.MQTTClientID,
		Username:      cfg.MQTTUsername,
		Password:      cfg.MQTTPassword,
		DataTopic:     cfg.DataTopic,
		StatusTopic:   cfg.StatusTopic,
		CommandTopic:  cfg.CommandTopic,
		RetryInterval: cfg.RetryInterval,
		KeepAlive:     cfg.KeepAlive,
		PingTimeout:   cfg.PingTimeout,
	}, cache, liveHub, logger)

	events := &models.EventModel{DB: db}
	commander := relay.NewCommander(cfg.CommandTopic, broker, cache, liveHub, eventRecorder{events}, logger)
	liveHub.Command = func(userID, phrase string) {
		commander.Issue(userID, phrase, relay.OriginManual)
	}

	app := &application{
		logger:         logger,
		users:          &models.UserModel{DB: db, Verifier: verifier},
		notifications:  &models.NotificationModel{DB: db},
		events:         events,
		cache:          cache,
		hub:            liveHub,
		commander:      commander,
		uploads:        uploadStore,
		templateCache:  templateCache,
		formDecoder:    form.NewDecoder(),
		sessionManager: sessionManager,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The relay's receive loop blocks indefinitely; it gets its own
	// goroutine, never a request-handling one.
	go broker.Run(ctx)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      app.routes(),
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
}

// eventRecorder adapts the event model to the commander's best-effort
// recording interface.
type eventRecorder struct {
	events models.EventModelInterface
}

func (r eventRecorder) Append(userID, kind string, details map[string]any) error {
	_, err := r.events.Append(userID, kind, details)
	return err
}

func openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func createSessionTable(db *sql.DB, logger *slog.Logger) {
	stmt := `
			CREATE TABLE IF NOT EXISTS sessions (
					token CHAR(43) PRIMARY KEY,
					data BLOB NOT NULL,
					expiry TIMESTAMP(6) NOT NULL
			);
			CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions (expiry);
	`
	if _, err := db.Exec(stmt); err != nil {
		logger.Error("create sessions table", "error", err)
	}
}
