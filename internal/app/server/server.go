package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tms/internal/domain/appraisal"
	"tms/internal/domain/audit"
	"tms/internal/domain/auth"
	"tms/internal/domain/directory"
	"tms/internal/domain/notifications"
	"tms/internal/domain/training"
	"tms/internal/platform/config"
	"tms/internal/platform/crypto"
	"tms/internal/platform/db"
	"tms/internal/platform/email"
	"tms/internal/platform/jobs"
	"tms/internal/platform/metrics"
	adminhandler "tms/internal/transport/http/handlers/admin"
	appraisalhandler "tms/internal/transport/http/handlers/appraisal"
	audithandler "tms/internal/transport/http/handlers/audit"
	authhandler "tms/internal/transport/http/handlers/auth"
	directoryhandler "tms/internal/transport/http/handlers/directory"
	notificationshandler "tms/internal/transport/http/handlers/notifications"
	traininghandler "tms/internal/transport/http/handlers/training"
	"tms/internal/transport/http/middleware"
)

type App struct {
	Config config.Config
	DB     *pgxpool.Pool
	Router chi.Router
}

func Run() error {
	ctx := context.Background()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			return fmt.Errorf("seed database: %w", err)
		}
	}

	app, err := build(cfg, pool)
	if err != nil {
		return err
	}
	app.jobs.Start(ctx)

	fmt.Printf("listening on %s\n", cfg.Addr)
	return http.ListenAndServe(cfg.Addr, app.Router)
}

type wiredApp struct {
	App
	notifier *notifications.Service
	jobs     *jobs.Service
}

// build wires stores, services and the HTTP router. Split from Run so tests
// can assemble the app without binding a listener.
func build(cfg config.Config, pool *pgxpool.Pool) (*wiredApp, error) {
	cryptoSvc, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("init encryption: %w", err)
	}

	authStore := auth.NewStore(pool)
	directoryStore := directory.NewStore(pool, cryptoSvc)
	directorySvc := directory.NewService(directoryStore)
	appraisalSvc := appraisal.NewService(appraisal.NewStore(pool), directorySvc)
	trainingSvc := training.NewService(training.NewStore(pool), directorySvc, cfg.CertificateValidity)
	auditSvc := audit.New(pool)

	mailer := email.New(cfg)
	notifier := notifications.New(notifications.NewStore(pool), mailer, cfg.EmailFrom, cfg.EmailEnabled)
	jobSvc := jobs.New(pool, cfg, notifier)

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}

	authHandler := authhandler.NewHandler(authStore, cfg.JWTSecret)
	directoryHandler := directoryhandler.NewHandler(directorySvc, authStore, auditSvc)
	appraisalHandler := appraisalhandler.NewHandler(appraisalSvc, authStore, notifier, auditSvc)
	trainingHandler := traininghandler.NewHandler(trainingSvc, authStore, notifier, auditSvc)
	notificationsHandler := notificationshandler.NewHandler(notifier)
	auditHandler := audithandler.NewHandler(auditSvc, authStore)
	adminHandler := adminhandler.NewHandler(jobSvc, collector, authStore)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	r.Use(middleware.Metrics(collector))
	r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))
	r.Use(middleware.Auth(cfg.JWTSecret))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		pingCtx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)
		r.Post("/auth/refresh", authHandler.HandleRefresh)
		r.Post("/auth/request-reset", authHandler.HandleRequestReset)
		r.Post("/auth/reset", authHandler.HandleResetPassword)

		directoryHandler.RegisterRoutes(r)
		appraisalHandler.RegisterRoutes(r)
		trainingHandler.RegisterRoutes(r)
		notificationsHandler.RegisterRoutes(r)
		auditHandler.RegisterRoutes(r)
		adminHandler.RegisterRoutes(r)
	})

	r.Mount("/", spaHandler{staticPath: cfg.FrontendDir, indexPath: "index.html"})

	return &wiredApp{
		App:      App{Config: cfg, DB: pool, Router: r},
		notifier: notifier,
		jobs:     jobSvc,
	}, nil
}

// spaHandler serves the built frontend, falling back to index.html so
// client-side routes resolve on refresh.
type spaHandler struct {
	staticPath string
	indexPath  string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := filepath.Join(h.staticPath, filepath.Clean(r.URL.Path))
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		http.ServeFile(w, r, path)
		return
	}
	http.ServeFile(w, r, filepath.Join(h.staticPath, h.indexPath))
}
