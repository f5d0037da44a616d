package main

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/analytics"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/config"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/credentials"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/credits"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/errorlog"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/google"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/handlers"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/middleware"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/planner"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/proxy"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/workers"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/cors"
	"golang.org/x/oauth2"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := run(defaultDeps()); err != nil {
		log.Fatal(err)
	}
	log.Println("Server stopped")
}

type deps struct {
	getenv         func(string) string
	openDB         func(driverName, dataSourceName string) (*sql.DB, error)
	migrateUp      func(*sql.DB) error
	listenAndServe func(*http.Server) error
	stopCh         chan os.Signal
	notify         func(c chan<- os.Signal, sig ...os.Signal)
}

func defaultDeps() deps {
	return deps{
		getenv:         os.Getenv,
		openDB:         sql.Open,
		migrateUp:      migrateUp,
		listenAndServe: func(s *http.Server) error { return s.ListenAndServe() },
		notify:         signal.Notify,
	}
}

func resolvePort(getenv func(string) string) string {
	if p := strings.TrimSpace(getenv("PORT")); p != "" {
		return p
	}
	return "18911"
}

// parseIntervalFromEnv reads a positive number of seconds from key.
func parseIntervalFromEnv(getenv func(string) string, key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}

func migrateUp(db *sql.DB) error {
	if db == nil {
		return errors.New("migrateUp: nil db")
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("init migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://db/migrations", "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// buildRouter mounts the API; Metrics runs inside the router so it sees
// route templates.
func buildRouter(h *handlers.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics)
	handlers.RegisterRoutes(h, r)
	return r
}

func openPlannerStore(ctx context.Context, cfg *config.Config, db *sql.DB) (planner.Store, func(), error) {
	switch cfg.Planner.Backend {
	case "postgres":
		if db == nil {
			return nil, nil, errors.New("planner backend postgres needs a database connection")
		}
		log.Printf("[Planner] backend=postgres")
		return planner.NewPostgresStore(db), func() {}, nil
	case "redis":
		client, err := planner.NewRedisClient(cfg.Redis.URL)
		if err != nil {
			return nil, nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		log.Printf("[Planner] backend=redis")
		return planner.NewRedisStore(client, "nocturnal:planner"), func() { _ = client.Close() }, nil
	default:
		log.Printf("[Planner] backend=file path=%s", cfg.Planner.FilePath)
		return planner.NewFileStore(cfg.Planner.FilePath), func() {}, nil
	}
}

// sessionKeys derives the cookie keys. Without SESSION_SECRET the keys are
// random, so sessions do not survive a restart.
func sessionKeys(secret string) (hashKey, blockKey []byte) {
	if secret == "" {
		log.Printf("[Session] SESSION_SECRET not set; using ephemeral keys")
		return securecookie.GenerateRandomKey(64), securecookie.GenerateRandomKey(32)
	}
	h := sha512.Sum512([]byte("nocturnal-session-hash|" + secret))
	b := sha256.Sum256([]byte("nocturnal-session-block|" + secret))
	return h[:], b[:]
}

// buildCredentials returns the per-user resolver, the operator's token.json
// resolver, and the writer behind /api/session.
func buildCredentials(cfg *config.Config, db *sql.DB) (user, service credentials.Resolver, w credentials.Writer) {
	hashKey, blockKey := sessionKeys(cfg.Session.Secret)
	sessions := credentials.NewSessionStore(cfg.Session.Name, hashKey, blockKey, !cfg.IsDevelopment())

	chain := credentials.Chain{sessions}
	if db != nil {
		if cfg.Session.InternalSecret == "" {
			log.Printf("[Credentials] INTERNAL_API_SECRET not set; stored user tokens are disabled")
		}
		chain = append(chain, &credentials.SettingsStore{DB: db, Secret: cfg.Session.InternalSecret})
	}
	service = &credentials.TokenFile{
		CredentialsPath: cfg.Google.CredentialsFile,
		TokenPath:       cfg.Google.TokenFile,
		Scopes:          credentials.DefaultGoogleScopes,
	}
	return chain, service, sessions
}

func googleEndpoints(g config.GoogleConfig) google.Endpoints {
	return google.Endpoints{
		Drive:   g.DriveBaseURL,
		Upload:  g.UploadBaseURL,
		Docs:    g.DocsBaseURL,
		Sheets:  g.SheetsBaseURL,
		YouTube: g.YouTubeBaseURL,
	}
}

// startWorkersIfEnabled starts background maintenance. ERROR_LOG_ROTATION_ENABLED
// defaults to on.
func startWorkersIfEnabled(ctx context.Context, rot workers.Rotator, cfg config.ErrorLogConfig, getenv func(string) string) {
	enabled := strings.TrimSpace(getenv("ERROR_LOG_ROTATION_ENABLED"))
	if enabled != "" && enabled != "true" {
		log.Printf("[Workers] error log rotation disabled via ERROR_LOG_ROTATION_ENABLED=%q", enabled)
		return
	}
	w := &workers.ErrorLogRotationWorker{
		Log:           rot,
		MaxBytes:      cfg.MaxBytes,
		Keep:          cfg.Keep,
		CheckInterval: parseIntervalFromEnv(getenv, "ERROR_LOG_ROTATION_INTERVAL_SECONDS", cfg.CheckInterval),
	}
	go w.Start(ctx)
}

func run(d deps) error {
	if d.getenv == nil {
		d.getenv = os.Getenv
	}
	cfg, err := config.Load(d.getenv)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Root context for background workers and graceful shutdown
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var db *sql.DB
	if cfg.Database.URL != "" {
		if d.openDB == nil {
			return errors.New("openDB is required when DATABASE_URL is set")
		}
		db, err = d.openDB("postgres", cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(rootCtx); err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}
		if d.migrateUp != nil {
			if err := d.migrateUp(db); err != nil {
				return fmt.Errorf("database migration failed: %w", err)
			}
			log.Println("Database is up-to-date")
		}
	}

	store, closeStore, err := openPlannerStore(rootCtx, cfg, db)
	if err != nil {
		return err
	}
	defer closeStore()

	errLog := errorlog.New(cfg.ErrorLog.Path)
	resolver, service, writer := buildCredentials(cfg, db)

	var oauth *oauth2.Config
	if cfg.Google.ClientID != "" {
		oauth = credentials.ClientConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, credentials.DefaultGoogleScopes)
	}
	factory := google.NewClientFactory(oauth, cfg.Google.Timeout, cfg.Google.RequestsPerSec, cfg.Google.Burst, googleEndpoints(cfg.Google), errLog)
	creditsClient := credits.NewClient(cfg.Backend.URL, cfg.Backend.APIKey, 15*time.Second)

	stats := &analytics.Runner{
		Getenv: d.getenv,
		Providers: map[string]analytics.Provider{
			"youtube": analytics.YouTubeProvider{BaseURL: cfg.Google.YouTubeBaseURL},
		},
	}

	h := handlers.New(handlers.Deps{
		DB:                 db,
		Planner:            store,
		Credentials:        resolver,
		ServiceCredentials: service,
		Sessions:           writer,
		Google:             factory,
		Proxy:              proxy.New(cfg.Backend.URL, cfg.Backend.APIKey, cfg.Backend.Timeout),
		Credits:            creditsClient,
		Stats:              stats,
		Errors:             errLog,
		ContentDir:         cfg.Storage.ContentDir,
		StorageStrategy:    cfg.Storage.Strategy,
		ProviderKeys:       cfg.Providers.Present(),
	})

	r := buildRouter(h)
	if cfg.Credits.GateEnabled {
		log.Printf("[Credits] gate enabled for %v", middleware.DefaultGatedPaths)
		r.Use(middleware.NewCreditsGate(creditsClient).Middleware)
	}
	limiter := middleware.NewClientRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSec,
		Burst:             cfg.RateLimit.Burst,
	})

	// CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	accessLog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	handler := c.Handler(middleware.Recover(middleware.Logging(accessLog)(limiter.Middleware(r))))

	port := cfg.Server.Port
	if port == "" {
		port = resolvePort(d.getenv)
	}
	srv := &http.Server{
		Handler:      handler,
		Addr:         ":" + port,
		WriteTimeout: cfg.Server.WriteTimeout,
		ReadTimeout:  cfg.Server.ReadTimeout,
	}

	startWorkersIfEnabled(rootCtx, errLog, cfg.ErrorLog, d.getenv)

	// Handle graceful shutdown on SIGINT/SIGTERM
	stop := d.stopCh
	if stop == nil {
		stop = make(chan os.Signal, 1)
	}
	if d.notify != nil {
		d.notify(stop, os.Interrupt, syscall.SIGTERM)
	}
	go func() {
		<-stop
		log.Println("Shutting down server...")
		cancel()
		ctx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("Server starting on port %s", port)
	if err := d.listenAndServe(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
