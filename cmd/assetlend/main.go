package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/assetlend/internal/api"
	"github.com/erazemk/assetlend/internal/app"
	"github.com/erazemk/assetlend/internal/authz"
	"github.com/erazemk/assetlend/internal/catalog"
	"github.com/erazemk/assetlend/internal/config"
	"github.com/erazemk/assetlend/internal/db"
	"github.com/erazemk/assetlend/internal/logger"
	"github.com/erazemk/assetlend/internal/media"
	"github.com/erazemk/assetlend/internal/metrics"
	"github.com/erazemk/assetlend/internal/model"
	"github.com/erazemk/assetlend/internal/seeder"
	"github.com/erazemk/assetlend/internal/settings"
	"github.com/erazemk/assetlend/internal/store"
	"github.com/erazemk/assetlend/internal/web"
)

const tokenPurgeInterval = time.Hour

func main() {
	fs := flag.NewFlagSet("assetlend", flag.ContinueOnError)

	var configPath string
	fs.StringVar(&configPath, "config", "", "")
	fs.StringVar(&configPath, "c", "", "")

	var dbPath string
	fs.StringVar(&dbPath, "db", "", "")
	fs.StringVar(&dbPath, "d", "", "")

	var addr string
	fs.StringVar(&addr, "addr", "", "")
	fs.StringVar(&addr, "a", "", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: assetlend [flags]

Flags:
  -c, -config <path>      config file (default: ./config/config.yaml, ./config.yaml, /etc/assetlend/config.yaml)
  -d, -db <path>          SQLite database path (overrides database.path)
  -a, -addr <host:port>   listen address (overrides http.addr)
  -l, -log <path>         rotated JSON log file (overrides logger.file)
  -h, -help               show this help and exit

Every config key can also be set as ASSETLEND_<SECTION>_<KEY>, e.g. ASSETLEND_HTTP_ADDR.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if addr != "" {
		cfg.HTTP.Addr = addr
	}
	if logPath != "" {
		cfg.Logger.File = logPath
	}

	log, level, err := logger.NewLogger(logger.Options{
		Environment: cfg.Environment,
		Level:       cfg.Logger.Level,
		File:        cfg.Logger.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log, level); err != nil {
		log.Error("server exited", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger, level zap.AtomicLevel) error {
	ctx := context.Background()

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	log.Info("database ready", zap.String("path", cfg.Database.Path))

	if err := bootstrapAdmin(ctx, database, cfg.Admin.Username); err != nil {
		return err
	}

	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("getting JWT secret: %w", err)
	}

	settingsManager := settings.NewManager(database)
	authorizer := authz.New(database, cfg.Catalog.Public)
	installer := &seeder.Installer{DB: database, Log: log}
	coordinator := app.New(log, settingsManager, authorizer, installer)
	if err := coordinator.Activate(ctx); err != nil {
		return err
	}
	applyLogSettings(ctx, settingsManager, level, log)

	mediaStore, err := media.NewStore(ctx, cfg.Media)
	if err != nil {
		return fmt.Errorf("setting up media store: %w", err)
	}

	var fields catalog.FieldSource
	if cfg.Catalog.FieldStore {
		fields = &store.Fields{DB: database}
	}
	catalogService := catalog.NewService(database, fields, cfg.HTTP.BaseURL, log)

	apiRouter := api.NewRouter(api.Deps{
		DB:                     database,
		JWTSecret:              jwtSecret,
		Catalog:                catalogService,
		Authz:                  authorizer,
		Settings:               settingsManager,
		Seeder:                 installer,
		Media:                  mediaStore,
		SessionTTL:             cfg.Security.SessionTTL,
		NonceTTL:               cfg.Security.NonceTTL,
		AutocompleteNonce:      cfg.Security.AutocompleteNonce,
		AutocompleteRatePerMin: cfg.Security.AutocompleteRatePerMin,
	})
	webRouter, err := web.NewRouter(web.Deps{
		DB:            database,
		JWTSecret:     jwtSecret,
		Catalog:       catalogService,
		Authz:         authorizer,
		Settings:      settingsManager,
		Seeder:        installer,
		SessionTTL:    cfg.Security.SessionTTL,
		NonceTTL:      cfg.Security.NonceTTL,
		SecureCookies: cfg.HTTP.SecureCookies,
	})
	if err != nil {
		return fmt.Errorf("setting up web router: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if cfg.HTTP.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(logger.Middleware(log))
	r.Use(metrics.Middleware())

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	if local, ok := mediaStore.(*media.LocalStore); ok {
		prefix := local.URLPrefix + "/"
		r.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(local.Dir))))
	}
	r.Mount("/api", apiRouter)
	r.Mount("/", webRouter)

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go purgeRevokedTokens(purgeCtx, database, log)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("addr", cfg.HTTP.Addr), zap.Strings("modules", coordinator.Modules()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("serving: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	if err := coordinator.Deactivate(shutdownCtx); err != nil {
		log.Error("deactivating modules", zap.Error(err))
	}

	log.Info("server stopped, closing database")
	return nil
}

// bootstrapAdmin creates the first administrator when the user table is empty
// and prints its generated password once.
func bootstrapAdmin(ctx context.Context, database *sql.DB, username string) error {
	n, err := store.CountUsers(ctx, database)
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if n > 0 {
		return nil
	}

	password, err := generatePassword(16)
	if err != nil {
		return fmt.Errorf("generating password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if _, err := store.CreateUser(ctx, database, username, string(hash), model.RoleAdministrator); err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	fmt.Println("Administrator account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("It can be changed from the account page after logging in.")
	fmt.Println()
	return nil
}

// applyLogSettings lowers the log level to debug when the stored settings ask
// for debug logging.
func applyLogSettings(ctx context.Context, m *settings.Manager, level zap.AtomicLevel, log *zap.Logger) {
	enabled, err := m.Bool(ctx, "logging.enabled")
	if err != nil {
		log.Warn("reading logging settings", zap.Error(err))
		return
	}
	lvl, err := m.String(ctx, "logging.level")
	if err != nil {
		log.Warn("reading logging settings", zap.Error(err))
		return
	}
	if enabled && lvl == "debug" {
		level.SetLevel(zapcore.DebugLevel)
		log.Debug("debug logging enabled from settings")
	}
}

func purgeRevokedTokens(ctx context.Context, database *sql.DB, log *zap.Logger) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.PurgeRevokedTokens(ctx, database, now)
			if err != nil {
				log.Warn("purging revoked tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Debug("purged revoked tokens", zap.Int64("count", n))
			}
		}
	}
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
