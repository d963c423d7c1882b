package main

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vatsl808/appointix/internal/config"
	"github.com/vatsl808/appointix/internal/domain/appointment"
	"github.com/vatsl808/appointix/internal/domain/doctor"
	"github.com/vatsl808/appointix/internal/domain/identity"
	"github.com/vatsl808/appointix/internal/platform/auth"
	"github.com/vatsl808/appointix/internal/platform/blobstore"
	"github.com/vatsl808/appointix/internal/platform/cache"
	"github.com/vatsl808/appointix/internal/platform/db"
	"github.com/vatsl808/appointix/internal/platform/jobs"
	"github.com/vatsl808/appointix/internal/platform/metrics"
	"github.com/vatsl808/appointix/internal/platform/middleware"
	"github.com/vatsl808/appointix/internal/platform/openapi"
	"github.com/vatsl808/appointix/internal/platform/validate"
	"github.com/vatsl808/appointix/migrations"
)

// Uploaded pictures younger than this are never swept.
const pictureSweepGrace = time.Hour

const version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "appointix-server",
		Short: "Appointix appointment booking API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// migrationSource returns the embedded migrations unless dir names a
// directory on disk.
func migrationSource(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run Postgres schema migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			migrator, closeFn, err := openMigrator(cmd.Context(), dir, schema)
			if err != nil {
				return err
			}
			defer closeFn()

			fmt.Printf("Running migrations on schema: %s\n", schema)
			count, err := migrator.Up(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "public", "Target schema for migrations")
	upCmd.Flags().String("dir", "", "Migrations directory (default: built-in migrations)")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			migrator, closeFn, err := openMigrator(cmd.Context(), dir, schema)
			if err != nil {
				return err
			}
			defer closeFn()

			statuses, err := migrator.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", "public", "Target schema for migrations")
	statusCmd.Flags().String("dir", "", "Migrations directory (default: built-in migrations)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func openMigrator(ctx context.Context, dir, schema string) (*db.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.StoreDriver != config.DriverPostgres {
		return nil, nil, fmt.Errorf("migrations only apply to the %q driver; mongo indexes are created by serve", config.DriverPostgres)
	}
	if dir == "" && cfg.MigrationsDir != "" {
		if info, err := os.Stat(cfg.MigrationsDir); err == nil && info.IsDir() {
			dir = cfg.MigrationsDir
		}
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns:        2,
		ApplicationName: "appointix-migrate",
	})
	if err != nil {
		return nil, nil, err
	}
	return db.NewMigrator(pool, migrationSource(dir), schema), pool.Close, nil
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-pictures",
		Short: "Delete profile pictures no doctor references",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			st, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer st.close()

			pictures, err := blobstore.NewDiskStore(cfg.UploadDir, cfg.MaxUploadBytes)
			if err != nil {
				return err
			}
			doctors := doctor.NewService(st.doctors, pictures, nil, logger)
			removed, err := jobs.NewPictureSweeper(pictures, doctors, pictureSweepGrace, logger).Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d orphaned picture(s).\n", removed)
			return nil
		},
	}
}

// services holds the wired domain layer.
type services struct {
	identity    *identity.Service
	doctors     *doctor.Service
	appointment *appointment.Service
}

func newServices(st *store, pictures blobstore.Store, c *cache.Cache, issuer *auth.Issuer, logger zerolog.Logger) *services {
	v := validate.New()
	doctors := doctor.NewService(st.doctors, pictures, c, logger.With().Str("domain", "doctor").Logger())
	users := identity.NewService(st.users, doctors, st.tx, issuer, v, logger.With().Str("domain", "identity").Logger())
	appts := appointment.NewService(st.appointments, doctors, users, v, logger.With().Str("domain", "appointment").Logger())
	return &services{identity: users, doctors: doctors, appointment: appts}
}

// publicRoute reports whether a route is served without a bearer token.
func publicRoute(method, path string) bool {
	if !strings.HasPrefix(path, "/api/") {
		return true
	}
	switch path {
	case "/api/register", "/api/login":
		return true
	case "/api/doctors":
		return method == http.MethodGet
	}
	return false
}

// corsSkipper limits CORS handling to the API and uploaded files.
func corsSkipper(c echo.Context) bool {
	p := c.Request().URL.Path
	return !strings.HasPrefix(p, "/api/") && !strings.HasPrefix(p, doctor.PicturePath)
}

func newRouter(cfg *config.Config, logger zerolog.Logger, svc *services, issuer *auth.Issuer, pictures blobstore.Store, health echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.New()

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		Skipper:      corsSkipper,
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.BodyLimit(1<<20, cfg.MaxUploadBytes+1<<20))

	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Appointix Backend is Running!")
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if health != nil {
		e.GET("/health/db", health)
	}
	e.GET("/metrics", metrics.Handler())
	e.GET(doctor.PicturePath+":filename", blobstore.ServeHandler(pictures))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	public := e.Group("/api", middleware.RateLimit(rateLimitCfg))
	api := public.Group("", auth.JWTMiddleware(issuer))

	identity.NewHandler(svc.identity).RegisterRoutes(public)
	doctor.NewHandler(svc.doctors).RegisterRoutes(public, api)
	appointment.NewHandler(svc.appointment).RegisterRoutes(api)

	openapi.NewGenerator(e, version, fmt.Sprintf("http://localhost:%s", cfg.Port), publicRoute).RegisterRoutes(e)

	return e
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx := context.Background()
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
		return err
	}
	defer st.close()

	var dirCache *cache.Cache
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, directory cache disabled")
		} else {
			defer client.Close()
			dirCache = cache.New(client, cfg.CacheTTL, "appointix", logger)
			logger.Info().Msg("connected to redis")
		}
	}

	pictures, err := blobstore.NewDiskStore(cfg.UploadDir, cfg.MaxUploadBytes)
	if err != nil {
		return fmt.Errorf("open upload dir: %w", err)
	}

	metrics.Register()
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	svc := newServices(st, pictures, dirCache, issuer, logger)
	e := newRouter(cfg, logger, svc, issuer, pictures, st.health)

	scheduler := jobs.NewScheduler(logger, 5*time.Minute)
	if cfg.PictureSweepSchedule != "" {
		sweeper := jobs.NewPictureSweeper(pictures, svc.doctors, pictureSweepGrace, logger)
		if err := scheduler.Add(cfg.PictureSweepSchedule, "picture-sweep", sweeper.Task()); err != nil {
			return err
		}
	}
	scheduler.Start()

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("driver", cfg.StoreDriver).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("scheduled jobs did not stop in time")
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
