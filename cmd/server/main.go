package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/damacus/iron-transfer/internal/config"
	"github.com/damacus/iron-transfer/internal/handlers"
	customMiddleware "github.com/damacus/iron-transfer/internal/middleware"
	"github.com/damacus/iron-transfer/internal/renderer"
	"github.com/damacus/iron-transfer/internal/services"
	"github.com/damacus/iron-transfer/internal/session"
	"github.com/damacus/iron-transfer/internal/storage"
	"github.com/damacus/iron-transfer/pkg/logger"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("server stopped")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "iron-transfer",
		Usage: "Browse, upload, download and delete the files of one bucket folder",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file instead of .env",
			},
			&cli.StringFlag{
				Name:  "port",
				Usage: "HTTP port, overrides SERVER_PORT",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error), overrides LOG_LEVEL",
			},
		},
		Action: run,
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	var envFiles []string
	if f := c.String("env-file"); f != "" {
		envFiles = append(envFiles, f)
	}

	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.String("port")
	}
	if c.IsSet("log-level") {
		cfg.Server.LogLevel = c.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return err
	}
	defer closeQuietly(store, "storage")

	sessions, err := session.Open(ctx, cfg.Session.Backend, cfg.SessionRedis(), cfg.Session.TTL)
	if err != nil {
		return err
	}
	defer closeQuietly(sessions, "session store")

	sealer := services.NewCookieSealer(cfg.Session.Key)

	logger.Log.Info().
		Str("storage", cfg.Storage.Backend).
		Str("bucket", cfg.Storage.Bucket).
		Str("folder", cfg.Storage.Folder).
		Str("sessions", cfg.Session.Backend).
		Msg("configuration loaded")

	e := newServer(store, sessions, sealer, cfg)
	return serve(ctx, e, ":"+cfg.Server.Port, cfg.Server.ShutdownTimeout)
}

// serve runs e until ctx is cancelled, then drains it within timeout
func serve(ctx context.Context, e *echo.Echo, addr string, timeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Log.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newServer(store storage.Store, sessions session.Store, sealer *services.CookieSealer, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	filesHandler := handlers.NewFilesHandler(store, sessions, cfg.Storage.Folder, cfg.Upload.MaxBytes)

	// Middleware
	e.Use(customMiddleware.RequestLogger(logger.Log))
	e.Use(middleware.Recover())
	e.Use(customMiddleware.SecurityHeaders())
	e.Use(customMiddleware.CSRF())
	// Every browser gets a session; /health is skipped inside
	e.Use(customMiddleware.SessionMiddleware(sealer, cfg.Session.TTL))

	// Template Renderer
	e.Renderer = renderer.New()

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	e.GET("/", filesHandler.ListFiles)
	e.POST("/upload", filesHandler.UploadFile)
	e.POST("/upload/overwrite", filesHandler.OverwriteUpload)
	e.POST("/upload/cancel", filesHandler.CancelUpload)
	e.GET("/download", filesHandler.DownloadFile)
	e.POST("/delete", filesHandler.DeleteFile)

	return e
}

func closeQuietly(v interface{}, what string) {
	closer, ok := v.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Log.Warn().Err(err).Str("component", what).Msg("failed to close")
	}
}
