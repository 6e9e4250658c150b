// Command flockd starts the flock trust and key-material HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/flocknet/flockd/internal/ambry"
	"github.com/flocknet/flockd/internal/limiter"
	"github.com/flocknet/flockd/internal/migrate"
	"github.com/flocknet/flockd/internal/repository/postgres"
	"github.com/flocknet/flockd/internal/server/httpapi"
	"github.com/flocknet/flockd/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, runs migrations, and starts the HTTP server
// plus the token reaper.
func main() {
	// Flags
	addr := flag.String("addr", "127.0.0.1:8888", "listen address")
	dsn := flag.String("dsn", "postgres://flockd@localhost:5432/accounts?sslmode=disable", "PostgreSQL DSN")
	ambryPath := flag.String("ambry-path", "shared/ambries", "ambry storage directory")
	cathedral := flag.String("cathedral", "127.0.0.1:4500", "primary cathedral address")
	natport := flag.String("natport", "4501", "cathedral NAT traversal port")
	rlWindow := flag.Duration("rl-window", time.Minute, "rate limit window")
	rlMax := flag.Int("rl-max", 120, "max requests per window per (addr, path)")
	dev := flag.Bool("dev", false, "development mode (plain cookies)")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", *addr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, *dsn); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	// DB pool
	db, err := postgres.New(ctx, *dsn)
	if err != nil {
		logger.Fatal("postgres.New", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	accountRepo := postgres.NewAccountRepo(db)
	flockRepo := postgres.NewFlockRepo(db)
	deviceRepo := postgres.NewDeviceRepo(db)
	linkRepo := postgres.NewTrustLinkRepo(db)
	cathedralRepo := postgres.NewCathedralRepo(db)

	lim := limiter.NewPG(db.Pool, *rlWindow, *rlMax)

	// Ambry storage
	store, err := ambry.NewStore(*ambryPath)
	if err != nil {
		logger.Fatal("ambry store", zap.Error(err))
	}

	// Services
	sessionSvc := service.NewSessionService(accountRepo, logger)
	flockSvc := service.NewFlockService(flockRepo)
	deviceSvc := service.NewDeviceService(deviceRepo, flockSvc)
	linkSvc := service.NewTrustLinkService(linkRepo, flockSvc)
	ambrySvc := service.NewAmbryService(store, flockSvc, linkSvc)

	handler := httpapi.NewRouter(httpapi.Services{
		Sessions:   sessionSvc,
		Flocks:     flockSvc,
		Devices:    deviceSvc,
		Links:      linkSvc,
		Ambries:    ambrySvc,
		Cathedrals: cathedralRepo,
	}, lim, logger, httpapi.Config{
		Cathedral: *cathedral,
		NATPort:   *natport,
		Dev:       *dev,
	})

	// Expired-token reaper
	go sessionSvc.RunReaper(ctx)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", *addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
