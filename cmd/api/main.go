package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/user/serp-rank-service/internal/adapter/chromedp_browser"
	"github.com/user/serp-rank-service/internal/adapter/postgres"
	redis_adapter "github.com/user/serp-rank-service/internal/adapter/redis"
	"github.com/user/serp-rank-service/internal/adapter/sqlite"
	"github.com/user/serp-rank-service/internal/delivery/http/handler"
	"github.com/user/serp-rank-service/internal/delivery/http/router"
	"github.com/user/serp-rank-service/internal/entity"
	"github.com/user/serp-rank-service/internal/repository"
	"github.com/user/serp-rank-service/internal/usecase"
	"github.com/user/serp-rank-service/pkg/config"
	"github.com/user/serp-rank-service/pkg/identity"
	"github.com/user/serp-rank-service/pkg/logger"
	"github.com/user/serp-rank-service/pkg/utils"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	logLevel := logger.ParseLevel(cfg.LogLevel)
	logger.Init(os.Stdout, logLevel)
	slog.Info("Logger initialized", "level", logLevel.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Report archive ---
	archive, err := openArchive(ctx, cfg)
	if err != nil {
		slog.Error("Unable to open report archive", "driver", cfg.ArchiveDriver, "error", err)
		os.Exit(1)
	}
	if archive != nil {
		defer archive.Close()
		slog.Info("Report archive ready", "driver", cfg.ArchiveDriver)
	}

	// --- Progress publisher ---
	var publisher repository.ProgressPublisher
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		p := redis_adapter.NewProgressPublisher(rdb, cfg.RedisChannel)
		if err := p.Ping(ctx); err != nil {
			slog.Error("Unable to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer p.Close()
		publisher = p
		slog.Info("Redis connection established", "channel", cfg.RedisChannel)
	}

	// --- Use Cases ---
	identities := identity.NewRotator(utils.SplitList(cfg.UserAgents), utils.SplitList(cfg.Proxies))
	controller := usecase.NewRunController(
		chromedp_browser.NewLauncher(),
		archive,
		publisher,
		identities,
		usecase.ControllerOptions{
			Session: usecase.SessionOptions{
				StartPage:          cfg.StartPage,
				SearchBoxSelector:  cfg.SearchBoxSelector,
				NextPageSelector:   cfg.NextPageSelector,
				InteractionTimeout: cfg.InteractionTimeout(),
				ClickSettle:        cfg.ClickSettle(),
				RecycleThreshold:   cfg.TabRecycleThreshold,
				Launch: entity.LaunchOptions{
					Headless:     cfg.Headless,
					WindowWidth:  cfg.WindowWidth,
					WindowHeight: cfg.WindowHeight,
				},
			},
			PausePollInterval: cfg.PausePollInterval(),
			DefaultDriverPath: cfg.ChromePath,
			Detectors:         usecase.DefaultDetectors(),
		},
	)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(handler.NewHandler(controller)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on port %s: %w", cfg.ServerPort, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		controller.Stop()
		waitDone := make(chan struct{})
		go func() {
			controller.Wait()
			close(waitDone)
		}()
		select {
		case <-waitDone:
		case <-shutdownCtx.Done():
			slog.Warn("Run did not stop before shutdown deadline")
		}

		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}

func openArchive(ctx context.Context, cfg *config.Config) (repository.ReportArchive, error) {
	switch cfg.ArchiveDriver {
	case "":
		return nil, nil
	case "postgres":
		if cfg.PostgresURL == "" {
			return nil, errors.New("POSTGRES_URL is required for the postgres archive")
		}
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return postgres.NewRunArchive(connectCtx, cfg.PostgresURL)
	case "sqlite":
		return sqlite.New(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown archive driver %q", cfg.ArchiveDriver)
	}
}
