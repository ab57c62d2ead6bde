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

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/user/olx-watcher/internal/adapter/chromedp_fetcher"
	"github.com/user/olx-watcher/internal/adapter/colly_fetcher"
	"github.com/user/olx-watcher/internal/adapter/jsonfile"
	"github.com/user/olx-watcher/internal/adapter/listingparser"
	"github.com/user/olx-watcher/internal/adapter/lognotifier"
	"github.com/user/olx-watcher/internal/adapter/postgres"
	redis_adapter "github.com/user/olx-watcher/internal/adapter/redis"
	telegram_adapter "github.com/user/olx-watcher/internal/adapter/telegram"
	"github.com/user/olx-watcher/internal/adapter/yamlseed"
	"github.com/user/olx-watcher/internal/delivery/http/handler"
	"github.com/user/olx-watcher/internal/delivery/http/router"
	telegram_delivery "github.com/user/olx-watcher/internal/delivery/telegram"
	"github.com/user/olx-watcher/internal/repository"
	"github.com/user/olx-watcher/internal/usecase"
	"github.com/user/olx-watcher/pkg/config"
	"github.com/user/olx-watcher/pkg/logger"
	"github.com/user/olx-watcher/pkg/metrics"
)

const telegramClientTimeout = 45 * time.Second

type stores struct {
	filters repository.FilterRepository
	seen    repository.SeenRepository
	status  repository.StatusRepository
	close   func()
}

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	logLevel := logger.ParseLevel(cfg.LogLevel)
	logger.Init(os.Stdout, logLevel, cfg.LogFormat)
	slog.Info("Logger initialized", "level", logLevel.String(), "format", cfg.LogFormat)

	// --- Metrics ---
	metrics.Init()
	slog.Info("Metrics initialized")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- State ---
	st, err := openStores(ctx, cfg)
	if err != nil {
		slog.Error("Unable to open state store", "backend", cfg.StateBackend, "error", err)
		os.Exit(1)
	}
	defer st.close()

	// --- Fetcher ---
	fetcher, err := newFetcher(cfg)
	if err != nil {
		slog.Error("Unable to create fetcher", "fetcher", cfg.Fetcher, "error", err)
		os.Exit(1)
	}

	// --- Notifier ---
	var notifier repository.Notifier
	var bot *tgbotapi.BotAPI
	if cfg.TelegramToken != "" {
		// Long polling waits up to 30s per request, so the client timeout sits above it.
		botClient := &http.Client{Timeout: telegramClientTimeout}
		bot, err = tgbotapi.NewBotAPIWithClient(cfg.TelegramToken, tgbotapi.APIEndpoint, botClient)
		if err != nil {
			slog.Error("Unable to connect to Telegram", "error", err)
			os.Exit(1)
		}
		notifier = telegram_adapter.NewNotifier(bot, cfg.TelegramChatID)
		slog.Info("Telegram notifier ready", "bot", bot.Self.UserName, "chat_id", cfg.TelegramChatID)
	} else {
		notifier = lognotifier.New(nil)
		slog.Warn("TELEGRAM_BOT_TOKEN not set, matches are only logged")
	}

	// --- Use Cases ---
	watcher := usecase.NewWatcher(fetcher, notifier, st.filters, st.seen, st.status, usecase.WatcherOptions{
		MaxListings:   cfg.MaxListings,
		CheckInterval: cfg.CheckIntervalSeconds,
		StopTimeout:   cfg.StopTimeout(),
	})

	if cfg.FiltersSeedFile != "" {
		if err := seedFilters(ctx, watcher, cfg.FiltersSeedFile); err != nil {
			slog.Error("Unable to seed filters", "file", cfg.FiltersSeedFile, "error", err)
			os.Exit(1)
		}
	}

	if cfg.AutoStart {
		if _, err := watcher.Start(ctx); err != nil {
			slog.Error("Auto start failed", "error", err)
		}
	}

	// --- Telegram commands ---
	if bot != nil && cfg.TelegramCommands {
		commands := telegram_delivery.NewCommandHandler(watcher, cfg.TelegramChatID)
		go func() {
			if err := commands.Run(ctx, bot); err != nil {
				slog.Error("Telegram command loop exited", "error", err)
			}
		}()
	}

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(watcher)
	httpRouter := router.New(apiHandler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httpRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not listen on port", "port", cfg.ServerPort, "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	// --- Graceful Shutdown ---
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.StopTimeout()+5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	if _, err := watcher.Stop(shutdownCtx); err != nil {
		slog.Error("Failed to stop watcher", "error", err)
	}
	slog.Info("Server exiting")
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StateBackend {
	case "postgres":
		dbpool, err := pgxpool.New(ctx, cfg.PostgresURL())
		if err != nil {
			return nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		if err := dbpool.Ping(ctx); err != nil {
			dbpool.Close()
			return nil, fmt.Errorf("unable to reach database: %w", err)
		}
		if err := postgres.Migrate(ctx, dbpool); err != nil {
			dbpool.Close()
			return nil, err
		}
		slog.Info("PostgreSQL connection pool established")
		return &stores{
			filters: postgres.NewFilterRepo(dbpool),
			seen:    postgres.NewSeenRepo(dbpool),
			status:  postgres.NewStatusRepo(dbpool),
			close:   dbpool.Close,
		}, nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("unable to connect to redis: %w", err)
		}
		slog.Info("Redis connection established")
		return &stores{
			filters: redis_adapter.NewFilterRepo(rdb),
			seen:    redis_adapter.NewSeenRepo(rdb),
			status:  redis_adapter.NewStatusRepo(rdb),
			close:   func() { rdb.Close() },
		}, nil

	default:
		store, err := jsonfile.NewStore(cfg.StateDir)
		if err != nil {
			return nil, err
		}
		slog.Info("Using JSON state files", "dir", cfg.StateDir)
		return &stores{
			filters: store.Filters(),
			seen:    store.Seen(),
			status:  store.Status(),
			close:   func() {},
		}, nil
	}
}

func newFetcher(cfg *config.Config) (repository.ListingFetcher, error) {
	parser, err := listingparser.New(cfg.ListingsURL, listingparser.DefaultSelectors)
	if err != nil {
		return nil, err
	}

	if cfg.Fetcher == "http" {
		return colly_fetcher.NewCollyFetcher(colly_fetcher.Options{
			ListingsURL:    cfg.ListingsURL,
			RequestTimeout: cfg.PageLoadTimeout(),
			UserAgent:      cfg.UserAgent,
		}, parser), nil
	}
	return chromedp_fetcher.NewChromedpFetcher(chromedp_fetcher.Options{
		ListingsURL:     cfg.ListingsURL,
		PageLoadTimeout: cfg.PageLoadTimeout(),
		ScrollDelay:     cfg.ScrollDelay(),
		UserAgent:       cfg.UserAgent,
		ChromeBin:       cfg.ChromeBin,
	}, parser), nil
}

// seedFilters loads the seed file into an empty filter store.
func seedFilters(ctx context.Context, watcher usecase.Watcher, path string) error {
	existing, err := watcher.ListFilters(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		slog.Debug("Filters already stored, seed file ignored", "count", len(existing))
		return nil
	}

	filters, err := yamlseed.Load(path)
	if err != nil {
		return err
	}
	for _, f := range filters {
		if _, _, err := watcher.AddFilter(ctx, f.Model, f.MaxPrice); err != nil {
			return err
		}
	}
	slog.Info("Seeded filters", "file", path, "count", len(filters))
	return nil
}
