package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"kaspa-market-watch/internal/bot"
	"kaspa-market-watch/internal/cache"
	"kaspa-market-watch/internal/config"
	"kaspa-market-watch/internal/dex"
	"kaspa-market-watch/internal/ingestion"
	"kaspa-market-watch/internal/market"
	"kaspa-market-watch/internal/notify"
	"kaspa-market-watch/internal/observability"
	"kaspa-market-watch/internal/state"
)

func main() {
	once := flag.Bool("once", false, "Run a single scan cycle and exit")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides METRICS_ADDR)")
	flag.Parse()

	logger := log.New(os.Stdout, "[watcher] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Configuration error: %v", err)
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	// Start metrics server if enabled
	if cfg.MetricsAddr != "" && !*once {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
			cancel()
		case <-done:
			return
		}
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	if err := run(ctx, cfg, logger, *once); err != nil && err != context.Canceled {
		logger.Fatalf("Fatal: %v", err)
	}
	close(done)
	logger.Println("Shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger, once bool) error {
	tg, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	logger.Printf("Authorized as @%s", tg.Self.UserName)

	sink := notify.NewTelegramSink(notify.TelegramSinkOptions{
		API:             tg,
		ChatID:          cfg.ChatID,
		LevelsChatID:    cfg.LevelsChatID,
		AdminChatID:     cfg.AdminChatID,
		CollectionName:  cfg.CollectionName,
		ImageBase:       cfg.ImageBase,
		ImagesCID:       cfg.ImagesCID,
		ShowRarityScore: cfg.ShowRarityScore,
		Logger:          logger,
	})

	rarity := cache.NewRarityCache(cfg.RarityPath, logger)
	rarity.LoadOnce()

	var levels *cache.LevelsCache
	if cfg.LevelsURL != "" {
		levels = cache.NewLevelsCache(cache.LevelsCacheOptions{
			URL:       cfg.LevelsURL,
			KeyPrefix: cfg.LevelsKeyPrefix,
			TTL:       cfg.LevelsTTL,
			Dir:       cfg.DataDir,
			Logger:    logger,
		})
	}

	pollers, err := buildPollers(cfg, sink, levels, rarity, logger)
	if err != nil {
		return err
	}

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Store:         state.NewFileStore(cfg.StatePath),
		Pollers:       pollers,
		Levels:        levels,
		DedupeTTL:     cfg.DedupeTTL,
		DedupeMaxKeys: cfg.DedupeMaxKeys,
		Logger:        logger,
	})

	if once {
		return runner.Tick(ctx, "manual")
	}

	handler := &bot.Handler{
		Runner:      runner,
		Levels:      levels,
		Rarity:      rarity,
		AdminChatID: cfg.AdminChatID,
		Logger:      logger,
	}
	commandBot := bot.NewBot(tg, handler, logger)
	go func() {
		if err := commandBot.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("Bot loop stopped: %v", err)
		}
	}()

	schedule := cron.New()
	if _, err := schedule.AddFunc(cfg.TickSchedule, func() {
		if err := runner.Tick(ctx, "schedule"); err != nil {
			logger.Printf("Scheduled tick failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.TickSchedule, err)
	}

	if err := runner.Tick(ctx, "startup"); err != nil {
		logger.Printf("Startup tick failed: %v", err)
	}

	schedule.Start()
	logger.Printf("Watching on schedule %q", cfg.TickSchedule)

	<-ctx.Done()
	stopped := schedule.Stop()
	<-stopped.Done()
	return ctx.Err()
}

func buildPollers(cfg *config.Config, sink *notify.TelegramSink, levels *cache.LevelsCache, rarity *cache.RarityCache, logger *log.Logger) ([]ingestion.Poller, error) {
	var pollers []ingestion.Poller

	if cfg.MarketBaseURL != "" {
		client := market.NewClient(market.ClientOptions{BaseURL: cfg.MarketBaseURL})
		pollers = append(pollers,
			&ingestion.ListingsPoller{
				Market: client,
				Sink:   sink,
				Ticker: cfg.Ticker,
				Limit:  cfg.ListedLimit,
				Levels: levels,
				Rarity: rarity,
				Logger: logger,
			},
			&ingestion.SalesPoller{
				Market:          client,
				Sink:            sink,
				Ticker:          cfg.Ticker,
				LookbackMinutes: cfg.SalesLookbackMinutes,
				Limit:           cfg.SalesLimit,
				Levels:          levels,
				Rarity:          rarity,
				Logger:          logger,
			},
			&ingestion.TokenSalesPoller{
				Market:          client,
				Sink:            sink,
				Ticker:          cfg.TokenTicker,
				LookbackMinutes: cfg.SalesLookbackMinutes,
				BigBuyThreshold: cfg.TokenBigBuyThreshold,
				Logger:          logger,
			},
		)
	}

	if levels != nil {
		pollers = append(pollers, &ingestion.LevelsPoller{
			Levels:     levels,
			Rarity:     rarity,
			Sink:       sink,
			MaxUpdates: cfg.MaxLevelUpdates,
			Interval:   cfg.LevelsInterval,
			Logger:     logger,
		})
	}

	if len(cfg.Dexes) > 0 {
		if cfg.RPCURL == "" {
			return nil, fmt.Errorf("RPC_URL is required when DEX_LIST is set")
		}
		chainClient, err := ethclient.Dial(cfg.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("rpc %s: %w", cfg.RPCURL, err)
		}
		threshold, err := decimal.NewFromString(cfg.DexBigBuyThreshold)
		if err != nil {
			return nil, fmt.Errorf("DEX_BIG_BUY_THRESHOLD %q: %w", cfg.DexBigBuyThreshold, err)
		}

		for _, dc := range cfg.Dexes {
			variant, err := dex.VariantByName(dc.EventVariant)
			if err != nil {
				return nil, fmt.Errorf("dex %s: %w", dc.Name, err)
			}
			pollers = append(pollers, &ingestion.DexPoller{
				Resolver: &dex.Resolver{
					Client:      chainClient,
					Name:        dc.Name,
					Factory:     common.HexToAddress(dc.Factory),
					Token:       common.HexToAddress(dc.Token),
					Quote:       common.HexToAddress(dc.Quote),
					TokenSymbol: cfg.TokenTicker,
					QuoteSymbol: cfg.QuoteTicker,
					Logger:      logger,
				},
				Scanner: &dex.Scanner{
					Client:          chainClient,
					Name:            dc.Name,
					Variant:         variant,
					Span:            cfg.ScanSpan,
					BigBuyThreshold: threshold,
					Logger:          logger,
				},
				Sink:        sink,
				Admin:       sink,
				TokenSymbol: cfg.TokenTicker,
				QuoteSymbol: cfg.QuoteTicker,
				BuyLink:     dc.BuyLink,
				Logger:      logger,
			})
		}
	}

	return pollers, nil
}
