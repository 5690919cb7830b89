package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"balance_tracker/internal/app/port"
	"balance_tracker/internal/app/provider"
	"balance_tracker/internal/app/service"
	"balance_tracker/internal/client"
	"balance_tracker/internal/domain/entity"
	"balance_tracker/internal/infrastructure/configloader"
	"balance_tracker/internal/infrastructure/httpclient"
	clientprovider "balance_tracker/internal/infrastructure/network/client"
	"balance_tracker/internal/infrastructure/notifier"
	"balance_tracker/internal/infrastructure/publisher/kafka"
	"balance_tracker/internal/infrastructure/restapi"
	filestore "balance_tracker/internal/infrastructure/storage/file"
	pgstore "balance_tracker/internal/infrastructure/storage/postgres"
	redisstore "balance_tracker/internal/infrastructure/storage/redis"
	"balance_tracker/internal/pkg/logger"
	"balance_tracker/internal/pkg/metrics"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("c", "config/config.yml", "path to the config file")
	intervalFlag := flag.Int("t", 0, "seconds between cycles, overrides general.time_interval")
	verbose := flag.Bool("v", false, "print every report to stdout")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.Warnf("Failed to load .env: %v", err)
	}

	// Загрузка конфигурации
	cfg, err := configloader.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Не удалось загрузить конфигурацию: %v", err)
	}

	zl, err := logger.Init(logger.Options{
		Level:       cfg.Logging.Level,
		File:        cfg.Logging.File,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		logrus.Fatalf("Не удалось инициализировать логгер: %v", err)
	}

	code := run(cfg, *configPath, *intervalFlag, *verbose, zl, logger.NewSlogAdapter(""))
	_ = logger.Zap().Sync()
	os.Exit(code)
}

func run(cfg *configloader.Config, configPath string, intervalFlag int, verbose bool, zl *zap.Logger, appLogger port.Logger) int {
	interval := cfg.Interval()
	if intervalFlag > 0 {
		interval = time.Duration(intervalFlag) * time.Second
	}
	if minSleep := cfg.MinSleepInterval(); minSleep > 0 && interval < time.Duration(minSleep)*time.Second {
		appLogger.Warn("Interval exceeds the free Moralis daily budget",
			"interval", interval, "minimumSeconds", minSleep)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics("balance_tracker", registry)

	backoff := time.Duration(cfg.Retry.BackoffSeconds) * time.Second
	exec := httpclient.New(time.Duration(cfg.Performance.RequestTimeoutSeconds)*time.Second, zl, m)

	// Telegram и очередь уведомлений создаются до хуков, чтобы ошибки доставки не порождали новые алерты
	var reportTarget port.ReportSink
	var alertTarget port.Alerter
	if cfg.Telegram.SendMsg || cfg.Telegram.Alerts {
		tg := client.NewTelegramClient(exec,
			httpclient.DefaultPolicy("telegram", time.Duration(cfg.Retry.TelegramBackoffSeconds)*time.Second),
			client.TelegramConfig{
				BaseURL:         cfg.Telegram.BaseURL,
				BotToken:        cfg.Telegram.BotToken,
				ChatID:          cfg.Telegram.ChatID,
				EditLastMessage: cfg.Telegram.EditLastMessage,
				MinInterval:     time.Second,
			}, zl)
		if cfg.Telegram.SendMsg {
			reportTarget = tg
		}
		if cfg.Telegram.Alerts {
			alertTarget = tg
		}
	}
	dispatcher := notifier.NewDispatcher(reportTarget, alertTarget, 0, logger.NewSlogAdapter("notifier"))
	if alertTarget != nil {
		logger.AttachHooks(notifier.AlertHook(dispatcher))
	}
	if cfg.Sentry.DSN != "" {
		if err := setupSentry(cfg.Sentry.DSN, cfg.Sentry.Environment); err != nil {
			appLogger.Warn("Sentry disabled", "error", err)
		} else {
			logger.AttachHooks(sentryHook)
			defer sentry.Flush(2 * time.Second)
		}
	}
	zl = logger.Zap()

	// Источники балансов и цен
	moralis := client.NewMoralisClient(exec, httpclient.QuotaPolicy("moralis", backoff), client.MoralisConfig{
		APIKey:        cfg.Keys.MoralisAPIKey,
		EVMBaseURL:    cfg.Endpoints.MoralisEVM,
		SolanaBaseURL: cfg.Endpoints.MoralisSolana,
		SolanaNetwork: cfg.Endpoints.SolanaNetwork,
	}, zl)
	blockberry := client.NewBlockberryClient(exec, httpclient.DefaultPolicy("blockberry", backoff),
		cfg.Endpoints.Blockberry, cfg.Keys.SuiAPIKey, client.DefaultBlockberrySpacing, zl)
	coingecko := client.NewCoinGeckoClient(exec, httpclient.DefaultPolicy("coingecko", backoff),
		cfg.CoinGecko.BaseURL, cfg.CoinGecko.APIKey, time.Duration(cfg.CoinGecko.CacheTTLSeconds)*time.Second, zl)
	dexscreener := client.NewDEXScreenerClient(exec, httpclient.DefaultPolicy("dexscreener", backoff),
		cfg.DEXScreener.BaseURL, cfg.DEXScreener.MaxTokensPerBatchRequest, zl)

	plans := provider.NewPlanProvider(configPath, verbose, logger.NewSlogAdapter("plan"))
	if _, err := plans.Plan(); err != nil {
		appLogger.Error("Failed to build the tracking plan", "error", err)
		return 1
	}
	nativeSource := clientprovider.NewEVMClientProvider(plans, moralis,
		time.Duration(cfg.Performance.RPCCallTimeoutSeconds)*time.Second, logger.NewSlogAdapter("rpc"))
	defer nativeSource.Close()

	// Хранилища
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	fileSnapshots := filestore.NewSnapshotStore(cfg.General.DataPath, logger.NewSlogAdapter("storage"))
	var snapshots port.SnapshotStore = fileSnapshots
	var natives port.NativeSnapshotStore = fileSnapshots
	if cfg.Storage.SnapshotDriver == "redis" {
		redisSnapshots, err := redisstore.NewSnapshotStore(startCtx, redisstore.Options{
			Addr:      cfg.Storage.Redis.Addr,
			Password:  cfg.Storage.Redis.Password,
			DB:        cfg.Storage.Redis.DB,
			KeyPrefix: cfg.Storage.Redis.KeyPrefix,
		}, logger.NewSlogAdapter("storage"))
		if err != nil {
			appLogger.Error("Failed to connect to redis", "error", err)
			return 1
		}
		defer redisSnapshots.Close()
		snapshots, natives = redisSnapshots, redisSnapshots
	}

	var history port.HistoryStore = filestore.NewHistoryStore(cfg.General.DataPath)
	if cfg.Storage.HistoryDriver == "postgres" {
		pool, err := pgstore.NewPool(startCtx, cfg.Storage.Postgres.DSN)
		if err != nil {
			appLogger.Error("Failed to connect to postgres", "error", err)
			return 1
		}
		defer pool.Close()
		if err := pool.EnsureSchema(startCtx); err != nil {
			appLogger.Error("Failed to prepare postgres schema", "error", err)
			return 1
		}
		history = pgstore.NewHistoryStore(pool)
	}

	// Получатели отчётов
	sinks := []port.ReportSink{dispatcher}
	if cfg.Kafka.Enabled {
		publisher := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}

	detector := service.NewChangeDetector(nativeSource, natives, logger.NewSlogAdapter("change_detector"))
	aggregator := service.NewAggregator(moralis, blockberry, moralis, coingecko, detector,
		logger.NewSlogAdapter("aggregator"), cfg.Performance.MaxConcurrentRoutines)
	prices := service.NewTokenPriceService(dexscreener, logger.NewSlogAdapter("prices"), service.PriceResolverOptions{
		BatchSize:     cfg.DEXScreener.MaxTokensPerBatchRequest,
		MaxConcurrent: cfg.DEXScreener.MaxConcurrentRequests,
		Retries:       cfg.Retry.PriceRetries,
	})
	tracker := service.NewTrackerService(plans, aggregator, prices, snapshots, history, sinks,
		notifier.NewConsoleSink(os.Stdout), logger.NewSlogAdapter("tracker"), m,
		service.TrackerOptions{Location: cfg.Location()})

	var srv *http.Server
	if cfg.Server.Enabled {
		gin.SetMode(gin.ReleaseMode)
		handler := restapi.NewPortfolioHandler(tracker, history, logger.NewSlogAdapter("api"))
		srv = &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:           restapi.SetupRouter(handler, registry),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			appLogger.Info("Запуск HTTP сервера", "адрес", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLogger.Error("HTTP сервер остановлен с ошибкой", "error", err)
			}
		}()
	}

	// Первый сигнал даёт завершить текущий цикл, второй прерывает его
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := make(chan struct{})
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		<-signals
		appLogger.Info("Shutdown requested, finishing the current cycle. Repeat to abort it")
		close(stop)
		<-signals
		appLogger.Warn("Aborting the current cycle")
		cancel()
	}()

	appLogger.Info("Balance tracker started", "interval", interval, "config", configPath)
	exitCode := 0
	if err := tracker.Run(ctx, stop, interval); err != nil && !errors.Is(err, context.Canceled) {
		if entity.IsFatal(err) {
			appLogger.Error("Fatal upstream error, shutting down", "error", err)
		} else {
			appLogger.Error("Tracker stopped", "error", err)
		}
		exitCode = 1
	}

	shutdownTimeout := time.Duration(cfg.Performance.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLogger.Warn("HTTP server shutdown", "error", err)
		}
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		appLogger.Warn("Pending notifications dropped", "error", err)
	}
	appLogger.Info("Balance tracker stopped")
	return exitCode
}
