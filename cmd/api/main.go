package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/adapters/completion"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/adapters/fetcher"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/adapters/httpapi"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/adapters/repo"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/adapters/templates"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/infra/anthropic"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/infra/config"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/infra/db"
	httpinfra "github.com/simone-hue/boundaryless-content-dashboard/internal/infra/http"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/infra/lock"
	applog "github.com/simone-hue/boundaryless-content-dashboard/internal/infra/log"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/infra/metrics"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/usecase/buildlog"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/usecase/generation"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/usecase/newsletter"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/usecase/readings"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/usecase/sources"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось применить схему")
	}

	locker := newLocker(ctx, cfg, logger)
	completer, err := newCompleter(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось настроить генерацию")
	}

	store := repo.NewPostgres(pool)
	files := templates.NewFS(cfg.StrategyPath)
	if cfg.StrategyPath == "" {
		logger.Warn().Msg("api: BLESS_STRATEGY_PATH не задан, документы стратегии недоступны")
	}

	assembler := generation.NewAssembler(files, store, store, logger)
	api := httpapi.NewServer(
		httpapi.WithLogger(logger.With().Str("component", "api").Logger()),
		httpapi.WithNewsletters(
			newsletter.NewService(store, logger),
			generation.NewService(store, assembler, completer, locker, cfg.Generation.LockTTL, logger),
		),
		httpapi.WithBuildLogs(buildlog.NewService(store, logger)),
		httpapi.WithReadings(readings.NewService(store, store, completer, fetcher.New(cfg.Fetch.Timeout), logger)),
		httpapi.WithSources(sources.NewService(store, files, logger)),
	)

	// Генерация ждёт модель до таймаута клиента, запросу нужен запас сверху.
	modelTimeout := cfg.Anthropic.Timeout
	if cfg.OpenAI.Timeout > modelTimeout {
		modelTimeout = cfg.OpenAI.Timeout
	}
	requestTimeout := modelTimeout + 30*time.Second
	server := httpinfra.NewServer(logger, requestTimeout)
	server.Mount(api.Router())

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(fmt.Sprintf(":%d", cfg.Port), requestTimeout+5*time.Second)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("api: сервер остановлен")
		}
	}
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: ошибка остановки")
	}
}

// newLocker выбирает Redis, если он задан, иначе блокировку в памяти процесса.
func newLocker(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) domain.SectionLocker {
	if cfg.RedisAddr == "" {
		logger.Info().Msg("api: REDIS_ADDR не задан, блокировка генерации в памяти")
		return lock.NewMemory()
	}
	client, err := lock.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn().Err(err).Msg("api: redis недоступен, блокировка генерации в памяти")
		return lock.NewMemory()
	}
	return lock.NewRedis(client)
}

// newCompleter возвращает nil без ключа: операции генерации тогда отвечают ошибкой конфигурации.
func newCompleter(cfg config.AppConfig, logger zerolog.Logger) (domain.Completer, error) {
	switch strings.ToLower(cfg.Completion.Provider) {
	case "", "anthropic":
		if cfg.Anthropic.APIKey == "" {
			logger.Warn().Msg("api: ANTHROPIC_API_KEY не задан")
			return nil, nil
		}
		client := anthropic.NewClient(cfg.Anthropic.APIKey, cfg.Anthropic.BaseURL, cfg.Anthropic.Timeout)
		return completion.NewAnthropic(client, cfg.Anthropic.Model), nil
	case "openai":
		if cfg.OpenAI.APIKey == "" {
			logger.Warn().Msg("api: OPENAI_API_KEY не задан")
			return nil, nil
		}
		return completion.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.OpenAI.Timeout)
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Completion.Provider)
	}
}
