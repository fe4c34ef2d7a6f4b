package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	SectionGenerationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_section_generation_seconds",
		Help:    "Время генерации секции выпуска",
		Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
	}, []string{"section", "status"})

	GenerationConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_generation_conflicts_total",
		Help: "Отклонённые параллельные запросы генерации одной секции",
	})

	ReadingAnalysesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_reading_analyses_total",
		Help: "Количество анализов материалов",
	}, []string{"status"})

	SourceSyncTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_source_sync_total",
		Help: "Результаты синхронизации источников",
	}, []string{"result"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_network_request_duration_seconds",
		Help:    "Длительность запросов к Postgres, Redis, модели и внешним страницам",
		Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 15, 30, 60, 120},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_network_request_total",
		Help: "Количество запросов к внешним системам",
	}, []string{"component", "operation", "target", "status"})

	LLMGenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_completion_duration_seconds",
		Help:    "Длительность ответа сервиса генерации",
		Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
	}, []string{"model"})

	LLMTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_completion_tokens_total",
		Help: "Токены сервиса генерации по направлению",
	}, []string{"model", "type"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		SectionGenerationSeconds,
		GenerationConflicts,
		ReadingAnalysesTotal,
		SourceSyncTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
		LLMGenerationDuration,
		LLMTokensTotal,
	)
}

// StartServer поднимает отдельный сервер /metrics и гасит его вместе с ctx.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	if addr == "" {
		logger.Info().Msg("metrics: адрес не задан, отдельный сервер выключен")
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(stopCtx); err != nil {
			logger.Error().Err(err).Msg("metrics: остановка с ошибкой")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}

// ObserveNetworkRequest учитывает длительность и исход запроса к внешней системе.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	labels := []string{orUnknown(component), orUnknown(operation), orUnknown(target), outcome(err)}
	NetworkRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	NetworkRequestTotal.WithLabelValues(labels...).Inc()
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveLLMGeneration записывает длительность и токены генерации LLM.
func ObserveLLMGeneration(model string, duration time.Duration, inputTokens, outputTokens int) {
	model = orUnknown(model)
	LLMGenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	if inputTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "output").Add(float64(outputTokens))
	}
}

// ObserveSectionGeneration фиксирует длительность генерации секции.
func ObserveSectionGeneration(section string, start time.Time, err error) {
	SectionGenerationSeconds.WithLabelValues(section, outcome(err)).Observe(time.Since(start).Seconds())
}

// IncGenerationConflict увеличивает счётчик конфликтов генерации.
func IncGenerationConflict() {
	GenerationConflicts.Inc()
}

// IncReadingAnalysis учитывает результат анализа: relevant, not_relevant или error.
func IncReadingAnalysis(status string) {
	ReadingAnalysesTotal.WithLabelValues(status).Inc()
}

// IncSourceSync учитывает результат синхронизации одного источника.
func IncSourceSync(result string) {
	SourceSyncTotal.WithLabelValues(result).Inc()
}
