package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	PGDSN      string `envconfig:"PG_DSN"`
	PGMaxConns int    `envconfig:"PG_MAX_CONNS" default:"5"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	// StrategyPath: папка со статическими документами стратегии и источниками.
	StrategyPath string `envconfig:"BLESS_STRATEGY_PATH"`

	Generation struct {
		LockTTL time.Duration `envconfig:"GENERATION_LOCK_TTL" default:"5m"`
	} `envconfig:""`

	Completion struct {
		Provider string `envconfig:"COMPLETION_PROVIDER" default:"anthropic"`
	} `envconfig:""`

	Anthropic struct {
		APIKey  string        `envconfig:"ANTHROPIC_API_KEY"`
		BaseURL string        `envconfig:"ANTHROPIC_BASE_URL"`
		Model   string        `envconfig:"ANTHROPIC_MODEL" default:"claude-sonnet-4-20250514"`
		Timeout time.Duration `envconfig:"ANTHROPIC_TIMEOUT" default:"120s"`
	} `envconfig:""`

	OpenAI struct {
		APIKey  string        `envconfig:"OPENAI_API_KEY"`
		BaseURL string        `envconfig:"OPENAI_BASE_URL"`
		Model   string        `envconfig:"OPENAI_MODEL" default:"gpt-4.1-mini"`
		Timeout time.Duration `envconfig:"OPENAI_TIMEOUT" default:"120s"`
	} `envconfig:""`

	Fetch struct {
		Timeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// Parse читает конфиг из окружения и возвращает ошибку вместо завершения процесса.
func Parse() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}
