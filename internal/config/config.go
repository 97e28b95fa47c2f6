// Package config предоставляет структуры и функцию для загрузки конфигурации.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config — общая структура настроек всех процессов бота.
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Telegram                `yaml:"telegram"`
	Panel                   `yaml:"panel"`
	Workflow                `yaml:"workflow"`
	Ops                     `yaml:"ops"`
	Reconcile               `yaml:"reconcile"`
}

// RedisConnection — настройки подключения к Redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
	SnapshotTTL  time.Duration `yaml:"snapshot_ttl" env-default:"30s"`
}

// RabbitMQ — настройки подключения к брокеру.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	MaxRetries int           `yaml:"max_retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// HTTPServer — настройки операторского HTTP-сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// JWTToken — настройки токенов операторского API.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"1h"`
}

// Telegram — токены бота и платёжного провайдера, список администраторов.
type Telegram struct {
	BotToken             string  `yaml:"bot_token" env:"BOT_TOKEN"`
	PaymentProviderToken string  `yaml:"payment_provider_token" env:"PAYMENT_PROVIDER_TOKEN"`
	Currency             string  `yaml:"currency" env-default:"RUB"`
	AdminIDs             []int64 `yaml:"admin_ids" env:"ADMIN_IDS"`
}

// Panel — доступ к контрольной панели VPN и параметры выдачи ссылок.
type Panel struct {
	BaseURL      string        `yaml:"base_url" env:"PANEL_BASE_URL"`
	Username     string        `yaml:"username" env:"PANEL_USERNAME"`
	Password     string        `yaml:"password" env:"PANEL_PASSWORD"`
	LinkHost     string        `yaml:"link_host" env:"PANEL_LINK_HOST"`
	InboundID    int           `yaml:"inbound_id" env-default:"1"`
	Timeout      time.Duration `yaml:"timeout" env-default:"15s"`
	PollAttempts int           `yaml:"poll_attempts" env-default:"5"`
	PollDelay    time.Duration `yaml:"poll_delay" env-default:"1500ms"`
}

// Workflow — доступ к панели автоматизации сопутствующего бота.
type Workflow struct {
	BaseURL string        `yaml:"base_url" env:"WORKFLOW_BASE_URL"`
	APIKey  string        `yaml:"api_key" env:"WORKFLOW_API_KEY"`
	Timeout time.Duration `yaml:"timeout" env-default:"30s"`
}

// Ops — учётная запись операторского API; пароль хранится bcrypt-хешем.
type Ops struct {
	Username     string `yaml:"username" env-default:"ops"`
	PasswordHash string `yaml:"password_hash" env:"OPS_PASSWORD_HASH"`
}

// Reconcile — период фоновой синхронизации с панелью.
type Reconcile struct {
	Interval time.Duration `yaml:"interval" env-default:"6h"`
}

// MustLoad загружает конфигурацию из файла, указанного в CONFIG_PATH.
// Останавливает процесс, если файл отсутствует или не читается.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
