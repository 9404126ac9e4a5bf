// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	// Тип SQL-колонки owner_id: varchar, int или bigint.
	// Пустое значение приводит к varchar с предупреждением в логе.
	UserIDSQLType string `yaml:"user_id_sql_type" env:"USER_ID_SQL_TYPE"`
	Stripe        `yaml:"stripe"`
	HTTPServer    `yaml:"http_server"`
	RedisLock     `yaml:"redis_lock"`
	RabbitMQ      `yaml:"rabbitmq"`
}

// Stripe структура для настройки клиента Stripe API
type Stripe struct {
	APIKey  string        `yaml:"api_key" env:"STRIPE_API_KEY"`
	Timeout time.Duration `yaml:"timeout" env-default:"15s"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:"localhost:8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisLock структура для настройки распределённой блокировки владельца.
// При Enabled=false сервис связей использует только внутрипроцессный мьютекс.
type RedisLock struct {
	Enabled      bool          `yaml:"enabled" env-default:"false"`
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
	TTL          time.Duration `yaml:"ttl" env-default:"30s"`
}

// RabbitMQ структура для настройки публикации аудит-событий связей.
type RabbitMQ struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
	Queue    string `yaml:"queue" env-default:"stripe_link_events"`
}

// MustLoad функция для загрузки конфига, путь берётся из CONFIG_PATH
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
