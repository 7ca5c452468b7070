package config

import (
	"log"
	"os"
	"time"

	"github.com/Nrad8394/Harmosoft-Book-Store-Backend/pkg/utils"
	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string   `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTP     `yaml:"http"`
	Postgres PG       `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`
	Stripe   Stripe   `yaml:"stripe"`
	Mpesa    Mpesa    `yaml:"mpesa"`
	SMTP     SMTP     `yaml:"smtp"`
	Logger   Logger   `yaml:"logger"`
}

type HTTP struct {
	Port    string        `yaml:"port" env:"HTTP_PORT" env-default:":3000"`
	Timeout time.Duration `yaml:"timeout" env-default:"4s"`
}

type PG struct {
	URL string `yaml:"url" env:"DB_URL"`
}

type Redis struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	CacheTTL time.Duration `yaml:"cache_ttl" env-default:"10m"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
}

type Stripe struct {
	APIKey    string `yaml:"api_key" env:"STRIPE_API_KEY"`
	Currency  string `yaml:"currency" env-default:"usd"`
	ReturnURL string `yaml:"return_url" env:"STRIPE_RETURN_URL"`
}

type Mpesa struct {
	BaseURL        string `yaml:"base_url" env:"MPESA_BASE_URL" env-default:"https://sandbox.safaricom.co.ke"`
	ConsumerKey    string `yaml:"consumer_key" env:"MPESA_CONSUMER_KEY"`
	ConsumerSecret string `yaml:"consumer_secret" env:"MPESA_CONSUMER_SECRET"`
	Shortcode      string `yaml:"shortcode" env:"MPESA_SHORTCODE"`
	Passkey        string `yaml:"passkey" env:"MPESA_PASSKEY"`
	InitiatorName  string `yaml:"initiator_name" env:"MPESA_INITIATOR_NAME"`
	CallbackURL    string `yaml:"callback_url" env:"MPESA_CALLBACK_URL"`
	ResultURL      string `yaml:"result_url" env:"MPESA_RESULT_URL"`
	TimeoutURL     string `yaml:"timeout_url" env:"MPESA_TIMEOUT_URL"`
}

type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	User     string `yaml:"user" env:"SMTP_USER"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
}

type Logger struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

func MustLoad() *Config {
	configPath := utils.ParseWithFallback("CONFIG_PATH", "./config/local.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %v", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("error reading config: %v", err)
	}

	return &cfg
}
