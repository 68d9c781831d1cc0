package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every runtime setting of the storefront API.
type Config struct {
	AppPort string
	AppEnv  string

	DBDriver    string
	DatabaseDSN string

	JWTSecret string
	JWTTTL    time.Duration

	RabbitMQURL      string
	RabbitMQExchange string
	RedisURL         string

	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string

	AdminUsername string
	AdminEmail    string
	AdminPassword string

	RateLimitPerMinute int
	RateLimitBurst     int
}

// Load reads an optional .env file and then the environment.
func Load() Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "file:petalpaint.db?cache=shared")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "order_events")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	v.SetDefault("PAYMENT_CURRENCY", "usd")
	v.SetDefault("ADMIN_USERNAME", "")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
	v.SetDefault("RATE_LIMIT_BURST", 20)
}

// FromViper builds a Config from an already populated Viper instance.
func FromViper(v *viper.Viper) Config {
	return Config{
		AppPort:             v.GetString("APP_PORT"),
		AppEnv:              v.GetString("APP_ENV"),
		DBDriver:            v.GetString("DB_DRIVER"),
		DatabaseDSN:         v.GetString("DATABASE_DSN"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		JWTTTL:              v.GetDuration("JWT_TTL"),
		RabbitMQURL:         v.GetString("RABBITMQ_URL"),
		RabbitMQExchange:    v.GetString("RABBITMQ_EXCHANGE"),
		RedisURL:            v.GetString("REDIS_URL"),
		StripeSecretKey:     v.GetString("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
		Currency:            v.GetString("PAYMENT_CURRENCY"),
		AdminUsername:       v.GetString("ADMIN_USERNAME"),
		AdminEmail:          v.GetString("ADMIN_EMAIL"),
		AdminPassword:       v.GetString("ADMIN_PASSWORD"),
		RateLimitPerMinute:  v.GetInt("RATE_LIMIT_PER_MINUTE"),
		RateLimitBurst:      v.GetInt("RATE_LIMIT_BURST"),
	}
}
