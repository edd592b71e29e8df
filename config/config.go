package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config содержит все настройки приложения
type Config struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Gate     GateConfig     `mapstructure:"gate"`
	Log      LogConfig      `mapstructure:"log"`
}

// PostgresConfig содержит настройки для PostgreSQL
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig содержит настройки для Redis
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GRPCConfig содержит настройки для gRPC сервера
type GRPCConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig содержит настройки провайдера идентификации
type AuthConfig struct {
	// JWTSecret ключ подписи сессионных токенов (HS256)
	JWTSecret string `mapstructure:"jwt_secret"`
	// TokenTTL время жизни сессионного токена
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	// GoogleClientID аудитория для Google ID токенов
	GoogleClientID string `mapstructure:"google_client_id"`
	// AppleBundleID аудитория для Apple ID токенов
	AppleBundleID string `mapstructure:"apple_bundle_id"`
	// AppleKeysURL адрес JWKS Apple
	AppleKeysURL string `mapstructure:"apple_keys_url"`
}

// GateConfig содержит настройки навигационного шлюза
type GateConfig struct {
	SplashDelay time.Duration `mapstructure:"splash_delay"`
}

// LogConfig содержит настройки логирования
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// LoadConfig загружает настройки из .env, файла конфигурации и переменных окружения
func LoadConfig() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	loadFromEnv(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// PostgreSQL
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.username", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "detective")
	v.SetDefault("postgres.sslmode", "disable")

	// Redis
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// gRPC
	v.SetDefault("grpc.port", 50051)

	// Auth
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 30*24*time.Hour)
	v.SetDefault("auth.apple_keys_url", "https://appleid.apple.com/auth/keys")

	// Навигационный шлюз: заставка видна не меньше 1.5 секунды
	v.SetDefault("gate.splash_delay", 1500*time.Millisecond)

	v.SetDefault("log.level", "info")
}

func loadFromEnv(v *viper.Viper) {
	// PostgreSQL
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		v.Set("postgres.host", dbHost)
	}
	if dbPort := os.Getenv("DB_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			v.Set("postgres.port", port)
		}
	}
	if dbUser := os.Getenv("DB_USER"); dbUser != "" {
		v.Set("postgres.username", dbUser)
	}
	if dbPassword := os.Getenv("DB_PASSWORD"); dbPassword != "" {
		v.Set("postgres.password", dbPassword)
	}
	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		v.Set("postgres.dbname", dbName)
	}

	// Redis
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		redisPort := "6379"
		if port := os.Getenv("REDIS_PORT"); port != "" {
			redisPort = port
		}
		v.Set("redis.addr", redisHost+":"+redisPort)
	}

	// gRPC
	if grpcPort := os.Getenv("GRPC_PORT"); grpcPort != "" {
		if port, err := strconv.Atoi(grpcPort); err == nil {
			v.Set("grpc.port", port)
		}
	}

	// Auth
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		v.Set("auth.jwt_secret", secret)
	}
	if clientID := os.Getenv("GOOGLE_CLIENT_ID"); clientID != "" {
		v.Set("auth.google_client_id", clientID)
	}
	if bundleID := os.Getenv("APPLE_BUNDLE_ID"); bundleID != "" {
		v.Set("auth.apple_bundle_id", bundleID)
	}

	if splash := os.Getenv("SPLASH_DELAY"); splash != "" {
		if d, err := time.ParseDuration(splash); err == nil {
			v.Set("gate.splash_delay", d)
		}
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		v.Set("log.level", level)
	}
}
