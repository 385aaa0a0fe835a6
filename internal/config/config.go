package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins []string
	Timezone       string

	Database DatabaseConfig
	RedisURL string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	StorageDriver string
	Cloudinary    CloudinaryConfig
	MinIO         MinIOConfig

	MeiliSearchHost string
	MeiliMasterKey  string

	RateLimitRequest time.Duration

	LogLevel  string
	LogFormat string

	AdminEmail    string
	AdminPassword string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type CloudinaryConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadFolder string
}

type MinIOConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	UseSSL     bool
	PublicBase string
}

// devJWTSecret is only accepted when APP_ENV=development.
const devJWTSecret = "dev-only-insecure-secret"

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		Timezone:       getEnv("APP_TIMEZONE", "UTC"),

		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASS"),
			Name:     getEnv("DB_NAME", "blood_donation"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		RedisURL: os.Getenv("REDIS_URL"),

		JWTSecret: strings.TrimSpace(os.Getenv("JWT_SECRET")),

		StorageDriver: getEnv("STORAGE_DRIVER", "cloudinary"),
		Cloudinary: CloudinaryConfig{
			CloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:       os.Getenv("CLOUDINARY_API_KEY"),
			APISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
			UploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "blood_donation"),
		},
		MinIO: MinIOConfig{
			Endpoint:   getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
			AccessKey:  os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey:  os.Getenv("MINIO_SECRET_KEY"),
			Bucket:     getEnv("MINIO_BUCKET", "profiles"),
			UseSSL:     getEnv("MINIO_USE_SSL", "false") == "true",
			PublicBase: getEnv("MINIO_PUBLIC_BASE", "http://127.0.0.1:9000"),
		},

		MeiliSearchHost: os.Getenv("MEILISEARCH_HOST"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@blooddonation.local"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),
	}

	var err error
	cfg.AccessTokenTTL, err = time.ParseDuration(getEnv("JWT_ACCESS_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_TTL: %w", err)
	}
	cfg.RefreshTokenTTL, err = time.ParseDuration(getEnv("JWT_REFRESH_TTL", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_REFRESH_TTL: %w", err)
	}
	cfg.RateLimitRequest, err = time.ParseDuration(getEnv("RATE_LIMIT_REQUEST", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REQUEST: %w", err)
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET is required when APP_ENV=%s", cfg.AppEnv)
		}
		cfg.JWTSecret = devJWTSecret
	}

	switch cfg.StorageDriver {
	case "cloudinary", "minio", "none":
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q: want cloudinary, minio or none", cfg.StorageDriver)
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
