package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all process-wide configuration. It is built once at startup
// and never mutated afterwards.
type Config struct {
	ServerAddr string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	RedisAddr  string

	// Token secrets and lifetimes
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	// Cookies are always HttpOnly; Secure can be disabled for local dev.
	CookieSecure bool

	// S3/MinIO media store configuration
	S3Endpoint      string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3UsePathStyle  bool
	S3UseSSL        bool
	MediaPublicBase string

	// Max accepted upload size for profile images, in bytes.
	MaxUploadBytes int64

	CORSAllowedOrigins []string
}

func Load() *Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	accessTTL := durationEnv("ACCESS_TOKEN_TTL", 15*time.Minute)
	refreshTTL := durationEnv("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	cookieSecure, _ := strconv.ParseBool(getEnvOrDefault("COOKIE_SECURE", "true"))
	usePathStyle, _ := strconv.ParseBool(getEnvOrDefault("S3_USE_PATH_STYLE", "true"))
	useSSL, _ := strconv.ParseBool(getEnvOrDefault("S3_USE_SSL", "false"))
	maxUpload, _ := strconv.ParseInt(getEnvOrDefault("MAX_UPLOAD_BYTES", "10485760"), 10, 64)

	return &Config{
		ServerAddr:         getEnvOrDefault("SERVER_ADDR", ":8080"),
		DBHost:             getEnvOrDefault("DB_HOST", "localhost"),
		DBPort:             getEnvOrDefault("DB_PORT", "5432"),
		DBUser:             getEnvOrDefault("DB_USER", "videotube"),
		DBPassword:         getEnvOrDefault("DB_PASSWORD", "videotube_dev_password"),
		DBName:             getEnvOrDefault("DB_NAME", "videotube"),
		RedisAddr:          getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		AccessTokenSecret:  getEnvOrDefault("ACCESS_TOKEN_SECRET", generateDefaultSecret()),
		RefreshTokenSecret: getEnvOrDefault("REFRESH_TOKEN_SECRET", generateDefaultSecret()),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
		CookieSecure:       cookieSecure,
		S3Endpoint:         getEnvOrDefault("S3_ENDPOINT", "http://localhost:9000"),
		S3Region:           getEnvOrDefault("S3_REGION", "us-east-1"),
		S3AccessKey:        getEnvOrDefault("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:        getEnvOrDefault("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:           getEnvOrDefault("S3_BUCKET", "videotube-media"),
		S3UsePathStyle:     usePathStyle,
		S3UseSSL:           useSSL,
		MediaPublicBase:    getEnvOrDefault("MEDIA_PUBLIC_BASE", "http://localhost:9000/videotube-media"),
		MaxUploadBytes:     maxUpload,
		CORSAllowedOrigins: splitEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
}

func splitEnv(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func durationEnv(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func generateDefaultSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "dev-secret-change-in-production"
	}
	return hex.EncodeToString(bytes)
}
