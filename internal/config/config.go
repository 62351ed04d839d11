package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Front-end server
	Server ServerConfig

	// External backend API
	Backend BackendConfig

	// Session cookie names
	Cookies CookieConfig

	// Optional route table override
	Routes RoutesConfig

	// Public settings cache
	Settings SettingsConfig

	// Redis Configuration
	Redis RedisConfig

	// Environment is "production" or "development"
	Environment string

	// Logging Configuration
	Logging LoggingConfig

	// Local development backend
	DevBackend DevBackendConfig
}

// ServerConfig holds front-end server configuration
type ServerConfig struct {
	Port            string
	PublicDir       string   // static assets and the APK
	APKFile         string   // file name of the Android build inside PublicDir
	AllowedOrigins  []string // CORS origins allowed on the relay endpoints
	SecureCookies   bool     // mark re-issued session cookies Secure
	ShutdownTimeout time.Duration
}

// BackendConfig holds the backend API location
type BackendConfig struct {
	URL     string // origin of the backend, without /api
	Timeout time.Duration
}

// BaseURL is the backend origin with the /api prefix
func (b BackendConfig) BaseURL() string {
	return strings.TrimRight(b.URL, "/") + "/api"
}

// CookieConfig holds the session cookie names and lifetime
type CookieConfig struct {
	User   string
	Admin  string
	MaxAge time.Duration
}

// RoutesConfig holds the optional YAML route table path
type RoutesConfig struct {
	TableFile string
}

// SettingsConfig holds public settings cache configuration
type SettingsConfig struct {
	TTL      time.Duration
	Schedule string // cron spec for background refresh
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address  string // Redis address (host:port); empty keeps the cache in memory
	Password string
	DB       int
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// DevBackendConfig holds configuration of the local development backend
type DevBackendConfig struct {
	Port          string
	DatabasePath  string
	JWTSecret     string
	AdminUsername string
	AdminPassword string
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	environment := getEnv("APP_ENV", "development")

	backendTimeout, err := getDuration("BACKEND_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cookieMaxAge, err := getDuration("COOKIE_MAX_AGE", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	settingsTTL, err := getDuration("SETTINGS_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	// Secure cookies by default in production only, so plain http works locally
	secureCookies, err := getBool("COOKIE_SECURE", environment == "production")
	if err != nil {
		return nil, err
	}

	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "3000"),
			PublicDir:       getEnv("PUBLIC_DIR", "public"),
			APKFile:         getEnv("APK_FILE", "crypgox.apk"),
			AllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
			SecureCookies:   secureCookies,
			ShutdownTimeout: shutdownTimeout,
		},
		Backend: BackendConfig{
			URL:     getEnv("BACKEND_URL", "http://localhost:4000"),
			Timeout: backendTimeout,
		},
		Cookies: CookieConfig{
			User:   getEnv("USER_COOKIE_NAME", "crypgo_token"),
			Admin:  getEnv("ADMIN_COOKIE_NAME", "crypgo_admin_token"),
			MaxAge: cookieMaxAge,
		},
		Routes: RoutesConfig{
			TableFile: os.Getenv("ROUTES_FILE"),
		},
		Settings: SettingsConfig{
			TTL:      settingsTTL,
			Schedule: getEnv("SETTINGS_REFRESH_SCHEDULE", "@every 5m"),
		},
		Redis: RedisConfig{
			Address:  os.Getenv("REDIS_ADDRESS"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Environment: environment,
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		DevBackend: DevBackendConfig{
			Port:          getEnv("DEV_BACKEND_PORT", "4000"),
			DatabasePath:  getEnv("DEV_BACKEND_DB", "crypgo-dev.sqlite"),
			JWTSecret:     getEnv("DEV_BACKEND_JWT_SECRET", "dev-secret-change-me"),
			AdminUsername: getEnv("DEV_BACKEND_ADMIN_USERNAME", "admin"),
			AdminPassword: getEnv("DEV_BACKEND_ADMIN_PASSWORD", "admin123"),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return b, nil
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
