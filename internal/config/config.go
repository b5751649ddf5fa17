package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration for the planning service.
type Config struct {
	// Application settings
	AppEnv        string
	AppPort       int
	FrontendURL   string
	RunMigrations bool

	// Database settings
	DatabaseURL                string
	DatabaseMaxConnections     int
	DatabaseMaxIdleConnections int
	DatabaseConnectionLifetime time.Duration

	// Solver settings
	SolverBinaryPath    string
	SolverTimeLimit     time.Duration
	SolverMIPGap        float64
	SolverWorkDir       string
	SolverCompressDumps bool

	// Planning defaults
	DefaultMaxRouteHops        int
	DefaultCohortWarnThreshold int
	DefaultHorizonDays         int

	// OAuth settings (operator login to the planning dashboard)
	OAuthClientID      string
	OAuthClientSecret  string
	OAuthAuthEndpoint  string
	OAuthTokenEndpoint string
	OAuthRedirectURI   string
	OAuthScopes        string
	SessionSecret      string
	SessionDuration    time.Duration
	TokenRefreshBuffer time.Duration

	// CORS settings
	CORSAllowedOrigins   string
	CORSAllowCredentials bool

	// Logging
	LogLevel  string
	LogFormat string

	// NATS settings
	NATSURL string

	// Rate limiting
	SolveRequestsPerSecond int
	SolveBurstSize         int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		AppPort:     getEnvAsInt("APP_PORT", 8080),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		DatabaseURL:                getEnv("DATABASE_URL", ""),
		DatabaseMaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 25),
		DatabaseMaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
		DatabaseConnectionLifetime: getEnvAsDuration("DATABASE_CONNECTION_LIFETIME", 5*time.Minute),

		SolverBinaryPath:    getEnv("SOLVER_BINARY_PATH", "cbc"),
		SolverTimeLimit:     getEnvAsDuration("SOLVER_TIME_LIMIT", 5*time.Minute),
		SolverMIPGap:        getEnvAsFloat("SOLVER_MIP_GAP", 0.01),
		SolverWorkDir:       getEnv("SOLVER_WORK_DIR", os.TempDir()),
		SolverCompressDumps: getEnvAsBool("SOLVER_COMPRESS_DUMPS", true),

		DefaultMaxRouteHops:        getEnvAsInt("DEFAULT_MAX_ROUTE_HOPS", 10),
		DefaultCohortWarnThreshold: getEnvAsInt("DEFAULT_COHORT_WARN_THRESHOLD", 200_000),
		DefaultHorizonDays:         getEnvAsInt("DEFAULT_HORIZON_DAYS", 28),

		OAuthClientID:      getEnv("OAUTH_CLIENT_ID", ""),
		OAuthClientSecret:  getEnv("OAUTH_CLIENT_SECRET", ""),
		OAuthAuthEndpoint:  getEnv("OAUTH_AUTH_ENDPOINT", ""),
		OAuthTokenEndpoint: getEnv("OAUTH_TOKEN_ENDPOINT", ""),
		OAuthRedirectURI:   getEnv("OAUTH_REDIRECT_URI", "http://localhost:8080/api/auth/callback"),
		OAuthScopes:        getEnv("OAUTH_SCOPES", "openid profile"),
		SessionSecret:      getEnv("SESSION_SECRET", ""),
		SessionDuration:    getEnvAsDuration("SESSION_DURATION", 24*time.Hour),
		TokenRefreshBuffer: getEnvAsDuration("TOKEN_REFRESH_BUFFER", 5*time.Minute),

		CORSAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		CORSAllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", true),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		NATSURL: getEnv("NATS_URL", "nats://localhost:4222"),

		SolveRequestsPerSecond: getEnvAsInt("SOLVE_REQUESTS_PER_SECOND", 2),
		SolveBurstSize:         getEnvAsInt("SOLVE_BURST_SIZE", 5),

		RunMigrations: getEnvAsBool("RUN_MIGRATIONS", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.SolverMIPGap < 0 || c.SolverMIPGap >= 1 {
		return fmt.Errorf("SOLVER_MIP_GAP must be in [0, 1)")
	}
	return nil
}

// Helper functions for reading environment variables.

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
