package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Assertion     AssertionConfig
	Server        ServerConfig
	Slack         SlackConfig
	LLM           LLMConfig
	Intake        IntakeConfig
	ConflictStore ConflictStoreConfig
	GoalSource    GoalSourceConfig
	Vault         VaultConfig
	License       LicenseConfig
	SelfHosted    bool
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// JWTConfig holds staff JWT authentication settings.
type JWTConfig struct {
	Secret     string //nolint:gosec // G117: JWT signing secret config
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AssertionConfig holds settings for validating identity-provider login
// assertions presented by intake clients.
type AssertionConfig struct {
	Secret string //nolint:gosec // G117: assertion verification secret
	Issuer string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// SlackConfig holds Slack notification settings.
type SlackConfig struct {
	BotToken string
}

// LLMConfig holds the chat-completion provider settings.
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	EmbedModel  string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// IntakeConfig holds conversation and conflict-detection tuning.
type IntakeConfig struct {
	ResumeTokenTTL  time.Duration
	ConflictDetect  float64
	ConflictPending float64
	ConflictTopK    int
	HistoryBudget   int
}

// ConflictStoreConfig holds vector store persistence settings.
type ConflictStoreConfig struct {
	PersistPath string
}

// GoalSourceConfig holds the optional document-search collaborator settings.
type GoalSourceConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// VaultConfig holds the optional key for encrypting client identity at rest.
type VaultConfig struct {
	KeyHex string //nolint:gosec // G117: encryption key config
}

// LicenseConfig holds the self-hosted deployment license. Ignored unless
// ENGAGE_SELF_HOSTED is set.
type LicenseConfig struct {
	ID        string
	Org       string
	MaxSeats  int
	Features  []string
	ExpiresAt time.Time
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("ENGAGE_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("ENGAGE_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("ENGAGE_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	accessTTL, err := getEnvDuration("ENGAGE_JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	refreshTTL, err := getEnvDuration("ENGAGE_JWT_REFRESH_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("ENGAGE_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("ENGAGE_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	llmTimeout, err := getEnvDuration("ENGAGE_LLM_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	llmMaxTokens, err := getEnvInt("ENGAGE_LLM_MAX_TOKENS", 600)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	llmTemperature, err := getEnvFloat("ENGAGE_LLM_TEMPERATURE", 0.3)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	resumeTTL, err := getEnvDuration("ENGAGE_RESUME_TOKEN_TTL", 72*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	conflictDetect, err := getEnvFloat("ENGAGE_CONFLICT_DETECT_THRESHOLD", 0.75)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	conflictPending, err := getEnvFloat("ENGAGE_CONFLICT_PENDING_FLOOR", 0.55)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	conflictTopK, err := getEnvInt("ENGAGE_CONFLICT_TOP_K", 5)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	historyBudget, err := getEnvInt("ENGAGE_PROMPT_HISTORY_BUDGET", 3000)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	goalSourceTimeout, err := getEnvDuration("ENGAGE_GOAL_SOURCE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	selfHosted, err := getEnvBool("ENGAGE_SELF_HOSTED", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	licenseSeats, err := getEnvInt("ENGAGE_LICENSE_MAX_SEATS", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	licenseExpires, err := getEnvTime("ENGAGE_LICENSE_EXPIRES", time.Time{})
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("ENGAGE_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("ENGAGE_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("ENGAGE_DB_USER", "engage"),
			Password: getEnv("ENGAGE_DB_PASSWORD", ""),
			DBName:   getEnv("ENGAGE_DB_NAME", "engage_dev"),
			SSLMode:  getEnv("ENGAGE_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("ENGAGE_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("ENGAGE_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:     getEnv("ENGAGE_JWT_SECRET", ""),
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
		},
		Assertion: AssertionConfig{
			Secret: getEnv("ENGAGE_ASSERTION_SECRET", ""),
			Issuer: getEnv("ENGAGE_ASSERTION_ISSUER", ""),
		},
		Server: ServerConfig{
			Addr:         getEnv("ENGAGE_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
		},
		Slack: SlackConfig{
			BotToken: getEnv("ENGAGE_SLACK_BOT_TOKEN", ""),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("ENGAGE_LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:      getEnv("ENGAGE_LLM_API_KEY", ""),
			Model:       getEnv("ENGAGE_LLM_MODEL", "gpt-4o-mini"),
			EmbedModel:  getEnv("ENGAGE_LLM_EMBED_MODEL", "text-embedding-3-small"),
			Timeout:     llmTimeout,
			MaxTokens:   llmMaxTokens,
			Temperature: llmTemperature,
		},
		Intake: IntakeConfig{
			ResumeTokenTTL:  resumeTTL,
			ConflictDetect:  conflictDetect,
			ConflictPending: conflictPending,
			ConflictTopK:    conflictTopK,
			HistoryBudget:   historyBudget,
		},
		ConflictStore: ConflictStoreConfig{
			PersistPath: getEnv("ENGAGE_CONFLICT_STORE_PATH", ""),
		},
		GoalSource: GoalSourceConfig{
			BaseURL: getEnv("ENGAGE_GOAL_SOURCE_URL", ""),
			APIKey:  getEnv("ENGAGE_GOAL_SOURCE_API_KEY", ""),
			Timeout: goalSourceTimeout,
		},
		Vault: VaultConfig{
			KeyHex: getEnv("ENGAGE_VAULT_KEY", ""),
		},
		License: LicenseConfig{
			ID:        getEnv("ENGAGE_LICENSE_ID", ""),
			Org:       getEnv("ENGAGE_LICENSE_ORG", ""),
			MaxSeats:  licenseSeats,
			Features:  getEnvList("ENGAGE_LICENSE_FEATURES", nil),
			ExpiresAt: licenseExpires,
		},
		SelfHosted: selfHosted,
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("ENGAGE_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("ENGAGE_JWT_SECRET must be at least 32 characters")
	}

	// DB SSL mode warning for non-self-hosted deployments.
	if c.Database.SSLMode == "disable" && !c.SelfHosted {
		log.Warn().Msg("ENGAGE_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("ENGAGE_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("ENGAGE_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("ENGAGE_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("ENGAGE_JWT_REFRESH_TTL must be positive, got %s", c.JWT.RefreshTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("ENGAGE_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("ENGAGE_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Intake.ResumeTokenTTL <= 0 {
		return fmt.Errorf("ENGAGE_RESUME_TOKEN_TTL must be positive, got %s", c.Intake.ResumeTokenTTL)
	}
	if c.Intake.ConflictDetect <= 0 || c.Intake.ConflictDetect > 1 {
		return fmt.Errorf("ENGAGE_CONFLICT_DETECT_THRESHOLD must be in (0, 1], got %g", c.Intake.ConflictDetect)
	}
	if c.Intake.ConflictPending < 0 || c.Intake.ConflictPending >= c.Intake.ConflictDetect {
		return fmt.Errorf("ENGAGE_CONFLICT_PENDING_FLOOR must be in [0, detect threshold), got %g", c.Intake.ConflictPending)
	}
	if c.Intake.ConflictTopK < 1 {
		return fmt.Errorf("ENGAGE_CONFLICT_TOP_K must be >= 1, got %d", c.Intake.ConflictTopK)
	}
	if c.LLM.MaxTokens < 1 {
		return fmt.Errorf("ENGAGE_LLM_MAX_TOKENS must be >= 1, got %d", c.LLM.MaxTokens)
	}
	if c.License.MaxSeats < 0 {
		return fmt.Errorf("ENGAGE_LICENSE_MAX_SEATS must be >= 0, got %d", c.License.MaxSeats)
	}
	if c.SelfHosted && c.License.ID != "" && c.License.ExpiresAt.IsZero() {
		return errors.New("ENGAGE_LICENSE_EXPIRES is required when a license is configured")
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvTime(key string, fallback time.Time) (time.Time, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s=%q as RFC3339 time: %w", key, v, err)
	}
	return t, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
