package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helper function tests
// ---------------------------------------------------------------------------

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string // nil = don't set; pointer to distinguish "" from unset
		fallback string
		want     string
	}{
		{name: "returns fallback when unset", key: "ENGAGE_TEST_GETENV_UNSET", setVal: nil, fallback: "default", want: "default"},
		{name: "returns env value when set", key: "ENGAGE_TEST_GETENV_SET", setVal: strPtr("custom"), fallback: "default", want: "custom"},
		{name: "returns fallback when empty string", key: "ENGAGE_TEST_GETENV_EMPTY", setVal: strPtr(""), fallback: "default", want: "default"},
		{name: "preserves whitespace", key: "ENGAGE_TEST_GETENV_WS", setVal: strPtr("  spaced  "), fallback: "x", want: "  spaced  "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got := getEnv(tc.key, tc.fallback)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback int
		want     int
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "ENGAGE_TEST_INT_UNSET", setVal: nil, fallback: 42, want: 42},
		{name: "parses valid int", key: "ENGAGE_TEST_INT_VALID", setVal: strPtr("8080"), fallback: 0, want: 8080},
		{name: "parses negative int", key: "ENGAGE_TEST_INT_NEG", setVal: strPtr("-1"), fallback: 0, want: -1},
		{name: "parses zero", key: "ENGAGE_TEST_INT_ZERO", setVal: strPtr("0"), fallback: 99, want: 0},
		{name: "returns fallback for empty string", key: "ENGAGE_TEST_INT_EMPTY", setVal: strPtr(""), fallback: 25, want: 25},
		{name: "errors on non-numeric", key: "ENGAGE_TEST_INT_NAN", setVal: strPtr("abc"), fallback: 0, wantErr: true},
		{name: "errors on float", key: "ENGAGE_TEST_INT_FLOAT", setVal: strPtr("3.14"), fallback: 0, wantErr: true},
		{name: "errors on hex", key: "ENGAGE_TEST_INT_HEX", setVal: strPtr("0xFF"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvInt(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvFloat(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback float64
		want     float64
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "ENGAGE_TEST_FLOAT_UNSET", setVal: nil, fallback: 0.75, want: 0.75},
		{name: "parses valid float", key: "ENGAGE_TEST_FLOAT_VALID", setVal: strPtr("0.8"), fallback: 0, want: 0.8},
		{name: "parses integer form", key: "ENGAGE_TEST_FLOAT_INT", setVal: strPtr("1"), fallback: 0, want: 1},
		{name: "parses zero", key: "ENGAGE_TEST_FLOAT_ZERO", setVal: strPtr("0"), fallback: 0.5, want: 0},
		{name: "errors on non-numeric", key: "ENGAGE_TEST_FLOAT_NAN", setVal: strPtr("high"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvFloat(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback bool
		want     bool
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "ENGAGE_TEST_BOOL_UNSET", setVal: nil, fallback: false, want: false},
		{name: "fallback true when unset", key: "ENGAGE_TEST_BOOL_UNSETTRUE", setVal: nil, fallback: true, want: true},
		{name: "parses true", key: "ENGAGE_TEST_BOOL_TRUE", setVal: strPtr("true"), fallback: false, want: true},
		{name: "parses false", key: "ENGAGE_TEST_BOOL_FALSE", setVal: strPtr("false"), fallback: true, want: false},
		{name: "parses 1", key: "ENGAGE_TEST_BOOL_ONE", setVal: strPtr("1"), fallback: false, want: true},
		{name: "parses 0", key: "ENGAGE_TEST_BOOL_ZERO", setVal: strPtr("0"), fallback: true, want: false},
		{name: "parses TRUE uppercase", key: "ENGAGE_TEST_BOOL_UPPER", setVal: strPtr("TRUE"), fallback: false, want: true},
		{name: "errors on invalid", key: "ENGAGE_TEST_BOOL_INV", setVal: strPtr("yes"), fallback: false, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvBool(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback time.Duration
		want     time.Duration
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "ENGAGE_TEST_DUR_UNSET", setVal: nil, fallback: 5 * time.Second, want: 5 * time.Second},
		{name: "parses seconds", key: "ENGAGE_TEST_DUR_SEC", setVal: strPtr("30s"), fallback: 0, want: 30 * time.Second},
		{name: "parses minutes", key: "ENGAGE_TEST_DUR_MIN", setVal: strPtr("15m"), fallback: 0, want: 15 * time.Minute},
		{name: "parses composite", key: "ENGAGE_TEST_DUR_COMP", setVal: strPtr("1h30m"), fallback: 0, want: 90 * time.Minute},
		{name: "errors on invalid", key: "ENGAGE_TEST_DUR_INV", setVal: strPtr("notaduration"), fallback: 0, wantErr: true},
		{name: "errors on bare number", key: "ENGAGE_TEST_DUR_BARE", setVal: strPtr("30"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvDuration(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvTime(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback time.Time
		want     time.Time
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "ENGAGE_TEST_TIME_UNSET", setVal: nil, fallback: time.Time{}, want: time.Time{}},
		{name: "parses RFC3339", key: "ENGAGE_TEST_TIME_VALID", setVal: strPtr("2027-01-15T00:00:00Z"), want: time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)},
		{name: "errors on date only", key: "ENGAGE_TEST_TIME_DATE", setVal: strPtr("2027-01-15"), wantErr: true},
		{name: "errors on garbage", key: "ENGAGE_TEST_TIME_INV", setVal: strPtr("someday"), wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvTime(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "want %s, got %s", tc.want, got)
		})
	}
}

// ---------------------------------------------------------------------------
// Load() error cases
// ---------------------------------------------------------------------------

func TestLoad_MissingJWTSecret(t *testing.T) {
	// All defaults apply; JWT secret is empty => must fail.
	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "ENGAGE_JWT_SECRET")
}

func TestLoad_InvalidEnvVars(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
		errMsg string
	}{
		// DB_PORT parse errors
		{name: "DB_PORT not a number", envKey: "ENGAGE_DB_PORT", envVal: "abc", errMsg: "ENGAGE_DB_PORT"},

		// DB_PORT validation errors (parses fine, fails bounds)
		{name: "DB_PORT zero", envKey: "ENGAGE_DB_PORT", envVal: "0", errMsg: "ENGAGE_DB_PORT"},
		{name: "DB_PORT too high", envKey: "ENGAGE_DB_PORT", envVal: "65536", errMsg: "ENGAGE_DB_PORT"},

		// DB_MAX_CONNS
		{name: "DB_MAX_CONNS zero", envKey: "ENGAGE_DB_MAX_CONNS", envVal: "0", errMsg: "ENGAGE_DB_MAX_CONNS"},
		{name: "DB_MAX_CONNS not a number", envKey: "ENGAGE_DB_MAX_CONNS", envVal: "many", errMsg: "ENGAGE_DB_MAX_CONNS"},

		// JWT durations
		{name: "JWT_ACCESS_TTL invalid", envKey: "ENGAGE_JWT_ACCESS_TTL", envVal: "badval", errMsg: "ENGAGE_JWT_ACCESS_TTL"},
		{name: "JWT_REFRESH_TTL invalid", envKey: "ENGAGE_JWT_REFRESH_TTL", envVal: "badval", errMsg: "ENGAGE_JWT_REFRESH_TTL"},
		{name: "JWT_ACCESS_TTL zero", envKey: "ENGAGE_JWT_ACCESS_TTL", envVal: "0s", errMsg: "ENGAGE_JWT_ACCESS_TTL"},

		// Server timeouts
		{name: "SERVER_READ_TIMEOUT zero", envKey: "ENGAGE_SERVER_READ_TIMEOUT", envVal: "0s", errMsg: "ENGAGE_SERVER_READ_TIMEOUT"},
		{name: "SERVER_WRITE_TIMEOUT invalid", envKey: "ENGAGE_SERVER_WRITE_TIMEOUT", envVal: "notduration", errMsg: "ENGAGE_SERVER_WRITE_TIMEOUT"},

		// Redis DB
		{name: "REDIS_DB not a number", envKey: "ENGAGE_REDIS_DB", envVal: "abc", errMsg: "ENGAGE_REDIS_DB"},

		// Intake tuning
		{name: "RESUME_TOKEN_TTL zero", envKey: "ENGAGE_RESUME_TOKEN_TTL", envVal: "0s", errMsg: "ENGAGE_RESUME_TOKEN_TTL"},
		{name: "CONFLICT_DETECT_THRESHOLD zero", envKey: "ENGAGE_CONFLICT_DETECT_THRESHOLD", envVal: "0", errMsg: "ENGAGE_CONFLICT_DETECT_THRESHOLD"},
		{name: "CONFLICT_DETECT_THRESHOLD above one", envKey: "ENGAGE_CONFLICT_DETECT_THRESHOLD", envVal: "1.5", errMsg: "ENGAGE_CONFLICT_DETECT_THRESHOLD"},
		{name: "CONFLICT_PENDING_FLOOR above detect", envKey: "ENGAGE_CONFLICT_PENDING_FLOOR", envVal: "0.9", errMsg: "ENGAGE_CONFLICT_PENDING_FLOOR"},
		{name: "CONFLICT_TOP_K zero", envKey: "ENGAGE_CONFLICT_TOP_K", envVal: "0", errMsg: "ENGAGE_CONFLICT_TOP_K"},
		{name: "LLM_MAX_TOKENS zero", envKey: "ENGAGE_LLM_MAX_TOKENS", envVal: "0", errMsg: "ENGAGE_LLM_MAX_TOKENS"},

		// Self-hosted
		{name: "SELF_HOSTED not a bool", envKey: "ENGAGE_SELF_HOSTED", envVal: "yes", errMsg: "ENGAGE_SELF_HOSTED"},

		// License
		{name: "LICENSE_MAX_SEATS not a number", envKey: "ENGAGE_LICENSE_MAX_SEATS", envVal: "lots", errMsg: "ENGAGE_LICENSE_MAX_SEATS"},
		{name: "LICENSE_MAX_SEATS negative", envKey: "ENGAGE_LICENSE_MAX_SEATS", envVal: "-1", errMsg: "ENGAGE_LICENSE_MAX_SEATS"},
		{name: "LICENSE_EXPIRES not RFC3339", envKey: "ENGAGE_LICENSE_EXPIRES", envVal: "next-year", errMsg: "ENGAGE_LICENSE_EXPIRES"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Always set JWT secret so failures are from the var under test.
			t.Setenv("ENGAGE_JWT_SECRET", "test-secret-for-error-cases-32ch!")
			t.Setenv(tc.envKey, tc.envVal)

			cfg, err := Load()
			require.Error(t, err, "expected error for %s=%q", tc.envKey, tc.envVal)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

// ---------------------------------------------------------------------------
// Load() happy paths
// ---------------------------------------------------------------------------

func TestLoad_Defaults(t *testing.T) {
	// Only the required JWT secret is set; everything else uses defaults.
	t.Setenv("ENGAGE_JWT_SECRET", "my-dev-secret-at-least-32-chars!!")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Database defaults.
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "engage", cfg.Database.User)
	assert.Empty(t, cfg.Database.Password)
	assert.Equal(t, "engage_dev", cfg.Database.DBName)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 25, cfg.Database.MaxConns)

	// Redis defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Empty(t, cfg.Redis.Password)
	assert.Equal(t, 0, cfg.Redis.DB)

	// JWT defaults.
	assert.Equal(t, "my-dev-secret-at-least-32-chars!!", cfg.JWT.Secret)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL)

	// Server defaults.
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)

	// LLM defaults.
	assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "text-embedding-3-small", cfg.LLM.EmbedModel)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 600, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.3, cfg.LLM.Temperature, 1e-9)

	// Intake defaults.
	assert.Equal(t, 72*time.Hour, cfg.Intake.ResumeTokenTTL)
	assert.InDelta(t, 0.75, cfg.Intake.ConflictDetect, 1e-9)
	assert.InDelta(t, 0.55, cfg.Intake.ConflictPending, 1e-9)
	assert.Equal(t, 5, cfg.Intake.ConflictTopK)
	assert.Equal(t, 3000, cfg.Intake.HistoryBudget)

	// Optional collaborators default to disabled.
	assert.Empty(t, cfg.Slack.BotToken)
	assert.Empty(t, cfg.GoalSource.BaseURL)
	assert.Empty(t, cfg.ConflictStore.PersistPath)
	assert.Empty(t, cfg.Assertion.Secret)
	assert.Empty(t, cfg.Vault.KeyHex)

	// Self-hosted and license defaults.
	assert.False(t, cfg.SelfHosted)
	assert.Empty(t, cfg.License.ID)
	assert.Zero(t, cfg.License.MaxSeats)
	assert.Empty(t, cfg.License.Features)
	assert.True(t, cfg.License.ExpiresAt.IsZero())
}

func TestLoad_AllCustomValues(t *testing.T) {
	envs := map[string]string{
		// Database
		"ENGAGE_DB_HOST":      "db.prod.internal",
		"ENGAGE_DB_PORT":      "5433",
		"ENGAGE_DB_USER":      "prod_user",
		"ENGAGE_DB_PASSWORD":  "s3cret!",
		"ENGAGE_DB_NAME":      "engage_prod",
		"ENGAGE_DB_SSLMODE":   "require",
		"ENGAGE_DB_MAX_CONNS": "50",
		// Redis
		"ENGAGE_REDIS_ADDR":     "redis.prod:6380",
		"ENGAGE_REDIS_PASSWORD": "redis-pass",
		"ENGAGE_REDIS_DB":       "3",
		// JWT
		"ENGAGE_JWT_SECRET":      "prod-jwt-secret-256-bits-long!!!",
		"ENGAGE_JWT_ACCESS_TTL":  "30m",
		"ENGAGE_JWT_REFRESH_TTL": "72h",
		// Assertion
		"ENGAGE_ASSERTION_SECRET": "idp-shared-secret",
		"ENGAGE_ASSERTION_ISSUER": "https://login.example.com/",
		// Server
		"ENGAGE_SERVER_ADDR":          ":9090",
		"ENGAGE_SERVER_READ_TIMEOUT":  "5s",
		"ENGAGE_SERVER_WRITE_TIMEOUT": "15s",
		// Slack
		"ENGAGE_SLACK_BOT_TOKEN": "xoxb-test",
		// LLM
		"ENGAGE_LLM_BASE_URL":    "https://llm.internal/v1",
		"ENGAGE_LLM_API_KEY":     "sk-test",
		"ENGAGE_LLM_MODEL":       "gpt-4o",
		"ENGAGE_LLM_EMBED_MODEL": "text-embedding-3-large",
		"ENGAGE_LLM_TIMEOUT":     "45s",
		"ENGAGE_LLM_MAX_TOKENS":  "800",
		"ENGAGE_LLM_TEMPERATURE": "0.1",
		// Intake
		"ENGAGE_RESUME_TOKEN_TTL":          "48h",
		"ENGAGE_CONFLICT_DETECT_THRESHOLD": "0.8",
		"ENGAGE_CONFLICT_PENDING_FLOOR":    "0.6",
		"ENGAGE_CONFLICT_TOP_K":            "10",
		"ENGAGE_PROMPT_HISTORY_BUDGET":     "4000",
		// Conflict store
		"ENGAGE_CONFLICT_STORE_PATH": "/var/lib/engage",
		// Goal source
		"ENGAGE_GOAL_SOURCE_URL":     "https://docs.internal",
		"ENGAGE_GOAL_SOURCE_API_KEY": "ds-key",
		"ENGAGE_GOAL_SOURCE_TIMEOUT": "2s",
		// Vault
		"ENGAGE_VAULT_KEY": "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899",
		// Self-hosted + license
		"ENGAGE_SELF_HOSTED":       "true",
		"ENGAGE_LICENSE_ID":        "lic-42",
		"ENGAGE_LICENSE_ORG":       "harvey-price",
		"ENGAGE_LICENSE_MAX_SEATS": "50",
		"ENGAGE_LICENSE_FEATURES":  "identity_vault, slack_handoff",
		"ENGAGE_LICENSE_EXPIRES":   "2027-06-01T00:00:00Z",
	}

	for k, v := range envs {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Database
	assert.Equal(t, "db.prod.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "prod_user", cfg.Database.User)
	assert.Equal(t, "s3cret!", cfg.Database.Password)
	assert.Equal(t, "engage_prod", cfg.Database.DBName)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Equal(t, 50, cfg.Database.MaxConns)

	// Redis
	assert.Equal(t, "redis.prod:6380", cfg.Redis.Addr)
	assert.Equal(t, "redis-pass", cfg.Redis.Password)
	assert.Equal(t, 3, cfg.Redis.DB)

	// JWT
	assert.Equal(t, "prod-jwt-secret-256-bits-long!!!", cfg.JWT.Secret)
	assert.Equal(t, 30*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 72*time.Hour, cfg.JWT.RefreshTTL)

	// Assertion
	assert.Equal(t, "idp-shared-secret", cfg.Assertion.Secret)
	assert.Equal(t, "https://login.example.com/", cfg.Assertion.Issuer)

	// Server
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)

	// Slack
	assert.Equal(t, "xoxb-test", cfg.Slack.BotToken)

	// LLM
	assert.Equal(t, "https://llm.internal/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "text-embedding-3-large", cfg.LLM.EmbedModel)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 800, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.1, cfg.LLM.Temperature, 1e-9)

	// Intake
	assert.Equal(t, 48*time.Hour, cfg.Intake.ResumeTokenTTL)
	assert.InDelta(t, 0.8, cfg.Intake.ConflictDetect, 1e-9)
	assert.InDelta(t, 0.6, cfg.Intake.ConflictPending, 1e-9)
	assert.Equal(t, 10, cfg.Intake.ConflictTopK)
	assert.Equal(t, 4000, cfg.Intake.HistoryBudget)

	// Conflict store
	assert.Equal(t, "/var/lib/engage", cfg.ConflictStore.PersistPath)

	// Goal source
	assert.Equal(t, "https://docs.internal", cfg.GoalSource.BaseURL)
	assert.Equal(t, "ds-key", cfg.GoalSource.APIKey)
	assert.Equal(t, 2*time.Second, cfg.GoalSource.Timeout)

	// Vault
	assert.Equal(t, "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899", cfg.Vault.KeyHex)

	// Self-hosted + license
	assert.True(t, cfg.SelfHosted)
	assert.Equal(t, "lic-42", cfg.License.ID)
	assert.Equal(t, "harvey-price", cfg.License.Org)
	assert.Equal(t, 50, cfg.License.MaxSeats)
	assert.Equal(t, []string{"identity_vault", "slack_handoff"}, cfg.License.Features)
	assert.True(t, cfg.License.ExpiresAt.Equal(time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC)))
}

// ---------------------------------------------------------------------------
// DSN() output format
// ---------------------------------------------------------------------------

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "default dev values",
			cfg: DatabaseConfig{
				Host: "localhost", Port: 5432, User: "engage",
				Password: "", DBName: "engage_dev", SSLMode: "disable",
			},
			want: "host=localhost port=5432 user=engage password= dbname=engage_dev sslmode=disable",
		},
		{
			name: "production values",
			cfg: DatabaseConfig{
				Host: "db.prod", Port: 5433, User: "admin",
				Password: "p@ss!", DBName: "engage_prod", SSLMode: "require",
			},
			want: "host=db.prod port=5433 user=admin password=p@ss! dbname=engage_prod sslmode=require",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.cfg.DSN())
		})
	}
}

// ---------------------------------------------------------------------------
// validate() direct tests
// ---------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	t.Parallel()

	// validBase returns a Config that passes validation.
	validBase := func() *Config {
		return &Config{
			Database: DatabaseConfig{Port: 5432, MaxConns: 25},
			JWT: JWTConfig{
				Secret:     "test-secret-that-is-at-least-32ch",
				AccessTTL:  15 * time.Minute,
				RefreshTTL: 7 * 24 * time.Hour,
			},
			Server: ServerConfig{
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
			},
			LLM: LLMConfig{MaxTokens: 600},
			Intake: IntakeConfig{
				ResumeTokenTTL:  72 * time.Hour,
				ConflictDetect:  0.75,
				ConflictPending: 0.55,
				ConflictTopK:    5,
			},
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, validBase().validate())
	})

	t.Run("empty JWT secret fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.JWT.Secret = ""
		assert.ErrorContains(t, c.validate(), "ENGAGE_JWT_SECRET")
	})

	t.Run("JWT secret too short fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.JWT.Secret = "only-31-characters-long-secret!"
		assert.ErrorContains(t, c.validate(), "ENGAGE_JWT_SECRET")
	})

	t.Run("port 0 fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Database.Port = 0
		assert.ErrorContains(t, c.validate(), "ENGAGE_DB_PORT")
	})

	t.Run("port 65535 passes", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Database.Port = 65535
		assert.NoError(t, c.validate())
	})

	t.Run("MaxConns 0 fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Database.MaxConns = 0
		assert.ErrorContains(t, c.validate(), "ENGAGE_DB_MAX_CONNS")
	})

	t.Run("AccessTTL 0 fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.JWT.AccessTTL = 0
		assert.ErrorContains(t, c.validate(), "ENGAGE_JWT_ACCESS_TTL")
	})

	t.Run("ReadTimeout negative fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Server.ReadTimeout = -time.Second
		assert.ErrorContains(t, c.validate(), "ENGAGE_SERVER_READ_TIMEOUT")
	})

	t.Run("pending floor equal to detect fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Intake.ConflictPending = c.Intake.ConflictDetect
		assert.ErrorContains(t, c.validate(), "ENGAGE_CONFLICT_PENDING_FLOOR")
	})

	t.Run("pending floor zero passes", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Intake.ConflictPending = 0
		assert.NoError(t, c.validate())
	})

	t.Run("detect threshold exactly 1 passes", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Intake.ConflictDetect = 1
		assert.NoError(t, c.validate())
	})

	t.Run("self-hosted license without expiry fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.SelfHosted = true
		c.License.ID = "lic-1"
		assert.ErrorContains(t, c.validate(), "ENGAGE_LICENSE_EXPIRES")
	})

	t.Run("self-hosted without license passes", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.SelfHosted = true
		assert.NoError(t, c.validate())
	})
}

// ---------------------------------------------------------------------------
// Test helper
// ---------------------------------------------------------------------------

func strPtr(s string) *string {
	return &s
}
