package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Discord    DiscordConfig
	Lifecycle  LifecycleConfig
	Outbox     OutboxConfig
	GameServer GameServerConfig
	Metrics    MetricsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	FrontendURL           string
	CORSOrigins           []string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
	// StatementTimeout is applied to every pooled connection; zero leaves the server default.
	StatementTimeout time.Duration
	ApplicationName  string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix namespaces every key this service writes.
	KeyPrefix   string
	DialTimeout time.Duration
	OpTimeout   time.Duration
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// AuthConfig defines session and OAuth state parameters.
type AuthConfig struct {
	SessionTTL     time.Duration
	CookieName     string
	CookieSecure   bool
	StateSecret    string
	StateTTL       time.Duration
	SessionBackend string
}

// DiscordConfig holds OAuth, bot and guild role settings.
type DiscordConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	BotToken     string
	GuildID      string
	APIBase      string
	PublicKey    string

	// Guild roles used to classify authority at login.
	SuperAdminRoleIDs  []string
	HeadAdminRoleIDs   []string
	StaffAdminRoleIDs  []string
	StaffMemberRoleIDs []string

	// Guild roles granted as capabilities.
	ProbationRoleID string
	StaffRoleID     string
	WhitelistRoleID string
	RankRoleIDs     map[string]string

	ApplicationsChannelID string
	StaffLogChannelID     string
	ReportsChannelID      string
	ApprovalsChannelID    string

	FiringApproverID string
}

// LifecycleConfig tunes the staff lifecycle engine.
type LifecycleConfig struct {
	ProbationDuration time.Duration
	StrikeThreshold   int
	SweepInterval     time.Duration
}

// OutboxConfig selects and tunes the side-effect delivery backend.
type OutboxConfig struct {
	Driver      string
	Workers     int
	BufferSize  int
	MaxAttempts int
}

// GameServerConfig points at the game server admin command endpoint.
type GameServerConfig struct {
	CommandURL string
	Token      string
}

// MetricsConfig toggles the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "staff-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:3000"),
			CORSOrigins:           getEnvAsList("CORS_ORIGINS", []string{"*"}),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,

			StatementTimeout: getEnvAsDuration("POSTGRES_STATEMENT_TIMEOUT", 10*time.Second),
			ApplicationName:  getEnv("APP_NAME", "staff-service"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,

			KeyPrefix:   getEnv("REDIS_KEY_PREFIX", "staff"),
			DialTimeout: getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			OpTimeout:   getEnvAsDuration("REDIS_OP_TIMEOUT", 3*time.Second),
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getEnvAsInt("LOG_FILE_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_FILE_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvAsInt("LOG_FILE_MAX_AGE_DAYS", 14),
		},
		Auth: AuthConfig{
			SessionTTL:     getEnvAsDuration("AUTH_SESSION_TTL", 7*24*time.Hour),
			CookieName:     getEnv("AUTH_COOKIE_NAME", "session_token"),
			CookieSecure:   getEnvAsBool("AUTH_COOKIE_SECURE", false),
			StateSecret:    getEnv("AUTH_STATE_SECRET", "dev-secret"),
			StateTTL:       getEnvAsDuration("AUTH_STATE_TTL", 10*time.Minute),
			SessionBackend: getEnv("AUTH_SESSION_BACKEND", "redis"),
		},
		Discord: DiscordConfig{
			ClientID:     os.Getenv("DISCORD_CLIENT_ID"),
			ClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
			RedirectURI:  getEnv("DISCORD_REDIRECT_URI", "http://localhost:8080/api/auth/callback"),
			BotToken:     os.Getenv("DISCORD_BOT_TOKEN"),
			GuildID:      os.Getenv("DISCORD_GUILD_ID"),
			APIBase:      getEnv("DISCORD_API_BASE", "https://discord.com/api/v10"),
			PublicKey:    os.Getenv("DISCORD_PUBLIC_KEY"),

			SuperAdminRoleIDs:  getEnvAsList("DISCORD_SUPER_ADMIN_ROLE_IDS", nil),
			HeadAdminRoleIDs:   getEnvAsList("DISCORD_HEAD_ADMIN_ROLE_IDS", nil),
			StaffAdminRoleIDs:  getEnvAsList("DISCORD_STAFF_ADMIN_ROLE_IDS", nil),
			StaffMemberRoleIDs: getEnvAsList("DISCORD_STAFF_MEMBER_ROLE_IDS", nil),

			ProbationRoleID: os.Getenv("DISCORD_PROBATION_ROLE_ID"),
			StaffRoleID:     os.Getenv("DISCORD_STAFF_ROLE_ID"),
			WhitelistRoleID: os.Getenv("DISCORD_WHITELIST_ROLE_ID"),
			RankRoleIDs: map[string]string{
				"trainee":       os.Getenv("DISCORD_RANK_TRAINEE_ROLE_ID"),
				"moderator":     os.Getenv("DISCORD_RANK_MODERATOR_ROLE_ID"),
				"administrator": os.Getenv("DISCORD_RANK_ADMINISTRATOR_ROLE_ID"),
				"senior_admin":  os.Getenv("DISCORD_RANK_SENIOR_ADMIN_ROLE_ID"),
			},

			ApplicationsChannelID: os.Getenv("DISCORD_APPLICATIONS_CHANNEL_ID"),
			StaffLogChannelID:     os.Getenv("DISCORD_STAFF_LOG_CHANNEL_ID"),
			ReportsChannelID:      os.Getenv("DISCORD_REPORTS_CHANNEL_ID"),
			ApprovalsChannelID:    os.Getenv("DISCORD_APPROVALS_CHANNEL_ID"),

			FiringApproverID: os.Getenv("DISCORD_FIRING_APPROVER_ID"),
		},
		Lifecycle: LifecycleConfig{
			ProbationDuration: getEnvAsDuration("PROBATION_DURATION", 7*24*time.Hour),
			StrikeThreshold:   getEnvAsInt("STRIKE_THRESHOLD", 3),
			SweepInterval:     getEnvAsDuration("PROBATION_SWEEP_INTERVAL", time.Hour),
		},
		Outbox: OutboxConfig{
			Driver:      getEnv("OUTBOX_DRIVER", "memory"),
			Workers:     getEnvAsInt("OUTBOX_WORKERS", 4),
			BufferSize:  getEnvAsInt("OUTBOX_BUFFER_SIZE", 256),
			MaxAttempts: getEnvAsInt("OUTBOX_MAX_ATTEMPTS", 3),
		},
		GameServer: GameServerConfig{
			CommandURL: os.Getenv("GAME_COMMAND_URL"),
			Token:      os.Getenv("GAME_COMMAND_TOKEN"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
