package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	StrategyAsync  = "async"
	StrategyDirect = "direct"
)

type Config struct {
	Addr                 string
	Environment          string
	LogLevel             string
	StoreDriver          string
	DatabaseURL          string
	TableName            string
	RunMigrations        bool
	JWTSecret            string
	ApproverEmail        string
	WorkflowID           string
	ApprovalStrategy     string
	DecisionLinkAuth     bool
	DecisionLinkTTL      time.Duration
	AuthTokenTTL         time.Duration
	PublicBaseURL        string
	DashboardURL         string
	EmailFrom            string
	EmailEnabled         bool
	SMTPHost             string
	SMTPPort             int
	SMTPUser             string
	SMTPPassword         string
	SMTPUseTLS           bool
	MaxBodyBytes         int64
	RateLimitPerMinute   int
	CORSAllowedOrigins   []string
	WorkflowWorkers      int
	WorkflowQueueSize    int
	WorkflowMaxAttempts  int
	WorkflowRetryBackoff time.Duration
	MetricsEnabled       bool
}

// Load reads configuration from the process environment. A .env file in the
// working directory is applied first (existing variables win), and the YAML
// file named by CONFIG_FILE supplies values for keys the environment leaves unset.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	src := source{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		values, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		src.file = values
	}

	return Config{
		Addr:                 src.getEnv("APP_ADDR", ":8080"),
		Environment:          src.getEnv("APP_ENV", "development"),
		LogLevel:             src.getEnv("LOG_LEVEL", "info"),
		StoreDriver:          strings.ToLower(src.getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:          src.getEnv("DATABASE_URL", ""),
		TableName:            src.getEnv("TABLE_NAME", "leave_requests"),
		RunMigrations:        src.getEnvBool("RUN_MIGRATIONS", true),
		JWTSecret:            src.getEnv("JWT_SECRET", ""),
		ApproverEmail:        src.getEnv("APPROVER_EMAIL", ""),
		WorkflowID:           src.getEnv("WORKFLOW_ID", "leave-approval"),
		ApprovalStrategy:     strings.ToLower(src.getEnv("APPROVAL_STRATEGY", StrategyAsync)),
		DecisionLinkAuth:     src.getEnvBool("DECISION_LINK_AUTH", true),
		DecisionLinkTTL:      src.getEnvDuration("DECISION_LINK_TTL", 72*time.Hour),
		AuthTokenTTL:         src.getEnvDuration("AUTH_TOKEN_TTL", 12*time.Hour),
		PublicBaseURL:        strings.TrimRight(src.getEnv("PUBLIC_BASE_URL", ""), "/"),
		DashboardURL:         strings.TrimRight(src.getEnv("DASHBOARD_URL", ""), "/"),
		EmailFrom:            src.getEnv("EMAIL_FROM", src.getEnv("SES_EMAIL", "")),
		EmailEnabled:         src.getEnvBool("EMAIL_ENABLED", false),
		SMTPHost:             src.getEnv("SMTP_HOST", ""),
		SMTPPort:             src.getEnvInt("SMTP_PORT", 587),
		SMTPUser:             src.getEnv("SMTP_USER", ""),
		SMTPPassword:         src.getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:           src.getEnvBool("SMTP_USE_TLS", true),
		MaxBodyBytes:         int64(src.getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute:   src.getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		CORSAllowedOrigins:   splitList(src.getEnv("CORS_ALLOWED_ORIGINS", "")),
		WorkflowWorkers:      src.getEnvInt("WORKFLOW_WORKERS", 4),
		WorkflowQueueSize:    src.getEnvInt("WORKFLOW_QUEUE_SIZE", 128),
		WorkflowMaxAttempts:  src.getEnvInt("WORKFLOW_MAX_ATTEMPTS", 3),
		WorkflowRetryBackoff: src.getEnvDuration("WORKFLOW_RETRY_BACKOFF", 2*time.Second),
		MetricsEnabled:       src.getEnvBool("METRICS_ENABLED", true),
	}, nil
}

// source resolves a key from the environment first, then from the config file.
type source struct {
	file map[string]string
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	values := make(map[string]string, len(raw))
	for key, value := range raw {
		if value == nil {
			continue
		}
		if list, ok := value.([]any); ok {
			parts := make([]string, 0, len(list))
			for _, item := range list {
				parts = append(parts, fmt.Sprint(item))
			}
			values[strings.ToUpper(key)] = strings.Join(parts, ",")
			continue
		}
		values[strings.ToUpper(key)] = fmt.Sprint(value)
	}
	return values, nil
}

func (s source) lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return s.file[key]
}

func (s source) getEnv(key, fallback string) string {
	if value := s.lookup(key); value != "" {
		return value
	}
	return fallback
}

func (s source) getEnvBool(key string, fallback bool) bool {
	value := s.lookup(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (s source) getEnvInt(key string, fallback int) int {
	value := s.lookup(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (s source) getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := s.lookup(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.JWTSecret) == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if strings.TrimSpace(c.EmailFrom) == "" {
		missing = append(missing, "EMAIL_FROM")
	}
	if strings.TrimSpace(c.ApproverEmail) == "" {
		missing = append(missing, "APPROVER_EMAIL")
	}
	if strings.TrimSpace(c.WorkflowID) == "" {
		missing = append(missing, "WORKFLOW_ID")
	}
	if strings.TrimSpace(c.TableName) == "" {
		missing = append(missing, "TABLE_NAME")
	}
	if c.StoreDriver == StoreDriverPostgres && strings.TrimSpace(c.DatabaseURL) == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q", StoreDriverPostgres, StoreDriverMemory)
	}
	switch c.ApprovalStrategy {
	case StrategyAsync, StrategyDirect:
	default:
		return fmt.Errorf("APPROVAL_STRATEGY must be %q or %q", StrategyAsync, StrategyDirect)
	}
	if c.Environment == "production" {
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
		if c.StoreDriver == StoreDriverMemory {
			return fmt.Errorf("STORE_DRIVER=memory is not allowed in production")
		}
	}
	if c.DecisionLinkTTL <= 0 {
		return fmt.Errorf("DECISION_LINK_TTL must be positive")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.WorkflowWorkers <= 0 {
		return fmt.Errorf("WORKFLOW_WORKERS must be positive")
	}
	if c.WorkflowMaxAttempts <= 0 {
		return fmt.Errorf("WORKFLOW_MAX_ATTEMPTS must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	return nil
}
