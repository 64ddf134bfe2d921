package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig is the process configuration for cmd/api, read from the environment.
type AppConfig struct {
	Env  string // "dev" enables console logging
	Port string

	StorageBackend string // memory | postgres
	DatabaseURL    string

	SessionBackend string // memory | redis
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	// LiveFeedChannel is the Redis pub/sub channel used to relay activity between replicas.
	LiveFeedChannel string

	AuthMode      string // jwt | basic | dev
	AdminUser     string
	AdminPassword string
	// AdminEmails restricts JWT admins to these (lowercased) emails when non-empty.
	AdminEmails []string
	DevSubject  string
	JWT         JWTConfig

	EmailProvider    string // log | sendgrid | mailtrap
	SendGridAPIKey   string
	MailtrapAPIToken string
	MailtrapInboxID  string
	EmailFrom        string
	EmailFromName    string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string

	PortalBaseURL string
	WebhookToken  string
	StaticDir     string

	SessionTTL     time.Duration
	NudgeWorkers   int
	OutboundRPS    int
	LoginRPS       float64
	LoginBurst     int
	IdempotencyTTL time.Duration
}

func LoadAppConfigFromEnv() (AppConfig, error) {
	cfg := AppConfig{
		Env:              getenv("APP_ENV", "production"),
		Port:             getenv("PORT", "8080"),
		StorageBackend:   getenv("STORAGE_BACKEND", "memory"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		SessionBackend:   getenv("SESSION_BACKEND", "memory"),
		RedisAddr:        getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		LiveFeedChannel:  getenv("LIVEFEED_CHANNEL", "rsvp:activity"),
		AuthMode:         getenv("AUTH_MODE", "jwt"),
		AdminUser:        os.Getenv("ADMIN_USER"),
		AdminPassword:    os.Getenv("ADMIN_PASSWORD"),
		AdminEmails:      splitList(os.Getenv("ADMIN_EMAILS")),
		DevSubject:       getenv("DEV_SUBJECT", "dev|local"),
		EmailProvider:    getenv("EMAIL_PROVIDER", "log"),
		SendGridAPIKey:   os.Getenv("SENDGRID_API_KEY"),
		MailtrapAPIToken: os.Getenv("MAILTRAP_API_TOKEN"),
		MailtrapInboxID:  os.Getenv("MAILTRAP_INBOX_ID"),
		EmailFrom:        getenv("EMAIL_FROM", "rsvp@example.com"),
		EmailFromName:    getenv("EMAIL_FROM_NAME", "Wedding RSVP"),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:       os.Getenv("TWILIO_FROM"),
		PortalBaseURL:    getenv("PORTAL_BASE_URL", "http://localhost:5173"),
		WebhookToken:     os.Getenv("WEBHOOK_TOKEN"),
		StaticDir:        os.Getenv("STATIC_DIR"),
		SessionTTL:       30 * 24 * time.Hour,
		NudgeWorkers:     4,
		OutboundRPS:      10,
		LoginRPS:         0.2,
		LoginBurst:       5,
		IdempotencyTTL:   24 * time.Hour,
	}

	var err error
	if cfg.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return AppConfig{}, err
	}
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", cfg.SessionTTL); err != nil {
		return AppConfig{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return AppConfig{}, err
	}
	if cfg.NudgeWorkers, err = intEnv("NUDGE_WORKERS", cfg.NudgeWorkers); err != nil {
		return AppConfig{}, err
	}
	if cfg.OutboundRPS, err = intEnv("OUTBOUND_RPS", cfg.OutboundRPS); err != nil {
		return AppConfig{}, err
	}
	if cfg.LoginBurst, err = intEnv("LOGIN_BURST", cfg.LoginBurst); err != nil {
		return AppConfig{}, err
	}
	if v := os.Getenv("LOGIN_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return AppConfig{}, fmt.Errorf("LOGIN_RPS must be a positive number (e.g. 0.2)")
		}
		cfg.LoginRPS = f
	}

	switch cfg.StorageBackend {
	case "memory":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return AppConfig{}, fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	default:
		return AppConfig{}, fmt.Errorf("STORAGE_BACKEND must be memory or postgres, got %q", cfg.StorageBackend)
	}
	switch cfg.SessionBackend {
	case "memory", "redis":
	default:
		return AppConfig{}, fmt.Errorf("SESSION_BACKEND must be memory or redis, got %q", cfg.SessionBackend)
	}

	switch cfg.AuthMode {
	case "dev":
	case "basic":
		if cfg.AdminUser == "" || cfg.AdminPassword == "" {
			return AppConfig{}, fmt.Errorf("ADMIN_USER and ADMIN_PASSWORD are required when AUTH_MODE=basic")
		}
	case "jwt":
		jwt, err := LoadJWTConfigFromEnv()
		if err != nil {
			return AppConfig{}, err
		}
		cfg.JWT = jwt
	default:
		return AppConfig{}, fmt.Errorf("AUTH_MODE must be jwt, basic or dev, got %q", cfg.AuthMode)
	}

	switch cfg.EmailProvider {
	case "log":
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			return AppConfig{}, fmt.Errorf("SENDGRID_API_KEY is required when EMAIL_PROVIDER=sendgrid")
		}
	case "mailtrap":
		if cfg.MailtrapAPIToken == "" {
			return AppConfig{}, fmt.Errorf("MAILTRAP_API_TOKEN is required when EMAIL_PROVIDER=mailtrap")
		}
	default:
		return AppConfig{}, fmt.Errorf("EMAIL_PROVIDER must be log, sendgrid or mailtrap, got %q", cfg.EmailProvider)
	}

	return cfg, nil
}

// SMSEnabled reports whether Twilio credentials are configured.
func (c AppConfig) SMSEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFrom != ""
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func intEnv(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", k)
	}
	return n, nil
}

func durationEnv(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration (e.g. 720h): %w", k, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
