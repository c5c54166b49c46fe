package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the clicker.
type Config struct {
	Port string

	// Signal sources
	EnableHTTP    bool
	EnableConsole bool
	EnableMail    bool

	// Execution
	DryRun      bool
	RobotSmooth bool // human-like pointer moves
	QueueSize   int

	// Position store
	PositionStore string // "file" (default) or "sqlite"
	PositionFile  string

	// Screen layout (YAML) and hot reload
	LayoutPath  string
	WatchLayout bool

	// Database (signal journal, sqlite position store)
	DBPath string

	// IMAP polling
	IMAPAddr           string
	IMAPUser           string
	IMAPPassword       string
	IMAPMailbox        string
	IMAPProcessedLabel string
	MailPollInterval   time.Duration
	MailAllowedSenders []string

	// SMTP alerts (disabled when SMTPHost is empty)
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	AlertFrom    string
	AlertTo      []string

	// HTTP
	WebhookSecret string
	CORSOrigins   []string

	// Logging
	LogLevel  string
	LogPretty bool

	// Localization
	Language string // "en" or "ko"
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "5000"),
		EnableHTTP:         getEnv("ENABLE_HTTP", "true") == "true",
		EnableConsole:      getEnv("ENABLE_CONSOLE", "false") == "true",
		EnableMail:         getEnv("ENABLE_MAIL", "false") == "true",
		DryRun:             getEnv("DRY_RUN", "false") == "true",
		RobotSmooth:        getEnv("ROBOT_SMOOTH", "false") == "true",
		QueueSize:          getEnvInt("QUEUE_SIZE", 16),
		PositionStore:      strings.ToLower(getEnv("POSITION_STORE", "file")),
		PositionFile:       getEnv("POSITION_FILE", "position_state.txt"),
		LayoutPath:         getEnv("LAYOUT_PATH", "layout.yaml"),
		WatchLayout:        getEnv("WATCH_LAYOUT", "true") == "true",
		DBPath:             getEnv("DB_PATH", "./data/clicker.db"),
		IMAPAddr:           getEnv("IMAP_ADDR", "imap.gmail.com:993"),
		IMAPUser:           os.Getenv("IMAP_USER"),
		IMAPPassword:       os.Getenv("IMAP_PASSWORD"),
		IMAPMailbox:        getEnv("IMAP_MAILBOX", "INBOX"),
		IMAPProcessedLabel: getEnv("IMAP_PROCESSED_LABEL", "Processed"),
		MailPollInterval:   getEnvDuration("MAIL_POLL_INTERVAL", 30*time.Second),
		MailAllowedSenders: splitAndTrim(getEnv("MAIL_ALLOWED_SENDERS", "")),
		SMTPHost:           os.Getenv("SMTP_HOST"),
		SMTPPort:           getEnvInt("SMTP_PORT", 587),
		SMTPUser:           os.Getenv("SMTP_USER"),
		SMTPPassword:       os.Getenv("SMTP_PASSWORD"),
		AlertFrom:          getEnv("ALERT_FROM", os.Getenv("SMTP_USER")),
		AlertTo:            splitAndTrim(getEnv("ALERT_TO", "")),
		WebhookSecret:      os.Getenv("WEBHOOK_SECRET"),
		CORSOrigins:        splitAndTrim(getEnv("CORS_ORIGINS", "*")),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogPretty:          getEnv("LOG_PRETTY", "true") == "true",
		Language:           getEnv("LANGUAGE", "en"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
