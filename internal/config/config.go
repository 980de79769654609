package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"wedding-seatbot/internal/storage"
)

const (
	PlatformLine     = "line"
	PlatformWhatsApp = "whatsapp"
)

// Config holds the application configuration
type Config struct {
	Platform string
	Port     int

	LineChannelSecret      string
	LineChannelAccessToken string

	WhatsAppDataDir     string
	WhatsAppCountryCode string

	DatabaseDriver string
	DatabaseURL    string
	MigrateOnStart bool

	SeatRowCap             int
	SeatAmbiguityThreshold int

	DeliveryMaxRetries int
	DeliveryBackoffMax time.Duration
	DeadLetterPath     string
	DeadLetterRedact   bool

	WorkerCount int
	QueueSize   int

	GeminiAPIKey string
	GeminiModel  string

	EventInfoPath   string
	SeatingChartURL string

	RedisURL      string
	RedisPassword string

	KeepAliveURL string

	Debug bool
}

// LoadConfig loads .env when present, then reads the environment
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads configuration from environment variables or defaults
func FromEnv() (*Config, error) {
	p := &parser{}
	cfg := &Config{
		Platform: strings.ToLower(getEnv("PLATFORM", PlatformLine)),
		Port:     p.int("PORT", 8000),

		LineChannelSecret:      getEnv("LINE_CHANNEL_SECRET", ""),
		LineChannelAccessToken: getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),

		WhatsAppDataDir:     getEnv("WHATSAPP_DATA_DIR", "data"),
		WhatsAppCountryCode: getEnv("WHATSAPP_COUNTRY_CODE", "886"),

		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", storage.DriverPostgres)),
		MigrateOnStart: p.bool("MIGRATE_ON_START", false),

		SeatRowCap:             p.int("SEAT_ROW_CAP", 30),
		SeatAmbiguityThreshold: p.int("SEAT_AMBIGUITY_THRESHOLD", 1),

		DeliveryMaxRetries: p.int("DELIVERY_MAX_RETRIES", 3),
		DeliveryBackoffMax: p.duration("DELIVERY_BACKOFF_MAX", 30*time.Second),
		DeadLetterPath:     getEnv("DEAD_LETTER_PATH", "data/dead_letter.jsonl"),
		DeadLetterRedact:   p.bool("DEAD_LETTER_REDACT", false),

		WorkerCount: p.int("WORKER_COUNT", 8),
		QueueSize:   p.int("QUEUE_SIZE", 256),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		EventInfoPath:   getEnv("EVENT_INFO_PATH", ""),
		SeatingChartURL: getEnv("SEATING_CHART_URL", ""),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		KeepAliveURL: getEnv("KEEP_ALIVE_URL", ""),

		Debug: p.bool("DEBUG", false),
	}
	cfg.DatabaseURL = databaseURL(cfg.DatabaseDriver)

	if p.err != nil {
		return nil, p.err
	}
	return cfg, nil
}

// ValidateDatabase checks the settings every command needs
func (c *Config) ValidateDatabase() error {
	switch c.DatabaseDriver {
	case storage.DriverPostgres, storage.DriverSQLite:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", storage.DriverPostgres, storage.DriverSQLite, c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	if c.SeatRowCap <= 0 || c.SeatAmbiguityThreshold <= 0 {
		return errors.New("SEAT_ROW_CAP and SEAT_AMBIGUITY_THRESHOLD must be positive")
	}
	return nil
}

// ValidatePlatform checks the settings needed to talk to the messaging platform
func (c *Config) ValidatePlatform() error {
	switch c.Platform {
	case PlatformLine:
		if c.LineChannelSecret == "" || c.LineChannelAccessToken == "" {
			return errors.New("you must set LINE_CHANNEL_SECRET and LINE_CHANNEL_ACCESS_TOKEN")
		}
	case PlatformWhatsApp:
		if c.WhatsAppDataDir == "" {
			return errors.New("WHATSAPP_DATA_DIR is not set")
		}
	default:
		return fmt.Errorf("PLATFORM must be %q or %q, got %q", PlatformLine, PlatformWhatsApp, c.Platform)
	}
	if c.DeliveryMaxRetries < 0 {
		return errors.New("DELIVERY_MAX_RETRIES must not be negative")
	}
	return nil
}

// databaseURL picks the first configured DSN. For postgres the libpq PG*
// variables are the last resort; sqlite3 falls back to a local file.
func databaseURL(driver string) string {
	for _, key := range []string{"DATABASE_URL", "RENDER_DATABASE_URL", "REMOTE_DATABASE_URL"} {
		if v := getEnv(key, ""); v != "" {
			return v
		}
	}

	if driver == storage.DriverSQLite {
		return "data/guests.db"
	}

	host := getEnv("PGHOST", "")
	if host == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   host + ":" + getEnv("PGPORT", "5432"),
		Path:   "/" + getEnv("PGDATABASE", "postgres"),
	}
	if user := getEnv("PGUSER", ""); user != "" {
		if pw := getEnv("PGPASSWORD", ""); pw != "" {
			u.User = url.UserPassword(user, pw)
		} else {
			u.User = url.User(user)
		}
	}
	q := url.Values{}
	q.Set("sslmode", getEnv("PGSSLMODE", "require"))
	u.RawQuery = q.Encode()
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser reads typed values and keeps every malformed one
type parser struct {
	err error
}

func (p *parser) fail(key, value string, err error) {
	p.err = errors.Join(p.err, fmt.Errorf("invalid %s %q: %w", key, value, err))
}

func (p *parser) int(key string, defaultValue int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		p.fail(key, raw, err)
		return defaultValue
	}
	return v
}

func (p *parser) bool(key string, defaultValue bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		p.fail(key, raw, err)
		return defaultValue
	}
	return v
}

// duration accepts Go durations ("30s") or a plain number of seconds
func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
		return defaultValue
	}
	return v
}
