package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"

	ProviderWhatsApp = "whatsapp"
	ProviderTwilio   = "twilio"
)

type Config struct {
	Port           string
	AllowedOrigins []string

	StoreDriver   string
	MongoURI      string
	MongoDatabase string
	DBURL         string

	MessagingProvider string
	SessionDir        string
	CountryCode       string
	Twilio            struct {
		AccountSID     string
		AuthToken      string
		WhatsAppNumber string
	}

	Reminder struct {
		Window     time.Duration
		Interval   time.Duration
		BatchSize  int
		BatchDelay time.Duration
		SendRate   float64
		Message    string
	}

	SlowRequestThreshold time.Duration
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok && strings.TrimSpace(val) != "" {
		return strings.TrimSpace(val)
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, val)
	}
	return i, nil
}

func getEnvFloat(key string, def float64) (float64, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, val)
	}
	return f, nil
}

// getEnvDuration accepts Go durations ("2h30m", "90s").
func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration", key, val)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load reads the process environment. Call godotenv first to pick up a .env file.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error
	var errs []string
	collect := func(e error) {
		if e != nil {
			errs = append(errs, e.Error())
		}
	}

	cfg.Port = getEnv("PORT", "8080")
	cfg.AllowedOrigins = splitList(getEnv("ALLOWED_ORIGINS", ""))

	cfg.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", StoreMongo))
	cfg.MongoURI = getEnv("MONGO_URI", "mongodb://localhost:27017")
	cfg.MongoDatabase = getEnv("MONGO_DATABASE", "latch")
	cfg.DBURL = getEnv("DB_URL", "")
	if cfg.DBURL == "" && cfg.StoreDriver == StoreSQLite {
		cfg.DBURL = "latch.db"
	}

	cfg.MessagingProvider = strings.ToLower(getEnv("MESSAGING_PROVIDER", ProviderWhatsApp))
	cfg.SessionDir = getEnv("WHATSAPP_SESSION_DIR", ".whatsapp-session")
	cfg.CountryCode = strings.TrimPrefix(getEnv("PHONE_COUNTRY_CODE", "961"), "+")
	cfg.Twilio.AccountSID = getEnv("TWILIO_ACCOUNT_SID", "")
	cfg.Twilio.AuthToken = getEnv("TWILIO_AUTH_TOKEN", "")
	cfg.Twilio.WhatsAppNumber = getEnv("TWILIO_WHATSAPP_NUMBER", "")

	cfg.Reminder.Window, err = getEnvDuration("REMINDER_WINDOW", 150*time.Minute)
	collect(err)
	cfg.Reminder.Interval, err = getEnvDuration("REMINDER_INTERVAL", time.Hour)
	collect(err)
	cfg.Reminder.BatchSize, err = getEnvInt("REMINDER_BATCH_SIZE", 5)
	collect(err)
	cfg.Reminder.BatchDelay, err = getEnvDuration("REMINDER_BATCH_DELAY", time.Second)
	collect(err)
	cfg.Reminder.SendRate, err = getEnvFloat("REMINDER_SEND_RATE", 0)
	collect(err)
	cfg.Reminder.Message = getEnv("REMINDER_MESSAGE", "")

	cfg.SlowRequestThreshold, err = getEnvDuration("SLOW_REQUEST_THRESHOLD", 200*time.Millisecond)
	collect(err)

	if len(errs) == 0 {
		collect(cfg.validate())
	}
	if len(errs) > 0 {
		return nil, errors.New("invalid configuration: " + strings.Join(errs, "; "))
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreMongo, StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.DBURL == "" {
			return errors.New("DB_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("STORE_DRIVER %q is not one of mongo, postgres, sqlite, memory", c.StoreDriver)
	}

	switch c.MessagingProvider {
	case ProviderWhatsApp, ProviderTwilio:
	default:
		return fmt.Errorf("MESSAGING_PROVIDER %q is not one of whatsapp, twilio", c.MessagingProvider)
	}

	if c.Reminder.Window <= 0 {
		return errors.New("REMINDER_WINDOW must be positive")
	}
	if c.Reminder.Interval < time.Second {
		return errors.New("REMINDER_INTERVAL must be at least 1s")
	}
	if c.Reminder.BatchSize <= 0 {
		return errors.New("REMINDER_BATCH_SIZE must be positive")
	}
	if c.Reminder.BatchDelay < 0 {
		return errors.New("REMINDER_BATCH_DELAY cannot be negative")
	}
	if c.Reminder.SendRate < 0 {
		return errors.New("REMINDER_SEND_RATE cannot be negative")
	}
	return nil
}
