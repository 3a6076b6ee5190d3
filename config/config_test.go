package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ALLOWED_ORIGINS", "STORE_DRIVER", "DB_URL", "MESSAGING_PROVIDER",
		"REMINDER_WINDOW", "REMINDER_INTERVAL", "REMINDER_BATCH_SIZE", "REMINDER_BATCH_DELAY",
		"REMINDER_SEND_RATE", "PHONE_COUNTRY_CODE",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.Equal(t, StoreMongo, cfg.StoreDriver)
	assert.Equal(t, ProviderWhatsApp, cfg.MessagingProvider)
	assert.Equal(t, "961", cfg.CountryCode)
	assert.Equal(t, 150*time.Minute, cfg.Reminder.Window)
	assert.Equal(t, time.Hour, cfg.Reminder.Interval)
	assert.Equal(t, 5, cfg.Reminder.BatchSize)
	assert.Equal(t, time.Second, cfg.Reminder.BatchDelay)
	assert.Zero(t, cfg.Reminder.SendRate)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://admin.example.com,")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("DB_URL", "")
	t.Setenv("REMINDER_WINDOW", "19h30m")
	t.Setenv("REMINDER_INTERVAL", "1m")
	t.Setenv("PHONE_COUNTRY_CODE", "+44")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:3000", "https://admin.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, "latch.db", cfg.DBURL)
	assert.Equal(t, 19*time.Hour+30*time.Minute, cfg.Reminder.Window)
	assert.Equal(t, time.Minute, cfg.Reminder.Interval)
	assert.Equal(t, "44", cfg.CountryCode)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"REMINDER_WINDOW":     "soon",
		"REMINDER_BATCH_SIZE": "five",
		"STORE_DRIVER":        "redis",
		"MESSAGING_PROVIDER":  "pigeon",
		"REMINDER_INTERVAL":   "10ms",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestPostgresNeedsURL(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DB_URL", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestConnectMemoryStore(t *testing.T) {
	store, err := ConnectStore(context.Background(), &Config{StoreDriver: StoreMemory})
	require.NoError(t, err)
	require.NotNil(t, store.Drivers)
	assert.NoError(t, store.Close(context.Background()))
}
