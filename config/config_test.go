package config

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nayoung-dev/stamprally/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	var cfg Config
	err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.MapLookuper(nil),
	})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "RWD", cfg.Coupon.CodePrefix)
	assert.Equal(t, 30, cfg.Coupon.ExpiryDays)
	assert.False(t, cfg.Notify.KafkaEnabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadOverrides(t *testing.T) {
	var cfg Config
	err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target: &cfg,
		Lookuper: envconfig.MapLookuper(map[string]string{
			"DB_DRIVER":            "sqlite",
			"DB_PATH":              "/tmp/test.db",
			"SERVER_PORT":          "9090",
			"NOTIFY_KAFKA_ENABLED": "true",
		}),
	})
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.True(t, cfg.Notify.KafkaEnabled)
}

func TestPostgresDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "dbhost", Port: "5433", User: "app",
		Password: "secret", Name: "loyalty", SSLMode: "require",
	}
	assert.Equal(t,
		"host=dbhost user=app password=secret dbname=loyalty port=5433 sslmode=require TimeZone=UTC",
		cfg.PostgresDSN())
}

func TestMigrateCreatesSchema(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))

	for _, table := range []string{
		"users", "events", "stamp_cards", "stamp_entries",
		"claimable_stamps", "redemptions", "coupons",
	} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	assert.True(t, db.Migrator().HasIndex(&models.StampCard{}, "idx_stamp_cards_active_user"))
	assert.True(t, db.Migrator().HasIndex(&models.StampEntry{}, "idx_stamp_entries_card_event"))
	assert.True(t, db.Migrator().HasIndex(&models.Redemption{}, "idx_redemptions_claim_user"))
}

func TestInitDatabaseRejectsUnknownDriver(t *testing.T) {
	_, err := InitDatabase(&DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}
