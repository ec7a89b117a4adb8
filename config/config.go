package config

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sethvargo/go-envconfig"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/nayoung-dev/stamprally/internal/models"
)

// Config holds all application configuration, loaded from the environment.
type Config struct {
	Server    ServerConfig    `env:",prefix=SERVER_"`
	Database  DatabaseConfig  `env:",prefix=DB_"`
	Auth      AuthConfig      `env:",prefix=AUTH_"`
	Coupon    CouponConfig    `env:",prefix=COUPON_"`
	Notify    NotifyConfig    `env:",prefix=NOTIFY_"`
	RateLimit RateLimitConfig `env:",prefix=RATE_"`
	Log       LogConfig       `env:",prefix=LOG_"`
}

type ServerConfig struct {
	Port string `env:"PORT,default=8080"`
	Host string `env:"HOST,default=0.0.0.0"`
	Mode string `env:"MODE,default=debug"` // gin mode: debug or release
}

// DatabaseConfig selects the backing store. Driver "postgres" builds a DSN
// from the host fields; "sqlite" opens Path (useful for local development).
type DatabaseConfig struct {
	Driver   string `env:"DRIVER,default=postgres"`
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=postgres"`
	Password string `env:"PASSWORD,default=postgres"`
	Name     string `env:"NAME,default=stamprally"`
	SSLMode  string `env:"SSL_MODE,default=disable"`
	Path     string `env:"PATH,default=stamprally.db"`
	MaxConns int    `env:"MAX_CONNS,default=25"`
	MinConns int    `env:"MIN_CONNS,default=5"`
}

type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET"`
}

type CouponConfig struct {
	CodePrefix  string `env:"CODE_PREFIX,default=RWD"`
	Description string `env:"DESCRIPTION,default=Full stamp card reward"`
	ExpiryDays  int    `env:"EXPIRY_DAYS,default=30"`
}

type NotifyConfig struct {
	KafkaEnabled bool   `env:"KAFKA_ENABLED,default=false"`
	KafkaBrokers string `env:"KAFKA_BROKERS,default=localhost:9092"`
	KafkaTopic   string `env:"KAFKA_TOPIC,default=loyalty-notifications"`
	ClientID     string `env:"KAFKA_CLIENT_ID,default=stamprally"`
	Partitions   int    `env:"KAFKA_PARTITIONS,default=3"`
	Replication  int    `env:"KAFKA_REPLICATION,default=1"`
}

type RateLimitConfig struct {
	RedeemPerSecond float64 `env:"REDEEM_PER_SECOND,default=50"`
	RedeemBurst     int     `env:"REDEEM_BURST,default=100"`
}

type LogConfig struct {
	Level    string `env:"LEVEL,default=info"`
	File     string `env:"FILE"` // empty = stdout only
	MaxSize  int    `env:"MAX_SIZE_MB,default=100"`
	MaxAge   int    `env:"MAX_AGE_DAYS,default=14"`
	MaxFiles int    `env:"MAX_FILES,default=5"`
}

// Load reads configuration from environment variables.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	return &cfg, nil
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func (c *DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode,
	)
}

// InitDatabase opens the configured store and migrates the schema.
// TranslateError is required: the ledger recognizes duplicate-key
// violations through gorm.ErrDuplicatedKey on both dialects.
func InitDatabase(cfg *DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	case "postgres":
		dialector = postgres.Open(cfg.PostgresDSN())
	default:
		return nil, fmt.Errorf("unsupported db driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConns)
	sqlDB.SetMaxIdleConns(cfg.MinConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if cfg.Driver == "sqlite" {
		if err := sqlDB.Ping(); err != nil {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		if _, err := sqlDB.Exec("PRAGMA busy_timeout=5000"); err != nil {
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
		if _, err := sqlDB.Exec("PRAGMA foreign_keys=ON"); err != nil {
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the schema, including the partial unique
// index that enforces one active card per user.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.StampCard{},
		&models.StampEntry{},
		&models.ClaimableStamp{},
		&models.Redemption{},
		&models.Coupon{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
