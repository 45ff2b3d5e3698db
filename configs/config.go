package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StorePostgres = "postgres"
	StoreBadger   = "badger"
)

type Settings struct {
	AppName  string `envconfig:"APP_NAME" default:"Match Chat"`
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`
	LogPath  string `envconfig:"LOG_PATH"`

	LogRotationHours int `envconfig:"LOG_ROTATION_HOURS" default:"24"`
	LogMaxAgeDays    int `envconfig:"LOG_MAX_AGE_DAYS" default:"30"`

	JWTSecret   string   `envconfig:"JWT_SECRET" required:"true"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	BadgerPath  string `envconfig:"BADGER_PATH"`

	SeedUsersFile string `envconfig:"SEED_USERS_FILE"`

	FirebaseCredentialsFile string        `envconfig:"FIREBASE_CREDENTIALS_FILE"`
	NotifyWorkers           int           `envconfig:"NOTIFY_WORKERS" default:"2"`
	NotifyQueueSize         int           `envconfig:"NOTIFY_QUEUE_SIZE" default:"256"`
	NotifyTimeout           time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"10s"`

	PresenceShards        int    `envconfig:"PRESENCE_SHARDS" default:"32"`
	PresenceSweepSchedule string `envconfig:"PRESENCE_SWEEP_SCHEDULE" default:"*/5 * * * *"`

	HistoryDefaultLimit int `envconfig:"HISTORY_DEFAULT_LIMIT" default:"50"`
	HistoryMaxLimit     int `envconfig:"HISTORY_MAX_LIMIT" default:"100"`
	MaxContentLength    int `envconfig:"MAX_CONTENT_LENGTH" default:"5000"`
}

// Load reads an optional .env file, then decodes the process environment.
func Load(files ...string) (Settings, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		log.Println("Warning: .env file not found, reading from system environment variables")
	}

	var s Settings
	if err := envconfig.Process("", &s); err != nil {
		return Settings{}, fmt.Errorf("config error: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	if s.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	switch s.StoreDriver {
	case StorePostgres:
		if s.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", StorePostgres)
		}
	case StoreBadger:
		if s.BadgerPath == "" {
			return fmt.Errorf("BADGER_PATH is required when STORE_DRIVER=%s", StoreBadger)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", s.StoreDriver)
	}
	if s.NotifyWorkers <= 0 || s.NotifyQueueSize <= 0 {
		return fmt.Errorf("NOTIFY_WORKERS and NOTIFY_QUEUE_SIZE must be positive")
	}
	if s.PresenceShards <= 0 {
		return fmt.Errorf("PRESENCE_SHARDS must be positive")
	}
	if s.HistoryDefaultLimit <= 0 || s.HistoryMaxLimit < s.HistoryDefaultLimit {
		return fmt.Errorf("HISTORY_DEFAULT_LIMIT must be positive and not above HISTORY_MAX_LIMIT")
	}
	return nil
}
