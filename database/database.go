package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperrors "github.com/anjiri1684/matchchat/errors"
	"github.com/anjiri1684/matchchat/models"
	"github.com/anjiri1684/matchchat/repositories"
)

// Connect opens the Postgres pool. SQL warnings and slow queries go through
// the process logger.
func Connect(dsn string, log *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger: logger.New(slog.NewLogLogger(log.Handler(), slog.LevelWarn), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connected successfully")
	return db, nil
}

func Migrate(db *gorm.DB, log *slog.Logger) error {
	if err := db.AutoMigrate(&models.User{}, &models.Message{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Info("Database migration successful")
	return nil
}

// OpenBadger opens the embedded store used when STORE_DRIVER=badger.
func OpenBadger(path string) (*badger.DB, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %s: %w", path, err)
	}
	return db, nil
}

// SeedUsers loads a JSON array of users and saves the ones the directory does
// not know yet. Accounts are owned by the auth service; this only serves
// local environments.
func SeedUsers(ctx context.Context, users repositories.UserRepository, file string, log *slog.Logger) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var seeds []models.User
	if err = json.Unmarshal(data, &seeds); err != nil {
		return fmt.Errorf("decode seed file: %w", err)
	}

	created := 0
	for i := range seeds {
		seed := seeds[i]
		_, err = users.FindByID(ctx, seed.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		seed.NotificationsEnabled = true
		if err = users.Save(ctx, &seed); err != nil {
			return fmt.Errorf("seed user %s: %w", seed.Email, err)
		}
		created++
	}
	log.Info("Users seeded", "file", file, "created", created, "total", len(seeds))
	return nil
}
