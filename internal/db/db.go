package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/shinyyama/swap-backend/internal/config"
	"github.com/shinyyama/swap-backend/internal/model"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func BuildDSN(cfg *config.Config) string {
	addr := cfg.DBHost

	// Prefer Cloud SQL unix socket when INSTANCE_CONNECTION_NAME is provided.
	if cfg.InstanceConnectionName != "" {
		addr = fmt.Sprintf("unix(/cloudsql/%s)", cfg.InstanceConnectionName)
	} else if strings.HasPrefix(cfg.DBHost, "tcp(") || strings.HasPrefix(cfg.DBHost, "unix(") {
		// already wrapped
	} else if strings.HasPrefix(cfg.DBHost, "/") {
		addr = fmt.Sprintf("unix(%s)", cfg.DBHost)
	} else {
		addr = fmt.Sprintf("tcp(%s:%s)", cfg.DBHost, cfg.DBPort)
	}

	// Timestamps are written in UTC with millisecond precision.
	return fmt.Sprintf("%s:%s@%s/%s?charset=utf8mb4&parseTime=True&loc=UTC", cfg.DBUser, cfg.DBPassword, addr, cfg.DBName)
}

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)
	gcfg := &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC().Truncate(time.Millisecond)
		},
	}
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                      dsn,
		DefaultDatetimePrecision: ptr(3),
	}), gcfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)

	return db, nil
}

// Migrate creates or updates the tables backing the store.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Conversation{}, &model.Message{}, &model.Offer{})
}

func ptr[T any](v T) *T {
	return &v
}
