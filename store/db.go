// Package store wraps all database access behind small repo types over gorm.
package store

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/model"
)

// InitDB opens the postgres connection and tunes the pool.
// dsn format: "host=... user=... password=... dbname=... port=5432 sslmode=disable"
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect db failed: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	slog.Info("postgres connected")
	return db, nil
}

// Migrate creates or updates the schema for all tables the service owns
// locally. The hosted platform owns the authoritative schema; AutoMigrate
// keeps local and test databases in step with it.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Contract{},
		&model.ContractEvent{},
		&model.ContractExtraction{},
		&model.ContractAIJob{},
		&model.AuditLog{},
		&model.ImpersonationSession{},
	)
}
