package sqlite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type chatSessionRow struct {
	ID           string          `gorm:"primaryKey"`
	Title        string          `gorm:"not null"`
	Mode         string          `gorm:"not null"`
	LastModified int64           `gorm:"index;not null"`
	Messages     []model.Message `gorm:"serializer:json"`
}

func (chatSessionRow) TableName() string {
	return "chat_sessions"
}

const profileRowID = 1

type profileRow struct {
	ID       uint `gorm:"primaryKey"`
	Language string
	Dialect  string
	Location string
}

func (profileRow) TableName() string {
	return "user_profile"
}

// Open opens the database at path, creating its directory, and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := gorm.Open(
		sqlite.Open(path), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if err = db.AutoMigrate(&chatSessionRow{}, &profileRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
