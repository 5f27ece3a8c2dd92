package sqlite

import (
	"context"
	"fmt"

	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
	"gorm.io/gorm"
)

type ProfileStorage struct {
	db *gorm.DB
}

func NewProfileStorage(db *gorm.DB) *ProfileStorage {
	return &ProfileStorage{
		db: db,
	}
}

func (p *ProfileStorage) GetProfile(ctx context.Context) (model.UserProfile, error) {
	var row profileRow
	if err := p.db.WithContext(ctx).First(&row, profileRowID).Error; err != nil {
		if isNotFound(err) {
			return model.DefaultUserProfile(), nil
		}
		return model.UserProfile{}, fmt.Errorf("failed to get profile: %w", err)
	}
	profile := model.UserProfile{
		Language: model.Language(row.Language),
		Dialect:  model.Dialect(row.Dialect),
		Location: row.Location,
	}
	return profile.Normalize(), nil
}

func (p *ProfileStorage) SaveProfile(ctx context.Context, profile model.UserProfile) error {
	row := profileRow{
		ID:       profileRowID,
		Language: string(profile.Language),
		Dialect:  string(profile.Dialect),
		Location: profile.Location,
	}
	if err := p.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
