package key_value

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
	"github.com/redis/go-redis/v9"
)

const profileKey = "user_profile"

type ProfileStorage struct {
	rdb *redis.Client
}

func NewProfileStorage(rdb *redis.Client) *ProfileStorage {
	return &ProfileStorage{
		rdb: rdb,
	}
}

// GetProfile returns the default profile when none is stored or the stored one is
// unreadable.
func (p *ProfileStorage) GetProfile(ctx context.Context) (model.UserProfile, error) {
	profileRaw, err := p.rdb.Get(ctx, profileKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.DefaultUserProfile(), nil
		}
		return model.UserProfile{}, fmt.Errorf("failed to get %s: %w", profileKey, err)
	}
	var profile model.UserProfile
	if err = json.Unmarshal([]byte(profileRaw), &profile); err != nil {
		return model.DefaultUserProfile(), nil
	}
	return profile.Normalize(), nil
}

func (p *ProfileStorage) SaveProfile(ctx context.Context, profile model.UserProfile) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err = p.rdb.Set(ctx, profileKey, profileJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to save %s: %w", profileKey, err)
	}
	return nil
}
