package in_memory

import (
	"context"
	"sync"

	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
)

type ProfileStorage struct {
	mu      sync.RWMutex
	profile *model.UserProfile
}

func NewProfileStorage() *ProfileStorage {
	return &ProfileStorage{}
}

func (p *ProfileStorage) GetProfile(_ context.Context) (model.UserProfile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.profile == nil {
		return model.DefaultUserProfile(), nil
	}
	return *p.profile, nil
}

func (p *ProfileStorage) SaveProfile(_ context.Context, profile model.UserProfile) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profile = &profile
	return nil
}
