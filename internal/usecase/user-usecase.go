package usecase

import (
	"context"
	"fmt"

	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
	"github.com/sirupsen/logrus"
)

type ProfileStorage interface {
	GetProfile(ctx context.Context) (model.UserProfile, error)
	SaveProfile(ctx context.Context, profile model.UserProfile) error
}

type UserUsecaseDeps struct {
	ProfileStorage ProfileStorage
	Logger         *logrus.Logger
}

type UserUsecase struct {
	UserUsecaseDeps
}

func NewUserUsecase(deps UserUsecaseDeps) *UserUsecase {
	return &UserUsecase{
		UserUsecaseDeps: deps,
	}
}

// GetProfile never fails: unreadable profiles fall back to the default one.
func (u *UserUsecase) GetProfile(ctx context.Context) model.UserProfile {
	profile, err := u.ProfileStorage.GetProfile(ctx)
	if err != nil {
		u.Logger.WithError(&model.PersistenceError{Op: "load profile", Err: err}).Warn("using default profile")
		return model.DefaultUserProfile()
	}
	return profile.Normalize()
}

// UpdateProfile stores profile. It only affects sessions created afterwards.
func (u *UserUsecase) UpdateProfile(ctx context.Context, profile model.UserProfile) (model.UserProfile, error) {
	profile = profile.Normalize()
	if err := u.ProfileStorage.SaveProfile(ctx, profile); err != nil {
		return profile, fmt.Errorf("failed to save profile: %w", &model.PersistenceError{Op: "save profile", Err: err})
	}
	u.Logger.WithFields(
		logrus.Fields{
			"language": profile.Language,
			"dialect":  profile.Dialect,
		},
	).Info("profile updated")
	return profile, nil
}
