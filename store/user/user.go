package user

import (
	"context"

	"lending/core"

	"github.com/fox-one/pkg/store"
	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
)

type userStore struct {
	db *db.DB
}

// New new user store
func New(db *db.DB) core.UserStore {
	return &userStore{
		db: db,
	}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.User{})

		if err := tx.AutoMigrate(core.User{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *userStore) Create(ctx context.Context, user *core.User) error {
	return s.db.Update().Where("user_id = ?", user.UserID).FirstOrCreate(user).Error
}

func (s *userStore) Find(ctx context.Context, userID string) (*core.User, error) {
	var user core.User
	if err := s.db.View().Where("user_id = ?", userID).First(&user).Error; err != nil {
		if store.IsErrNotFound(err) {
			return &core.User{}, nil
		}

		return nil, err
	}

	return &user, nil
}

func (s *userStore) UpdateTier(ctx context.Context, user *core.User, tier string) error {
	tx := s.db.Update().Model(user).
		Where("version = ?", user.Version).
		Updates(map[string]interface{}{
			"tier":    tier,
			"version": gorm.Expr("version + 1"),
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return db.ErrOptimisticLock
	}

	user.Tier = tier
	user.Version++
	return nil
}
