package memory

import (
	"context"

	"lending/core"

	"github.com/fox-one/pkg/store/db"
)

type userStore struct {
	handle
}

func (s *userStore) Create(ctx context.Context, user *core.User) error {
	defer s.lock()()
	st := s.state()

	if u, ok := st.users[user.UserID]; ok {
		*user = u
		return nil
	}

	now := s.db.clock.Now()
	user.ID = int64(st.nextID())
	user.CreatedAt, user.UpdatedAt = now, now
	st.users[user.UserID] = *user
	return nil
}

func (s *userStore) Find(ctx context.Context, userID string) (*core.User, error) {
	defer s.lock()()

	if u, ok := s.state().users[userID]; ok {
		return &u, nil
	}

	return &core.User{}, nil
}

func (s *userStore) UpdateTier(ctx context.Context, user *core.User, tier string) error {
	defer s.lock()()
	st := s.state()

	u, ok := st.users[user.UserID]
	if !ok || u.Version != user.Version {
		return db.ErrOptimisticLock
	}

	u.Tier = tier
	u.Version++
	u.UpdatedAt = s.db.clock.Now()
	st.users[u.UserID] = u
	*user = u
	return nil
}
