package user

import (
	"context"
	"fmt"
	"time"

	"lending/core"

	"github.com/bluele/gcache"
	"golang.org/x/sync/singleflight"
)

// Cache wraps the user store with a lru cache, concurrent lookups of the
// same user share one query
func Cache(store core.UserStore, exp time.Duration) core.UserStore {
	return &cacheUserStore{
		UserStore: store,
		cache:     gcache.New(2048).LRU().Expiration(exp).Build(),
		sf:        &singleflight.Group{},
	}
}

type cacheUserStore struct {
	core.UserStore
	cache gcache.Cache
	sf    *singleflight.Group
}

func (s *cacheUserStore) Create(ctx context.Context, user *core.User) error {
	if err := s.UserStore.Create(ctx, user); err != nil {
		return err
	}

	s.cacheUser(user)
	return nil
}

func (s *cacheUserStore) Find(ctx context.Context, userID string) (*core.User, error) {
	key := s.userKey(userID)
	if v, err := s.cache.Get(key); err == nil {
		if user, ok := v.(*core.User); ok {
			return user, nil
		}
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		user, err := s.UserStore.Find(ctx, userID)
		if err != nil {
			return nil, err
		}

		if user.ID > 0 {
			s.cacheUser(user)
		}

		return user, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*core.User), nil
}

func (s *cacheUserStore) UpdateTier(ctx context.Context, user *core.User, tier string) error {
	if err := s.UserStore.UpdateTier(ctx, user, tier); err != nil {
		s.cache.Remove(s.userKey(user.UserID))
		return err
	}

	s.cacheUser(user)
	return nil
}

func (s *cacheUserStore) cacheUser(user *core.User) {
	_ = s.cache.Set(s.userKey(user.UserID), user)
}

func (s *cacheUserStore) userKey(userID string) string {
	return fmt.Sprintf("user:id:%s", userID)
}
