package core

import (
	"context"
	"time"
)

// User borrower account
type User struct {
	ID        int64     `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id,omitempty"`
	UserID    string    `sql:"size:36;unique_index:idx_users_user_id" json:"user_id,omitempty"`
	Tier      string    `sql:"size:24" json:"tier,omitempty"`
	Version   int64     `sql:"default:0" json:"version,omitempty"`
	CreatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"created_at,omitempty"`
	UpdatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"updated_at,omitempty"`
}

// TierName fee tier, default tier when unset
func (u *User) TierName() string {
	if u == nil || u.Tier == "" {
		return DefaultTier
	}

	return u.Tier
}

// UserStore user store interface
type UserStore interface {
	// Create create the user if not exists
	Create(ctx context.Context, user *User) error
	// Find returns an empty user (ID == 0) when not found
	Find(ctx context.Context, userID string) (*User, error)
	UpdateTier(ctx context.Context, user *User, tier string) error
}
