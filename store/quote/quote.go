package quote

import (
	"context"
	"time"

	"lending/core"

	"github.com/fox-one/pkg/store"
	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
)

type quoteStore struct {
	db *db.DB
}

// New new quote store
func New(db *db.DB) core.QuoteStore {
	return &quoteStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Quote{})
		if err := tx.AutoMigrate(core.Quote{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *quoteStore) Create(ctx context.Context, quote *core.Quote) error {
	return s.db.Update().Create(quote).Error
}

func (s *quoteStore) Find(ctx context.Context, traceID string) (*core.Quote, error) {
	var quote core.Quote
	if err := s.db.View().Where("trace_id = ?", traceID).First(&quote).Error; err != nil {
		if store.IsErrNotFound(err) {
			return &core.Quote{}, nil
		}

		return nil, err
	}

	return &quote, nil
}

func (s *quoteStore) ListByUser(ctx context.Context, userID string, limit int) ([]*core.Quote, error) {
	if limit <= 0 {
		limit = 100
	}

	var quotes []*core.Quote
	if err := s.db.View().Where("user_id = ?", userID).Order("id DESC").Limit(limit).Find(&quotes).Error; err != nil {
		return nil, err
	}

	return quotes, nil
}

func (s *quoteStore) UpdateStatus(ctx context.Context, quote *core.Quote, from, to core.QuoteStatus) (bool, error) {
	tx := s.db.Update().Model(core.Quote{}).
		Where("id = ? AND status = ?", quote.ID, from).
		Updates(map[string]interface{}{
			"status":  to,
			"version": gorm.Expr("version + 1"),
		})
	if tx.Error != nil {
		return false, tx.Error
	}

	if tx.RowsAffected == 0 {
		return false, nil
	}

	quote.Status = to
	return true, nil
}

func (s *quoteStore) ExpireBefore(ctx context.Context, t time.Time) (int64, error) {
	tx := s.db.Update().Model(core.Quote{}).
		Where("status = ? AND created_at <= ?", core.QuoteStatusActive, t).
		Updates(map[string]interface{}{
			"status":  core.QuoteStatusExpired,
			"version": gorm.Expr("version + 1"),
		})

	return tx.RowsAffected, tx.Error
}
