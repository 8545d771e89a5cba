package balance

import (
	"context"

	"lending/core"

	"github.com/fox-one/pkg/store"
	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

type balanceStore struct {
	db *db.DB
}

// New new balance store
func New(db *db.DB) core.BalanceStore {
	return &balanceStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Balance{})
		if err := tx.AutoMigrate(core.Balance{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *balanceStore) Find(ctx context.Context, userID, symbol string) (*core.Balance, error) {
	var balance core.Balance
	if err := s.db.View().Where("user_id = ? AND symbol = ?", userID, symbol).First(&balance).Error; err != nil {
		if store.IsErrNotFound(err) {
			return &core.Balance{
				UserID:    userID,
				Symbol:    symbol,
				Available: decimal.Zero,
				Locked:    decimal.Zero,
			}, nil
		}

		return nil, err
	}

	return &balance, nil
}

func (s *balanceStore) ListByUser(ctx context.Context, userID string) ([]*core.Balance, error) {
	var balances []*core.Balance
	if err := s.db.View().Where("user_id = ?", userID).Order("symbol").Find(&balances).Error; err != nil {
		return nil, err
	}

	return balances, nil
}

func (s *balanceStore) Credit(ctx context.Context, userID, symbol string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	tx := s.db.Update().Model(core.Balance{}).
		Where("user_id = ? AND symbol = ?", userID, symbol).
		Updates(map[string]interface{}{
			"available": gorm.Expr("available + ?", amount),
			"version":   gorm.Expr("version + 1"),
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected > 0 {
		return nil
	}

	return s.db.Update().Create(&core.Balance{
		UserID:    userID,
		Symbol:    symbol,
		Available: amount,
		Locked:    decimal.Zero,
		Version:   1,
	}).Error
}

func (s *balanceStore) Debit(ctx context.Context, userID, symbol string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	tx := s.db.Update().Model(core.Balance{}).
		Where("user_id = ? AND symbol = ? AND available >= ?", userID, symbol, amount).
		Updates(map[string]interface{}{
			"available": gorm.Expr("available - ?", amount),
			"version":   gorm.Expr("version + 1"),
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected > 0 {
		return nil
	}

	balance, err := s.Find(ctx, userID, symbol)
	if err != nil {
		return err
	}

	return core.NewDeficitError(core.ErrInsufficientBalance, amount, balance.Available)
}
