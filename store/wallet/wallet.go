package wallet

import (
	"context"

	"lending/core"

	"github.com/fox-one/pkg/store"
	"github.com/fox-one/pkg/store/db"
)

type walletStore struct {
	db *db.DB
}

// New new wallet store
func New(db *db.DB) core.WalletStore {
	return &walletStore{
		db: db,
	}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Wallet{})

		if err := tx.AutoMigrate(core.Wallet{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *walletStore) Create(ctx context.Context, wallet *core.Wallet) error {
	return s.db.Update().Create(wallet).Error
}

func (s *walletStore) FindByAddress(ctx context.Context, network, address string) (*core.Wallet, error) {
	var wallet core.Wallet
	if err := s.db.View().Where("network = ? AND address = ?", network, address).First(&wallet).Error; err != nil {
		if store.IsErrNotFound(err) {
			return &core.Wallet{}, nil
		}

		return nil, err
	}

	return &wallet, nil
}

func (s *walletStore) ListByUser(ctx context.Context, userID string) ([]*core.Wallet, error) {
	var wallets []*core.Wallet
	if err := s.db.View().Where("user_id = ?", userID).Order("id").Find(&wallets).Error; err != nil {
		return nil, err
	}

	return wallets, nil
}

func (s *walletStore) AttachLoan(ctx context.Context, wallet *core.Wallet, loanID string) error {
	tx := s.db.Update().Model(wallet).Where("loan_id = ?", "").Update("loan_id", loanID)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return db.ErrOptimisticLock
	}

	wallet.LoanID = loanID
	return nil
}
