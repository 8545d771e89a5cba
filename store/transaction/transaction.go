package transaction

import (
	"context"
	"errors"
	"strings"

	"lending/core"

	"github.com/fox-one/pkg/store"
	"github.com/fox-one/pkg/store/db"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

type transactionStore struct {
	db *db.DB
}

// New new transaction store
func New(db *db.DB) core.TransactionStore {
	return &transactionStore{
		db: db,
	}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Transaction{})
		if err := tx.AutoMigrate(core.Transaction{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *transactionStore) Create(ctx context.Context, transaction *core.Transaction) error {
	if err := s.db.Update().Create(transaction).Error; err != nil {
		if isDuplicate(err) {
			return core.ErrDuplicateTransaction
		}

		return err
	}

	return nil
}

func (s *transactionStore) FindByTraceID(ctx context.Context, traceID string) (*core.Transaction, error) {
	var transaction core.Transaction
	if err := s.db.View().Where("trace_id = ?", traceID).First(&transaction).Error; err != nil {
		if store.IsErrNotFound(err) {
			return &core.Transaction{}, nil
		}

		return nil, err
	}

	return &transaction, nil
}

func (s *transactionStore) FindByChainTxID(ctx context.Context, txID string) (*core.Transaction, error) {
	var transaction core.Transaction
	if err := s.db.View().Where("chain_tx_id = ?", txID).First(&transaction).Error; err != nil {
		if store.IsErrNotFound(err) {
			return &core.Transaction{}, nil
		}

		return nil, err
	}

	return &transaction, nil
}

func (s *transactionStore) UpdateStatus(ctx context.Context, transaction *core.Transaction, from, to core.TransactionStatus) (bool, error) {
	updates := map[string]interface{}{
		"status": to,
	}

	if transaction.ChainTxID != nil {
		updates["chain_tx_id"] = transaction.ChainTxID
	}

	if len(transaction.Data) > 0 {
		updates["data"] = transaction.Data
	}

	tx := s.db.Update().Model(core.Transaction{}).
		Where("trace_id = ? AND status = ?", transaction.TraceID, from).
		Updates(updates)
	if tx.Error != nil {
		if isDuplicate(tx.Error) {
			return false, core.ErrDuplicateTransaction
		}

		return false, tx.Error
	}

	if tx.RowsAffected == 0 {
		return false, nil
	}

	transaction.Status = to
	return true, nil
}

func (s *transactionStore) ListByLoan(ctx context.Context, loanID string) ([]*core.Transaction, error) {
	var transactions []*core.Transaction
	if err := s.db.View().Where("loan_id = ?", loanID).Order("id ASC").Find(&transactions).Error; err != nil {
		return nil, err
	}

	return transactions, nil
}

func (s *transactionStore) ListPending(ctx context.Context, typ core.TransactionType, from uint64, limit int) ([]*core.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}

	var transactions []*core.Transaction
	if err := s.db.View().
		Where("type = ? AND status = ? AND id > ?", typ, core.TransactionStatusPending, from).
		Order("id ASC").
		Limit(limit).
		Find(&transactions).Error; err != nil {
		return nil, err
	}

	return transactions, nil
}

// isDuplicate unique constraint violation on postgres, mysql or sqlite
func isDuplicate(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
