package loan

import (
	"context"
	"time"

	"lending/core"

	"github.com/fox-one/pkg/store"
	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

var releasable = []core.LoanStatus{core.LoanStatusCancelled, core.LoanStatusRepaid}

type loanStore struct {
	db *db.DB
}

// New new loan store
func New(db *db.DB) core.LoanStore {
	return &loanStore{
		db: db,
	}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Loan{})
		if err := tx.AutoMigrate(core.Loan{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *loanStore) Create(ctx context.Context, loan *core.Loan) error {
	return s.db.Update().Create(loan).Error
}

func (s *loanStore) Find(ctx context.Context, traceID string) (*core.Loan, error) {
	return s.findBy("trace_id = ?", traceID)
}

func (s *loanStore) FindByQuote(ctx context.Context, quoteID string) (*core.Loan, error) {
	return s.findBy("quote_id = ?", quoteID)
}

func (s *loanStore) findBy(query string, args ...interface{}) (*core.Loan, error) {
	var loan core.Loan
	if err := s.db.View().Where(query, args...).First(&loan).Error; err != nil {
		if store.IsErrNotFound(err) {
			return &core.Loan{}, nil
		}

		return nil, err
	}

	return &loan, nil
}

func (s *loanStore) ListByUser(ctx context.Context, userID string, limit int) ([]*core.Loan, error) {
	if limit <= 0 {
		limit = 100
	}

	var loans []*core.Loan
	if err := s.db.View().Where("user_id = ?", userID).Order("id DESC").Limit(limit).Find(&loans).Error; err != nil {
		return nil, err
	}

	return loans, nil
}

func (s *loanStore) ListByStatus(ctx context.Context, status core.LoanStatus, from uint64, limit int) ([]*core.Loan, error) {
	if limit <= 0 {
		limit = 500
	}

	var loans []*core.Loan
	if err := s.db.View().
		Where("status = ? AND id > ?", status, from).
		Order("id ASC").
		Limit(limit).
		Find(&loans).Error; err != nil {
		return nil, err
	}

	return loans, nil
}

func (s *loanStore) ListInterestDue(ctx context.Context, t time.Time, from uint64, limit int) ([]*core.Loan, error) {
	if limit <= 0 {
		limit = 500
	}

	var loans []*core.Loan
	if err := s.db.View().
		Where("status = ? AND next_interest_at <= ? AND id > ?", core.LoanStatusActive, t, from).
		Order("id ASC").
		Limit(limit).
		Find(&loans).Error; err != nil {
		return nil, err
	}

	return loans, nil
}

func (s *loanStore) ListUnreleased(ctx context.Context, from uint64, limit int) ([]*core.Loan, error) {
	if limit <= 0 {
		limit = 500
	}

	var loans []*core.Loan
	if err := s.db.View().
		Where("status IN (?) AND collateral_received > 0 AND collateral_released_at IS NULL AND id > ?", releasable, from).
		Order("id ASC").
		Limit(limit).
		Find(&loans).Error; err != nil {
		return nil, err
	}

	return loans, nil
}

// update conditional update, bumps the version
func (s *loanStore) update(loan *core.Loan, updates map[string]interface{}, query string, args ...interface{}) (bool, error) {
	updates["version"] = gorm.Expr("version + 1")

	tx := s.db.Update().Model(core.Loan{}).
		Where("id = ?", loan.ID).
		Where(query, args...).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}

	return tx.RowsAffected > 0, nil
}

func (s *loanStore) AddCollateral(ctx context.Context, loan *core.Loan, amount decimal.Decimal) (bool, error) {
	return s.update(loan, map[string]interface{}{
		"collateral_received": gorm.Expr("collateral_received + ?", amount),
	}, "status IN (?)", []core.LoanStatus{core.LoanStatusPendingCollateral, core.LoanStatusActive})
}

func (s *loanStore) Activate(ctx context.Context, loan *core.Loan, at, nextInterestAt time.Time) (bool, error) {
	return s.update(loan, map[string]interface{}{
		"status":           core.LoanStatusActive,
		"disbursed_at":     at,
		"next_interest_at": nextInterestAt,
		"expires_at":       gorm.Expr("NULL"),
	}, "status = ? AND collateral_received >= collateral_expected", core.LoanStatusPendingCollateral)
}

func (s *loanStore) Cancel(ctx context.Context, loan *core.Loan, at time.Time) (bool, error) {
	return s.update(loan, map[string]interface{}{
		"status":       core.LoanStatusCancelled,
		"cancelled_at": at,
	}, "status = ?", core.LoanStatusPendingCollateral)
}

func (s *loanStore) CancelExpired(ctx context.Context, now time.Time) (int64, error) {
	tx := s.db.Update().Model(core.Loan{}).
		Where("status = ? AND expires_at <= ?", core.LoanStatusPendingCollateral, now).
		Updates(map[string]interface{}{
			"status":       core.LoanStatusCancelled,
			"cancelled_at": now,
			"version":      gorm.Expr("version + 1"),
		})

	return tx.RowsAffected, tx.Error
}

func (s *loanStore) Liquidate(ctx context.Context, loan *core.Loan, at time.Time) (bool, error) {
	return s.update(loan, map[string]interface{}{
		"status":        core.LoanStatusLiquidated,
		"liquidated_at": at,
	}, "status = ?", core.LoanStatusActive)
}

func (s *loanStore) Accrue(ctx context.Context, loan *core.Loan, interest decimal.Decimal, next time.Time) (bool, error) {
	return s.update(loan, map[string]interface{}{
		"principal":        gorm.Expr("principal + ?", interest),
		"next_interest_at": next,
	}, "status = ? AND principal = ? AND next_interest_at = ?", core.LoanStatusActive, loan.Principal, loan.NextInterestAt)
}

func (s *loanStore) Repay(ctx context.Context, loan *core.Loan, amount decimal.Decimal) (bool, error) {
	return s.update(loan, map[string]interface{}{
		"principal": gorm.Expr("principal - ?", amount),
	}, "status = ? AND principal >= ?", core.LoanStatusActive, amount)
}

func (s *loanStore) MarkRepaid(ctx context.Context, loan *core.Loan, at time.Time) (bool, error) {
	return s.update(loan, map[string]interface{}{
		"status":    core.LoanStatusRepaid,
		"repaid_at": at,
	}, "status = ? AND principal <= 0", core.LoanStatusActive)
}

func (s *loanStore) MarkCollateralReleased(ctx context.Context, loan *core.Loan, at time.Time) (bool, error) {
	return s.update(loan, map[string]interface{}{
		"collateral_released_at": at,
	}, "status IN (?) AND collateral_released_at IS NULL", releasable)
}
