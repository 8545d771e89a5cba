package loan

import (
	"context"
	"errors"

	"lending/core"
	"lending/pkg/id"
	"lending/pkg/number"

	"github.com/fox-one/pkg/logger"
	"github.com/shopspring/decimal"
)

// Repay reduce the principal, capped at the outstanding amount. A repayment
// with a chain tx id is confirmed on chain first and settles at most once
func (s *loanService) Repay(ctx context.Context, user *core.User, loanID string, req *core.RepayRequest) (*core.Loan, error) {
	log := logger.FromContext(ctx).WithField("service", "loan").WithField("loan", loanID)

	if !req.Amount.IsPositive() {
		return nil, core.ErrInvalidAmount
	}

	loan, err := s.Find(ctx, user, loanID)
	if err != nil {
		return nil, err
	}

	if loan.Status != core.LoanStatusActive {
		return nil, core.ErrInvalidLoanStatus
	}

	external := req.ChainTxID != ""
	if external {
		if exist, err := s.ledger.Stores().Transactions.FindByChainTxID(ctx, req.ChainTxID); err != nil {
			return nil, err
		} else if exist.ID > 0 {
			return loan, nil
		}

		if err := s.confirm(ctx, loan.BorrowNetwork, req); err != nil {
			log.WithError(err).Warnln("repayment not confirmed", req.ChainTxID)
			return nil, err
		}
	}

	amount := number.Min(req.Amount, loan.Principal)
	repayment := &core.Transaction{
		TraceID: id.GenTraceID(),
		UserID:  loan.UserID,
		Type:    core.TransactionTypeRepayment,
		Symbol:  loan.BorrowSymbol,
		Network: loan.BorrowNetwork,
		Amount:  amount,
		Gross:   req.Amount,
		Net:     amount,
		Fee:     decimal.Zero,
		Status:  core.TransactionStatusConfirmed,
		LoanID:  loan.TraceID,
	}

	if external {
		repayment.SetChainTxID(req.ChainTxID)
		repayment.TraceID = id.TraceIDf("repayment:%s:%s", loan.BorrowNetwork, req.ChainTxID)
		repayment.SetExtraData(core.NewTransactionExtra().Put(core.TransactionKeyBlock, req.BlockNumber))
	}

	var repaid bool
	err = s.ledger.WithinTx(ctx, func(tx core.Stores) error {
		if !external {
			if err := tx.Balances.Debit(ctx, loan.UserID, loan.BorrowSymbol, amount); err != nil {
				return err
			}
		}

		ok, err := tx.Loans.Repay(ctx, loan, amount)
		if err != nil {
			return err
		}

		if !ok {
			return core.ErrInvalidLoanStatus
		}

		if err := tx.Transactions.Create(ctx, repayment); err != nil {
			return err
		}

		asset, err := tx.Assets.Find(ctx, loan.BorrowSymbol, loan.BorrowNetwork)
		if err != nil {
			return err
		}

		if err := tx.Assets.AddLiquidity(ctx, asset, amount); err != nil {
			return err
		}

		repaid, err = tx.Loans.MarkRepaid(ctx, loan, s.clock.Now())
		return err
	})

	if errors.Is(err, core.ErrDuplicateTransaction) {
		return s.ledger.Stores().Loans.Find(ctx, loanID)
	}

	if err != nil {
		return nil, err
	}

	if repaid {
		log.Infoln("loan repaid")
		return s.ReleaseCollateral(ctx, loanID)
	}

	return s.ledger.Stores().Loans.Find(ctx, loanID)
}

func (s *loanService) confirm(ctx context.Context, network string, req *core.RepayRequest) error {
	provider, err := s.chains.Provider(network)
	if err != nil {
		return err
	}

	chain, ok := s.config.Chain(network)
	if !ok {
		return core.ErrUnknownNetwork
	}

	ctx, cancel := context.WithTimeout(ctx, chain.Timeout())
	defer cancel()

	confirmed, err := provider.Confirm(ctx, req.ChainTxID, req.BlockNumber)
	if err != nil {
		return err
	}

	if !confirmed {
		return core.ErrTransactionNotConfirmed
	}

	return nil
}

// ReleaseCollateral credit the received collateral of a cancelled or repaid
// loan back to its owner, at most once
func (s *loanService) ReleaseCollateral(ctx context.Context, loanID string) (*core.Loan, error) {
	stores := s.ledger.Stores()

	loan, err := stores.Loans.Find(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if loan.ID == 0 {
		return nil, core.ErrLoanNotFound
	}

	if loan.Status != core.LoanStatusRepaid && loan.Status != core.LoanStatusCancelled {
		return nil, core.ErrInvalidLoanStatus
	}

	if !loan.CollateralReceived.IsPositive() || loan.CollateralReleasedAt != nil {
		return loan, nil
	}

	err = s.ledger.WithinTx(ctx, func(tx core.Stores) error {
		ok, err := tx.Loans.MarkCollateralReleased(ctx, loan, s.clock.Now())
		if err != nil {
			return err
		}

		if !ok {
			return errNotApplied
		}

		if err := tx.Transactions.Create(ctx, &core.Transaction{
			TraceID: id.Derive(loan.TraceID, "collateral-return"),
			UserID:  loan.UserID,
			Type:    core.TransactionTypeCollateralReturn,
			Symbol:  loan.CollateralSymbol,
			Network: loan.CollateralNetwork,
			Amount:  loan.CollateralReceived,
			Gross:   loan.CollateralReceived,
			Net:     loan.CollateralReceived,
			Fee:     decimal.Zero,
			Status:  core.TransactionStatusConfirmed,
			LoanID:  loan.TraceID,
		}); err != nil {
			return err
		}

		return tx.Balances.Credit(ctx, loan.UserID, loan.CollateralSymbol, loan.CollateralReceived)
	})

	if err != nil && !errors.Is(err, errNotApplied) && !errors.Is(err, core.ErrDuplicateTransaction) {
		return nil, err
	}

	return stores.Loans.Find(ctx, loanID)
}
