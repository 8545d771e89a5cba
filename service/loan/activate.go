package loan

import (
	"context"
	"errors"

	"lending/core"
	"lending/pkg/clock"
	"lending/pkg/id"

	"github.com/fox-one/pkg/logger"
	"github.com/shopspring/decimal"
)

// CollateralReceived activate the loan once the received collateral covers
// the expected amount, principal is released in the same unit of work
func (s *loanService) CollateralReceived(ctx context.Context, loanID string) (*core.Loan, error) {
	log := logger.FromContext(ctx).WithField("service", "loan").WithField("loan", loanID)
	stores := s.ledger.Stores()

	loan, err := stores.Loans.Find(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if loan.ID == 0 {
		return nil, core.ErrLoanNotFound
	}

	if loan.Status != core.LoanStatusPendingCollateral || !loan.CollateralSufficient() {
		return loan, nil
	}

	now := s.clock.Now()
	if loan.ExpiresAt != nil && !now.Before(*loan.ExpiresAt) {
		// left to the timeout watcher
		return loan, nil
	}

	net := loan.BorrowAmount.Sub(loan.OriginationFee)
	disbursement := &core.Transaction{
		TraceID: id.Derive(loan.TraceID, "disbursement"),
		UserID:  loan.UserID,
		Type:    core.TransactionTypeDisbursement,
		Symbol:  loan.BorrowSymbol,
		Network: loan.BorrowNetwork,
		Amount:  net,
		Gross:   loan.BorrowAmount,
		Net:     net,
		Fee:     loan.OriginationFee,
		Status:  core.TransactionStatusConfirmed,
		LoanID:  loan.TraceID,
	}

	if loan.PayoutMethod == core.PayoutExternal {
		disbursement.Status = core.TransactionStatusPending
		disbursement.Address = loan.PayoutAddress
	}

	err = s.ledger.WithinTx(ctx, func(tx core.Stores) error {
		ok, err := tx.Loans.Activate(ctx, loan, now, clock.AddMonth(now))
		if err != nil {
			return err
		}

		if !ok {
			return errNotApplied
		}

		asset, err := tx.Assets.Find(ctx, loan.BorrowSymbol, loan.BorrowNetwork)
		if err != nil {
			return err
		}

		// quotes only check liquidity, it is reserved here
		if ok, err := tx.Assets.TakeLiquidity(ctx, asset, net); err != nil {
			return err
		} else if !ok {
			return core.NewDeficitError(core.ErrInsufficientLiquidity, net, asset.Liquidity)
		}

		if loan.PayoutMethod != core.PayoutExternal && net.IsPositive() {
			if err := tx.Balances.Credit(ctx, loan.UserID, loan.BorrowSymbol, net); err != nil {
				return err
			}
		}

		return tx.Transactions.Create(ctx, disbursement)
	})

	if errors.Is(err, errNotApplied) {
		return stores.Loans.Find(ctx, loanID)
	}

	if err != nil {
		log.WithError(err).Errorln("activate loan")
		return nil, err
	}

	log.Infoln("loan activated, disbursed", net, loan.BorrowSymbol, "via", loan.PayoutMethod)

	if disbursement.Status == core.TransactionStatusPending {
		s.payout(ctx, loan, disbursement)
	}

	return stores.Loans.Find(ctx, loanID)
}

// payout broadcast the external disbursement from custody. A failed
// broadcast only marks the disbursement failed, the loan stays ACTIVE and is
// reconciled by an operator
func (s *loanService) payout(ctx context.Context, loan *core.Loan, disbursement *core.Transaction) {
	log := logger.FromContext(ctx).WithField("service", "loan").WithField("loan", loan.TraceID)
	transactions := s.ledger.Stores().Transactions

	txID, err := s.broadcast(ctx, loan, disbursement)
	if err != nil {
		log.WithError(err).Errorln("payout failed, disbursement needs manual reconciliation")
		disbursement.SetExtraData(disbursement.ExtraData().Put(core.TransactionKeyError, err.Error()))
		if _, err := transactions.UpdateStatus(ctx, disbursement, core.TransactionStatusPending, core.TransactionStatusFailed); err != nil {
			log.WithError(err).Errorln("transactions.UpdateStatus")
		}

		return
	}

	disbursement.SetChainTxID(txID)
	if _, err := transactions.UpdateStatus(ctx, disbursement, core.TransactionStatusPending, core.TransactionStatusConfirmed); err != nil {
		log.WithError(err).Errorln("transactions.UpdateStatus")
	}
}

func (s *loanService) broadcast(ctx context.Context, loan *core.Loan, disbursement *core.Transaction) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Loan.PayoutTimeout())
	defer cancel()

	provider, err := s.chains.Provider(loan.BorrowNetwork)
	if err != nil {
		return "", err
	}

	custody, err := s.wallets.Custody(ctx, loan.BorrowNetwork)
	if err != nil {
		return "", err
	}

	asset, err := s.ledger.Stores().Assets.Find(ctx, loan.BorrowSymbol, loan.BorrowNetwork)
	if err != nil {
		return "", err
	}

	return provider.Transfer(ctx, &core.TransferRequest{
		TraceID:  disbursement.TraceID,
		From:     custody,
		To:       loan.PayoutAddress,
		Contract: asset.ContractAddress,
		Decimals: asset.Decimals,
		Amount:   disbursement.Net,
	})
}

// DepositCollateral move collateral from the owner's available balance into
// the loan
func (s *loanService) DepositCollateral(ctx context.Context, user *core.User, loanID string, amount decimal.Decimal) (*core.Loan, error) {
	if !amount.IsPositive() {
		return nil, core.ErrInvalidAmount
	}

	loan, err := s.Find(ctx, user, loanID)
	if err != nil {
		return nil, err
	}

	if !loan.AcceptsCollateral() {
		return nil, core.ErrInvalidLoanStatus
	}

	err = s.ledger.WithinTx(ctx, func(tx core.Stores) error {
		if err := tx.Balances.Debit(ctx, loan.UserID, loan.CollateralSymbol, amount); err != nil {
			return err
		}

		ok, err := tx.Loans.AddCollateral(ctx, loan, amount)
		if err != nil {
			return err
		}

		if !ok {
			return core.ErrInvalidLoanStatus
		}

		return tx.Transactions.Create(ctx, &core.Transaction{
			TraceID: id.GenTraceID(),
			UserID:  loan.UserID,
			Type:    core.TransactionTypeDeposit,
			Symbol:  loan.CollateralSymbol,
			Network: loan.CollateralNetwork,
			Amount:  amount,
			Gross:   amount,
			Net:     amount,
			Fee:     decimal.Zero,
			Status:  core.TransactionStatusConfirmed,
			LoanID:  loan.TraceID,
			Data:    core.NewTransactionExtra().Put(core.TransactionKeySource, "balance").Format(),
		})
	})
	if err != nil {
		return nil, err
	}

	activated, err := s.CollateralReceived(ctx, loan.TraceID)
	if errors.As(err, new(*core.DeficitError)) {
		// the collateral is in, the loan waits for liquidity until it expires
		return s.ledger.Stores().Loans.Find(ctx, loan.TraceID)
	}

	return activated, err
}
