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

// errNotApplied a conditional update lost its race, the unit of work is
// rolled back and the caller re-reads the loan
var errNotApplied = errors.New("conditional update not applied")

type loanService struct {
	config  *core.Config
	clock   clock.Clock
	ledger  core.Ledger
	chains  core.ChainRegistry
	wallets core.WalletService
}

// New new loan lifecycle controller
func New(
	cfg *core.Config,
	clk clock.Clock,
	ledger core.Ledger,
	chains core.ChainRegistry,
	wallets core.WalletService,
) core.LoanService {
	return &loanService{
		config:  cfg,
		clock:   clk,
		ledger:  ledger,
		chains:  chains,
		wallets: wallets,
	}
}

func (s *loanService) Create(ctx context.Context, user *core.User, req *core.CreateLoanRequest) (*core.Loan, error) {
	log := logger.FromContext(ctx).WithField("service", "loan").WithField("quote", req.QuoteID)
	stores := s.ledger.Stores()

	method := req.PayoutMethod
	if method == "" {
		method = core.PayoutInternal
	}

	if method != core.PayoutInternal && method != core.PayoutExternal {
		return nil, core.ErrInvalidPayout
	}

	if method == core.PayoutExternal && req.PayoutAddress == "" {
		return nil, core.ErrInvalidPayout
	}

	quote, err := stores.Quotes.Find(ctx, req.QuoteID)
	if err != nil {
		log.WithError(err).Errorln("quotes.Find")
		return nil, err
	}

	if quote.ID == 0 || quote.UserID != user.UserID {
		return nil, core.ErrQuoteNotFound
	}

	if quote.Status != core.QuoteStatusActive {
		return s.existing(ctx, quote)
	}

	now := s.clock.Now()
	if now.After(quote.CreatedAt.Add(s.config.Quote.TTL())) {
		if _, err := stores.Quotes.UpdateStatus(ctx, quote, core.QuoteStatusActive, core.QuoteStatusExpired); err != nil {
			return nil, err
		}

		return nil, core.ErrQuoteUsed
	}

	// no external calls inside the unit of work, the receiving address is
	// provisioned first
	wallet, err := s.wallets.NewWallet(ctx, user.UserID, quote.CollateralNetwork)
	if err != nil {
		log.WithError(err).Errorln("wallets.NewWallet")
		return nil, err
	}

	expiresAt := now.Add(s.config.Loan.CollateralTimeout())
	loan := &core.Loan{
		TraceID:               id.Derive(quote.TraceID, "loan"),
		UserID:                user.UserID,
		QuoteID:               quote.TraceID,
		BorrowSymbol:          quote.BorrowSymbol,
		BorrowNetwork:         quote.BorrowNetwork,
		Principal:             quote.BorrowAmount,
		BorrowAmount:          quote.BorrowAmount,
		MonthlyRate:           quote.MonthlyRate,
		OriginationFee:        quote.OriginationFee,
		CollateralSymbol:      quote.CollateralSymbol,
		CollateralNetwork:     quote.CollateralNetwork,
		CollateralExpected:    quote.CollateralAmount,
		CollateralReceived:    decimal.Zero,
		ReceivingAddress:      wallet.Address,
		MarginCallLTV:         quote.MarginCallLTV,
		LiquidationLTV:        quote.LiquidationLTV,
		OriginBorrowPrice:     quote.BorrowPrice,
		OriginCollateralPrice: quote.CollateralPrice,
		OriginLoanUSD:         quote.LoanUSD,
		OriginCollateralUSD:   quote.CollateralUSD,
		PayoutMethod:          method,
		PayoutAddress:         req.PayoutAddress,
		InterestAlert:         req.InterestAlert,
		CollateralDipAlert:    req.CollateralDipAlert,
		Status:                core.LoanStatusPendingCollateral,
		ExpiresAt:             &expiresAt,
	}

	err = s.ledger.WithinTx(ctx, func(tx core.Stores) error {
		ok, err := tx.Quotes.UpdateStatus(ctx, quote, core.QuoteStatusActive, core.QuoteStatusUsed)
		if err != nil {
			return err
		}

		if !ok {
			return errNotApplied
		}

		if err := tx.Loans.Create(ctx, loan); err != nil {
			return err
		}

		return tx.Wallets.AttachLoan(ctx, wallet, loan.TraceID)
	})

	if errors.Is(err, errNotApplied) {
		return s.existing(ctx, quote)
	}

	if err != nil {
		log.WithError(err).Errorln("create loan")
		return nil, err
	}

	log.WithField("loan", loan.TraceID).Infoln("loan created, waiting for collateral at", loan.ReceivingAddress)
	return loan, nil
}

// existing the loan a used quote was consumed by, creating twice from the
// same quote returns the first loan
func (s *loanService) existing(ctx context.Context, quote *core.Quote) (*core.Loan, error) {
	loan, err := s.ledger.Stores().Loans.FindByQuote(ctx, quote.TraceID)
	if err != nil {
		return nil, err
	}

	if loan.ID == 0 || loan.UserID != quote.UserID {
		return nil, core.ErrQuoteUsed
	}

	return loan, nil
}

func (s *loanService) Find(ctx context.Context, user *core.User, loanID string) (*core.Loan, error) {
	loan, err := s.ledger.Stores().Loans.Find(ctx, loanID)
	if err != nil {
		return nil, err
	}

	if loan.ID == 0 || (loan.UserID != user.UserID && !s.config.IsAdmin(user.UserID)) {
		return nil, core.ErrLoanNotFound
	}

	return loan, nil
}

func (s *loanService) Cancel(ctx context.Context, user *core.User, loanID string) (*core.Loan, error) {
	loan, err := s.Find(ctx, user, loanID)
	if err != nil {
		return nil, err
	}

	// already cancelled loans still get their collateral released
	if loan.Status != core.LoanStatusCancelled {
		ok, err := s.ledger.Stores().Loans.Cancel(ctx, loan, s.clock.Now())
		if err != nil {
			return nil, err
		}

		if !ok {
			// lost to the timeout watcher or to activation
			if loan, err = s.ledger.Stores().Loans.Find(ctx, loanID); err != nil {
				return nil, err
			}

			if loan.Status != core.LoanStatusCancelled {
				return nil, core.ErrInvalidLoanStatus
			}
		}
	}

	return s.ReleaseCollateral(ctx, loan.TraceID)
}
