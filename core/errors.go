package core

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// ErrorCode int
type ErrorCode int

const (
	// ErrUnknown unknown
	ErrUnknown ErrorCode = 100000
	// ErrInvalidArgument invalid or missing argument
	ErrInvalidArgument ErrorCode = 100001
	// ErrOperationForbidden operation forbidden
	ErrOperationForbidden ErrorCode = 100002

	// ErrAssetNotListed asset is unknown or not listed
	ErrAssetNotListed ErrorCode = 100100
	// ErrInvalidAmount invalid amount
	ErrInvalidAmount ErrorCode = 100101
	// ErrUnsupportedNetwork network can not be disbursed on
	ErrUnsupportedNetwork ErrorCode = 100102
	// ErrInvalidPrice price unavailable
	ErrInvalidPrice ErrorCode = 100103
	// ErrInvalidPayout payout method or address invalid
	ErrInvalidPayout ErrorCode = 100104

	// ErrInsufficientLiquidity insufficient platform liquidity
	ErrInsufficientLiquidity ErrorCode = 100200
	// ErrInsufficientBalance insufficient user balance
	ErrInsufficientBalance ErrorCode = 100201
	// ErrInsufficientCollateral insufficient collateral
	ErrInsufficientCollateral ErrorCode = 100202

	// ErrQuoteNotFound no quote
	ErrQuoteNotFound ErrorCode = 100300
	// ErrQuoteUsed quote consumed, expired or cancelled
	ErrQuoteUsed ErrorCode = 100301
	// ErrLoanNotFound no loan
	ErrLoanNotFound ErrorCode = 100302
	// ErrInvalidLoanStatus transition not allowed from the current status
	ErrInvalidLoanStatus ErrorCode = 100303

	// ErrTransactionNotConfirmed chain transaction not (yet) confirmed
	ErrTransactionNotConfirmed ErrorCode = 100400
	// ErrUnknownNetwork no chain wallet provider for the network
	ErrUnknownNetwork ErrorCode = 100401
)

var (
	// ErrDuplicateTransaction a transaction with the same chain tx id or trace id exists
	ErrDuplicateTransaction = errors.New("duplicate transaction")
)

func (e ErrorCode) String() string {
	return strconv.Itoa(int(e))
}

func (e ErrorCode) Error() string {
	switch e {
	case ErrInvalidArgument:
		return "invalid argument"
	case ErrAssetNotListed:
		return "asset not listed"
	case ErrInvalidAmount:
		return "invalid amount"
	case ErrUnsupportedNetwork:
		return "unsupported network"
	case ErrInvalidPrice:
		return "invalid price"
	case ErrInvalidPayout:
		return "invalid payout"
	case ErrInsufficientLiquidity:
		return "insufficient liquidity"
	case ErrInsufficientBalance:
		return "insufficient balance"
	case ErrInsufficientCollateral:
		return "insufficient collateral"
	case ErrQuoteNotFound:
		return "quote not found"
	case ErrQuoteUsed:
		return "quote not active"
	case ErrLoanNotFound:
		return "loan not found"
	case ErrInvalidLoanStatus:
		return "invalid loan status"
	case ErrTransactionNotConfirmed:
		return "transaction not confirmed"
	case ErrUnknownNetwork:
		return "unknown network"
	}

	return e.String()
}

// DeficitError reports how far a request is from being satisfiable
type DeficitError struct {
	Code ErrorCode
	Need decimal.Decimal
	Have decimal.Decimal
}

// NewDeficitError new deficit error
func NewDeficitError(code ErrorCode, need, have decimal.Decimal) *DeficitError {
	return &DeficitError{Code: code, Need: need, Have: have}
}

func (e *DeficitError) Error() string {
	return fmt.Sprintf("%s: need %s, have %s, deficit %s", e.Code.Error(), e.Need, e.Have, e.Deficit())
}

// Unwrap makes errors.Is(err, ErrInsufficientXXX) work
func (e *DeficitError) Unwrap() error {
	return e.Code
}

// Deficit missing amount
func (e *DeficitError) Deficit() decimal.Decimal {
	return e.Need.Sub(e.Have)
}
