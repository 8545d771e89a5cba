package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Wallet custodial address generated for a user
type Wallet struct {
	ID      int64  `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id,omitempty"`
	UserID  string `sql:"size:36;index:idx_wallets_user" json:"user_id,omitempty"`
	Network string `sql:"size:32;unique_index:idx_wallets_address" json:"network,omitempty"`
	Address string `sql:"size:128;unique_index:idx_wallets_address" json:"address,omitempty"`
	// loan receiving collateral at this address, empty for plain deposit wallets
	LoanID string `sql:"size:36;index:idx_wallets_loan" json:"loan_id,omitempty"`
	// sealed private key material
	SealedKey string    `sql:"type:TEXT" json:"-"`
	CreatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"created_at,omitempty"`
	UpdatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"updated_at,omitempty"`
}

// WalletStore wallet store interface
type WalletStore interface {
	Create(ctx context.Context, wallet *Wallet) error
	// FindByAddress returns an empty wallet (ID == 0) when not found
	FindByAddress(ctx context.Context, network, address string) (*Wallet, error)
	ListByUser(ctx context.Context, userID string) ([]*Wallet, error)
	AttachLoan(ctx context.Context, wallet *Wallet, loanID string) error
}

// KeyPair address with its private key material
type KeyPair struct {
	Address    string `json:"address"`
	PrivateKey string `json:"private_key"`
}

// TransferRequest on-chain transfer
type TransferRequest struct {
	TraceID  string
	From     *KeyPair
	To       string
	Contract string
	Decimals int32
	Amount   decimal.Decimal
}

// ChainWalletProvider capability of one network
type ChainWalletProvider interface {
	Network() string
	GenerateAddress(ctx context.Context) (*KeyPair, error)
	// Balance native balance when contract is empty
	Balance(ctx context.Context, address, contract string, decimals int32) (decimal.Decimal, error)
	// Confirm reports whether txID is included at or beyond blockNumber with enough confirmations
	Confirm(ctx context.Context, txID string, blockNumber int64) (bool, error)
	// Transfer broadcast a transfer, returns the chain tx id
	Transfer(ctx context.Context, req *TransferRequest) (string, error)
	// TransferFee native amount needed to pay for one transfer
	TransferFee(ctx context.Context, contract string) (decimal.Decimal, error)
}

// ChainRegistry chain wallet providers by network
type ChainRegistry interface {
	Provider(network string) (ChainWalletProvider, error)
}

// WalletService custodial address provisioning
type WalletService interface {
	// NewWallet generate & persist a fresh address on the network
	NewWallet(ctx context.Context, userID, network string) (*Wallet, error)
	// Open unseal the key pair of the wallet
	Open(ctx context.Context, wallet *Wallet) (*KeyPair, error)
	// Custody key pair of the platform custody wallet on the network
	Custody(ctx context.Context, network string) (*KeyPair, error)
}
