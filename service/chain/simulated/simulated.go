// Package simulated in-memory chain used by the simulated environment and
// tests. Every transaction is confirmed unless rejected explicitly.
package simulated

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"sync"

	"lending/core"
	"lending/pkg/id"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// ErrTransferRejected transfer failure injected by FailTransfers
var ErrTransferRejected = errors.New("simulated transfer rejected")

// Transfer a broadcast transfer
type Transfer struct {
	TxID     string
	From     string
	To       string
	Contract string
	Amount   decimal.Decimal
}

// Chain simulated chain wallet provider
type Chain struct {
	network string

	mu            sync.Mutex
	balances      map[string]decimal.Decimal
	rejected      map[string]bool
	transfers     []*Transfer
	failTransfers bool
	fee           decimal.Decimal
}

// New new simulated chain
func New(network string) *Chain {
	return &Chain{
		network:  network,
		balances: map[string]decimal.Decimal{},
		rejected: map[string]bool{},
		fee:      decimal.Zero,
	}
}

func balanceKey(address, contract string) string {
	return strings.ToLower(address) + ":" + strings.ToLower(contract)
}

func (c *Chain) Network() string {
	return c.network
}

func (c *Chain) GenerateAddress(ctx context.Context) (*core.KeyPair, error) {
	key, err := gethcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}

	return &core.KeyPair{
		Address:    gethcrypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: hex.EncodeToString(gethcrypto.FromECDSA(key)),
	}, nil
}

func (c *Chain) Balance(ctx context.Context, address, contract string, decimals int32) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.balances[balanceKey(address, contract)], nil
}

func (c *Chain) Confirm(ctx context.Context, txID string, blockNumber int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return !c.rejected[txID], nil
}

func (c *Chain) Transfer(ctx context.Context, req *core.TransferRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failTransfers {
		return "", ErrTransferRejected
	}

	txID := "0x" + strings.ReplaceAll(id.UUIDFromString(req.TraceID), "-", "")
	c.transfers = append(c.transfers, &Transfer{
		TxID:     txID,
		From:     req.From.Address,
		To:       req.To,
		Contract: req.Contract,
		Amount:   req.Amount,
	})

	from := balanceKey(req.From.Address, req.Contract)
	c.balances[from] = c.balances[from].Sub(req.Amount)
	to := balanceKey(req.To, req.Contract)
	c.balances[to] = c.balances[to].Add(req.Amount)
	return txID, nil
}

func (c *Chain) TransferFee(ctx context.Context, contract string) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fee, nil
}

// SetBalance set the on-chain balance of the address
func (c *Chain) SetBalance(address, contract string, amount decimal.Decimal) {
	c.mu.Lock()
	c.balances[balanceKey(address, contract)] = amount
	c.mu.Unlock()
}

// SetTransferFee set the native fee of a transfer
func (c *Chain) SetTransferFee(fee decimal.Decimal) {
	c.mu.Lock()
	c.fee = fee
	c.mu.Unlock()
}

// Reject make Confirm report the transaction as not included
func (c *Chain) Reject(txID string) {
	c.mu.Lock()
	c.rejected[txID] = true
	c.mu.Unlock()
}

// FailTransfers make every following Transfer fail
func (c *Chain) FailTransfers(fail bool) {
	c.mu.Lock()
	c.failTransfers = fail
	c.mu.Unlock()
}

// Transfers broadcast transfers so far
func (c *Chain) Transfers() []*Transfer {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]*Transfer(nil), c.transfers...)
}
