package evm

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"lending/core"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

const (
	nativeDecimals = 18

	nativeGasLimit = uint64(21000)
	tokenGasLimit  = uint64(100000)
)

var (
	// balanceOf(address)
	balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}
	// transfer(address,uint256)
	transferSelector = []byte{0xa9, 0x05, 0x9c, 0xbb}
)

// Client the subset of the ethereum rpc used by the provider
type Client interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
}

// Provider evm chain wallet provider
type Provider struct {
	network       string
	client        Client
	chainID       *big.Int
	confirmations int64
}

// Dial connect to the rpc endpoint of the chain
func Dial(ctx context.Context, cfg *core.ChainConfig) (*Provider, error) {
	endpoint := strings.TrimSpace(cfg.EndPoint)
	if endpoint == "" {
		return nil, fmt.Errorf("evm endpoint of %s required", cfg.Network)
	}

	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID <= 0 {
		if chainID, err = client.ChainID(ctx); err != nil {
			return nil, err
		}
	}

	return New(cfg.Network, client, chainID, cfg.Confirmations), nil
}

// New new evm provider
func New(network string, client Client, chainID *big.Int, confirmations int64) *Provider {
	return &Provider{
		network:       network,
		client:        client,
		chainID:       chainID,
		confirmations: confirmations,
	}
}

func (p *Provider) Network() string {
	return p.network
}

func (p *Provider) GenerateAddress(ctx context.Context) (*core.KeyPair, error) {
	key, err := gethcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}

	return &core.KeyPair{
		Address:    gethcrypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: hex.EncodeToString(gethcrypto.FromECDSA(key)),
	}, nil
}

func (p *Provider) Balance(ctx context.Context, address, contract string, decimals int32) (decimal.Decimal, error) {
	if !common.IsHexAddress(address) {
		return decimal.Zero, core.ErrInvalidArgument
	}

	account := common.HexToAddress(address)
	if contract == "" {
		balance, err := p.client.BalanceAt(ctx, account, nil)
		if err != nil {
			return decimal.Zero, err
		}

		return decimal.NewFromBigInt(balance, -nativeDecimals), nil
	}

	token := common.HexToAddress(contract)
	data := append(append([]byte{}, balanceOfSelector...), common.LeftPadBytes(account.Bytes(), 32)...)
	out, err := p.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return decimal.Zero, err
	}

	return decimal.NewFromBigInt(new(big.Int).SetBytes(out), -decimals), nil
}

// Confirm the transaction succeeded at or beyond the reported block and has
// enough confirmations
func (p *Provider) Confirm(ctx context.Context, txID string, blockNumber int64) (bool, error) {
	receipt, err := p.client.TransactionReceipt(ctx, common.HexToHash(txID))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return false, nil
		}

		return false, err
	}

	if receipt == nil || receipt.BlockNumber == nil || receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return false, nil
	}

	if receipt.BlockNumber.Cmp(big.NewInt(blockNumber)) < 0 {
		return false, nil
	}

	if p.confirmations <= 0 {
		return true, nil
	}

	header, err := p.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return false, err
	}

	if header == nil || header.Number == nil || header.Number.Cmp(receipt.BlockNumber) < 0 {
		return false, nil
	}

	confirmed := new(big.Int).Sub(header.Number, receipt.BlockNumber)
	confirmed.Add(confirmed, big.NewInt(1))
	return confirmed.Cmp(big.NewInt(p.confirmations)) >= 0, nil
}

func (p *Provider) Transfer(ctx context.Context, req *core.TransferRequest) (string, error) {
	if req.From == nil || !common.IsHexAddress(req.To) || !req.Amount.IsPositive() {
		return "", core.ErrInvalidArgument
	}

	key, err := parseKey(req.From.PrivateKey)
	if err != nil {
		return "", err
	}

	from := gethcrypto.PubkeyToAddress(key.PublicKey)
	nonce, err := p.client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", err
	}

	gasPrice, err := p.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", err
	}

	to := common.HexToAddress(req.To)
	var tx *gethtypes.Transaction
	if req.Contract == "" {
		value := req.Amount.Shift(nativeDecimals).BigInt()
		tx = gethtypes.NewTransaction(nonce, to, value, nativeGasLimit, gasPrice, nil)
	} else {
		value := req.Amount.Shift(req.Decimals).BigInt()
		data := append(append([]byte{}, transferSelector...), common.LeftPadBytes(to.Bytes(), 32)...)
		data = append(data, common.LeftPadBytes(value.Bytes(), 32)...)
		tx = gethtypes.NewTransaction(nonce, common.HexToAddress(req.Contract), big.NewInt(0), tokenGasLimit, gasPrice, data)
	}

	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(p.chainID), key)
	if err != nil {
		return "", err
	}

	if err := p.client.SendTransaction(ctx, signed); err != nil {
		return "", err
	}

	return signed.Hash().Hex(), nil
}

// TransferFee native coins a transfer of the contract burns at the current gas price
func (p *Provider) TransferFee(ctx context.Context, contract string) (decimal.Decimal, error) {
	gasPrice, err := p.client.SuggestGasPrice(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	limit := nativeGasLimit
	if contract != "" {
		limit = tokenGasLimit
	}

	fee := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(limit))
	return decimal.NewFromBigInt(fee, -nativeDecimals), nil
}

func parseKey(s string) (*ecdsa.PrivateKey, error) {
	return gethcrypto.HexToECDSA(strings.TrimPrefix(s, "0x"))
}
