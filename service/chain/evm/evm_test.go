package evm

import (
	"context"
	"math/big"
	"testing"

	"lending/core"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	receipts map[common.Hash]*gethtypes.Receipt
	head     int64
	balance  *big.Int
	token    *big.Int
	calls    []ethereum.CallMsg
	sent     []*gethtypes.Transaction
}

func (c *fakeClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return c.balance, nil
}

func (c *fakeClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	c.calls = append(c.calls, msg)
	return common.LeftPadBytes(c.token.Bytes(), 32), nil
}

func (c *fakeClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	if r, ok := c.receipts[txHash]; ok {
		return r, nil
	}

	return nil, ethereum.NotFound
}

func (c *fakeClient) HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error) {
	return &gethtypes.Header{Number: big.NewInt(c.head)}, nil
}

func (c *fakeClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 7, nil
}

func (c *fakeClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

func (c *fakeClient) SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error {
	c.sent = append(c.sent, tx)
	return nil
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()
	ok := common.HexToHash("0x01")
	failed := common.HexToHash("0x02")

	client := &fakeClient{
		head: 105,
		receipts: map[common.Hash]*gethtypes.Receipt{
			ok:     {Status: gethtypes.ReceiptStatusSuccessful, BlockNumber: big.NewInt(100)},
			failed: {Status: gethtypes.ReceiptStatusFailed, BlockNumber: big.NewInt(100)},
		},
	}
	p := New("ethereum", client, big.NewInt(1), 6)

	confirmed, err := p.Confirm(ctx, ok.Hex(), 100)
	require.Nil(t, err)
	assert.True(t, confirmed)

	confirmed, _ = p.Confirm(ctx, ok.Hex(), 101)
	assert.False(t, confirmed, "included before the reported block")

	confirmed, _ = p.Confirm(ctx, failed.Hex(), 100)
	assert.False(t, confirmed)

	confirmed, err = p.Confirm(ctx, common.HexToHash("0x03").Hex(), 100)
	require.Nil(t, err)
	assert.False(t, confirmed, "unknown transaction")

	client.head = 104
	confirmed, _ = p.Confirm(ctx, ok.Hex(), 100)
	assert.False(t, confirmed, "5 of 6 confirmations")
}

func TestBalance(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{
		balance: new(big.Int).Mul(big.NewInt(15), big.NewInt(1e17)),
		token:   big.NewInt(2_500_000),
	}
	p := New("ethereum", client, big.NewInt(1), 0)
	address := "0x00000000000000000000000000000000000000aa"

	native, err := p.Balance(ctx, address, "", 18)
	require.Nil(t, err)
	assert.Equal(t, "1.5", native.String())

	token, err := p.Balance(ctx, address, "0xdac17f958d2ee523a2206206994597c13d831ec7", 6)
	require.Nil(t, err)
	assert.Equal(t, "2.5", token.String())
	require.Len(t, client.calls, 1)
	assert.Equal(t, balanceOfSelector, client.calls[0].Data[:4])
}

func TestTransferToken(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	p := New("ethereum", client, big.NewInt(1), 0)

	from, err := p.GenerateAddress(ctx)
	require.Nil(t, err)

	to := "0x00000000000000000000000000000000000000bb"
	contract := "0xdac17f958d2ee523a2206206994597c13d831ec7"
	txID, err := p.Transfer(ctx, &core.TransferRequest{
		From:     from,
		To:       to,
		Contract: contract,
		Decimals: 6,
		Amount:   decimal.RequireFromString("12.5"),
	})
	require.Nil(t, err)
	require.Len(t, client.sent, 1)

	tx := client.sent[0]
	assert.Equal(t, txID, tx.Hash().Hex())
	assert.Equal(t, common.HexToAddress(contract), *tx.To())
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, transferSelector, tx.Data()[:4])
	assert.Equal(t, big.NewInt(12_500_000), new(big.Int).SetBytes(tx.Data()[36:68]))

	sender, err := gethtypes.Sender(gethtypes.LatestSignerForChainID(big.NewInt(1)), tx)
	require.Nil(t, err)
	assert.Equal(t, from.Address, sender.Hex())
}

func TestTransferFee(t *testing.T) {
	p := New("ethereum", &fakeClient{}, big.NewInt(1), 0)

	fee, err := p.TransferFee(context.Background(), "")
	require.Nil(t, err)
	assert.Equal(t, "0.000042", fee.String())
}
