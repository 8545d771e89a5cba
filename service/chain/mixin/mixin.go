package mixin

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"

	"lending/core"
	"lending/pkg/id"

	"github.com/fox-one/mixin-sdk-go"
	"github.com/shopspring/decimal"
)

// ErrBalanceUnavailable balances of custodial users are only readable with
// their own keystore
var ErrBalanceUnavailable = errors.New("balance unavailable")

// Key private key of a custodial mixin user
type Key struct {
	Keystore *mixin.Keystore `json:"keystore"`
	Pin      string          `json:"pin"`
}

// EncodeKey key pair private key text
func EncodeKey(key *Key) (string, error) {
	bs, err := json.Marshal(key)
	if err != nil {
		return "", err
	}

	return string(bs), nil
}

// DecodeKey parse a key pair private key text
func DecodeKey(s string) (*Key, error) {
	var key Key
	if err := json.Unmarshal([]byte(s), &key); err != nil {
		return nil, err
	}

	if key.Keystore == nil {
		return nil, core.ErrInvalidArgument
	}

	return &key, nil
}

// Provider mixin network chain wallet provider, addresses are custodial
// mixin users created by the dapp
type Provider struct {
	network string
	dapp    *mixin.Client
}

// New new mixin provider
func New(network string, dapp *mixin.Client) *Provider {
	return &Provider{
		network: network,
		dapp:    dapp,
	}
}

func (p *Provider) Network() string {
	return p.network
}

func (p *Provider) GenerateAddress(ctx context.Context) (*core.KeyPair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		return nil, err
	}

	user, keystore, err := p.dapp.CreateUser(ctx, privateKey, "lending collateral")
	if err != nil {
		return nil, err
	}

	client, err := mixin.NewFromKeystore(keystore)
	if err != nil {
		return nil, err
	}

	pin := mixin.RandomPin()
	if err := client.ModifyPin(ctx, "", pin); err != nil {
		return nil, err
	}

	text, err := EncodeKey(&Key{Keystore: keystore, Pin: pin})
	if err != nil {
		return nil, err
	}

	return &core.KeyPair{
		Address:    user.UserID,
		PrivateKey: text,
	}, nil
}

// Balance only the dapp's own balance is readable
func (p *Provider) Balance(ctx context.Context, address, contract string, decimals int32) (decimal.Decimal, error) {
	if address != p.dapp.ClientID {
		return decimal.Zero, ErrBalanceUnavailable
	}

	asset, err := p.dapp.ReadAsset(ctx, contract)
	if err != nil {
		return decimal.Zero, err
	}

	return asset.Balance, nil
}

// Confirm the snapshot exists on the network, mixin snapshots are final
func (p *Provider) Confirm(ctx context.Context, txID string, blockNumber int64) (bool, error) {
	snapshot, err := p.dapp.ReadNetworkSnapshot(ctx, txID)
	if err != nil {
		return false, err
	}

	return snapshot.SnapshotID == txID && snapshot.Amount.IsPositive(), nil
}

func (p *Provider) Transfer(ctx context.Context, req *core.TransferRequest) (string, error) {
	if req.From == nil {
		return "", core.ErrInvalidArgument
	}

	key, err := DecodeKey(req.From.PrivateKey)
	if err != nil {
		return "", err
	}

	client, err := mixin.NewFromKeystore(key.Keystore)
	if err != nil {
		return "", err
	}

	traceID := req.TraceID
	if traceID == "" {
		traceID = id.GenTraceID()
	}

	snapshot, err := client.Transfer(ctx, &mixin.TransferInput{
		AssetID:    req.Contract,
		OpponentID: req.To,
		Amount:     req.Amount,
		TraceID:    traceID,
	}, key.Pin)
	if err != nil {
		return "", err
	}

	return snapshot.SnapshotID, nil
}

// TransferFee mixin transfers are free
func (p *Provider) TransferFee(ctx context.Context, contract string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
