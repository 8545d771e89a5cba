package wallet

import (
	"context"

	"lending/core"
	"lending/pkg/sealer"

	"github.com/fox-one/pkg/logger"
)

// New new wallet service, private keys are sealed before they are stored
func New(
	cfg *core.Config,
	chains core.ChainRegistry,
	wallets core.WalletStore,
	sealer *sealer.Sealer,
) core.WalletService {
	return &walletService{
		config:  cfg,
		chains:  chains,
		wallets: wallets,
		sealer:  sealer,
	}
}

type walletService struct {
	config  *core.Config
	chains  core.ChainRegistry
	wallets core.WalletStore
	sealer  *sealer.Sealer
}

func (s *walletService) NewWallet(ctx context.Context, userID, network string) (*core.Wallet, error) {
	log := logger.FromContext(ctx).WithField("service", "wallet")

	provider, err := s.chains.Provider(network)
	if err != nil {
		return nil, err
	}

	pair, err := provider.GenerateAddress(ctx)
	if err != nil {
		log.WithError(err).Errorln("GenerateAddress", network)
		return nil, err
	}

	sealed, err := s.sealer.Seal(pair.PrivateKey)
	if err != nil {
		return nil, err
	}

	wallet := &core.Wallet{
		UserID:    userID,
		Network:   provider.Network(),
		Address:   pair.Address,
		SealedKey: sealed,
	}

	if err := s.wallets.Create(ctx, wallet); err != nil {
		log.WithError(err).Errorln("wallets.Create")
		return nil, err
	}

	return wallet, nil
}

func (s *walletService) Open(ctx context.Context, wallet *core.Wallet) (*core.KeyPair, error) {
	key, err := s.sealer.Open(wallet.SealedKey)
	if err != nil {
		return nil, err
	}

	return &core.KeyPair{
		Address:    wallet.Address,
		PrivateKey: key,
	}, nil
}

// Custody the custody wallet of the network, the simulated chain runs
// without a custody key
func (s *walletService) Custody(ctx context.Context, network string) (*core.KeyPair, error) {
	chain, ok := s.config.Chain(network)
	if !ok {
		return nil, core.ErrUnknownNetwork
	}

	pair := &core.KeyPair{Address: chain.CustodyAddress}
	if chain.CustodyKey == "" {
		return pair, nil
	}

	key, err := s.sealer.Open(chain.CustodyKey)
	if err != nil {
		return nil, err
	}

	pair.PrivateKey = key
	return pair, nil
}
