package cmd

import (
	"context"
	"fmt"
	"time"

	"lending/core"
	"lending/pkg/clock"
	"lending/pkg/sealer"
	"lending/service/chain"
	"lending/service/chain/evm"
	chainmixin "lending/service/chain/mixin"
	"lending/service/chain/simulated"
	loanservice "lending/service/loan"
	"lending/service/price"
	quoteservice "lending/service/quote"
	"lending/service/wallet"
	"lending/store/asset"
	"lending/store/balance"
	"lending/store/ledger"
	"lending/store/loan"
	"lending/store/queue"
	"lending/store/quote"
	"lending/store/transaction"
	"lending/store/user"
	walletstore "lending/store/wallet"

	"github.com/fox-one/mixin-sdk-go"
	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/property"
	"github.com/fox-one/pkg/store/db"
	propertystore "github.com/fox-one/pkg/store/property"
	"github.com/go-redis/redis"
)

const queuePoll = time.Second

func provideDatabase() *db.DB {
	return db.MustOpen(cfg.DB)
}

func provideRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
}

func provideConfig() *core.Config {
	return &cfg
}

func provideClock() clock.Clock {
	return clock.System()
}

func provideLocation() *time.Location {
	l, err := time.LoadLocation(cfg.App.Location)
	if err != nil {
		return time.UTC
	}

	return l
}

func provideSealer() *sealer.Sealer {
	return sealer.New(cfg.App.AESKey)
}

// ---------------store-----------------------------------------

func provideLedger(db *db.DB) core.Ledger {
	return ledger.New(db)
}

func provideAssetStore(db *db.DB) core.AssetStore {
	return asset.New(db)
}

func provideBalanceStore(db *db.DB) core.BalanceStore {
	return balance.New(db)
}

func provideLoanStore(db *db.DB) core.LoanStore {
	return loan.New(db)
}

func provideQuoteStore(db *db.DB) core.QuoteStore {
	return quote.New(db)
}

func provideTransactionStore(db *db.DB) core.TransactionStore {
	return transaction.New(db)
}

func provideWalletStore(db *db.DB) core.WalletStore {
	return walletstore.New(db)
}

func provideUserStore(db *db.DB) core.UserStore {
	return user.Cache(user.New(db), time.Minute)
}

func providePropertyStore(db *db.DB) property.Store {
	return propertystore.New(db)
}

// provideQueue the redis list is shared by the api server and the worker,
// without redis the queue only lives in this process
func provideQueue(ctx context.Context) core.DepositQueue {
	if cfg.Redis.Addr == "" {
		logger.FromContext(ctx).Warnln("redis not configured, deposit queue is process local")
		return queue.NewMemory(0, queuePoll)
	}

	key := cfg.Redis.QueueKey
	if key == "" {
		key = "lending:deposits"
	}

	return queue.NewRedis(provideRedis(), key, queuePoll)
}

// ------------------service------------------------------------

func provideChains(ctx context.Context) core.ChainRegistry {
	var providers []core.ChainWalletProvider
	for _, c := range cfg.Chains {
		p, err := provideChain(ctx, c)
		if err != nil {
			panic(fmt.Errorf("chain %s: %w", c.Network, err))
		}

		providers = append(providers, p)
	}

	return chain.NewRegistry(providers...)
}

func provideChain(ctx context.Context, c *core.ChainConfig) (core.ChainWalletProvider, error) {
	kind := c.Kind
	if kind == "" && cfg.App.Simulated() {
		kind = core.ChainKindSimulated
	}

	switch kind {
	case core.ChainKindSimulated:
		return simulated.New(c.Network), nil
	case core.ChainKindEVM:
		ctx, cancel := context.WithTimeout(ctx, c.Timeout())
		defer cancel()
		return evm.Dial(ctx, c)
	case core.ChainKindMixin:
		plain, err := provideSealer().Open(c.CustodyKey)
		if err != nil {
			return nil, err
		}

		key, err := chainmixin.DecodeKey(plain)
		if err != nil {
			return nil, err
		}

		dapp, err := mixin.NewFromKeystore(key.Keystore)
		if err != nil {
			return nil, err
		}

		return chainmixin.New(c.Network, dapp), nil
	}

	return nil, fmt.Errorf("unknown chain kind %q", kind)
}

func providePriceService(assets core.AssetStore) core.PriceService {
	return price.New(provideConfig(), assets, price.NewRateSource(cfg.Price.EndPoint))
}

func provideWalletService(chains core.ChainRegistry, wallets core.WalletStore) core.WalletService {
	return wallet.New(provideConfig(), chains, wallets, provideSealer())
}

func provideQuoteService(assets core.AssetStore, quotes core.QuoteStore, prices core.PriceService) core.QuoteService {
	return quoteservice.New(provideConfig(), assets, quotes, prices)
}

func provideLoanService(ledger core.Ledger, chains core.ChainRegistry, wallets core.WalletService) core.LoanService {
	return loanservice.New(provideConfig(), provideClock(), ledger, chains, wallets)
}
