package price

import (
	"context"
	"fmt"
	"strings"

	"lending/core"

	"github.com/bluele/gcache"
	"github.com/fox-one/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// New new price resolver
func New(config *core.Config, assets core.AssetStore, source core.RateSource) core.PriceService {
	return &priceService{
		config: config,
		assets: assets,
		source: source,
		cache:  gcache.New(512).LRU().Build(),
		sf:     &singleflight.Group{},
	}
}

type priceService struct {
	config *core.Config
	assets core.AssetStore
	source core.RateSource
	cache  gcache.Cache
	sf     *singleflight.Group
}

// Price usd unit price, resolved in order from the fixed prices of the
// simulated environment, the live cache, the rate source and finally the
// last known price stored on the asset
func (s *priceService) Price(ctx context.Context, network, symbol string) (decimal.Decimal, error) {
	if s.config.App.Simulated() {
		if price, ok := s.config.Price.FixedPrice(symbol); ok {
			return price, nil
		}
	}

	key := s.cacheKey(network, symbol)
	if v, err := s.cache.Get(key); err == nil {
		if price, ok := v.(decimal.Decimal); ok {
			return price, nil
		}
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.resolve(ctx, key, network, symbol)
	})
	if err != nil {
		return decimal.Zero, err
	}

	return v.(decimal.Decimal), nil
}

func (s *priceService) resolve(ctx context.Context, key, network, symbol string) (decimal.Decimal, error) {
	log := logger.FromContext(ctx).WithField("service", "price").WithField("asset", key)

	asset, err := s.assets.Find(ctx, symbol, network)
	if err != nil {
		log.WithError(err).Errorln("assets.Find")
		return decimal.Zero, err
	}

	price, err := s.pull(ctx, network, symbol)
	if err == nil {
		_ = s.cache.SetWithExpire(key, price, s.config.Price.TTL())

		if asset.ID > 0 && !asset.Price.Equal(price) {
			if err := s.assets.UpdatePrice(ctx, asset, price); err != nil {
				log.WithError(err).Warnln("assets.UpdatePrice")
			}
		}

		return price, nil
	}

	log.WithError(err).Warnln("pull price failed, fall back to last known price")

	if asset.Price.IsPositive() {
		return asset.Price, nil
	}

	return decimal.Zero, core.ErrInvalidPrice
}

func (s *priceService) pull(ctx context.Context, network, symbol string) (decimal.Decimal, error) {
	if s.source == nil {
		return decimal.Zero, core.ErrInvalidPrice
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Price.Timeout())
	defer cancel()

	ticker, err := s.source.PullPriceTicker(ctx, network, symbol)
	if err != nil {
		return decimal.Zero, err
	}

	if !ticker.Price.IsPositive() {
		return decimal.Zero, core.ErrInvalidPrice
	}

	return ticker.Price, nil
}

func (s *priceService) cacheKey(network, symbol string) string {
	return fmt.Sprintf("%s:%s", strings.ToLower(network), strings.ToUpper(symbol))
}
