package quote

import (
	"context"
	"strings"

	"lending/core"
	"lending/pkg/id"

	"github.com/fox-one/pkg/logger"
	"github.com/shopspring/decimal"
)

type quoteService struct {
	config *core.Config
	assets core.AssetStore
	quotes core.QuoteStore
	prices core.PriceService
}

// New new quote engine
func New(
	cfg *core.Config,
	assets core.AssetStore,
	quotes core.QuoteStore,
	prices core.PriceService,
) core.QuoteService {
	return &quoteService{
		config: cfg,
		assets: assets,
		quotes: quotes,
		prices: prices,
	}
}

func (s *quoteService) Quote(ctx context.Context, user *core.User, req *core.QuoteRequest) (*core.Quote, error) {
	log := logger.FromContext(ctx).WithField("service", "quote")

	if req.BorrowSymbol == "" || req.BorrowNetwork == "" || req.CollateralSymbol == "" {
		return nil, core.ErrInvalidArgument
	}

	if !req.BorrowAmount.IsPositive() {
		return nil, core.ErrInvalidAmount
	}

	if !s.config.Quote.Disbursable(req.BorrowNetwork) {
		return nil, core.ErrUnsupportedNetwork
	}

	borrowAsset, err := s.assets.Find(ctx, strings.ToUpper(req.BorrowSymbol), req.BorrowNetwork)
	if err != nil {
		log.WithError(err).Errorln("assets.Find")
		return nil, err
	}

	if !borrowAsset.Listed() {
		return nil, core.ErrAssetNotListed
	}

	collateralAsset, err := s.collateralAsset(ctx, req)
	if err != nil {
		return nil, err
	}

	if !collateralAsset.Listed() {
		return nil, core.ErrAssetNotListed
	}

	termMonths := s.config.Quote.TermMonths
	rate, ok := borrowAsset.MonthlyRate(termMonths)
	if !ok {
		return nil, core.ErrAssetNotListed
	}

	tier := s.config.Tier(user.TierName())
	rate = rate.Mul(decimal.NewFromInt(1).Sub(tier.Discount()))

	if borrowAsset.Liquidity.LessThan(req.BorrowAmount) {
		return nil, core.NewDeficitError(core.ErrInsufficientLiquidity, req.BorrowAmount, borrowAsset.Liquidity)
	}

	borrowPrice, err := s.prices.Price(ctx, borrowAsset.Network, borrowAsset.Symbol)
	if err != nil {
		log.WithError(err).Warnln("price", borrowAsset.Symbol)
		return nil, core.ErrInvalidPrice
	}

	collateralPrice, err := s.prices.Price(ctx, collateralAsset.Network, collateralAsset.Symbol)
	if err != nil {
		log.WithError(err).Warnln("price", collateralAsset.Symbol)
		return nil, core.ErrInvalidPrice
	}

	quote := &core.Quote{
		TraceID:           id.GenTraceID(),
		UserID:            user.UserID,
		BorrowSymbol:      borrowAsset.Symbol,
		BorrowNetwork:     borrowAsset.Network,
		CollateralSymbol:  collateralAsset.Symbol,
		CollateralNetwork: collateralAsset.Network,
		TermMonths:        termMonths,
		Status:            core.QuoteStatusActive,
	}

	if err := Compute(quote, Terms{
		BorrowAmount:          req.BorrowAmount,
		BorrowPrice:           borrowPrice,
		CollateralPrice:       collateralPrice,
		CollateralDecimals:    collateralAsset.Decimals,
		TargetLTV:             decimal.NewFromFloat(s.config.Quote.TargetLTV),
		MarginCallLTV:         decimal.NewFromFloat(s.config.Quote.MarginCallLTV),
		LiquidationLTV:        decimal.NewFromFloat(s.config.Quote.LiquidationLTV),
		MonthlyRate:           rate,
		OriginationFeePercent: decimal.NewFromFloat(s.config.Quote.OriginationFeePercent),
	}); err != nil {
		return nil, err
	}

	if err := s.quotes.Create(ctx, quote); err != nil {
		log.WithError(err).Errorln("quotes.Create")
		return nil, err
	}

	return quote, nil
}

// collateralAsset the listed asset with the collateral symbol, on the
// requested network or on the first network that lists it
func (s *quoteService) collateralAsset(ctx context.Context, req *core.QuoteRequest) (*core.Asset, error) {
	symbol := strings.ToUpper(req.CollateralSymbol)
	if req.CollateralNetwork != "" {
		return s.assets.Find(ctx, symbol, req.CollateralNetwork)
	}

	assets, err := s.assets.All(ctx)
	if err != nil {
		return nil, err
	}

	for _, asset := range assets {
		if asset.Symbol == symbol && asset.Listed() {
			return asset, nil
		}
	}

	return &core.Asset{}, nil
}

func (s *quoteService) Cancel(ctx context.Context, user *core.User, quoteID string) error {
	quote, err := s.quotes.Find(ctx, quoteID)
	if err != nil {
		return err
	}

	if quote.ID == 0 || quote.UserID != user.UserID {
		return core.ErrQuoteNotFound
	}

	ok, err := s.quotes.UpdateStatus(ctx, quote, core.QuoteStatusActive, core.QuoteStatusCancelled)
	if err != nil {
		return err
	}

	if !ok && quote.Status != core.QuoteStatusCancelled {
		return core.ErrQuoteUsed
	}

	return nil
}
