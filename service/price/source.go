package price

import (
	"context"
	"fmt"
	"strings"

	"lending/core"
	"lending/pkg/resthttp"

	"github.com/fox-one/pkg/logger"
)

type rateSource struct {
	endpoint string
}

// NewRateSource live rate source over the price feed http api
func NewRateSource(endpoint string) core.RateSource {
	return &rateSource{
		endpoint: strings.TrimSuffix(endpoint, "/"),
	}
}

// PullPriceTicker pull price ticker
func (s *rateSource) PullPriceTicker(ctx context.Context, network, symbol string) (*core.PriceTicker, error) {
	url := fmt.Sprintf("%s/api/v2/tickers/%s/%s", s.endpoint, network, symbol)
	logger.FromContext(ctx).Debugln("pull price:", url)

	resp, err := resthttp.Request(ctx).Get(url)
	if err != nil {
		return nil, err
	}

	var ticker core.PriceTicker
	if err := resthttp.ParseResponse(resp, &ticker); err != nil {
		return nil, err
	}

	return &ticker, nil
}
