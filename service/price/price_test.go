package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"lending/core"
	"lending/store/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeed(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/api/v2/tickers/ethereum/ETH", r.URL.Path)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func productionConfig() *core.Config {
	return &core.Config{
		App: core.App{Environment: core.EnvProduction},
	}
}

func TestPriceFixedInSimulation(t *testing.T) {
	cfg := &core.Config{
		App:   core.App{Environment: core.EnvSimulation},
		Price: core.PriceConfig{Fixed: map[string]float64{"eth": 2500}},
	}

	s := New(cfg, memory.New(nil).Assets(), nil)
	price, err := s.Price(context.Background(), "ethereum", "ETH")
	require.Nil(t, err)
	assert.Equal(t, "2500", price.String())
}

func TestPriceLiveCached(t *testing.T) {
	ctx := context.Background()
	srv, hits := newFeed(t, http.StatusOK, `{"symbol":"ETH","price":"2500.5"}`)

	assets := memory.New(nil).Assets()
	asset := &core.Asset{Symbol: "ETH", Network: "ethereum", Status: core.AssetStatusListed}
	require.Nil(t, assets.Save(ctx, asset))

	s := New(productionConfig(), assets, NewRateSource(srv.URL))
	for i := 0; i < 3; i++ {
		price, err := s.Price(ctx, "ethereum", "ETH")
		require.Nil(t, err)
		assert.Equal(t, "2500.5", price.String())
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(hits))

	stored, _ := assets.Find(ctx, "ETH", "ethereum")
	assert.Equal(t, "2500.5", stored.Price.String())
}

func TestPriceFallback(t *testing.T) {
	ctx := context.Background()
	srv, _ := newFeed(t, http.StatusBadGateway, `bad gateway`)

	assets := memory.New(nil).Assets()
	s := New(productionConfig(), assets, NewRateSource(srv.URL))

	_, err := s.Price(ctx, "ethereum", "ETH")
	assert.Equal(t, core.ErrInvalidPrice, err)

	asset := &core.Asset{Symbol: "ETH", Network: "ethereum", Status: core.AssetStatusListed}
	require.Nil(t, assets.Save(ctx, asset))
	require.Nil(t, assets.UpdatePrice(ctx, asset, decimal.NewFromInt(2400)))

	price, err := s.Price(ctx, "ethereum", "ETH")
	require.Nil(t, err)
	assert.Equal(t, "2400", price.String())
}
