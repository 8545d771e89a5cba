package memory

import (
	"context"
	"sort"
	"strings"

	"lending/core"

	"github.com/shopspring/decimal"
)

type assetStore struct {
	handle
}

func (s *assetStore) Save(ctx context.Context, asset *core.Asset) error {
	defer s.lock()()
	st := s.state()
	now := s.db.clock.Now()

	for id, a := range st.assets {
		if a.Symbol == asset.Symbol && a.Network == asset.Network {
			a.ContractAddress = asset.ContractAddress
			a.Decimals = asset.Decimals
			a.Status = asset.Status
			a.CustodyAddress = asset.CustodyAddress
			a.RateTable = asset.RateTable
			a.Version++
			a.UpdatedAt = now
			st.assets[id] = a
			*asset = a
			return nil
		}
	}

	a := *asset
	a.ID = st.nextID()
	a.CreatedAt, a.UpdatedAt = now, now
	st.assets[a.ID] = a
	*asset = a
	return nil
}

func (s *assetStore) find(match func(a *core.Asset) bool) *core.Asset {
	defer s.lock()()
	for _, a := range s.state().assets {
		a := a
		if match(&a) {
			return &a
		}
	}

	return &core.Asset{}
}

func (s *assetStore) Find(ctx context.Context, symbol, network string) (*core.Asset, error) {
	return s.find(func(a *core.Asset) bool {
		return a.Symbol == symbol && a.Network == network
	}), nil
}

func (s *assetStore) FindByContract(ctx context.Context, network, contract string) (*core.Asset, error) {
	return s.find(func(a *core.Asset) bool {
		return a.Network == network && strings.EqualFold(a.ContractAddress, contract)
	}), nil
}

func (s *assetStore) FindNative(ctx context.Context, network string) (*core.Asset, error) {
	return s.find(func(a *core.Asset) bool {
		return a.Network == network && a.Native()
	}), nil
}

func (s *assetStore) All(ctx context.Context) ([]*core.Asset, error) {
	defer s.lock()()

	assets := make([]*core.Asset, 0, len(s.state().assets))
	for _, a := range s.state().assets {
		a := a
		assets = append(assets, &a)
	}

	sort.Slice(assets, func(i, j int) bool { return assets[i].ID < assets[j].ID })
	return assets, nil
}

func (s *assetStore) update(asset *core.Asset, fn func(a *core.Asset)) error {
	defer s.lock()()
	st := s.state()

	a, ok := st.assets[asset.ID]
	if !ok {
		return nil
	}

	fn(&a)
	a.Version++
	a.UpdatedAt = s.db.clock.Now()
	st.assets[a.ID] = a
	return nil
}

func (s *assetStore) UpdatePrice(ctx context.Context, asset *core.Asset, price decimal.Decimal) error {
	return s.update(asset, func(a *core.Asset) {
		a.Price = price
	})
}

func (s *assetStore) AddLiquidity(ctx context.Context, asset *core.Asset, amount decimal.Decimal) error {
	return s.update(asset, func(a *core.Asset) {
		a.Liquidity = a.Liquidity.Add(amount)
	})
}

func (s *assetStore) TakeLiquidity(ctx context.Context, asset *core.Asset, amount decimal.Decimal) (bool, error) {
	defer s.lock()()
	st := s.state()

	a, ok := st.assets[asset.ID]
	if !ok || a.Liquidity.LessThan(amount) {
		return false, nil
	}

	a.Liquidity = a.Liquidity.Sub(amount)
	a.Version++
	a.UpdatedAt = s.db.clock.Now()
	st.assets[a.ID] = a
	return true, nil
}

func (s *assetStore) AddHeld(ctx context.Context, asset *core.Asset, amount decimal.Decimal) error {
	return s.update(asset, func(a *core.Asset) {
		a.Held = a.Held.Add(amount)
	})
}
