package asset

import (
	"context"

	"lending/core"

	"github.com/fox-one/pkg/store"
	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

type assetStore struct {
	db *db.DB
}

// New new asset store
func New(db *db.DB) core.AssetStore {
	return &assetStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Asset{})
		if err := tx.AutoMigrate(core.Asset{}).Error; err != nil {
			return err
		}

		return nil
	})
}

// Save update the listing fields of the asset, create it if missing
func (s *assetStore) Save(ctx context.Context, asset *core.Asset) error {
	tx := s.db.Update().Model(core.Asset{}).
		Where("symbol = ? AND network = ?", asset.Symbol, asset.Network).
		Updates(map[string]interface{}{
			"contract_address": asset.ContractAddress,
			"decimals":         asset.Decimals,
			"status":           asset.Status,
			"custody_address":  asset.CustodyAddress,
			"rate_table":       asset.RateTable,
			"version":          gorm.Expr("version + 1"),
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return s.db.Update().Create(asset).Error
	}

	return nil
}

func (s *assetStore) findBy(query string, args ...interface{}) (*core.Asset, error) {
	var asset core.Asset
	if err := s.db.View().Where(query, args...).First(&asset).Error; err != nil {
		if store.IsErrNotFound(err) {
			return &core.Asset{}, nil
		}

		return nil, err
	}

	return &asset, nil
}

func (s *assetStore) Find(ctx context.Context, symbol, network string) (*core.Asset, error) {
	return s.findBy("symbol = ? AND network = ?", symbol, network)
}

func (s *assetStore) FindByContract(ctx context.Context, network, contract string) (*core.Asset, error) {
	if contract == "" {
		return s.FindNative(ctx, network)
	}

	return s.findBy("network = ? AND LOWER(contract_address) = LOWER(?)", network, contract)
}

func (s *assetStore) FindNative(ctx context.Context, network string) (*core.Asset, error) {
	return s.findBy("network = ? AND contract_address = ?", network, "")
}

func (s *assetStore) All(ctx context.Context) ([]*core.Asset, error) {
	var assets []*core.Asset
	if err := s.db.View().Order("id").Find(&assets).Error; err != nil {
		return nil, err
	}

	return assets, nil
}

func (s *assetStore) UpdatePrice(ctx context.Context, asset *core.Asset, price decimal.Decimal) error {
	return s.db.Update().Model(core.Asset{}).
		Where("id = ?", asset.ID).
		Updates(map[string]interface{}{
			"price":   price,
			"version": gorm.Expr("version + 1"),
		}).Error
}

func (s *assetStore) AddLiquidity(ctx context.Context, asset *core.Asset, amount decimal.Decimal) error {
	return s.add(asset, "liquidity", amount)
}

func (s *assetStore) TakeLiquidity(ctx context.Context, asset *core.Asset, amount decimal.Decimal) (bool, error) {
	tx := s.db.Update().Model(core.Asset{}).
		Where("id = ? AND liquidity >= ?", asset.ID, amount).
		Updates(map[string]interface{}{
			"liquidity": gorm.Expr("liquidity - ?", amount),
			"version":   gorm.Expr("version + 1"),
		})
	if tx.Error != nil {
		return false, tx.Error
	}

	return tx.RowsAffected > 0, nil
}

func (s *assetStore) AddHeld(ctx context.Context, asset *core.Asset, amount decimal.Decimal) error {
	return s.add(asset, "held", amount)
}

func (s *assetStore) add(asset *core.Asset, column string, amount decimal.Decimal) error {
	return s.db.Update().Model(core.Asset{}).
		Where("id = ?", asset.ID).
		Updates(map[string]interface{}{
			column:    gorm.Expr(column+" + ?", amount),
			"version": gorm.Expr("version + 1"),
		}).Error
}
