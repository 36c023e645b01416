// Package market provides the simulated market data feed.
package market

import (
	"math/rand"
	"sync"
	"time"

	"papertrader/internal/errors"
	"papertrader/internal/models"
)

// assetInfo holds the static seed data for one tradable symbol.
type assetInfo struct {
	name      string
	price     float64
	change24h float64
	volume24h float64
	marketCap float64
}

var defaultAssets = map[string]assetInfo{
	"BTC": {name: "Bitcoin", price: 45234.56, change24h: 1056.78, volume24h: 2834756321, marketCap: 885678901234},
	"ETH": {name: "Ethereum", price: 2345.67, change24h: -28.90, volume24h: 1567432198, marketCap: 281234567890},
	"SOL": {name: "Solana", price: 98.76, change24h: 5.67, volume24h: 892345678, marketCap: 42345678901},
	"ADA": {name: "Cardano", price: 0.45, change24h: -0.004, volume24h: 456789123, marketCap: 15678901234},
	"DOT": {name: "Polkadot", price: 7.89, change24h: 0.25, volume24h: 234567890, marketCap: 9876543210},
}

// Feed simulates a market data provider. Prices move on a bounded random
// walk when Advance is called; all reads return copies.
type Feed struct {
	mu     sync.RWMutex
	assets map[string]*models.MarketData
	rng    *rand.Rand
	now    func() time.Time
}

// Option configures a Feed.
type Option func(*Feed)

// WithRand sets the random source, for deterministic tests.
func WithRand(rng *rand.Rand) Option {
	return func(f *Feed) { f.rng = rng }
}

// WithClock sets the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(f *Feed) { f.now = now }
}

// NewFeed creates a feed seeded with the default asset universe.
func NewFeed(opts ...Option) *Feed {
	f := &Feed{
		assets: make(map[string]*models.MarketData, len(defaultAssets)),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	for symbol, info := range defaultAssets {
		f.assets[symbol] = &models.MarketData{
			Symbol:           symbol,
			Name:             info.name,
			Price:            info.price,
			Change24h:        info.change24h,
			ChangePercent24h: info.change24h / (info.price - info.change24h) * 100,
			Volume24h:        info.volume24h,
			MarketCap:        info.marketCap,
			High24h:          info.price * 1.02,
			Low24h:           info.price * 0.97,
			LastUpdated:      f.now(),
		}
	}
	return f
}

// Price returns the current price for a symbol.
func (f *Feed) Price(symbol string) (float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	asset, ok := f.assets[symbol]
	if !ok {
		return 0, errors.ErrSymbolNotFound
	}
	return asset.Price, nil
}

// Has reports whether the symbol is part of the tradable universe.
func (f *Feed) Has(symbol string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.assets[symbol]
	return ok
}

// Prices returns a snapshot of all current prices.
func (f *Feed) Prices() map[string]float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	prices := make(map[string]float64, len(f.assets))
	for symbol, asset := range f.assets {
		prices[symbol] = asset.Price
	}
	return prices
}

// Symbols returns the tradable symbols.
func (f *Feed) Symbols() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	symbols := make([]string, 0, len(f.assets))
	for symbol := range f.assets {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// Advance applies one random walk step to every symbol. Each step is a
// bounded move of at most ±0.25%.
func (f *Feed) Advance() map[string]float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	prices := make(map[string]float64, len(f.assets))
	now := f.now()
	for symbol, asset := range f.assets {
		changePct := (f.rng.Float64() - 0.5) * 0.5
		newPrice := asset.Price * (1 + changePct/100)

		asset.Change24h += newPrice - asset.Price
		if base := asset.Price - asset.Change24h; base != 0 {
			asset.ChangePercent24h = asset.Change24h / base * 100
		}
		asset.Price = newPrice
		if newPrice > asset.High24h {
			asset.High24h = newPrice
		}
		if newPrice < asset.Low24h {
			asset.Low24h = newPrice
		}
		asset.LastUpdated = now
		prices[symbol] = newPrice
	}
	return prices
}

// Data returns the market data snapshot for one symbol.
func (f *Feed) Data(symbol string) (models.MarketData, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	asset, ok := f.assets[symbol]
	if !ok {
		return models.MarketData{}, errors.ErrSymbolNotFound
	}
	return *asset, nil
}

// All returns market data snapshots for the whole universe.
func (f *Feed) All() []models.MarketData {
	f.mu.RLock()
	defer f.mu.RUnlock()

	all := make([]models.MarketData, 0, len(f.assets))
	for _, asset := range f.assets {
		all = append(all, *asset)
	}
	return all
}
