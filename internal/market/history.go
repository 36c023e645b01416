package market

import (
	"sort"
	"time"

	"papertrader/internal/errors"
	"papertrader/internal/models"
)

// Historical generates a simulated OHLCV series working backwards from
// the symbol's 24h-ago price. Candles follow a 2% volatility walk.
func (f *Feed) Historical(symbol, interval string, limit int) (models.HistoricalData, error) {
	f.mu.RLock()
	asset, ok := f.assets[symbol]
	if !ok {
		f.mu.RUnlock()
		return models.HistoricalData{}, errors.ErrSymbolNotFound
	}
	startPrice := asset.Price - asset.Change24h
	f.mu.RUnlock()

	if interval == "" {
		interval = "1h"
	}
	if limit <= 0 {
		limit = 24
	}

	step := time.Hour
	if interval == "1d" {
		step = 24 * time.Hour
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	data := make([]models.Candle, 0, limit+1)
	price := startPrice
	for i := limit; i >= 0; i-- {
		change := (f.rng.Float64() - 0.5) * 0.02
		price = price * (1 + change)

		high := price * (1 + f.rng.Float64()*0.01)
		low := price * (1 - f.rng.Float64()*0.01)
		open := price
		if len(data) > 0 {
			open = data[len(data)-1].Close
		}

		data = append(data, models.Candle{
			Timestamp: now.Add(-time.Duration(i) * step),
			Open:      max(open, low),
			High:      max(high, max(open, price)),
			Low:       min(low, min(open, price)),
			Close:     price,
			Volume:    f.rng.Float64()*1000000 + 500000,
		})
	}

	return models.HistoricalData{
		Symbol:   symbol,
		Interval: interval,
		Data:     data,
	}, nil
}

// Series generates a simulated closing-price series of the given length
// ending at the symbol's current price region. Used by the predictor.
func (f *Feed) Series(symbol string, points int) ([]float64, error) {
	f.mu.RLock()
	asset, ok := f.assets[symbol]
	if !ok {
		f.mu.RUnlock()
		return nil, errors.ErrSymbolNotFound
	}
	base := asset.Price
	f.mu.RUnlock()

	if points <= 0 {
		points = 100
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	prices := make([]float64, 0, points)
	price := base
	for i := 0; i < points; i++ {
		change := (f.rng.Float64() - 0.5) * 0.05
		price = price * (1 + change)
		prices = append(prices, price)
	}
	return prices, nil
}

// Summary aggregates market-wide statistics across the universe.
func (f *Feed) Summary() models.MarketSummary {
	all := f.All()

	var totalCap, totalVolume, btcCap float64
	for _, data := range all {
		totalCap += data.MarketCap
		totalVolume += data.Volume24h
		if data.Symbol == "BTC" {
			btcCap = data.MarketCap
		}
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].ChangePercent24h > all[j].ChangePercent24h
	})

	topN := 3
	if len(all) < topN {
		topN = len(all)
	}

	gainers := make([]models.MoverEntry, 0, topN)
	for _, data := range all[:topN] {
		gainers = append(gainers, models.MoverEntry{Symbol: data.Symbol, ChangePercent: data.ChangePercent24h})
	}
	losers := make([]models.MoverEntry, 0, topN)
	for _, data := range all[len(all)-topN:] {
		losers = append(losers, models.MoverEntry{Symbol: data.Symbol, ChangePercent: data.ChangePercent24h})
	}

	var dominance float64
	if totalCap > 0 {
		dominance = btcCap / totalCap * 100
	}

	return models.MarketSummary{
		TotalMarketCap: totalCap,
		TotalVolume24h: totalVolume,
		BTCDominance:   dominance,
		TopGainers:     gainers,
		TopLosers:      losers,
	}
}
