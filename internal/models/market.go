package models

import "time"

// MarketData holds a snapshot of market statistics for one symbol.
type MarketData struct {
	Symbol           string    `json:"symbol"`
	Name             string    `json:"name"`
	Price            float64   `json:"price"`
	Change24h        float64   `json:"change_24h"`
	ChangePercent24h float64   `json:"change_percent_24h"`
	Volume24h        float64   `json:"volume_24h"`
	MarketCap        float64   `json:"market_cap"`
	High24h          float64   `json:"high_24h"`
	Low24h           float64   `json:"low_24h"`
	LastUpdated      time.Time `json:"last_updated"`
}

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// HistoricalData is a generated OHLCV series for one symbol.
type HistoricalData struct {
	Symbol   string   `json:"symbol"`
	Interval string   `json:"interval"`
	Data     []Candle `json:"data"`
}

// MoverEntry names a symbol and its 24h percentage change.
type MoverEntry struct {
	Symbol        string  `json:"symbol"`
	ChangePercent float64 `json:"change_percent"`
}

// MarketSummary aggregates market-wide statistics.
type MarketSummary struct {
	TotalMarketCap float64      `json:"total_market_cap"`
	TotalVolume24h float64      `json:"total_volume_24h"`
	BTCDominance   float64      `json:"btc_dominance"`
	TopGainers     []MoverEntry `json:"top_gainers"`
	TopLosers      []MoverEntry `json:"top_losers"`
}
