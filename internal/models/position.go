// Package models provides domain models for the paper trading engine.
package models

import "time"

// Side represents the direction of a trade.
type Side string

const (
	SideLong  Side = "buy"
	SideShort Side = "sell"
)

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// PositionStatus represents the lifecycle state of a position.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "open"
	StatusClosed PositionStatus = "closed"
)

// Position is an open trade with unrealized PnL tracked against the
// current price. It is owned by the position book while open; callers
// outside the book only ever see copies.
type Position struct {
	ID            string         `json:"id"`
	Symbol        string         `json:"symbol"`
	Side          Side           `json:"type"`
	Amount        float64        `json:"amount"`
	Quantity      float64        `json:"quantity"`
	EntryPrice    float64        `json:"entry_price"`
	CurrentPrice  float64        `json:"current_price"`
	TakeProfit    float64        `json:"take_profit,omitempty"`
	StopLoss      float64        `json:"stop_loss,omitempty"`
	Confidence    float64        `json:"ml_confidence"`
	UnrealizedPnL float64        `json:"unrealized_pnl"`
	OpenedAt      time.Time      `json:"timestamp"`
	Status        PositionStatus `json:"status"`
}

// Age returns how long the position has been open.
func (p *Position) Age(now time.Time) time.Duration {
	return now.Sub(p.OpenedAt)
}

// Notional returns the position value at entry.
func (p *Position) Notional() float64 {
	return p.EntryPrice * p.Quantity
}

// PriceChangePct returns the percentage move from entry to current price.
func (p *Position) PriceChangePct() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (p.CurrentPrice - p.EntryPrice) / p.EntryPrice * 100
}

// UnrealizedPnLPct returns the unrealized PnL as a percentage of the
// entry notional.
func (p *Position) UnrealizedPnLPct() float64 {
	notional := p.Notional()
	if notional == 0 {
		return 0
	}
	return p.UnrealizedPnL / notional * 100
}

// MarkPrice updates the current price and recomputes unrealized PnL.
// For longs profit accrues when price rises above entry, for shorts
// when it falls below.
func (p *Position) MarkPrice(price float64) {
	p.CurrentPrice = price
	if p.Side == SideLong {
		p.UnrealizedPnL = (price - p.EntryPrice) * p.Quantity
	} else {
		p.UnrealizedPnL = (p.EntryPrice - price) * p.Quantity
	}
}
