// Package ledger provides the portfolio ledger and trade settlement math.
package ledger

import (
	"math"
	"sync"

	"papertrader/internal/errors"
	"papertrader/internal/models"
)

// CashSymbol is the ledger entry holding the cash balance.
const CashSymbol = "USD"

// FeeRate is the trading fee charged on both the open and close leg,
// as a fraction of the leg's notional value.
const FeeRate = 0.001

// minPnLMagnitude is the smallest realized PnL magnitude reported for a
// close where the price actually moved: such a close always reports at
// least ±$0.01 even when the computed PnL rounds below that. Display
// precision policy only. It applies to realized PnL at close, never to
// unrealized PnL or any other calculation.
const minPnLMagnitude = 0.01

// Fee returns the trading fee for a leg of the given notional value.
func Fee(notional float64) float64 {
	return notional * FeeRate
}

// Ledger maps asset symbols to balances, with one entry holding cash.
// It is mutated only by trade open/close settlement; every settlement is
// a single atomic update.
type Ledger struct {
	mu       sync.RWMutex
	balances map[string]float64
}

// New creates a ledger with the given initial balances.
func New(initial map[string]float64) *Ledger {
	balances := make(map[string]float64, len(initial))
	for symbol, amount := range initial {
		balances[symbol] = amount
	}
	if _, ok := balances[CashSymbol]; !ok {
		balances[CashSymbol] = 0
	}
	return &Ledger{balances: balances}
}

// Balance returns the balance for a symbol, zero when absent.
func (l *Ledger) Balance(symbol string) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[symbol]
}

// Cash returns the cash balance.
func (l *Ledger) Cash() float64 {
	return l.Balance(CashSymbol)
}

// Snapshot returns a copy of all balances.
func (l *Ledger) Snapshot() map[string]float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snapshot := make(map[string]float64, len(l.balances))
	for symbol, amount := range l.balances {
		snapshot[symbol] = amount
	}
	return snapshot
}

// TotalValue returns the portfolio value at the given prices, with cash
// counted at face value.
func (l *Ledger) TotalValue(prices map[string]float64) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total float64
	for symbol, amount := range l.balances {
		if symbol == CashSymbol {
			total += amount
			continue
		}
		total += amount * prices[symbol]
	}
	return total
}

// CheckOpen verifies the ledger can cover opening a trade of the given
// notional at the given price. Longs need cash for the notional plus
// fee; shorts need the asset quantity being sold.
func (l *Ledger) CheckOpen(symbol string, side models.Side, notional, price float64) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if side == models.SideLong {
		if l.balances[CashSymbol] < notional+Fee(notional) {
			return errors.ErrInsufficientFunds
		}
		return nil
	}
	if l.balances[symbol] < notional/price {
		return errors.ErrInsufficientFunds
	}
	return nil
}

// SettleOpen applies the open leg of a trade and returns the fee
// charged. For longs, cash is debited by notional plus fee and the
// asset credited with notional/price units; for shorts the movements
// are reversed with the fee still taken from cash.
func (l *Ledger) SettleOpen(symbol string, side models.Side, notional, price float64) float64 {
	fees := Fee(notional)
	quantity := notional / price

	l.mu.Lock()
	defer l.mu.Unlock()

	if side == models.SideLong {
		l.balances[CashSymbol] -= notional + fees
		l.balances[symbol] += quantity
	} else {
		l.balances[symbol] -= quantity
		l.balances[CashSymbol] += notional - fees
	}
	return fees
}

// CloseResult holds the outcome of a close settlement.
type CloseResult struct {
	Fees        float64
	RealizedPnL float64
}

// SettleClose applies the close leg of a trade at the given price and
// returns the fee and realized PnL. The fee is computed on the close
// notional. Longs sell the asset back for cash; shorts buy it back.
func (l *Ledger) SettleClose(pos *models.Position, closePrice float64) CloseResult {
	closeNotional := pos.Quantity * closePrice
	fees := Fee(closeNotional)

	var realized float64
	if pos.Side == models.SideLong {
		realized = (closePrice-pos.EntryPrice)*pos.Quantity - fees
	} else {
		realized = (pos.EntryPrice-closePrice)*pos.Quantity - fees
	}
	realized = floorRealizedPnL(realized, pos, closePrice, fees)

	l.mu.Lock()
	defer l.mu.Unlock()

	if pos.Side == models.SideLong {
		l.balances[pos.Symbol] -= pos.Quantity
		l.balances[CashSymbol] += closeNotional - fees
	} else {
		l.balances[CashSymbol] -= closeNotional + fees
		l.balances[pos.Symbol] += pos.Quantity
	}

	return CloseResult{Fees: fees, RealizedPnL: realized}
}

// floorRealizedPnL enforces the documented minimum magnitude on realized
// PnL when the close price differs from entry.
func floorRealizedPnL(realized float64, pos *models.Position, closePrice, fees float64) float64 {
	if math.Abs(realized) >= minPnLMagnitude || closePrice == pos.EntryPrice {
		return realized
	}

	base := math.Abs(closePrice-pos.EntryPrice)*pos.Quantity - fees

	profitable := closePrice > pos.EntryPrice
	if pos.Side == models.SideShort {
		profitable = pos.EntryPrice > closePrice
	}

	if profitable {
		return math.Max(minPnLMagnitude, base)
	}
	return math.Min(-minPnLMagnitude, -base)
}
