// Package history provides the append-only log of closed trades.
package history

import (
	"sync"
	"time"

	"papertrader/internal/models"
)

// History is an append-only log of closed trade records, queryable by
// recency and time window. Records are never mutated after append.
type History struct {
	mu      sync.RWMutex
	records []models.TradeRecord
	now     func() time.Time
}

// New creates an empty trade history.
func New() *History {
	return &History{now: time.Now}
}

// WithClock sets the time source, for deterministic tests.
func (h *History) WithClock(now func() time.Time) *History {
	h.now = now
	return h
}

// Append adds a closed trade record to the log.
func (h *History) Append(record models.TradeRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, record)
}

// Len returns the number of recorded trades.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Contains reports whether a trade with the given ID was recorded, and
// how many times.
func (h *History) Contains(id string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, record := range h.records {
		if record.ID == id {
			count++
		}
	}
	return count
}

// Recent returns the last n records in insertion order.
func (h *History) Recent(n int) []models.TradeRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || len(h.records) == 0 {
		return []models.TradeRecord{}
	}
	start := len(h.records) - n
	if start < 0 {
		start = 0
	}
	out := make([]models.TradeRecord, len(h.records)-start)
	copy(out, h.records[start:])
	return out
}

// Within returns the records whose close time falls within the last
// window duration.
func (h *History) Within(window time.Duration) []models.TradeRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cutoff := h.now().Add(-window)
	out := make([]models.TradeRecord, 0)
	for _, record := range h.records {
		if !record.ClosedAt.Before(cutoff) {
			out = append(out, record)
		}
	}
	return out
}

// Stats summarizes realized performance over the whole history.
type Stats struct {
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	WinRate        float64 `json:"win_rate"`
	TotalPnL       float64 `json:"total_pnl"`
	AveragePnL     float64 `json:"average_pnl"`
	TotalFees      float64 `json:"total_fees"`
	BestTradePnL   float64 `json:"best_trade_pnl"`
	WorstTradePnL  float64 `json:"worst_trade_pnl"`
}

// ComputeStats calculates performance statistics over all records.
func (h *History) ComputeStats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := Stats{TotalTrades: len(h.records)}
	if len(h.records) == 0 {
		return stats
	}

	stats.BestTradePnL = h.records[0].RealizedPnL
	stats.WorstTradePnL = h.records[0].RealizedPnL
	for _, record := range h.records {
		stats.TotalPnL += record.RealizedPnL
		stats.TotalFees += record.Fees
		if record.RealizedPnL > 0 {
			stats.WinningTrades++
		} else {
			stats.LosingTrades++
		}
		if record.RealizedPnL > stats.BestTradePnL {
			stats.BestTradePnL = record.RealizedPnL
		}
		if record.RealizedPnL < stats.WorstTradePnL {
			stats.WorstTradePnL = record.RealizedPnL
		}
	}
	stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100
	stats.AveragePnL = stats.TotalPnL / float64(stats.TotalTrades)
	return stats
}
