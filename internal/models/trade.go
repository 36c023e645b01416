package models

import "time"

// CloseReason explains why a position was closed.
type CloseReason string

const (
	CloseTakeProfit  CloseReason = "take_profit"
	CloseStopLoss    CloseReason = "stop_loss"
	CloseManual      CloseReason = "manual"
	CloseMLSignal    CloseReason = "ml_signal"
	CloseMaxDuration CloseReason = "max_duration"
)

// Valid reports whether the reason is a known close reason.
func (r CloseReason) Valid() bool {
	switch r {
	case CloseTakeProfit, CloseStopLoss, CloseManual, CloseMLSignal, CloseMaxDuration:
		return true
	}
	return false
}

// RequestableReasons are the close reasons a caller may pass on a manual
// close request. MaxDuration is reserved for the engine's age policy.
var RequestableReasons = []CloseReason{CloseTakeProfit, CloseStopLoss, CloseManual, CloseMLSignal}

// TradeRecord is an immutable snapshot of a closed trade, written once
// at close time and never mutated afterwards.
type TradeRecord struct {
	ID          string      `json:"id"`
	Symbol      string      `json:"symbol"`
	Side        Side        `json:"type"`
	Quantity    float64     `json:"quantity"`
	EntryPrice  float64     `json:"entry_price"`
	ClosePrice  float64     `json:"close_price"`
	RealizedPnL float64     `json:"realized_pnl"`
	Fees        float64     `json:"fees"`
	ClosedAt    time.Time   `json:"close_timestamp"`
	CloseReason CloseReason `json:"close_reason"`
}

// CloseDecision is the outcome of evaluating a position against its
// close conditions.
type CloseDecision struct {
	Reason     CloseReason
	Price      float64
	Confidence float64
	Reasoning  string
}

// CloseSignal is a close/hold recommendation for an open position.
type CloseSignal struct {
	ShouldClose     bool    `json:"should_close"`
	Confidence      float64 `json:"confidence"`
	Reasoning       string  `json:"reasoning"`
	ExpectedMovePct float64 `json:"expected_move"`
}

// Prediction is a symbol-level trading recommendation.
type Prediction struct {
	Action          string  `json:"prediction"`
	Confidence      float64 `json:"confidence"`
	Reasoning       string  `json:"reasoning"`
	ExpectedMovePct float64 `json:"expected_move"`
}
